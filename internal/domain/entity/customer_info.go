package entity

import "time"

// CustomerInfo describes the respondent of one submission
type CustomerInfo struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SurveyID  uint      `gorm:"not null;index" json:"survey_id"`
	Name      string    `gorm:"size:100;not null;default:''" json:"name"`
	AgeGroup  string    `gorm:"size:20;not null;default:''" json:"age_group"`
	Gender    string    `gorm:"size:20;not null;default:''" json:"gender"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName sets the GORM table name
func (CustomerInfo) TableName() string {
	return "customer_info"
}

// IsEmpty reports whether no field was provided
func (c *CustomerInfo) IsEmpty() bool {
	return c.Name == "" && c.AgeGroup == "" && c.Gender == ""
}
