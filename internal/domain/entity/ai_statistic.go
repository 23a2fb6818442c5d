package entity

import (
	"time"

	"github.com/google/uuid"
)

// AiStatistic is an append-only snapshot of aggregated survey results
type AiStatistic struct {
	ID                   uint        `gorm:"primaryKey" json:"id"`
	SurveyID             uint        `gorm:"not null;index:idx_ai_statistics_survey_user,priority:1" json:"survey_id"`
	UserID               uuid.UUID   `gorm:"type:uuid;not null;index:idx_ai_statistics_survey_user,priority:2" json:"user_id"`
	AnalysisDate         time.Time   `gorm:"not null;index" json:"analysis_date"`
	TotalResponses       int         `gorm:"not null;default:0" json:"total_responses"`
	AverageRating        float64     `gorm:"not null;default:0" json:"average_rating"`
	MainCustomerAgeGroup string      `gorm:"size:20;not null;default:''" json:"main_customer_age_group"`
	MainCustomerGender   string      `gorm:"size:20;not null;default:''" json:"main_customer_gender"`
	TopPros              StringArray `gorm:"type:jsonb;not null" json:"top_pros"`
	TopCons              StringArray `gorm:"type:jsonb;not null" json:"top_cons"`
	CreatedAt            time.Time   `json:"created_at"`
}

// TableName sets the GORM table name
func (AiStatistic) TableName() string {
	return "ai_statistics"
}
