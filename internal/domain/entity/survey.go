package entity

import (
	"time"

	"github.com/google/uuid"
)

// Survey is an owner's questionnaire. At most one survey per owner is active.
type Survey struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"size:1000;not null;default:''" json:"description"`
	OwnerID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_id"`
	IsActive    bool       `gorm:"not null;default:false" json:"is_active"`
	Questions   []Question `gorm:"foreignKey:SurveyID" json:"questions,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName sets the GORM table name
func (Survey) TableName() string {
	return "surveys"
}

// OwnedBy reports whether ownerID owns the survey
func (s *Survey) OwnedBy(ownerID uuid.UUID) bool {
	return s.OwnerID == ownerID
}
