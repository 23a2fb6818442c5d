package entity

import (
	"time"

	"github.com/google/uuid"
)

// NullCategory labels responses to questions without a required-question link
const NullCategory = "null"

// Response is one answered question instance.
// RequiredQuestionCategory mirrors the category linked to the question at
// answer time; nil means the question was not linked.
type Response struct {
	ID                       uint      `gorm:"primaryKey" json:"id"`
	SubmissionID             uuid.UUID `gorm:"type:uuid;not null;index" json:"submission_id"`
	SurveyID                 uint      `gorm:"not null;index:idx_responses_survey_created,priority:1" json:"survey_id"`
	QuestionID               uint      `gorm:"not null;index" json:"question_id"`
	SelectedOption           *string   `gorm:"size:255" json:"selected_option,omitempty"`
	TextValue                *string   `gorm:"type:text" json:"text_value,omitempty"`
	RequiredQuestionCategory *string   `gorm:"size:64;index" json:"required_question_category"`
	CreatedAt                time.Time `gorm:"index:idx_responses_survey_created,priority:2" json:"created_at"`
}

// TableName sets the GORM table name
func (Response) TableName() string {
	return "responses"
}

// Category returns the stamped category or NullCategory
func (r *Response) Category() string {
	if r.RequiredQuestionCategory == nil || *r.RequiredQuestionCategory == "" {
		return NullCategory
	}
	return *r.RequiredQuestionCategory
}

// AnswerValue returns whichever answer column is set
func (r *Response) AnswerValue() string {
	if r.SelectedOption != nil {
		return *r.SelectedOption
	}
	if r.TextValue != nil {
		return *r.TextValue
	}
	return ""
}
