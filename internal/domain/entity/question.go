package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// StringArray is a JSONB-backed list of strings
type StringArray []string

// Scan implements sql.Scanner for StringArray
func (o *StringArray) Scan(value interface{}) error {
	if value == nil {
		*o = StringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value implements driver.Valuer for StringArray
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

// Contains reports whether s is one of the elements
func (o StringArray) Contains(s string) bool {
	for _, v := range o {
		if v == s {
			return true
		}
	}
	return false
}

// QuestionType enumerates the supported answer formats
type QuestionType string

const (
	QuestionTypeRating         QuestionType = "rating"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeFreeText       QuestionType = "free_text"
)

const (
	RatingMin          = 1
	RatingMax          = 5
	MaxFreeTextLength  = 2000
	MaxQuestionTextLen = 500
)

// IsValid reports whether t is a known question type
func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionTypeRating, QuestionTypeMultipleChoice, QuestionTypeFreeText:
		return true
	}
	return false
}

// Question is one entry in a survey's ordered question list.
// RequiredQuestion is only populated when the repository resolves the link.
type Question struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	SurveyID           uint              `gorm:"not null;uniqueIndex:idx_questions_survey_order,priority:1" json:"survey_id"`
	OrderNum           int               `gorm:"not null;uniqueIndex:idx_questions_survey_order,priority:2" json:"order_num"`
	QuestionType       QuestionType      `gorm:"size:20;not null" json:"question_type"`
	QuestionText       string            `gorm:"size:500;not null" json:"question_text"`
	Options            StringArray       `gorm:"type:jsonb" json:"options,omitempty"`
	RequiredQuestionID *uint             `gorm:"index" json:"required_question_id,omitempty"`
	RequiredQuestion   *RequiredQuestion `gorm:"foreignKey:RequiredQuestionID" json:"required_question,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// TableName sets the GORM table name
func (Question) TableName() string {
	return "questions"
}

// IsConditional reports whether the question is linked to a required question
func (q *Question) IsConditional() bool {
	return q.RequiredQuestionID != nil
}

// LinkedCategory returns the category of the resolved required question.
// ok is false for unlinked questions. A linked question whose
// RequiredQuestion was not loaded yields an error.
func (q *Question) LinkedCategory() (category string, ok bool, err error) {
	if q.RequiredQuestionID == nil {
		return "", false, nil
	}
	if q.RequiredQuestion == nil || q.RequiredQuestion.ID != *q.RequiredQuestionID {
		return "", false, fmt.Errorf("question %d: required question %d not resolved", q.ID, *q.RequiredQuestionID)
	}
	return q.RequiredQuestion.Category, true, nil
}

// ValidateAnswer checks that value fits the question type
func (q *Question) ValidateAnswer(value string) error {
	value = strings.TrimSpace(value)
	switch q.QuestionType {
	case QuestionTypeRating:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("rating must be an integer, got %q", value)
		}
		if n < RatingMin || n > RatingMax {
			return fmt.Errorf("rating must be between %d and %d, got %d", RatingMin, RatingMax, n)
		}
	case QuestionTypeMultipleChoice:
		if value == "" {
			return errors.New("an option must be selected")
		}
		if q.Options.Contains(value) {
			return nil
		}
		restricted := len(q.Options) > 0
		if q.RequiredQuestion != nil && len(q.RequiredQuestion.Choices.Data()) > 0 {
			if q.RequiredQuestion.HasChoice(value) {
				return nil
			}
			restricted = true
		}
		if restricted {
			return fmt.Errorf("unknown option %q", value)
		}
	case QuestionTypeFreeText:
		if value == "" {
			return errors.New("answer text is empty")
		}
		if utf8.RuneCountInString(value) > MaxFreeTextLength {
			return fmt.Errorf("answer text exceeds %d characters", MaxFreeTextLength)
		}
	default:
		return fmt.Errorf("unsupported question type %q", q.QuestionType)
	}
	return nil
}
