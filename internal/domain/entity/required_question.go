package entity

import (
	"sort"

	"gorm.io/datatypes"
)

// Choices maps an option key to its display text
type Choices map[string]string

// RequiredQuestion is immutable catalog data shared by every survey.
// Category is the tag stamped onto responses of linked questions.
type RequiredQuestion struct {
	ID           uint                       `gorm:"primaryKey" json:"id"`
	Category     string                     `gorm:"size:64;not null;uniqueIndex" json:"category"`
	QuestionText string                     `gorm:"size:500;not null" json:"question_text"`
	Choices      datatypes.JSONType[Choices] `gorm:"type:jsonb;not null" json:"choices"`
}

// TableName sets the GORM table name
func (RequiredQuestion) TableName() string {
	return "required_questions"
}

// HasChoice reports whether key is one of the catalog options
func (r *RequiredQuestion) HasChoice(key string) bool {
	_, ok := r.Choices.Data()[key]
	return ok
}

// ChoiceKeys returns the option keys in stable order
func (r *RequiredQuestion) ChoiceKeys() []string {
	choices := r.Choices.Data()
	keys := make([]string, 0, len(choices))
	for k := range choices {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
