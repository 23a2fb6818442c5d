package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestResponse_Category(t *testing.T) {
	tests := []struct {
		name     string
		category *string
		want     string
	}{
		{name: "stamped", category: strPtr("visit_frequency"), want: "visit_frequency"},
		{name: "nil", category: nil, want: NullCategory},
		{name: "empty", category: strPtr(""), want: NullCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Response{RequiredQuestionCategory: tt.category}
			assert.Equal(t, tt.want, r.Category())
		})
	}
}

func TestResponse_AnswerValue(t *testing.T) {
	assert.Equal(t, "4", (&Response{SelectedOption: strPtr("4")}).AnswerValue())
	assert.Equal(t, "tasty", (&Response{TextValue: strPtr("tasty")}).AnswerValue())
	assert.Equal(t, "", (&Response{}).AnswerValue())
}

func TestSurvey_OwnedBy(t *testing.T) {
	owner := uuid.New()
	s := &Survey{ID: 1, OwnerID: owner}

	assert.True(t, s.OwnedBy(owner))
	assert.False(t, s.OwnedBy(uuid.New()))
}

func TestCustomerInfo_IsEmpty(t *testing.T) {
	assert.True(t, (&CustomerInfo{}).IsEmpty())
	assert.False(t, (&CustomerInfo{AgeGroup: "20대"}).IsEmpty())
}
