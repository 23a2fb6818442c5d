package service

import (
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/yourusername/survey-api/internal/pkg/errors"
)

// Service-specific errors
var (
	// ErrSurveyInactive is returned when answers target a survey that is not active.
	ErrSurveyInactive = fmt.Errorf("%w: survey is not accepting responses", apperrors.ErrConflict)
	// ErrFeatureDisabled is returned when an optional integration is not configured.
	ErrFeatureDisabled = errors.New("feature_disabled")
)

// SubmissionError describes a failed answer-set write. Writes are atomic,
// so after a failure Succeeded is empty and Failed lists the whole batch.
type SubmissionError struct {
	SurveyID         uint
	Succeeded        []uint
	Failed           []uint
	FailedQuestionID uint
	Err              error
}

func (e *SubmissionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "submission to survey #%d failed", e.SurveyID)
	if e.FailedQuestionID != 0 {
		fmt.Fprintf(&b, " at question #%d", e.FailedQuestionID)
	}
	fmt.Fprintf(&b, " (%d written, %d rejected): %v", len(e.Succeeded), len(e.Failed), e.Err)
	return b.String()
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
