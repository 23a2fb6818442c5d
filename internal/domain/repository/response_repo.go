package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/survey-api/internal/domain/entity"
)

// ResponseFilter narrows a response listing. Zero times are ignored.
type ResponseFilter struct {
	From time.Time
	To   time.Time
}

// ResponseRepository defines response persistence
type ResponseRepository interface {
	// CreateSubmission writes every response and the optional customer row
	// atomically. Nothing is persisted when an error is returned.
	CreateSubmission(ctx context.Context, responses []entity.Response, customer *entity.CustomerInfo) error
	ListBySurvey(ctx context.Context, surveyID uint, filter ResponseFilter) ([]entity.Response, error)

	// CountByCategory groups the survey's responses by stamped category;
	// uncategorised rows are reported under entity.NullCategory.
	CountByCategory(ctx context.Context, surveyID uint) (map[string]int, error)
}

// CustomerInfoRepository gives read access to respondent demographics
type CustomerInfoRepository interface {
	ListBySurvey(ctx context.Context, surveyID uint) ([]entity.CustomerInfo, error)
}

// RowError reports which row of a batch write failed
type RowError struct {
	Index      int
	QuestionID uint
	Err        error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("response row %d (question #%d): %v", e.Index, e.QuestionID, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
