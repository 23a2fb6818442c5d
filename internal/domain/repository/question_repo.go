package repository

import (
	"context"

	"github.com/yourusername/survey-api/internal/domain/entity"
)

// QuestionRepository defines access to a survey's ordered question list.
// Reads return questions with RequiredQuestion preloaded when linked.
type QuestionRepository interface {
	// Create appends the question; OrderNum is assigned as max+1.
	Create(ctx context.Context, question *entity.Question) error
	GetByID(ctx context.Context, id uint) (*entity.Question, error)

	// ListBySurvey orders by order_num ascending.
	ListBySurvey(ctx context.Context, surveyID uint) ([]entity.Question, error)
	GetByIDs(ctx context.Context, ids []uint) ([]entity.Question, error)

	// Reorder rewrites order_num to 1..n following orderedIDs, which must
	// list every question of the survey exactly once.
	Reorder(ctx context.Context, surveyID uint, orderedIDs []uint) error

	// Delete removes the question and closes the gap in order_num.
	Delete(ctx context.Context, surveyID, questionID uint) error
}

// RequiredQuestionRepository gives read access to the required question catalog
type RequiredQuestionRepository interface {
	GetByCategory(ctx context.Context, category string) (*entity.RequiredQuestion, error)
	GetByID(ctx context.Context, id uint) (*entity.RequiredQuestion, error)
	List(ctx context.Context) ([]entity.RequiredQuestion, error)
}
