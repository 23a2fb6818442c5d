package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/survey-api/internal/domain/entity"
	apperrors "github.com/yourusername/survey-api/internal/pkg/errors"
)

// QuestionRepo implements repository.QuestionRepository
type QuestionRepo struct {
	store
}

// NewQuestionRepo creates a question repository
func NewQuestionRepo(db *gorm.DB, timeout time.Duration) *QuestionRepo {
	return &QuestionRepo{store: newStore(db, timeout)}
}

// Create appends a question to its survey. The survey row is locked so
// that concurrent appends cannot pick the same order_num.
func (r *QuestionRepo) Create(ctx context.Context, question *entity.Question) error {
	return r.exec(ctx, "questions.create", func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var survey entity.Survey
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").
				First(&survey, question.SurveyID).Error
			if err != nil {
				return err
			}

			var maxOrder int
			if err := tx.Model(&entity.Question{}).
				Where("survey_id = ?", question.SurveyID).
				Select("COALESCE(MAX(order_num), 0)").
				Scan(&maxOrder).Error; err != nil {
				return err
			}

			question.OrderNum = maxOrder + 1
			if err := tx.Omit(clause.Associations).Create(question).Error; err != nil {
				if isForeignKeyViolation(err) {
					return apperrors.Validation("required question #%d does not exist", derefUint(question.RequiredQuestionID))
				}
				return err
			}
			return nil
		})
	})
}

// GetByID returns a question with its required question
func (r *QuestionRepo) GetByID(ctx context.Context, id uint) (*entity.Question, error) {
	var question entity.Question
	err := r.exec(ctx, "questions.get_by_id", func(db *gorm.DB) error {
		return db.Preload("RequiredQuestion").First(&question, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

// ListBySurvey returns the survey's questions ordered by order_num
func (r *QuestionRepo) ListBySurvey(ctx context.Context, surveyID uint) ([]entity.Question, error) {
	questions := make([]entity.Question, 0)
	err := r.exec(ctx, "questions.list_by_survey", func(db *gorm.DB) error {
		return db.Preload("RequiredQuestion").
			Where("survey_id = ?", surveyID).
			Order("order_num ASC").
			Find(&questions).Error
	})
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// GetByIDs loads the given questions with their required questions.
// Unknown ids are simply absent from the result.
func (r *QuestionRepo) GetByIDs(ctx context.Context, ids []uint) ([]entity.Question, error) {
	questions := make([]entity.Question, 0, len(ids))
	if len(ids) == 0 {
		return questions, nil
	}
	err := r.exec(ctx, "questions.get_by_ids", func(db *gorm.DB) error {
		return db.Preload("RequiredQuestion").
			Where("id IN ?", ids).
			Order("order_num ASC").
			Find(&questions).Error
	})
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// Reorder assigns order_num 1..n following orderedIDs.
// Rows are first moved to negative positions so that the
// (survey_id, order_num) unique constraint holds after every statement.
func (r *QuestionRepo) Reorder(ctx context.Context, surveyID uint, orderedIDs []uint) error {
	return r.exec(ctx, "questions.reorder", func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var current []uint
			if err := tx.Model(&entity.Question{}).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("survey_id = ?", surveyID).
				Pluck("id", &current).Error; err != nil {
				return err
			}
			if err := samePermutation(current, orderedIDs); err != nil {
				return err
			}

			if err := tx.Model(&entity.Question{}).
				Where("survey_id = ?", surveyID).
				Update("order_num", gorm.Expr("-order_num")).Error; err != nil {
				return err
			}
			for i, id := range orderedIDs {
				if err := tx.Model(&entity.Question{}).
					Where("id = ? AND survey_id = ?", id, surveyID).
					Update("order_num", i+1).Error; err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// Delete removes an unanswered question and shifts the following ones up
// by one. Answered questions are refused with ErrConflict.
func (r *QuestionRepo) Delete(ctx context.Context, surveyID, questionID uint) error {
	return r.exec(ctx, "questions.delete", func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var question entity.Question
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ? AND survey_id = ?", questionID, surveyID).
				First(&question).Error
			if err != nil {
				return err
			}

			var answered int64
			if err := tx.Model(&entity.Response{}).
				Where("question_id = ?", question.ID).
				Count(&answered).Error; err != nil {
				return err
			}
			if answered > 0 {
				return questionHasResponses(question.ID)
			}

			if err := tx.Delete(&entity.Question{}, question.ID).Error; err != nil {
				if isForeignKeyViolation(err) {
					return questionHasResponses(question.ID)
				}
				return err
			}

			if err := tx.Model(&entity.Question{}).
				Where("survey_id = ? AND order_num > ?", surveyID, question.OrderNum).
				Update("order_num", gorm.Expr("-(order_num - 1)")).Error; err != nil {
				return err
			}
			return tx.Model(&entity.Question{}).
				Where("survey_id = ? AND order_num < 0", surveyID).
				Update("order_num", gorm.Expr("-order_num")).Error
		})
	})
}

func questionHasResponses(id uint) error {
	return fmt.Errorf("%w: question #%d has responses", apperrors.ErrConflict, id)
}

func samePermutation(current, ordered []uint) error {
	if len(current) != len(ordered) {
		return apperrors.Validation("expected %d question ids, got %d", len(current), len(ordered))
	}
	known := make(map[uint]bool, len(current))
	for _, id := range current {
		known[id] = false
	}
	for _, id := range ordered {
		seen, ok := known[id]
		if !ok {
			return apperrors.Validation("question #%d does not belong to the survey", id)
		}
		if seen {
			return apperrors.Validation("question #%d listed twice", id)
		}
		known[id] = true
	}
	return nil
}

func derefUint(v *uint) uint {
	if v == nil {
		return 0
	}
	return *v
}

// RequiredQuestionRepo implements repository.RequiredQuestionRepository
type RequiredQuestionRepo struct {
	store
}

// NewRequiredQuestionRepo creates a required question repository
func NewRequiredQuestionRepo(db *gorm.DB, timeout time.Duration) *RequiredQuestionRepo {
	return &RequiredQuestionRepo{store: newStore(db, timeout)}
}

// GetByCategory returns the catalog entry for a category
func (r *RequiredQuestionRepo) GetByCategory(ctx context.Context, category string) (*entity.RequiredQuestion, error) {
	var rq entity.RequiredQuestion
	err := r.exec(ctx, "required_questions.get_by_category", func(db *gorm.DB) error {
		return db.Where("category = ?", category).First(&rq).Error
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("required question %q: %w", category, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &rq, nil
}

// GetByID returns a catalog entry by ID
func (r *RequiredQuestionRepo) GetByID(ctx context.Context, id uint) (*entity.RequiredQuestion, error) {
	var rq entity.RequiredQuestion
	err := r.exec(ctx, "required_questions.get_by_id", func(db *gorm.DB) error {
		return db.First(&rq, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &rq, nil
}

// List returns the whole catalog
func (r *RequiredQuestionRepo) List(ctx context.Context) ([]entity.RequiredQuestion, error) {
	list := make([]entity.RequiredQuestion, 0)
	err := r.exec(ctx, "required_questions.list", func(db *gorm.DB) error {
		return db.Order("id").Find(&list).Error
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}
