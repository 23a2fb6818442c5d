package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/survey-api/internal/domain/entity"
	"github.com/yourusername/survey-api/internal/domain/repository"
)

// ResponseRepo implements repository.ResponseRepository
type ResponseRepo struct {
	store
}

// NewResponseRepo creates a response repository
func NewResponseRepo(db *gorm.DB, timeout time.Duration) *ResponseRepo {
	return &ResponseRepo{store: newStore(db, timeout)}
}

// CreateSubmission writes the customer row and every response in one
// transaction. A failing row rolls the whole batch back and is reported
// as *repository.RowError.
func (r *ResponseRepo) CreateSubmission(ctx context.Context, responses []entity.Response, customer *entity.CustomerInfo) error {
	return r.exec(ctx, "responses.create_submission", func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			if customer != nil {
				if err := tx.Create(customer).Error; err != nil {
					return fmt.Errorf("customer info: %w", err)
				}
			}
			for i := range responses {
				if err := tx.Omit(clause.Associations).Create(&responses[i]).Error; err != nil {
					return &repository.RowError{Index: i, QuestionID: responses[i].QuestionID, Err: err}
				}
			}
			return nil
		})
	})
}

// ListBySurvey returns responses in creation order, optionally bounded in time
func (r *ResponseRepo) ListBySurvey(ctx context.Context, surveyID uint, filter repository.ResponseFilter) ([]entity.Response, error) {
	responses := make([]entity.Response, 0)
	err := r.exec(ctx, "responses.list_by_survey", func(db *gorm.DB) error {
		q := db.Where("survey_id = ?", surveyID)
		if !filter.From.IsZero() {
			q = q.Where("created_at >= ?", filter.From)
		}
		if !filter.To.IsZero() {
			q = q.Where("created_at < ?", filter.To)
		}
		return q.Order("created_at ASC, id ASC").Find(&responses).Error
	})
	if err != nil {
		return nil, err
	}
	return responses, nil
}

type categoryCount struct {
	Category *string
	Count    int
}

// CountByCategory aggregates in the store with GROUP BY
func (r *ResponseRepo) CountByCategory(ctx context.Context, surveyID uint) (map[string]int, error) {
	var rows []categoryCount
	err := r.exec(ctx, "responses.count_by_category", func(db *gorm.DB) error {
		return db.Model(&entity.Response{}).
			Select("required_question_category AS category, COUNT(*) AS count").
			Where("survey_id = ?", surveyID).
			Group("required_question_category").
			Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		key := entity.NullCategory
		if row.Category != nil && *row.Category != "" {
			key = *row.Category
		}
		counts[key] += row.Count
	}
	return counts, nil
}

// CustomerInfoRepo implements repository.CustomerInfoRepository
type CustomerInfoRepo struct {
	store
}

// NewCustomerInfoRepo creates a customer info repository
func NewCustomerInfoRepo(db *gorm.DB, timeout time.Duration) *CustomerInfoRepo {
	return &CustomerInfoRepo{store: newStore(db, timeout)}
}

// ListBySurvey returns every respondent row recorded for the survey
func (r *CustomerInfoRepo) ListBySurvey(ctx context.Context, surveyID uint) ([]entity.CustomerInfo, error) {
	list := make([]entity.CustomerInfo, 0)
	err := r.exec(ctx, "customer_info.list_by_survey", func(db *gorm.DB) error {
		return db.Where("survey_id = ?", surveyID).Order("id").Find(&list).Error
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}
