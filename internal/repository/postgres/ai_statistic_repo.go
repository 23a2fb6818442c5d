package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/survey-api/internal/domain/entity"
)

// AiStatisticRepo implements repository.AiStatisticRepository
type AiStatisticRepo struct {
	store
}

// NewAiStatisticRepo creates an AI statistics repository
func NewAiStatisticRepo(db *gorm.DB, timeout time.Duration) *AiStatisticRepo {
	return &AiStatisticRepo{store: newStore(db, timeout)}
}

// Create appends a snapshot
func (r *AiStatisticRepo) Create(ctx context.Context, stat *entity.AiStatistic) error {
	if stat.AnalysisDate.IsZero() {
		stat.AnalysisDate = time.Now().UTC()
	}
	return r.exec(ctx, "ai_statistics.create", func(db *gorm.DB) error {
		return db.Create(stat).Error
	})
}

// ListBySurvey returns the owner's snapshots for a survey, newest first
func (r *AiStatisticRepo) ListBySurvey(ctx context.Context, surveyID uint, userID uuid.UUID) ([]entity.AiStatistic, error) {
	stats := make([]entity.AiStatistic, 0)
	err := r.exec(ctx, "ai_statistics.list_by_survey", func(db *gorm.DB) error {
		return db.Where("survey_id = ? AND user_id = ?", surveyID, userID).
			Order("analysis_date DESC, id DESC").
			Find(&stats).Error
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
