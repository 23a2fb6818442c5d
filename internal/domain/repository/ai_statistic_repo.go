package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/survey-api/internal/domain/entity"
)

// AiStatisticRepository stores the append-only statistics log
type AiStatisticRepository interface {
	Create(ctx context.Context, stat *entity.AiStatistic) error

	// ListBySurvey returns snapshots newest first (analysis_date DESC).
	ListBySurvey(ctx context.Context, surveyID uint, userID uuid.UUID) ([]entity.AiStatistic, error)
}
