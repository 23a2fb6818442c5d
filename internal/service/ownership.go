package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yourusername/survey-api/internal/domain/repository"
	apperrors "github.com/yourusername/survey-api/internal/pkg/errors"
)

// requireOwner checks that surveyID belongs to ownerID. A missing survey and
// a foreign one produce the same ErrNotFoundOrForbidden.
func requireOwner(ctx context.Context, surveys repository.SurveyRepository, surveyID uint, ownerID uuid.UUID) error {
	ok, err := retryRead(ctx, func() (bool, error) {
		return surveys.ExistsForOwner(ctx, surveyID, ownerID)
	})
	if err != nil {
		return fmt.Errorf("check survey ownership: %w", err)
	}
	if !ok {
		return fmt.Errorf("survey #%d: %w", surveyID, apperrors.ErrNotFoundOrForbidden)
	}
	return nil
}
