package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/survey-api/internal/domain/entity"
)

// SurveyRepository defines survey persistence
type SurveyRepository interface {
	Create(ctx context.Context, survey *entity.Survey) error
	GetByID(ctx context.Context, id uint) (*entity.Survey, error)

	// GetActiveByOwner returns ErrNotFound when the owner has no active
	// survey and ErrAmbiguousState when more than one is active.
	GetActiveByOwner(ctx context.Context, ownerID uuid.UUID) (*entity.Survey, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.Survey, error)
	ExistsForOwner(ctx context.Context, id uint, ownerID uuid.UUID) (bool, error)

	// Activate makes the survey the owner's only active one in a single
	// transaction. Returns ErrNotFoundOrForbidden when the row does not
	// match both id and owner.
	Activate(ctx context.Context, id uint, ownerID uuid.UUID) error
	Deactivate(ctx context.Context, id uint, ownerID uuid.UUID) error
}
