package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/survey-api/internal/domain/entity"
	apperrors "github.com/yourusername/survey-api/internal/pkg/errors"
)

// SurveyRepo implements repository.SurveyRepository
type SurveyRepo struct {
	store
}

// NewSurveyRepo creates a survey repository
func NewSurveyRepo(db *gorm.DB, timeout time.Duration) *SurveyRepo {
	return &SurveyRepo{store: newStore(db, timeout)}
}

// Create inserts a survey. New surveys always start inactive.
func (r *SurveyRepo) Create(ctx context.Context, survey *entity.Survey) error {
	survey.IsActive = false
	return r.exec(ctx, "surveys.create", func(db *gorm.DB) error {
		return db.Omit(clause.Associations).Create(survey).Error
	})
}

// GetByID returns a survey by ID
func (r *SurveyRepo) GetByID(ctx context.Context, id uint) (*entity.Survey, error) {
	var survey entity.Survey
	err := r.exec(ctx, "surveys.get_by_id", func(db *gorm.DB) error {
		return db.First(&survey, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &survey, nil
}

// GetActiveByOwner fetches at most two active rows so that a violated
// single-active invariant is reported instead of hidden.
func (r *SurveyRepo) GetActiveByOwner(ctx context.Context, ownerID uuid.UUID) (*entity.Survey, error) {
	var surveys []entity.Survey
	err := r.exec(ctx, "surveys.get_active", func(db *gorm.DB) error {
		return db.Where("owner_id = ? AND is_active = ?", ownerID, true).
			Order("id").
			Limit(2).
			Find(&surveys).Error
	})
	if err != nil {
		return nil, err
	}

	switch len(surveys) {
	case 0:
		return nil, fmt.Errorf("active survey of owner %s: %w", ownerID, apperrors.ErrNotFound)
	case 1:
		return &surveys[0], nil
	default:
		return nil, fmt.Errorf("owner %s has more than one active survey: %w", ownerID, apperrors.ErrAmbiguousState)
	}
}

// ListByOwner returns the owner's surveys, newest first
func (r *SurveyRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.Survey, error) {
	surveys := make([]entity.Survey, 0)
	err := r.exec(ctx, "surveys.list_by_owner", func(db *gorm.DB) error {
		return db.Where("owner_id = ?", ownerID).Order("created_at DESC, id DESC").Find(&surveys).Error
	})
	if err != nil {
		return nil, err
	}
	return surveys, nil
}

// ExistsForOwner checks that a survey with both id and owner exists
func (r *SurveyRepo) ExistsForOwner(ctx context.Context, id uint, ownerID uuid.UUID) (bool, error) {
	var count int64
	err := r.exec(ctx, "surveys.exists_for_owner", func(db *gorm.DB) error {
		return db.Model(&entity.Survey{}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Count(&count).Error
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Activate switches the owner's active survey inside one transaction.
// The partial unique index on (owner_id) WHERE is_active turns a concurrent
// activation into ErrConflict.
func (r *SurveyRepo) Activate(ctx context.Context, id uint, ownerID uuid.UUID) error {
	return r.exec(ctx, "surveys.activate", func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var survey entity.Survey
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ? AND owner_id = ?", id, ownerID).
				First(&survey).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("survey #%d: %w", id, apperrors.ErrNotFoundOrForbidden)
				}
				return err
			}

			if err := tx.Model(&entity.Survey{}).
				Where("owner_id = ? AND id <> ? AND is_active = ?", ownerID, id, true).
				Update("is_active", false).Error; err != nil {
				return err
			}

			return tx.Model(&entity.Survey{}).
				Where("id = ?", id).
				Update("is_active", true).Error
		})
	})
}

// Deactivate clears the active flag of one survey
func (r *SurveyRepo) Deactivate(ctx context.Context, id uint, ownerID uuid.UUID) error {
	return r.exec(ctx, "surveys.deactivate", func(db *gorm.DB) error {
		result := db.Model(&entity.Survey{}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Update("is_active", false)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("survey #%d: %w", id, apperrors.ErrNotFoundOrForbidden)
		}
		return nil
	})
}
