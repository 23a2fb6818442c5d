package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/survey-api/internal/metrics"
	apperrors "github.com/yourusername/survey-api/internal/pkg/errors"
)

// DefaultQueryTimeout bounds a store call when no timeout is configured
const DefaultQueryTimeout = 5 * time.Second

// store is embedded by every repository. Each call runs under its own
// deadline and comes back mapped onto the application error taxonomy.
type store struct {
	db      *gorm.DB
	timeout time.Duration
}

func newStore(db *gorm.DB, timeout time.Duration) store {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return store{db: db, timeout: timeout}
}

func (s store) exec(ctx context.Context, op string, fn func(db *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := fn(s.db.WithContext(ctx))
	metrics.ObserveStoreQuery(op, time.Since(start), err)
	return mapError(op, err)
}

// mapError translates gorm and driver errors. Errors that already carry an
// application sentinel pass through untouched.
func mapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isDomainError(err):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, apperrors.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w: %w", op, apperrors.ErrConflict, err)
	default:
		return apperrors.Query(op, err)
	}
}

func isDomainError(err error) bool {
	for _, target := range []error{
		apperrors.ErrNotFound,
		apperrors.ErrNotFoundOrForbidden,
		apperrors.ErrAmbiguousState,
		apperrors.ErrValidation,
		apperrors.ErrConflict,
		apperrors.ErrQuery,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// isUniqueViolation detects Postgres unique violation (23505) for both pgconn and lib/pq
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}

// isForeignKeyViolation detects Postgres foreign key violation (23503)
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		return true
	}
	return false
}
