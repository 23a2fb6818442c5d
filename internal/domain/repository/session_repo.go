package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/survey-api/internal/domain/entity"
)

// SessionEventStore publishes and delivers owner session events and keeps
// the list of revoked tokens.
type SessionEventStore interface {
	RevokeToken(ctx context.Context, tokenID string, until time.Time) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)

	Publish(ctx context.Context, event entity.SessionEvent) error

	// Subscribe delivers events for ownerID until the subscription is
	// closed or ctx is done.
	Subscribe(ctx context.Context, ownerID uuid.UUID) (SessionSubscription, error)
}

// SessionSubscription is a live stream of session events
type SessionSubscription interface {
	Events() <-chan entity.SessionEvent
	Close() error
}
