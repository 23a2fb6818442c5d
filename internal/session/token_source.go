package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yourusername/survey-api/internal/domain/repository"
	"github.com/yourusername/survey-api/pkg/auth"
)

// TokenVerifier parses a bearer token into owner claims
type TokenVerifier interface {
	ParseToken(token string) (*auth.Claims, error)
}

// TokenSource resolves a session from a bearer token and watches its
// owner's events in the session event store.
type TokenSource struct {
	token    string
	verifier TokenVerifier
	events   repository.SessionEventStore
}

// NewTokenSource creates a source for one connection's token
func NewTokenSource(token string, verifier TokenVerifier, events repository.SessionEventStore) *TokenSource {
	return &TokenSource{token: token, verifier: verifier, events: events}
}

// Current implements SessionSource. Revoked and missing tokens are no session.
func (s *TokenSource) Current(ctx context.Context) (*Session, error) {
	if s.token == "" {
		return nil, nil
	}
	claims, err := s.verifier.ParseToken(s.token)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	revoked, err := s.events.IsTokenRevoked(ctx, claims.TokenID())
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, nil
	}

	sess := &Session{
		OwnerID: claims.OwnerID,
		TokenID: claims.TokenID(),
		Email:   claims.Email,
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// Subscribe implements SessionSource
func (s *TokenSource) Subscribe(ctx context.Context, ownerID uuid.UUID) (repository.SessionSubscription, error) {
	return s.events.Subscribe(ctx, ownerID)
}
