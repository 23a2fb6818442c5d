package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/survey-api/internal/domain/entity"
	"github.com/yourusername/survey-api/internal/domain/repository"
	"github.com/yourusername/survey-api/pkg/auth"
)

type memoryEvents struct {
	revoked map[string]bool
}

func (m *memoryEvents) RevokeToken(ctx context.Context, tokenID string, until time.Time) error {
	m.revoked[tokenID] = true
	return nil
}

func (m *memoryEvents) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	return m.revoked[tokenID], nil
}

func (m *memoryEvents) Publish(ctx context.Context, event entity.SessionEvent) error { return nil }

func (m *memoryEvents) Subscribe(ctx context.Context, ownerID uuid.UUID) (repository.SessionSubscription, error) {
	return newFakeSubscription(), nil
}

func TestTokenSource_Current(t *testing.T) {
	jwtSvc, err := auth.NewJWTService("secret", "", 1)
	require.NoError(t, err)
	owner := uuid.New()
	token, claims, err := jwtSvc.GenerateToken(owner, "owner@example.com")
	require.NoError(t, err)
	events := &memoryEvents{revoked: map[string]bool{}}

	sess, err := NewTokenSource(token, jwtSvc, events).Current(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, owner, sess.OwnerID)
	assert.Equal(t, claims.TokenID(), sess.TokenID)

	require.NoError(t, events.RevokeToken(context.Background(), claims.TokenID(), time.Now().Add(time.Hour)))
	sess, err = NewTokenSource(token, jwtSvc, events).Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestTokenSource_MissingAndInvalidToken(t *testing.T) {
	jwtSvc, _ := auth.NewJWTService("secret", "", 1)
	events := &memoryEvents{revoked: map[string]bool{}}

	sess, err := NewTokenSource("", jwtSvc, events).Current(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, sess)

	_, err = NewTokenSource("garbage", jwtSvc, events).Current(context.Background())
	assert.Error(t, err)
}
