package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/yourusername/survey-api/internal/domain/entity"
	"github.com/yourusername/survey-api/internal/domain/repository"
	"github.com/yourusername/survey-api/pkg/logger"
)

const (
	revokedTokenPrefix  = "session:revoked:"
	sessionEventsPrefix = "session:events:"
)

// SessionEventStore implements repository.SessionEventStore over Redis
// keys (revoked token ids) and pub/sub channels (one per owner).
type SessionEventStore struct {
	client redis.UniversalClient
	log    *logger.Logger
}

// NewSessionEventStore creates the store
func NewSessionEventStore(client redis.UniversalClient, log *logger.Logger) *SessionEventStore {
	return &SessionEventStore{client: client, log: log.With("component", "session_events")}
}

func channelFor(ownerID uuid.UUID) string {
	return sessionEventsPrefix + ownerID.String()
}

// RevokeToken remembers tokenID until the token would have expired anyway
func (s *SessionEventStore) RevokeToken(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, revokedTokenPrefix+tokenID, 1, ttl).Err()
}

// IsTokenRevoked reports whether tokenID was revoked
func (s *SessionEventStore) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedTokenPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Publish broadcasts event on the owner's channel
func (s *SessionEventStore) Publish(ctx context.Context, event entity.SessionEvent) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}
	return s.client.Publish(ctx, channelFor(event.OwnerID), payload).Err()
}

// Subscribe opens a pub/sub subscription for one owner
func (s *SessionEventStore) Subscribe(ctx context.Context, ownerID uuid.UUID) (repository.SessionSubscription, error) {
	pubsub := s.client.Subscribe(ctx, channelFor(ownerID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to session events: %w", err)
	}

	sub := &subscription{
		pubsub: pubsub,
		events: make(chan entity.SessionEvent, 4),
		done:   make(chan struct{}),
	}
	go sub.forward(ctx, s.log)
	return sub, nil
}

type subscription struct {
	pubsub    *redis.PubSub
	events    chan entity.SessionEvent
	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscription) Events() <-chan entity.SessionEvent {
	return s.events
}

func (s *subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

func (s *subscription) forward(ctx context.Context, log *logger.Logger) {
	defer close(s.events)
	messages := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = s.Close()
			return
		case <-s.done:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event entity.SessionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn("dropping malformed session event", "channel", msg.Channel, "error", err)
				continue
			}
			select {
			case s.events <- event:
			case <-s.done:
				return
			case <-ctx.Done():
				_ = s.Close()
				return
			}
		}
	}
}
