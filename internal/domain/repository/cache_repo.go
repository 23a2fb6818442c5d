package repository

import (
	"context"
	"time"
)

// CacheRepository defines key/value cache operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Exists(ctx context.Context, key string) (bool, error)

	// IncrementWindow increments key and sets its TTL on first use.
	// Returns the new count and the remaining TTL.
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}
