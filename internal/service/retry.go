package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	apperrors "github.com/yourusername/survey-api/internal/pkg/errors"
)

const readMaxTries = 3

// readBackOff is a var so tests can shorten it
var readBackOff = func() backoff.BackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     50 * time.Millisecond,
		RandomizationFactor: 0.3,
		Multiplier:          2,
		MaxInterval:         400 * time.Millisecond,
	}
}

// retryRead retries an idempotent read while it fails with ErrQuery.
// Any other error stops immediately. Never use it for writes.
func retryRead[T any](ctx context.Context, read func() (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		v, err := read()
		if err != nil && !errors.Is(err, apperrors.ErrQuery) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(readBackOff()), backoff.WithMaxTries(readMaxTries))
}
