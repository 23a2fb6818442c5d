package errors

import (
	"errors"
	"fmt"
)

// Application-wide error taxonomy. Repositories and services wrap these with
// fmt.Errorf("...: %w", ...) and handlers map them to HTTP statuses.
var (
	// ErrNotFound is returned when no matching row exists.
	ErrNotFound = errors.New("record not found")

	// ErrNotFoundOrForbidden hides whether a resource is missing or owned by
	// someone else.
	ErrNotFoundOrForbidden = errors.New("resource not found or access denied")

	// ErrAmbiguousState is returned when a uniqueness invariant is violated in
	// stored data, e.g. two active surveys for one owner.
	ErrAmbiguousState = errors.New("ambiguous state")

	// ErrQuery wraps backend communication or query failures, including
	// store call timeouts.
	ErrQuery = errors.New("query failed")

	// ErrValidation is used for malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized is used when the caller has no valid session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is used when the caller lacks rights for the action.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is used for state conflicts (unique violations and the like).
	ErrConflict = errors.New("resource state conflict")
)

// Query marks err as a backend failure of operation op while keeping the
// original error in the chain.
func Query(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrQuery, err)
}

// Validation builds an ErrValidation with a formatted reason.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
