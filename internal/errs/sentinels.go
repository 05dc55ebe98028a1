// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary device lockout due to failed PIN attempts.
	ErrRateLimited = errors.New("rate limited")

	// ErrInFlight indicates another caller holds the same idempotency key and
	// did not finish within the bounded wait.
	ErrInFlight = errors.New("operation in flight")
)
