// Package limiter defines interfaces and implementations for device PIN
// attempt limiting.
package limiter

import (
	"context"
	"time"
)

// Limiter controls PIN attempts and temporary device lockouts.
type Limiter interface {
	// Allow reports whether authentication is currently allowed and optional retry-after.
	Allow(ctx context.Context, deviceID string, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful authentication.
	Success(ctx context.Context, deviceID string, ipHash []byte) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, deviceID string, ipHash []byte) (bool, time.Duration, error)
}
