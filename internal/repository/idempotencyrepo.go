package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/akozhin/timeclock/internal/model"
)

// AcquireOutcome is the result of attempting to claim an idempotency key.
type AcquireOutcome int

const (
	// AcquireWon means the caller claimed the key and must run the work.
	AcquireWon AcquireOutcome = iota
	// AcquireCompleted means a terminal result already exists for the key.
	AcquireCompleted
	// AcquireInFlight means another caller holds the key within its lease.
	AcquireInFlight
)

// IdempotencyRepository stores submission intents and terminal results,
// unique on (tenant, endpoint, key), with atomic insert-if-absent semantics.
type IdempotencyRepository interface {
	// Acquire claims the key, returning the stored record when the outcome is
	// AcquireCompleted. An intent whose lock has outlived the lease may be
	// claimed by a new caller.
	Acquire(ctx context.Context, tenantID uuid.UUID, endpoint, key string, lease time.Duration) (AcquireOutcome, *model.IdempotencyRecord, error)

	// Complete stores the terminal result for a claimed key.
	Complete(ctx context.Context, tenantID uuid.UUID, endpoint, key string, statusCode int, body []byte) error

	// Release drops an uncompleted intent so the key stays retryable after
	// the work failed.
	Release(ctx context.Context, tenantID uuid.UUID, endpoint, key string) error
}
