// Package idempotency guarantees at-most-one execution of a side-effecting
// operation per (tenant, endpoint, client-supplied key).
package idempotency

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/akozhin/timeclock/internal/errs"
	"github.com/akozhin/timeclock/internal/repository"
)

// Result is the terminal outcome of a keyed operation, replayed verbatim to
// every caller presenting the same key.
type Result struct {
	StatusCode int
	Body       []byte
}

// Executor runs a keyed unit of work at most once. The bool result reports
// whether the returned Result was replayed from a stored record.
type Executor interface {
	Execute(ctx context.Context, tenantID uuid.UUID, endpoint, key string, work func(context.Context) (Result, error)) (Result, bool, error)
}

// Default coordination parameters.
const (
	DefaultLease        = 30 * time.Second
	DefaultPollInterval = 50 * time.Millisecond
)

// Coordinator implements Executor over an atomic insert-if-absent store.
// Mutual exclusion is scoped per key: unrelated keys never block each other.
type Coordinator struct {
	store repository.IdempotencyRepository
	lease time.Duration
	poll  time.Duration
	log   *zap.Logger
}

var _ Executor = (*Coordinator)(nil)

// New constructs a Coordinator, filling zero durations with defaults.
func New(store repository.IdempotencyRepository, lease, poll time.Duration, log *zap.Logger) *Coordinator {
	if lease <= 0 {
		lease = DefaultLease
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{store: store, lease: lease, poll: poll, log: log}
}

// Execute runs work under the key's critical section.
//
// Without a key the work always runs and nothing is stored. With a key the
// first caller claims an intent row and runs the work; concurrent callers wait
// and then observe the same terminal result. A caller still waiting when the
// lease elapses gets errs.ErrInFlight rather than blocking forever, and a
// crashed winner's intent is claimed by the next caller once its lock ages
// past the lease. A failed work leaves no record, so the key stays retryable.
func (c *Coordinator) Execute(
	ctx context.Context, tenantID uuid.UUID, endpoint, key string,
	work func(context.Context) (Result, error),
) (Result, bool, error) {
	if key == "" {
		res, err := work(ctx)
		return res, false, err
	}

	deadline := time.Now().Add(c.lease)
	for {
		outcome, rec, err := c.store.Acquire(ctx, tenantID, endpoint, key, c.lease)
		if err != nil {
			return Result{}, false, err
		}

		switch outcome {
		case repository.AcquireCompleted:
			return Result{StatusCode: rec.StatusCode, Body: rec.ResponseBody}, true, nil

		case repository.AcquireWon:
			res, err := work(ctx)
			if err != nil {
				if relErr := c.store.Release(ctx, tenantID, endpoint, key); relErr != nil {
					c.log.Warn("idempotency release failed",
						zap.String("endpoint", endpoint),
						zap.String("key", key),
						zap.Error(relErr),
					)
				}
				return Result{}, false, err
			}
			if err := c.store.Complete(ctx, tenantID, endpoint, key, res.StatusCode, res.Body); err != nil {
				// The side effect exists; the caller still gets its result.
				// Waiters for this key will time out and retry.
				c.log.Warn("idempotency complete failed",
					zap.String("endpoint", endpoint),
					zap.String("key", key),
					zap.Error(err),
				)
			}
			return res, false, nil

		case repository.AcquireInFlight:
			if time.Now().After(deadline) {
				return Result{}, false, errs.ErrInFlight
			}
			select {
			case <-ctx.Done():
				return Result{}, false, ctx.Err()
			case <-time.After(c.poll):
			}
		}
	}
}
