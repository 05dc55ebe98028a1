package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/akozhin/timeclock/internal/errs"
	"github.com/akozhin/timeclock/internal/model"
	"github.com/akozhin/timeclock/internal/repository"
)

// IdempotencyRepo implements IdempotencyRepository using PostgreSQL.
// The claim is an atomic insert-if-absent on the (tenant, endpoint, key)
// unique constraint, so the check-then-insert race cannot create two intents.
type IdempotencyRepo struct{ db *DB }

// NewIdempotencyRepo constructs an idempotency repository.
func NewIdempotencyRepo(db *DB) *IdempotencyRepo { return &IdempotencyRepo{db: db} }

// Acquire claims the key or reports its current state. A lock older than the
// lease is treated as abandoned and claimed by the caller.
func (r *IdempotencyRepo) Acquire(
	ctx context.Context, tenantID uuid.UUID, endpoint, key string, lease time.Duration,
) (repository.AcquireOutcome, *model.IdempotencyRecord, error) {
	const ins = `
INSERT INTO idempotency_keys (tenant_id, endpoint, idem_key, locked_at)
VALUES ($1,$2,$3,now())
ON CONFLICT (tenant_id, endpoint, idem_key) DO NOTHING`
	tag, err := r.db.Pool.Exec(ctx, ins, tenantID, endpoint, key)
	if err != nil {
		return 0, nil, err
	}
	if tag.RowsAffected() == 1 {
		return repository.AcquireWon, nil, nil
	}

	const sel = `
SELECT status_code, response_body, locked_at, completed_at, created_at
FROM idempotency_keys
WHERE tenant_id=$1 AND endpoint=$2 AND idem_key=$3`
	rec := model.IdempotencyRecord{TenantID: tenantID, Endpoint: endpoint, Key: key}
	var statusCode *int
	err = r.db.Pool.QueryRow(ctx, sel, tenantID, endpoint, key).
		Scan(&statusCode, &rec.ResponseBody, &rec.LockedAt, &rec.CompletedAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The intent was released between our insert and select; next
			// Acquire round will claim it.
			return repository.AcquireInFlight, nil, nil
		}
		return 0, nil, err
	}
	if rec.CompletedAt != nil {
		if statusCode != nil {
			rec.StatusCode = *statusCode
		}
		return repository.AcquireCompleted, &rec, nil
	}

	// Steal an abandoned intent: only one caller's UPDATE can match.
	const steal = `
UPDATE idempotency_keys SET locked_at=now()
WHERE tenant_id=$1 AND endpoint=$2 AND idem_key=$3
  AND completed_at IS NULL AND locked_at < now() - $4::interval`
	tag, err = r.db.Pool.Exec(ctx, steal, tenantID, endpoint, key, lease)
	if err != nil {
		return 0, nil, err
	}
	if tag.RowsAffected() == 1 {
		return repository.AcquireWon, nil, nil
	}
	return repository.AcquireInFlight, nil, nil
}

// Complete stores the terminal result for a claimed key.
func (r *IdempotencyRepo) Complete(
	ctx context.Context, tenantID uuid.UUID, endpoint, key string, statusCode int, body []byte,
) error {
	const q = `
UPDATE idempotency_keys
SET status_code=$4, response_body=$5, completed_at=now()
WHERE tenant_id=$1 AND endpoint=$2 AND idem_key=$3 AND completed_at IS NULL`
	tag, err := r.db.Pool.Exec(ctx, q, tenantID, endpoint, key, statusCode, body)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Release drops an uncompleted intent so the key stays retryable.
func (r *IdempotencyRepo) Release(ctx context.Context, tenantID uuid.UUID, endpoint, key string) error {
	const q = `
DELETE FROM idempotency_keys
WHERE tenant_id=$1 AND endpoint=$2 AND idem_key=$3 AND completed_at IS NULL`
	_, err := r.db.Pool.Exec(ctx, q, tenantID, endpoint, key)
	return err
}
