package postgres

import (
	"context"

	"github.com/akozhin/timeclock/internal/model"
)

// AuditRepo implements AuditRepository using PostgreSQL.
type AuditRepo struct{ db *DB }

// NewAuditRepo constructs an audit repository.
func NewAuditRepo(db *DB) *AuditRepo { return &AuditRepo{db: db} }

// Record inserts one audit event.
func (r *AuditRepo) Record(ctx context.Context, ev model.AuditEvent) error {
	const q = `
INSERT INTO audit_log (id, tenant_id, actor_id, action, entity_type, entity_id, detail)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.db.Pool.Exec(ctx, q,
		ev.ID, ev.TenantID, ev.ActorID, ev.Action, ev.EntityType, ev.EntityID, ev.Detail,
	)
	return err
}
