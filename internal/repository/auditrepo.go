package repository

import (
	"context"

	"github.com/akozhin/timeclock/internal/model"
)

// AuditRepository records a best-effort audit trail. Callers must treat
// failures as non-fatal.
type AuditRepository interface {
	// Record inserts one audit event.
	Record(ctx context.Context, ev model.AuditEvent) error
}
