package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/akozhin/timeclock/internal/model"
)

// PunchRepository provides access to immutable punch rows.
type PunchRepository interface {
	// Create inserts a single punch row.
	Create(ctx context.Context, p *model.Punch) error

	// ListRange returns an employee's punches with from <= timestamp < to,
	// in ascending timestamp order. Sequence validation depends on that order.
	ListRange(ctx context.Context, tenantID, employeeID uuid.UUID, from, to time.Time) ([]model.Punch, error)
}
