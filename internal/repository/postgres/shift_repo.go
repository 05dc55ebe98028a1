package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/akozhin/timeclock/internal/errs"
	"github.com/akozhin/timeclock/internal/model"
)

// ShiftRepo implements ShiftRepository using PostgreSQL.
type ShiftRepo struct{ db *DB }

// NewShiftRepo constructs a shift repository.
func NewShiftRepo(db *DB) *ShiftRepo { return &ShiftRepo{db: db} }

// Get selects a shift by ID within a tenant.
func (r *ShiftRepo) Get(ctx context.Context, tenantID, shiftID uuid.UUID) (*model.Shift, error) {
	const q = `
SELECT id, tenant_id, schedule_id, day_of_week, start_time, end_time, break_minutes
FROM shifts WHERE tenant_id=$1 AND id=$2`
	row := r.db.Pool.QueryRow(ctx, q, tenantID, shiftID)
	var s model.Shift
	if err := row.Scan(&s.ID, &s.TenantID, &s.ScheduleID, &s.DayOfWeek, &s.StartTime, &s.EndTime, &s.BreakMinutes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
