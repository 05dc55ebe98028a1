package postgres

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/akozhin/timeclock/internal/errs"
	"github.com/akozhin/timeclock/internal/model"
)

// PunchRepo implements PunchRepository using PostgreSQL.
type PunchRepo struct{ db *DB }

// NewPunchRepo constructs a punch repository.
func NewPunchRepo(db *DB) *PunchRepo { return &PunchRepo{db: db} }

// Create inserts a single punch row. Punches are immutable once created.
func (r *PunchRepo) Create(ctx context.Context, p *model.Punch) error {
	const q = `
INSERT INTO punches (id, tenant_id, employee_id, shift_id, punch_type, ts, latitude, longitude, device_id, manual)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.db.Pool.Exec(ctx, q,
		p.ID, p.TenantID, p.EmployeeID, p.ShiftID, string(p.Type), p.Timestamp,
		p.Latitude, p.Longitude, p.DeviceID, p.Manual,
	)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// ListRange returns an employee's punches with from <= ts < to in ascending
// timestamp order.
func (r *PunchRepo) ListRange(
	ctx context.Context, tenantID, employeeID uuid.UUID, from, to time.Time,
) ([]model.Punch, error) {
	const q = `
SELECT id, tenant_id, employee_id, shift_id, punch_type, ts, latitude, longitude, device_id, manual, created_at
FROM punches
WHERE tenant_id=$1 AND employee_id=$2 AND ts >= $3 AND ts < $4
ORDER BY ts ASC`
	rows, err := r.db.Pool.Query(ctx, q, tenantID, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Punch
	for rows.Next() {
		var (
			p   model.Punch
			typ string
		)
		if err = rows.Scan(
			&p.ID, &p.TenantID, &p.EmployeeID, &p.ShiftID, &typ, &p.Timestamp,
			&p.Latitude, &p.Longitude, &p.DeviceID, &p.Manual, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		p.Type = model.PunchType(typ)
		out = append(out, p)
	}
	return out, rows.Err()
}
