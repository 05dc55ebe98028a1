package postgres

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/akozhin/timeclock/internal/model"
)

// ExceptionRepo implements ExceptionRepository using PostgreSQL.
type ExceptionRepo struct{ db *DB }

// NewExceptionRepo constructs an exception repository.
func NewExceptionRepo(db *DB) *ExceptionRepo { return &ExceptionRepo{db: db} }

// ReplaceForDay swaps the derived rows for one employee-day in a transaction.
func (r *ExceptionRepo) ReplaceForDay(
	ctx context.Context, tenantID, employeeID uuid.UUID, date time.Time, excs []model.AttendanceException,
) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	day := date.Format("2006-01-02")
	const del = `
DELETE FROM attendance_exceptions
WHERE tenant_id=$1 AND employee_id=$2 AND day=$3`
	if _, err = tx.Exec(ctx, del, tenantID, employeeID, day); err != nil {
		return err
	}

	const ins = `
INSERT INTO attendance_exceptions
  (id, tenant_id, employee_id, shift_id, day, exc_type, severity, status, description, detected_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	for _, e := range excs {
		if _, err = tx.Exec(ctx, ins,
			e.ID, e.TenantID, e.EmployeeID, e.ShiftID, day,
			string(e.Type), e.Severity, e.Status, e.Description, e.DetectedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

// ListForDay returns the stored exceptions for one employee-day.
func (r *ExceptionRepo) ListForDay(
	ctx context.Context, tenantID, employeeID uuid.UUID, date time.Time,
) ([]model.AttendanceException, error) {
	const q = `
SELECT id, tenant_id, employee_id, shift_id, day, exc_type, severity, status, description, detected_at
FROM attendance_exceptions
WHERE tenant_id=$1 AND employee_id=$2 AND day=$3
ORDER BY detected_at ASC`
	rows, err := r.db.Pool.Query(ctx, q, tenantID, employeeID, date.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AttendanceException
	for rows.Next() {
		var (
			e   model.AttendanceException
			typ string
		)
		if err = rows.Scan(
			&e.ID, &e.TenantID, &e.EmployeeID, &e.ShiftID, &e.Date,
			&typ, &e.Severity, &e.Status, &e.Description, &e.DetectedAt,
		); err != nil {
			return nil, err
		}
		e.Type = model.ExceptionType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}
