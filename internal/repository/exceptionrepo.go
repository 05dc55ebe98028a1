package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/akozhin/timeclock/internal/model"
)

// ExceptionRepository stores derived attendance exceptions.
type ExceptionRepository interface {
	// ReplaceForDay atomically swaps the derived rows for one employee-day
	// with a freshly computed set, so recomputation never leaves stale rows.
	ReplaceForDay(ctx context.Context, tenantID, employeeID uuid.UUID, date time.Time, excs []model.AttendanceException) error

	// ListForDay returns the stored exceptions for one employee-day.
	ListForDay(ctx context.Context, tenantID, employeeID uuid.UUID, date time.Time) ([]model.AttendanceException, error)
}
