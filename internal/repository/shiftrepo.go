package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/akozhin/timeclock/internal/model"
)

// ShiftRepository provides read-only access to shift definitions.
type ShiftRepository interface {
	// Get returns a shift by ID within a tenant.
	Get(ctx context.Context, tenantID, shiftID uuid.UUID) (*model.Shift, error)
}
