package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/akozhin/timeclock/internal/model"
)

// DeviceRepository provides access to registered punch kiosks. Provisioning
// happens in the tenant administration system; this core only reads.
type DeviceRepository interface {
	// Get returns a device by ID within a tenant.
	Get(ctx context.Context, tenantID, deviceID uuid.UUID) (*model.Device, error)
}
