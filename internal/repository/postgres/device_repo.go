package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/akozhin/timeclock/internal/errs"
	"github.com/akozhin/timeclock/internal/model"
)

// DeviceRepo implements DeviceRepository using PostgreSQL.
type DeviceRepo struct{ db *DB }

// NewDeviceRepo constructs a device repository.
func NewDeviceRepo(db *DB) *DeviceRepo { return &DeviceRepo{db: db} }

// Get selects a device by ID within a tenant.
func (r *DeviceRepo) Get(ctx context.Context, tenantID, deviceID uuid.UUID) (*model.Device, error) {
	const q = `
SELECT id, tenant_id, name, pin_hash, pin_salt, created_at
FROM devices WHERE tenant_id=$1 AND id=$2`
	row := r.db.Pool.QueryRow(ctx, q, tenantID, deviceID)
	var d model.Device
	if err := row.Scan(&d.ID, &d.TenantID, &d.Name, &d.PinHash, &d.PinSalt, &d.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}
