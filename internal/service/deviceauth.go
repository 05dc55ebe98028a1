package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/akozhin/timeclock/internal/crypto"
	"github.com/akozhin/timeclock/internal/errs"
	"github.com/akozhin/timeclock/internal/limiter"
	"github.com/akozhin/timeclock/internal/model"
	"github.com/akozhin/timeclock/internal/repository"
)

// TenantClaim is the custom JWT claim carrying the tenant scope of a device token.
const TenantClaim = "tid"

// DeviceAuthService authenticates punch kiosks and issues access tokens.
type DeviceAuthService interface {
	// LoginWithIP applies rate-limiting and verifies the device PIN.
	LoginWithIP(ctx context.Context, tenantID, deviceID uuid.UUID, pin, ip string) (model.Tokens, error)
}

// DeviceAuthServiceImpl verifies PINs against stored Argon2id hashes.
type DeviceAuthServiceImpl struct {
	devices   repository.DeviceRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
}

var _ DeviceAuthService = (*DeviceAuthServiceImpl)(nil)

// NewDeviceAuthService constructs DeviceAuthService with required dependencies.
func NewDeviceAuthService(
	devices repository.DeviceRepository, signKey []byte, accessTTL time.Duration, lim limiter.Limiter,
) *DeviceAuthServiceImpl {
	return &DeviceAuthServiceImpl{devices: devices, signKey: signKey, accessTTL: accessTTL, lim: lim}
}

// LoginWithIP authenticates with rate limiting by (device, ip).
func (s *DeviceAuthServiceImpl) LoginWithIP(
	ctx context.Context, tenantID, deviceID uuid.UUID, pin, ip string,
) (model.Tokens, error) {
	if tenantID == uuid.Nil || deviceID == uuid.Nil || pin == "" {
		return model.Tokens{}, errors.New("validation: empty tenantID/deviceID/pin")
	}
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, deviceID.String(), ipHash)
	if err != nil {
		return model.Tokens{}, err
	}
	if !allowed {
		return model.Tokens{}, errs.ErrRateLimited
	}

	d, err := s.devices.Get(ctx, tenantID, deviceID)
	if err != nil || !pkgcrypto.VerifyPIN([]byte(pin), d.PinSalt, d.PinHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, deviceID.String(), ipHash); ferr == nil && blocked {
			return model.Tokens{}, errs.ErrRateLimited
		}
		// hide device existence on a wrong PIN
		return model.Tokens{}, errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, deviceID.String(), ipHash)

	return s.issueAccessToken(d)
}

// issueAccessToken creates a signed HS256 JWT scoped to the device's tenant.
func (s *DeviceAuthServiceImpl) issueAccessToken(d *model.Device) (model.Tokens, error) {
	now := time.Now()
	exp := now.Add(s.accessTTL)
	claims := jwt.MapClaims{
		"sub":       d.ID.String(),
		TenantClaim: d.TenantID.String(),
		"iat":       jwt.NewNumericDate(now),
		"exp":       jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, ExpiresAt: exp}, nil
}
