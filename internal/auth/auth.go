// FilePath: internal/auth/auth.go
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/greenmind-iot/hub/internal/errors"
	"github.com/greenmind-iot/hub/internal/models"
	"github.com/greenmind-iot/hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// maxIdentityAttempts bounds the collision-retry loop when drawing a new
// device identity. Random UUIDs make a second attempt already unlikely;
// the bound turns a broken random source into an error instead of a
// spin.
const maxIdentityAttempts = 5

// FailureLimiter is what the gateway needs from the rate limiter.
type FailureLimiter interface {
	IsBlocked(ctx context.Context, clientAddr string) bool
	RecordFailure(ctx context.Context, clientAddr string)
	Reset(ctx context.Context, clientAddr string)
}

// TokenIssuer is what the gateway needs from the token service.
type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (string, error)
	DefaultTTL() time.Duration
}

// PairingAuthority is the external partner that vouches for pairing
// codes and records registered devices.
type PairingAuthority interface {
	ValidateCode(ctx context.Context, code string) error
	RegisterDevice(ctx context.Context, code, deviceID string) error
}

// Gateway orchestrates device pairing and token issuance.
type Gateway struct {
	devices repository.DeviceRepository
	limiter FailureLimiter
	tokens  TokenIssuer
	partner PairingAuthority
}

// NewGateway creates a new auth gateway.
func NewGateway(devices repository.DeviceRepository, limiter FailureLimiter, tokens TokenIssuer, partner PairingAuthority) *Gateway {
	return &Gateway{
		devices: devices,
		limiter: limiter,
		tokens:  tokens,
		partner: partner,
	}
}

// AuthorizeDevice runs the pairing handshake: validate the one-time code
// with the partner, draw a fresh device identity, persist it, and
// register it with the partner. The local insert commits only after the
// partner accepted the registration, so a failed handshake leaves no
// orphaned device row.
func (g *Gateway) AuthorizeDevice(ctx context.Context, code string) (string, error) {
	if err := g.partner.ValidateCode(ctx, code); err != nil {
		return "", err
	}

	deviceID, err := g.newDeviceID(ctx)
	if err != nil {
		return "", err
	}

	tx, err := g.devices.BeginTx(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback() // no-op once committed

	now := time.Now()
	device := &models.Device{
		DeviceID:  deviceID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := g.devices.CreateInTx(ctx, tx, device); err != nil {
		return "", err
	}

	if err := g.partner.RegisterDevice(ctx, code, deviceID); err != nil {
		nuts.L.Warnf("[AuthGateway] Partner registration failed for %s, rolling back local device row: %v", deviceID, err)
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", errors.NewDatabaseError("failed to commit device pairing", err)
	}

	nuts.L.Infof("[AuthGateway] Paired new device %s", deviceID)
	return deviceID, nil
}

// RequestToken issues a device-scoped token. The client address is
// consulted against the rate limiter before any storage read. When
// userLogin is non-empty the device must be owned by that user
// (user+device mode); ownership mismatches look identical to an unknown
// device.
func (g *Gateway) RequestToken(ctx context.Context, clientAddr, deviceID, userLogin string) (string, error) {
	if g.limiter.IsBlocked(ctx, clientAddr) {
		return "", errors.NewRateLimitError("too many failed attempts", nil)
	}

	device, err := g.devices.Get(ctx, deviceID)
	if err != nil {
		if errors.IsNotFound(err) {
			g.limiter.RecordFailure(ctx, clientAddr)
		}
		return "", err
	}

	if userLogin != "" && (!device.UserLogin.Valid || device.UserLogin.String != userLogin) {
		g.limiter.RecordFailure(ctx, clientAddr)
		return "", errors.NewNotFoundError("device not found", nil)
	}

	g.limiter.Reset(ctx, clientAddr)

	signed, err := g.tokens.Issue(device.DeviceID, g.tokens.DefaultTTL())
	if err != nil {
		return "", errors.NewInternalError("failed to issue token", err)
	}
	return signed, nil
}

// newDeviceID draws a random identity and retries on collision up to
// maxIdentityAttempts.
func (g *Gateway) newDeviceID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxIdentityAttempts; attempt++ {
		id := uuid.NewString()
		exists, err := g.devices.Exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
		nuts.L.Warnf("[AuthGateway] Device identity collision on %s (attempt %d)", id, attempt+1)
	}
	return "", errors.NewInternalError("exhausted device identity attempts", nil)
}
