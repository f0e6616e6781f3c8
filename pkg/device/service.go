package device

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/sentra-id/sentra/pkg/errors"
	"github.com/sentra-id/sentra/pkg/session"
	"github.com/sentra-id/sentra/pkg/tokengenerator"
)

// TokenRevoker blacklists a token id for the remainder of its lifetime.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// Tracker records which devices a user signs in from and lets users
// review and revoke them.
type Tracker struct {
	repo       Repository
	sessions   session.Repository
	revoker    TokenRevoker
	saltWithIP bool
}

type TrackerOption func(*Tracker)

// WithIPSalt folds the client IP into fingerprints.
func WithIPSalt() TrackerOption {
	return func(t *Tracker) { t.saltWithIP = true }
}

func NewTracker(repo Repository, sessions session.Repository, revoker TokenRevoker, options ...TrackerOption) *Tracker {
	t := &Tracker{repo: repo, sessions: sessions, revoker: revoker}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// CreateOrUpdateDevice registers a sighting of the client. First sight
// inserts a parsed row; later sightings refresh last-active and, when a
// name is supplied, the display name.
func (t *Tracker) CreateOrUpdateDevice(ctx context.Context, userID uuid.UUID, info Info) (Device, error) {
	salt := ""
	if t.saltWithIP {
		salt = info.IPAddress
	}
	os, browser, deviceType := ParseUserAgent(info.UserAgent)

	return t.repo.Upsert(ctx, Device{
		UserID:      userID,
		Fingerprint: Fingerprint(info.UserAgent, salt),
		Name:        info.Name,
		OS:          os,
		Browser:     browser,
		Type:        deviceType,
		LastActive:  time.Now().UTC(),
	})
}

// GetUserDevices lists the user's devices that still hold a live refresh
// session. Devices whose sessions all expired or were revoked drop out
// of the list without being deleted.
func (t *Tracker) GetUserDevices(ctx context.Context, userID uuid.UUID) ([]Device, error) {
	devices, err := t.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	live, err := t.sessions.GetLiveRecordsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	liveDevices := make(map[uuid.UUID]struct{}, len(live))
	for _, rec := range live {
		if rec.DeviceID != nil {
			liveDevices[*rec.DeviceID] = struct{}{}
		}
	}

	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		if _, ok := liveDevices[d.ID]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// RenameDevice changes the display name after checking ownership.
func (t *Tracker) RenameDevice(ctx context.Context, userID, deviceID uuid.UUID, name string) error {
	if _, err := t.ownedDevice(ctx, userID, deviceID); err != nil {
		return err
	}
	return t.repo.Rename(ctx, deviceID, name)
}

// RevokeDevice signs the device out everywhere: every live refresh
// record bound to it is revoked and its jti blacklisted for the
// remainder of the token's lifetime.
func (t *Tracker) RevokeDevice(ctx context.Context, userID, deviceID uuid.UUID) error {
	if _, err := t.ownedDevice(ctx, userID, deviceID); err != nil {
		return err
	}

	revoked, err := t.sessions.RevokeAllForDevice(ctx, userID, deviceID)
	if err != nil {
		return err
	}
	for _, rec := range revoked {
		ttl := tokengenerator.CalculateTTL(rec.ExpiresAt)
		if ttl <= 0 {
			continue
		}
		jti := rec.JTI
		if jti == "" {
			jti = rec.ID.String()
		}
		if err := t.revoker.Revoke(ctx, jti, ttl); err != nil {
			slog.Error("failed to blacklist token during device revocation",
				"device_id", deviceID, "error", err)
			return err
		}
	}
	slog.Info("device revoked", "user_id", userID, "device_id", deviceID, "sessions", len(revoked))
	return nil
}

// ownedDevice loads the device and hides other users' devices behind a
// not-found error.
func (t *Tracker) ownedDevice(ctx context.Context, userID, deviceID uuid.UUID) (Device, error) {
	d, err := t.repo.GetByID(ctx, deviceID)
	if err != nil {
		return Device{}, err
	}
	if d.UserID != userID {
		return Device{}, apperrors.NotFound("device", deviceID.String())
	}
	return d, nil
}
