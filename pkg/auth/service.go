// Package auth implements the session issuer: credential login, the 2FA
// branch, refresh token rotation with reuse detection, and account
// lifecycle operations.
package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sentra-id/sentra/pkg/device"
	apperrors "github.com/sentra-id/sentra/pkg/errors"
	"github.com/sentra-id/sentra/pkg/notification"
	"github.com/sentra-id/sentra/pkg/password"
	"github.com/sentra-id/sentra/pkg/session"
	"github.com/sentra-id/sentra/pkg/tokengenerator"
	"github.com/sentra-id/sentra/pkg/twofa"
	"github.com/sentra-id/sentra/pkg/user"
	"github.com/sentra-id/sentra/pkg/utils"
)

// Revoker is the blacklist consulted and fed during rotation and mass
// logout.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Issuer mints and rotates sessions. The 2FA engine, device tracker and
// notifier are optional capabilities; operations needing an absent one
// fail with a feature-disabled error (or degrade to logging, for the
// notifier).
type Issuer struct {
	users    user.Repository
	sessions session.Repository
	hasher   *password.Manager
	codec    *tokengenerator.Codec
	revoker  Revoker

	twoFactor *twofa.Engine
	devices   *device.Tracker
	notifier  notification.Notifier

	resetTokenTTL time.Duration
}

type IssuerOption func(*Issuer)

func WithTwoFactorEngine(e *twofa.Engine) IssuerOption {
	return func(i *Issuer) { i.twoFactor = e }
}

func WithDeviceTracker(t *device.Tracker) IssuerOption {
	return func(i *Issuer) { i.devices = t }
}

func WithNotifier(n notification.Notifier) IssuerOption {
	return func(i *Issuer) { i.notifier = n }
}

func NewIssuer(
	users user.Repository,
	sessions session.Repository,
	hasher *password.Manager,
	codec *tokengenerator.Codec,
	revoker Revoker,
	options ...IssuerOption,
) *Issuer {
	i := &Issuer{
		users:         users,
		sessions:      sessions,
		hasher:        hasher,
		codec:         codec,
		revoker:       revoker,
		resetTokenTTL: time.Hour,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// TwoFactorEngine exposes the configured engine, or a feature-disabled
// error when 2FA is not wired in.
func (i *Issuer) TwoFactorEngine() (*twofa.Engine, error) {
	if i.twoFactor == nil {
		return nil, apperrors.FeatureDisabled("two-factor authentication")
	}
	return i.twoFactor, nil
}

// DeviceTracker exposes the configured tracker, or a feature-disabled
// error when device management is not wired in.
func (i *Issuer) DeviceTracker() (*device.Tracker, error) {
	if i.devices == nil {
		return nil, apperrors.FeatureDisabled("device management")
	}
	return i.devices, nil
}

// LoginResult is either a full token pair or an instruction to complete
// the 2FA challenge. When TwoFactorRequired is set only UserID is
// populated; no tokens exist yet.
type LoginResult struct {
	TwoFactorRequired bool
	UserID            uuid.UUID
	Tokens            *tokengenerator.TokenPair
}

// Login verifies credentials and, unless the account requires a second
// factor, issues a fresh rotation-chain root. Unknown email and wrong
// password produce the identical error.
func (i *Issuer) Login(ctx context.Context, email, plaintext string, devInfo *device.Info) (LoginResult, error) {
	u, err := i.users.GetUserByEmail(ctx, email)
	if err != nil {
		slog.Info("login rejected", "email", utils.MaskEmail(email), "reason", "unknown user")
		return LoginResult{}, apperrors.InvalidCredentials()
	}
	if u.PasswordHash == nil {
		// Social-only account; no password to check
		return LoginResult{}, apperrors.InvalidCredentials()
	}

	ok, upgraded, err := i.hasher.VerifyAndUpgrade(plaintext, *u.PasswordHash)
	if err != nil {
		return LoginResult{}, apperrors.InternalWrap(err, "password verification failed")
	}
	if !ok {
		slog.Info("login rejected", "user_id", u.ID, "reason", "wrong password")
		return LoginResult{}, apperrors.InvalidCredentials()
	}
	if upgraded != "" {
		if err := i.users.UpdatePasswordHash(ctx, u.ID, upgraded); err != nil {
			// The login still succeeds on the old hash
			slog.Error("failed to persist upgraded password hash", "user_id", u.ID, "error", err)
		}
	}

	return i.postCredentialLogin(ctx, u, devInfo)
}

// VerifyTwoFactorLogin completes a login that stopped at the 2FA branch.
// A 6-character code is treated as TOTP, 8 or more as a backup code,
// anything else is rejected outright.
func (i *Issuer) VerifyTwoFactorLogin(ctx context.Context, userID uuid.UUID, code string, devInfo *device.Info) (LoginResult, error) {
	engine, err := i.TwoFactorEngine()
	if err != nil {
		return LoginResult{}, err
	}

	switch {
	case len(code) == 6:
		err = engine.VerifyTotpCode(ctx, userID, code)
	case len(code) >= 8:
		err = engine.VerifyBackupCode(ctx, userID, code)
	default:
		err = apperrors.New(apperrors.ErrCodeInvalidTwoFactorCode, "invalid two-factor code")
	}
	if err != nil {
		return LoginResult{}, err
	}

	u, err := i.users.GetUserByID(ctx, userID)
	if err != nil {
		return LoginResult{}, err
	}
	if !u.Active {
		return LoginResult{}, apperrors.AccountDeactivated(u.DeactivationReason)
	}
	return i.issueSession(ctx, u, devInfo)
}

// SocialLogin signs a user in via a verified external identity. The
// (provider, providerID) pair resolves to an existing link, else links
// to the account owning the email, else creates a password-less user.
func (i *Issuer) SocialLogin(ctx context.Context, provider, providerID, email string, devInfo *device.Info) (LoginResult, error) {
	var u user.User

	link, err := i.users.GetSocialAccount(ctx, provider, providerID)
	switch {
	case err == nil:
		u, err = i.users.GetUserByID(ctx, link.UserID)
		if err != nil {
			return LoginResult{}, err
		}
	case apperrors.IsCode(err, apperrors.ErrCodeNotFound):
		u, err = i.findOrCreateSocialUser(ctx, email)
		if err != nil {
			return LoginResult{}, err
		}
		if _, err := i.users.LinkSocialAccount(ctx, u.ID, provider, providerID, email); err != nil {
			return LoginResult{}, err
		}
	default:
		return LoginResult{}, err
	}

	return i.postCredentialLogin(ctx, u, devInfo)
}

// LinkSocialAccount attaches an external identity to an existing signed
// in user. A pair already linked to a different user is a conflict.
func (i *Issuer) LinkSocialAccount(ctx context.Context, userID uuid.UUID, provider, providerID, email string) error {
	_, err := i.users.LinkSocialAccount(ctx, userID, provider, providerID, email)
	return err
}

// UnlinkSocialAccount removes a provider link from the user.
func (i *Issuer) UnlinkSocialAccount(ctx context.Context, userID uuid.UUID, provider string) error {
	return i.users.UnlinkSocialAccount(ctx, userID, provider)
}

// IssueSessionForUser mints a session outside the password path, for a
// caller that has already authenticated the user (OAuth code exchange).
func (i *Issuer) IssueSessionForUser(ctx context.Context, userID uuid.UUID, devInfo *device.Info) (LoginResult, error) {
	u, err := i.users.GetUserByID(ctx, userID)
	if err != nil {
		return LoginResult{}, err
	}
	if !u.Active {
		return LoginResult{}, apperrors.AccountDeactivated(u.DeactivationReason)
	}
	return i.issueSession(ctx, u, devInfo)
}

func (i *Issuer) findOrCreateSocialUser(ctx context.Context, email string) (user.User, error) {
	u, err := i.users.GetUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		return user.User{}, err
	}
	// First social login: the external provider vouched for the email
	created, err := i.users.CreateUser(ctx, user.CreateUserParams{
		Email: email,
		Roles: []string{"user"},
	})
	if err != nil {
		return user.User{}, err
	}
	slog.Info("user created via social login", "user_id", created.ID)
	return created, nil
}

// postCredentialLogin runs the shared tail of every credential check:
// the deactivation gate and the 2FA branch.
func (i *Issuer) postCredentialLogin(ctx context.Context, u user.User, devInfo *device.Info) (LoginResult, error) {
	if !u.Active {
		return LoginResult{}, apperrors.AccountDeactivated(u.DeactivationReason)
	}

	if i.twoFactor != nil {
		enabled, err := i.twoFactor.IsEnabled(ctx, u.ID)
		if err != nil {
			return LoginResult{}, err
		}
		if enabled {
			// No tokens until the second factor clears
			return LoginResult{TwoFactorRequired: true, UserID: u.ID}, nil
		}
	}

	return i.issueSession(ctx, u, devInfo)
}

// issueSession tracks the device and mints a rotation-chain root.
func (i *Issuer) issueSession(ctx context.Context, u user.User, devInfo *device.Info) (LoginResult, error) {
	var deviceID *uuid.UUID
	if i.devices != nil && devInfo != nil && devInfo.UserAgent != "" {
		d, err := i.devices.CreateOrUpdateDevice(ctx, u.ID, *devInfo)
		if err != nil {
			return LoginResult{}, err
		}
		deviceID = &d.ID
	}

	pair, err := i.mintPair(ctx, u, deviceID, nil)
	if err != nil {
		return LoginResult{}, err
	}
	slog.Info("session issued", "user_id", u.ID, "device_tracked", deviceID != nil)
	return LoginResult{UserID: u.ID, Tokens: pair}, nil
}

// mintPair generates the token pair and persists the refresh record.
// parentID threads rotation chains; nil starts a new root.
func (i *Issuer) mintPair(ctx context.Context, u user.User, deviceID, parentID *uuid.UUID) (*tokengenerator.TokenPair, error) {
	pair, err := i.codec.GenerateTokenPair(u.ID.String(), u.Email, u.TenantID, u.Roles)
	if err != nil {
		return nil, apperrors.InternalWrap(err, "failed to generate token pair")
	}

	_, err = i.sessions.CreateRecord(ctx, session.CreateRecordParams{
		TokenHash:     tokengenerator.HashToken(pair.RefreshToken),
		JTI:           pair.RefreshJTI,
		UserID:        u.ID,
		DeviceID:      deviceID,
		ParentTokenID: parentID,
		ExpiresAt:     pair.RefreshExpiry,
	})
	if err != nil {
		return nil, apperrors.InternalWrap(err, "failed to persist refresh token record")
	}
	return &pair, nil
}
