package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/sentra-id/sentra/pkg/errors"
	"github.com/sentra-id/sentra/pkg/tokengenerator"
)

// Refresh rotates a refresh token. Presenting a token that was already
// rotated away (or never issued) is treated as theft: the entire session
// family of the user is revoked.
func (i *Issuer) Refresh(ctx context.Context, rawToken string) (*tokengenerator.TokenPair, error) {
	claims, err := i.codec.ParseRefreshToken(rawToken)
	if err != nil {
		// Bad signature or expired JWT; no side effects
		return nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperrors.TokenInvalidOrExpired()
	}

	if claims.ID != "" {
		revoked, err := i.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, apperrors.InternalWrap(err, "revocation check failed")
		}
		if revoked {
			return nil, apperrors.TokenInvalidOrExpired()
		}
	}

	rec, err := i.sessions.GetByTokenHash(ctx, tokengenerator.HashToken(rawToken))
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			return nil, i.handleReuse(ctx, userID, "no record for presented hash")
		}
		return nil, apperrors.InternalWrap(err, "refresh token lookup failed")
	}
	if rec.Revoked {
		return nil, i.handleReuse(ctx, userID, "record already rotated")
	}

	now := time.Now()
	if !now.Before(rec.ExpiresAt) {
		// Ordinary expiry, not a security event
		return nil, apperrors.TokenInvalidOrExpired()
	}

	// Conditional revoke: of two concurrent rotations exactly one gets
	// past this point.
	won, err := i.sessions.RevokeIfActive(ctx, rec.ID)
	if err != nil {
		return nil, apperrors.InternalWrap(err, "failed to revoke rotated token")
	}
	if !won {
		return nil, i.handleReuse(ctx, userID, "lost rotation race")
	}

	// The rotated token is NOT blacklisted here: its revoked record is
	// what classifies a later replay as reuse. A cache entry would mask
	// the replay as an ordinary invalid token. The cache is reserved for
	// logout and mass revocation.

	u, err := i.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, apperrors.AccountDeactivated(u.DeactivationReason)
	}

	// Session continuity: the child keeps the device binding
	pair, err := i.mintPair(ctx, u, rec.DeviceID, &rec.ID)
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// handleReuse is the response to a replayed refresh token: kill the
// whole session family and reject.
func (i *Issuer) handleReuse(ctx context.Context, userID uuid.UUID, reason string) error {
	slog.Warn("refresh token reuse detected", "user_id", userID, "reason", reason)
	if err := i.RevokeAllUserTokens(ctx, userID); err != nil {
		slog.Error("failed to revoke session family after reuse", "user_id", userID, "error", err)
	}
	return apperrors.TokenReused()
}

// Logout terminates every session of the user.
func (i *Issuer) Logout(ctx context.Context, userID uuid.UUID) error {
	return i.RevokeAllUserTokens(ctx, userID)
}

// RevokeAllUserTokens revokes every live refresh record and blacklists
// each for the remainder of its lifetime. Already expired records need
// no blacklist entry. Records from before jti persistence fall back to
// the record id as the blacklist key.
func (i *Issuer) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	revoked, err := i.sessions.RevokeAllForUser(ctx, userID)
	if err != nil {
		return apperrors.InternalWrap(err, "failed to revoke user tokens")
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
		if err := i.revoker.Revoke(ctx, jti, ttl); err != nil {
			slog.Error("failed to blacklist token during mass revocation",
				"user_id", userID, "error", err)
		}
	}
	slog.Info("all user tokens revoked", "user_id", userID, "count", len(revoked))
	return nil
}
