package session

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores refresh token records. Revocation is the only
// mutation; records are retained after revocation.
type Repository interface {
	CreateRecord(ctx context.Context, params CreateRecordParams) (RefreshTokenRecord, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (RefreshTokenRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (RefreshTokenRecord, error)

	// RevokeIfActive atomically flips Revoked from false to true and
	// reports whether this call performed the flip. Exactly one of any
	// number of concurrent callers for the same record sees true.
	RevokeIfActive(ctx context.Context, id uuid.UUID) (bool, error)

	// RevokeAllForUser revokes every non-revoked record of the user and
	// returns the revoked records (so their jtis can be blacklisted).
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) ([]RefreshTokenRecord, error)

	// RevokeAllForDevice revokes every non-revoked record bound to the
	// device and returns them.
	RevokeAllForDevice(ctx context.Context, userID, deviceID uuid.UUID) ([]RefreshTokenRecord, error)

	// GetLiveRecordsForUser returns records that are neither revoked nor
	// expired.
	GetLiveRecordsForUser(ctx context.Context, userID uuid.UUID) ([]RefreshTokenRecord, error)
}
