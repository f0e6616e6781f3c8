// Package session persists refresh token records forming rotation
// chains. Records are revoked, never deleted, so a chain can be walked
// for audit and reuse detection.
package session

import (
	"time"

	"github.com/google/uuid"
)

// RefreshTokenRecord holds the hash of an issued refresh token. The raw
// token never touches storage. ParentTokenID links a rotated token to
// its predecessor.
type RefreshTokenRecord struct {
	ID            uuid.UUID
	TokenHash     string
	JTI           string
	UserID        uuid.UUID
	DeviceID      *uuid.UUID
	ParentTokenID *uuid.UUID
	ExpiresAt     time.Time
	Revoked       bool
	CreatedAt     time.Time
}

// Live reports whether the record is usable at the given instant. The
// exact expiry instant counts as expired.
func (r RefreshTokenRecord) Live(now time.Time) bool {
	return !r.Revoked && now.Before(r.ExpiresAt)
}

type CreateRecordParams struct {
	TokenHash     string
	JTI           string
	UserID        uuid.UUID
	DeviceID      *uuid.UUID
	ParentTokenID *uuid.UUID
	ExpiresAt     time.Time
}
