// Package twofa implements the TOTP second factor and its single-use
// backup codes.
package twofa

import (
	"time"

	"github.com/google/uuid"
)

// TwoFactorAuth is the one-to-one 2FA state of a user. A row with
// Enabled=false is a setup in progress; the secret only becomes binding
// once the user proves possession and the row flips to enabled.
type TwoFactorAuth struct {
	UserID    uuid.UUID
	Secret    string
	Enabled   bool
	EnabledAt *time.Time
	CreatedAt time.Time
}

// BackupCode stores only the hash of a recovery code. Used codes are
// kept with their used-at timestamp.
type BackupCode struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	CodeHash string
	Used     bool
	UsedAt   *time.Time
}
