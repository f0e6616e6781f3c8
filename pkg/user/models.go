package user

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity record. PasswordHash is nil for social-only
// accounts created without a password.
type User struct {
	ID                 uuid.UUID
	Email              string
	PasswordHash       *string
	Roles              []string
	TenantID           string
	Active             bool
	DeactivationReason string
	EmailVerified      bool
	VerificationToken  *string
	ResetToken         *string
	ResetTokenExpiry   *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SocialAccount links an external identity provider account to a user.
// The (Provider, ProviderID) pair is unique across all users.
type SocialAccount struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Provider   string
	ProviderID string
	Email      string
	CreatedAt  time.Time
}

type CreateUserParams struct {
	Email        string
	PasswordHash *string
	Roles        []string
	TenantID     string
}
