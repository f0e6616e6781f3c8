package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists users and their social account links.
// Implementations must enforce email uniqueness and the uniqueness of
// (provider, providerID) social links.
type Repository interface {
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error

	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool, reason string) error

	SetVerificationToken(ctx context.Context, id uuid.UUID, token string) error
	// VerifyEmailByToken marks the matching user verified and clears the
	// token. Returns the verified user.
	VerifyEmailByToken(ctx context.Context, token string) (User, error)

	SetResetToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error
	GetUserByResetToken(ctx context.Context, token string) (User, error)
	ClearResetToken(ctx context.Context, id uuid.UUID) error

	LinkSocialAccount(ctx context.Context, userID uuid.UUID, provider, providerID, email string) (SocialAccount, error)
	GetSocialAccount(ctx context.Context, provider, providerID string) (SocialAccount, error)
	GetUserSocialAccounts(ctx context.Context, userID uuid.UUID) ([]SocialAccount, error)
	UnlinkSocialAccount(ctx context.Context, userID uuid.UUID, provider string) error
}
