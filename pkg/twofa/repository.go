package twofa

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists 2FA secrets and backup codes.
type Repository interface {
	// UpsertSecret stores a (re)generated secret in the disabled state,
	// replacing any previous setup-in-progress secret.
	UpsertSecret(ctx context.Context, userID uuid.UUID, secret string) error
	GetTwoFactorAuth(ctx context.Context, userID uuid.UUID) (TwoFactorAuth, error)
	// Enable flips the user's 2FA row to enabled and records the instant.
	Enable(ctx context.Context, userID uuid.UUID) error
	// Delete removes the secret and all backup codes in one transaction.
	Delete(ctx context.Context, userID uuid.UUID) error

	// ReplaceBackupCodes atomically swaps the user's backup code set for
	// the given hashes.
	ReplaceBackupCodes(ctx context.Context, userID uuid.UUID, codeHashes []string) error
	// ConsumeBackupCode marks the matching unused code as used.
	// Concurrent calls for the same code see exactly one ConsumeOK.
	ConsumeBackupCode(ctx context.Context, userID uuid.UUID, codeHash string) (ConsumeOutcome, error)
	CountRemainingBackupCodes(ctx context.Context, userID uuid.UUID) (int, error)
}

// ConsumeOutcome is the result of a backup code consumption attempt.
type ConsumeOutcome int

const (
	ConsumeOK ConsumeOutcome = iota
	ConsumeAlreadyUsed
	ConsumeNotFound
)
