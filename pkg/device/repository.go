package device

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists device rows, one per (user, fingerprint) pair.
type Repository interface {
	// Upsert inserts the device or, when the (user, fingerprint) pair
	// already exists, refreshes last-active and (if non-empty) the name.
	Upsert(ctx context.Context, d Device) (Device, error)
	GetByID(ctx context.Context, id uuid.UUID) (Device, error)
	GetByFingerprint(ctx context.Context, userID uuid.UUID, fingerprint string) (Device, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Device, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	Rename(ctx context.Context, id uuid.UUID, name string) error
}
