package twofa

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/sentra-id/sentra/pkg/errors"
)

// InMemoryRepository is the map-backed Repository used in tests.
type InMemoryRepository struct {
	mu      sync.Mutex
	secrets map[uuid.UUID]TwoFactorAuth
	codes   map[uuid.UUID][]BackupCode
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		secrets: make(map[uuid.UUID]TwoFactorAuth),
		codes:   make(map[uuid.UUID][]BackupCode),
	}
}

func (r *InMemoryRepository) UpsertSecret(ctx context.Context, userID uuid.UUID, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.secrets[userID] = TwoFactorAuth{
		UserID:    userID,
		Secret:    secret,
		Enabled:   false,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (r *InMemoryRepository) GetTwoFactorAuth(ctx context.Context, userID uuid.UUID) (TwoFactorAuth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tfa, ok := r.secrets[userID]
	if !ok {
		return TwoFactorAuth{}, apperrors.NotFound("two-factor auth", userID.String())
	}
	return tfa, nil
}

func (r *InMemoryRepository) Enable(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tfa, ok := r.secrets[userID]
	if !ok {
		return apperrors.NotFound("two-factor auth", userID.String())
	}
	now := time.Now().UTC()
	tfa.Enabled = true
	tfa.EnabledAt = &now
	r.secrets[userID] = tfa
	return nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.secrets, userID)
	delete(r.codes, userID)
	return nil
}

func (r *InMemoryRepository) ReplaceBackupCodes(ctx context.Context, userID uuid.UUID, codeHashes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fresh := make([]BackupCode, 0, len(codeHashes))
	for _, hash := range codeHashes {
		fresh = append(fresh, BackupCode{
			ID:       uuid.New(),
			UserID:   userID,
			CodeHash: hash,
		})
	}
	r.codes[userID] = fresh
	return nil
}

func (r *InMemoryRepository) ConsumeBackupCode(ctx context.Context, userID uuid.UUID, codeHash string) (ConsumeOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	codes := r.codes[userID]
	for i, code := range codes {
		if code.CodeHash != codeHash {
			continue
		}
		if code.Used {
			return ConsumeAlreadyUsed, nil
		}
		now := time.Now().UTC()
		codes[i].Used = true
		codes[i].UsedAt = &now
		return ConsumeOK, nil
	}
	return ConsumeNotFound, nil
}

func (r *InMemoryRepository) CountRemainingBackupCodes(ctx context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, code := range r.codes[userID] {
		if !code.Used {
			count++
		}
	}
	return count, nil
}
