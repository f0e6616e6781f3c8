package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/sentra-id/sentra/pkg/errors"
)

// InMemoryRepository mirrors the Postgres compare-and-set semantics with
// a mutex. Used in tests and local development.
type InMemoryRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]RefreshTokenRecord
	byHash  map[string]uuid.UUID
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[uuid.UUID]RefreshTokenRecord),
		byHash:  make(map[string]uuid.UUID),
	}
}

func (r *InMemoryRepository) CreateRecord(ctx context.Context, params CreateRecordParams) (RefreshTokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := RefreshTokenRecord{
		ID:            uuid.New(),
		TokenHash:     params.TokenHash,
		JTI:           params.JTI,
		UserID:        params.UserID,
		DeviceID:      params.DeviceID,
		ParentTokenID: params.ParentTokenID,
		ExpiresAt:     params.ExpiresAt,
		CreatedAt:     time.Now().UTC(),
	}
	r.records[rec.ID] = rec
	r.byHash[rec.TokenHash] = rec.ID
	return rec, nil
}

func (r *InMemoryRepository) GetByTokenHash(ctx context.Context, tokenHash string) (RefreshTokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byHash[tokenHash]
	if !ok {
		return RefreshTokenRecord{}, apperrors.NotFound("refresh token", "")
	}
	return r.records[id], nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (RefreshTokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return RefreshTokenRecord{}, apperrors.NotFound("refresh token", id.String())
	}
	return rec, nil
}

func (r *InMemoryRepository) RevokeIfActive(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return false, apperrors.NotFound("refresh token", id.String())
	}
	if rec.Revoked {
		return false, nil
	}
	rec.Revoked = true
	r.records[id] = rec
	return true, nil
}

func (r *InMemoryRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) ([]RefreshTokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var revoked []RefreshTokenRecord
	for id, rec := range r.records {
		if rec.UserID == userID && !rec.Revoked {
			rec.Revoked = true
			r.records[id] = rec
			revoked = append(revoked, rec)
		}
	}
	return revoked, nil
}

func (r *InMemoryRepository) RevokeAllForDevice(ctx context.Context, userID, deviceID uuid.UUID) ([]RefreshTokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var revoked []RefreshTokenRecord
	for id, rec := range r.records {
		if rec.UserID == userID && rec.DeviceID != nil && *rec.DeviceID == deviceID && !rec.Revoked {
			rec.Revoked = true
			r.records[id] = rec
			revoked = append(revoked, rec)
		}
	}
	return revoked, nil
}

func (r *InMemoryRepository) GetLiveRecordsForUser(ctx context.Context, userID uuid.UUID) ([]RefreshTokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var live []RefreshTokenRecord
	for _, rec := range r.records {
		if rec.UserID == userID && rec.Live(now) {
			live = append(live, rec)
		}
	}
	return live, nil
}
