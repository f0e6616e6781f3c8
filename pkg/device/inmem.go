package device

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/sentra-id/sentra/pkg/errors"
)

// InMemoryRepository is the map-backed Repository used in tests.
type InMemoryRepository struct {
	mu      sync.Mutex
	devices map[uuid.UUID]Device
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{devices: make(map[uuid.UUID]Device)}
}

func (r *InMemoryRepository) Upsert(ctx context.Context, d Device) (Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.devices {
		if existing.UserID == d.UserID && existing.Fingerprint == d.Fingerprint {
			existing.LastActive = d.LastActive
			if d.Name != "" {
				existing.Name = d.Name
			}
			r.devices[id] = existing
			return existing, nil
		}
	}

	d.ID = uuid.New()
	d.CreatedAt = time.Now().UTC()
	r.devices[d.ID] = d
	return d, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return Device{}, apperrors.NotFound("device", id.String())
	}
	return d, nil
}

func (r *InMemoryRepository) GetByFingerprint(ctx context.Context, userID uuid.UUID, fingerprint string) (Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.devices {
		if d.UserID == userID && d.Fingerprint == fingerprint {
			return d, nil
		}
	}
	return Device{}, apperrors.NotFound("device", fingerprint)
}

func (r *InMemoryRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Device
	for _, d := range r.devices {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActive.After(out[j].LastActive)
	})
	return out, nil
}

func (r *InMemoryRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return apperrors.NotFound("device", id.String())
	}
	d.LastActive = at
	r.devices[id] = d
	return nil
}

func (r *InMemoryRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return apperrors.NotFound("device", id.String())
	}
	d.Name = name
	r.devices[id] = d
	return nil
}
