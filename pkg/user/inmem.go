package user

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/sentra-id/sentra/pkg/errors"
)

// InMemoryRepository is a mutex-guarded map-backed Repository used in
// tests and local development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]User
	socials map[string]SocialAccount // keyed by provider + "\x00" + providerID
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:   make(map[uuid.UUID]User),
		socials: make(map[string]SocialAccount),
	}
}

func socialKey(provider, providerID string) string {
	return provider + "\x00" + providerID
}

func (r *InMemoryRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(params.Email)
	for _, u := range r.users {
		if u.Email == email {
			return User{}, apperrors.AlreadyExists("user", email)
		}
	}

	now := time.Now().UTC()
	u := User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: params.PasswordHash,
		Roles:        append([]string(nil), params.Roles...),
		TenantID:     params.TenantID,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[u.ID] = u
	return u, nil
}

func (r *InMemoryRepository) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return User{}, apperrors.NotFound("user", id.String())
	}
	return u, nil
}

func (r *InMemoryRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = strings.ToLower(email)
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, apperrors.NotFound("user", email)
}

func (r *InMemoryRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return apperrors.NotFound("user", id.String())
	}
	delete(r.users, id)
	for key, s := range r.socials {
		if s.UserID == id {
			delete(r.socials, key)
		}
	}
	return nil
}

func (r *InMemoryRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.update(id, func(u *User) {
		u.PasswordHash = &hash
	})
}

func (r *InMemoryRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, reason string) error {
	return r.update(id, func(u *User) {
		u.Active = active
		u.DeactivationReason = reason
	})
}

func (r *InMemoryRepository) SetVerificationToken(ctx context.Context, id uuid.UUID, token string) error {
	return r.update(id, func(u *User) {
		u.VerificationToken = &token
	})
}

func (r *InMemoryRepository) VerifyEmailByToken(ctx context.Context, token string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, u := range r.users {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			u.EmailVerified = true
			u.VerificationToken = nil
			u.UpdatedAt = time.Now().UTC()
			r.users[id] = u
			return u, nil
		}
	}
	return User{}, apperrors.NotFound("verification token", "")
}

func (r *InMemoryRepository) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error {
	return r.update(id, func(u *User) {
		u.ResetToken = &token
		u.ResetTokenExpiry = &expiry
	})
}

func (r *InMemoryRepository) GetUserByResetToken(ctx context.Context, token string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.ResetToken != nil && *u.ResetToken == token {
			return u, nil
		}
	}
	return User{}, apperrors.NotFound("reset token", "")
}

func (r *InMemoryRepository) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	return r.update(id, func(u *User) {
		u.ResetToken = nil
		u.ResetTokenExpiry = nil
	})
}

func (r *InMemoryRepository) LinkSocialAccount(ctx context.Context, userID uuid.UUID, provider, providerID, email string) (SocialAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return SocialAccount{}, apperrors.NotFound("user", userID.String())
	}

	key := socialKey(provider, providerID)
	if existing, ok := r.socials[key]; ok {
		if existing.UserID == userID {
			return existing, nil
		}
		return SocialAccount{}, apperrors.New(apperrors.ErrCodeSocialAccountAlreadyLinked,
			"social account is already linked to another user")
	}

	s := SocialAccount{
		ID:         uuid.New(),
		UserID:     userID,
		Provider:   provider,
		ProviderID: providerID,
		Email:      email,
		CreatedAt:  time.Now().UTC(),
	}
	r.socials[key] = s
	return s, nil
}

func (r *InMemoryRepository) GetSocialAccount(ctx context.Context, provider, providerID string) (SocialAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.socials[socialKey(provider, providerID)]
	if !ok {
		return SocialAccount{}, apperrors.NotFound("social account", provider)
	}
	return s, nil
}

func (r *InMemoryRepository) GetUserSocialAccounts(ctx context.Context, userID uuid.UUID) ([]SocialAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []SocialAccount
	for _, s := range r.socials {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) UnlinkSocialAccount(ctx context.Context, userID uuid.UUID, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, s := range r.socials {
		if s.UserID == userID && s.Provider == provider {
			delete(r.socials, key)
			return nil
		}
	}
	return apperrors.NotFound("social account", provider)
}

func (r *InMemoryRepository) update(id uuid.UUID, fn func(*User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return apperrors.NotFound("user", id.String())
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}
