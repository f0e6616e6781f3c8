package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/sentra-id/sentra/pkg/errors"
)

// PostgresRepository implements Repository on top of pgxpool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, password_hash, roles, tenant_id, active, deactivation_reason,
	email_verified, verification_token, reset_token, reset_token_expiry, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Roles, &u.TenantID, &u.Active,
		&u.DeactivationReason, &u.EmailVerified, &u.VerificationToken,
		&u.ResetToken, &u.ResetTokenExpiry, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

func (r *PostgresRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	query := `
		INSERT INTO users (id, email, password_hash, roles, tenant_id, active, created_at, updated_at)
		VALUES ($1, lower($2), $3, $4, $5, true, now(), now())
		RETURNING ` + userColumns

	row := r.db.QueryRow(ctx, query, uuid.New(), params.Email, params.PasswordHash, params.Roles, params.TenantID)
	u, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, apperrors.AlreadyExists("user", params.Email)
		}
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperrors.NotFound("user", id.String())
		}
		return User{}, fmt.Errorf("failed to get user by id: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = lower($1)`
	u, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperrors.NotFound("user", email)
		}
		return User{}, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	// Owned rows (refresh tokens, devices, 2FA, social links) cascade via
	// foreign keys.
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user", id.String())
	}
	return nil
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.exec(ctx, id, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, hash)
}

func (r *PostgresRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, reason string) error {
	return r.exec(ctx, id,
		`UPDATE users SET active = $2, deactivation_reason = $3, updated_at = now() WHERE id = $1`,
		active, reason)
}

func (r *PostgresRepository) SetVerificationToken(ctx context.Context, id uuid.UUID, token string) error {
	return r.exec(ctx, id, `UPDATE users SET verification_token = $2, updated_at = now() WHERE id = $1`, token)
}

func (r *PostgresRepository) VerifyEmailByToken(ctx context.Context, token string) (User, error) {
	query := `
		UPDATE users
		SET email_verified = true, verification_token = NULL, updated_at = now()
		WHERE verification_token = $1
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperrors.NotFound("verification token", "")
		}
		return User{}, fmt.Errorf("failed to verify email: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error {
	return r.exec(ctx, id,
		`UPDATE users SET reset_token = $2, reset_token_expiry = $3, updated_at = now() WHERE id = $1`,
		token, expiry)
}

func (r *PostgresRepository) GetUserByResetToken(ctx context.Context, token string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperrors.NotFound("reset token", "")
		}
		return User{}, fmt.Errorf("failed to get user by reset token: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, id,
		`UPDATE users SET reset_token = NULL, reset_token_expiry = NULL, updated_at = now() WHERE id = $1`)
}

func (r *PostgresRepository) LinkSocialAccount(ctx context.Context, userID uuid.UUID, provider, providerID, email string) (SocialAccount, error) {
	existing, err := r.GetSocialAccount(ctx, provider, providerID)
	if err == nil {
		if existing.UserID == userID {
			return existing, nil
		}
		return SocialAccount{}, apperrors.New(apperrors.ErrCodeSocialAccountAlreadyLinked,
			"social account is already linked to another user")
	}
	if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		return SocialAccount{}, err
	}

	query := `
		INSERT INTO social_accounts (id, user_id, provider, provider_id, email, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, user_id, provider, provider_id, email, created_at`

	var s SocialAccount
	err = r.db.QueryRow(ctx, query, uuid.New(), userID, provider, providerID, email).
		Scan(&s.ID, &s.UserID, &s.Provider, &s.ProviderID, &s.Email, &s.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Lost the race to a concurrent link of the same pair
			return SocialAccount{}, apperrors.New(apperrors.ErrCodeSocialAccountAlreadyLinked,
				"social account is already linked to another user")
		}
		return SocialAccount{}, fmt.Errorf("failed to link social account: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) GetSocialAccount(ctx context.Context, provider, providerID string) (SocialAccount, error) {
	query := `
		SELECT id, user_id, provider, provider_id, email, created_at
		FROM social_accounts
		WHERE provider = $1 AND provider_id = $2`

	var s SocialAccount
	err := r.db.QueryRow(ctx, query, provider, providerID).
		Scan(&s.ID, &s.UserID, &s.Provider, &s.ProviderID, &s.Email, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SocialAccount{}, apperrors.NotFound("social account", provider)
		}
		return SocialAccount{}, fmt.Errorf("failed to get social account: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) GetUserSocialAccounts(ctx context.Context, userID uuid.UUID) ([]SocialAccount, error) {
	query := `
		SELECT id, user_id, provider, provider_id, email, created_at
		FROM social_accounts
		WHERE user_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list social accounts: %w", err)
	}
	defer rows.Close()

	var out []SocialAccount
	for rows.Next() {
		var s SocialAccount
		if err := rows.Scan(&s.ID, &s.UserID, &s.Provider, &s.ProviderID, &s.Email, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan social account: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UnlinkSocialAccount(ctx context.Context, userID uuid.UUID, provider string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM social_accounts WHERE user_id = $1 AND provider = $2`, userID, provider)
	if err != nil {
		return fmt.Errorf("failed to unlink social account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("social account", provider)
	}
	return nil
}

func (r *PostgresRepository) exec(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user", id.String())
	}
	return nil
}
