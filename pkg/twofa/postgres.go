package twofa

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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

func (r *PostgresRepository) UpsertSecret(ctx context.Context, userID uuid.UUID, secret string) error {
	query := `
		INSERT INTO two_factor_auth (user_id, secret, enabled, created_at)
		VALUES ($1, $2, false, now())
		ON CONFLICT (user_id)
		DO UPDATE SET secret = EXCLUDED.secret, enabled = false, enabled_at = NULL`
	if _, err := r.db.Exec(ctx, query, userID, secret); err != nil {
		return fmt.Errorf("failed to upsert 2fa secret: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetTwoFactorAuth(ctx context.Context, userID uuid.UUID) (TwoFactorAuth, error) {
	query := `SELECT user_id, secret, enabled, enabled_at, created_at FROM two_factor_auth WHERE user_id = $1`

	var tfa TwoFactorAuth
	err := r.db.QueryRow(ctx, query, userID).
		Scan(&tfa.UserID, &tfa.Secret, &tfa.Enabled, &tfa.EnabledAt, &tfa.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TwoFactorAuth{}, apperrors.NotFound("two-factor auth", userID.String())
		}
		return TwoFactorAuth{}, fmt.Errorf("failed to get 2fa state: %w", err)
	}
	return tfa, nil
}

func (r *PostgresRepository) Enable(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE two_factor_auth SET enabled = true, enabled_at = now() WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to enable 2fa: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("two-factor auth", userID.String())
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM backup_codes WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete backup codes: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM two_factor_auth WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete 2fa secret: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) ReplaceBackupCodes(ctx context.Context, userID uuid.UUID, codeHashes []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM backup_codes WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear backup codes: %w", err)
	}
	for _, hash := range codeHashes {
		_, err := tx.Exec(ctx,
			`INSERT INTO backup_codes (id, user_id, code_hash, used) VALUES ($1, $2, $3, false)`,
			uuid.New(), userID, hash)
		if err != nil {
			return fmt.Errorf("failed to insert backup code: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// ConsumeBackupCode is atomic through the conditional WHERE clause; a
// code already marked used affects zero rows.
func (r *PostgresRepository) ConsumeBackupCode(ctx context.Context, userID uuid.UUID, codeHash string) (ConsumeOutcome, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE backup_codes SET used = true, used_at = now()
		WHERE user_id = $1 AND code_hash = $2 AND used = false`,
		userID, codeHash)
	if err != nil {
		return ConsumeNotFound, fmt.Errorf("failed to consume backup code: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return ConsumeOK, nil
	}

	var exists bool
	err = r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM backup_codes WHERE user_id = $1 AND code_hash = $2)`,
		userID, codeHash).Scan(&exists)
	if err != nil {
		return ConsumeNotFound, fmt.Errorf("failed to check backup code: %w", err)
	}
	if exists {
		return ConsumeAlreadyUsed, nil
	}
	return ConsumeNotFound, nil
}

func (r *PostgresRepository) CountRemainingBackupCodes(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM backup_codes WHERE user_id = $1 AND used = false`, userID).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count backup codes: %w", err)
	}
	return count, nil
}
