package session

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

const recordColumns = `id, token_hash, jti, user_id, device_id, parent_token_id, expires_at, revoked, created_at`

func scanRecord(row pgx.Row) (RefreshTokenRecord, error) {
	var rec RefreshTokenRecord
	err := row.Scan(
		&rec.ID, &rec.TokenHash, &rec.JTI, &rec.UserID, &rec.DeviceID,
		&rec.ParentTokenID, &rec.ExpiresAt, &rec.Revoked, &rec.CreatedAt,
	)
	return rec, err
}

func (r *PostgresRepository) CreateRecord(ctx context.Context, params CreateRecordParams) (RefreshTokenRecord, error) {
	query := `
		INSERT INTO refresh_tokens (id, token_hash, jti, user_id, device_id, parent_token_id, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, now())
		RETURNING ` + recordColumns

	rec, err := scanRecord(r.db.QueryRow(ctx, query,
		uuid.New(), params.TokenHash, params.JTI, params.UserID,
		params.DeviceID, params.ParentTokenID, params.ExpiresAt,
	))
	if err != nil {
		return RefreshTokenRecord{}, fmt.Errorf("failed to create refresh token record: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) GetByTokenHash(ctx context.Context, tokenHash string) (RefreshTokenRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM refresh_tokens WHERE token_hash = $1`
	rec, err := scanRecord(r.db.QueryRow(ctx, query, tokenHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RefreshTokenRecord{}, apperrors.NotFound("refresh token", "")
		}
		return RefreshTokenRecord{}, fmt.Errorf("failed to get refresh token by hash: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (RefreshTokenRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM refresh_tokens WHERE id = $1`
	rec, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RefreshTokenRecord{}, apperrors.NotFound("refresh token", id.String())
		}
		return RefreshTokenRecord{}, fmt.Errorf("failed to get refresh token by id: %w", err)
	}
	return rec, nil
}

// RevokeIfActive relies on the conditional WHERE clause for atomicity:
// of two concurrent rotations of the same token, only one UPDATE reports
// an affected row.
func (r *PostgresRepository) RevokeIfActive(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true WHERE id = $1 AND revoked = false`, id)
	if err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) ([]RefreshTokenRecord, error) {
	query := `
		UPDATE refresh_tokens SET revoked = true
		WHERE user_id = $1 AND revoked = false
		RETURNING ` + recordColumns
	return r.collectRecords(ctx, query, userID)
}

func (r *PostgresRepository) RevokeAllForDevice(ctx context.Context, userID, deviceID uuid.UUID) ([]RefreshTokenRecord, error) {
	query := `
		UPDATE refresh_tokens SET revoked = true
		WHERE user_id = $1 AND device_id = $2 AND revoked = false
		RETURNING ` + recordColumns
	return r.collectRecords(ctx, query, userID, deviceID)
}

func (r *PostgresRepository) GetLiveRecordsForUser(ctx context.Context, userID uuid.UUID) ([]RefreshTokenRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked = false AND expires_at > now()`
	return r.collectRecords(ctx, query, userID)
}

func (r *PostgresRepository) collectRecords(ctx context.Context, query string, args ...any) ([]RefreshTokenRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh tokens: %w", err)
	}
	defer rows.Close()

	var out []RefreshTokenRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refresh token record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
