package device

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const deviceColumns = `id, user_id, fingerprint, name, os, browser, device_type, last_active, created_at`

func scanDevice(row pgx.Row) (Device, error) {
	var d Device
	err := row.Scan(
		&d.ID, &d.UserID, &d.Fingerprint, &d.Name, &d.OS, &d.Browser,
		&d.Type, &d.LastActive, &d.CreatedAt,
	)
	return d, err
}

func (r *PostgresRepository) Upsert(ctx context.Context, d Device) (Device, error) {
	query := `
		INSERT INTO devices (id, user_id, fingerprint, name, os, browser, device_type, last_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (user_id, fingerprint)
		DO UPDATE SET
			last_active = EXCLUDED.last_active,
			name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE devices.name END
		RETURNING ` + deviceColumns

	out, err := scanDevice(r.db.QueryRow(ctx, query,
		uuid.New(), d.UserID, d.Fingerprint, d.Name, d.OS, d.Browser, d.Type, d.LastActive))
	if err != nil {
		return Device{}, fmt.Errorf("failed to upsert device: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (Device, error) {
	d, err := scanDevice(r.db.QueryRow(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Device{}, apperrors.NotFound("device", id.String())
		}
		return Device{}, fmt.Errorf("failed to get device: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) GetByFingerprint(ctx context.Context, userID uuid.UUID, fingerprint string) (Device, error) {
	d, err := scanDevice(r.db.QueryRow(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE user_id = $1 AND fingerprint = $2`,
		userID, fingerprint))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Device{}, apperrors.NotFound("device", fingerprint)
		}
		return Device{}, fmt.Errorf("failed to get device by fingerprint: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]Device, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE user_id = $1 ORDER BY last_active DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var out []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE devices SET last_active = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to touch device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("device", id.String())
	}
	return nil
}

func (r *PostgresRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := r.db.Exec(ctx, `UPDATE devices SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("failed to rename device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("device", id.String())
	}
	return nil
}
