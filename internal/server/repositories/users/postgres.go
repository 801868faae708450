package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskseal/internal/client/models"
	"github.com/dmitrijs2005/taskseal/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Ensure creates the user row if it does not exist yet.
func (r *PostgresRepository) Ensure(ctx context.Context, userID string) error {
	query :=
		`INSERT INTO users (id) VALUES ($1)
		 ON CONFLICT (id) DO NOTHING
		 `
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetSettings returns nil when the user is unknown or has encryption off.
func (r *PostgresRepository) GetSettings(ctx context.Context, userID string) (*models.EncryptionSettings, error) {
	query :=
		`SELECT id, encryption_credential_id, encryption_key_check, encryption_enabled_at FROM users
		 WHERE id = $1 AND encryption_credential_id IS NOT NULL
		 `
	s := &models.EncryptionSettings{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.UserID, &s.CredentialID, &s.KeyCheck, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) SetSettings(ctx context.Context, userID, credentialID, keyCheck string) error {
	query :=
		`INSERT INTO users (id, encryption_credential_id, encryption_key_check, encryption_enabled_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (id) DO UPDATE SET encryption_credential_id = EXCLUDED.encryption_credential_id,
		     encryption_key_check = EXCLUDED.encryption_key_check,
		     encryption_enabled_at = EXCLUDED.encryption_enabled_at
		 `
	if _, err := r.db.ExecContext(ctx, query, userID, credentialID, keyCheck); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ClearSettings(ctx context.Context, userID string) error {
	query :=
		`UPDATE users SET encryption_credential_id = NULL, encryption_key_check = NULL, encryption_enabled_at = NULL
		 WHERE id = $1
		 `
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
