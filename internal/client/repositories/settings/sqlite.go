package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taskseal/internal/client/models"
	"github.com/dmitrijs2005/taskseal/internal/dbx"
)

type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

var (
	_ Repository        = (*SQLiteRepository)(nil)
	_ PendingRepository = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *SQLiteRepository) Get(ctx context.Context, userID string) (*models.EncryptionSettings, error) {
	s := &models.EncryptionSettings{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, credential_id, key_check, created_at FROM encryption_settings WHERE user_id = ?`, userID).
		Scan(&s.UserID, &s.CredentialID, &s.KeyCheck, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption settings[%s]: %w", userID, err)
	}
	return s, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, userID, credentialID, keyCheck string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO encryption_settings (user_id, credential_id, key_check, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET credential_id = excluded.credential_id,
			key_check = excluded.key_check,
			created_at = excluded.created_at
	`, userID, credentialID, keyCheck, r.now())
	if err != nil {
		return fmt.Errorf("failed to set encryption settings[%s]: %w", userID, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM encryption_settings WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear encryption settings[%s]: %w", userID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetPending(ctx context.Context, userID string) (string, error) {
	var credentialID string
	err := r.db.QueryRowContext(ctx,
		`SELECT credential_id FROM encryption_pending WHERE user_id = ?`, userID).Scan(&credentialID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get pending enable[%s]: %w", userID, err)
	}
	return credentialID, nil
}

func (r *SQLiteRepository) SetPending(ctx context.Context, userID, credentialID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO encryption_pending (user_id, credential_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET credential_id = excluded.credential_id,
			created_at = excluded.created_at
	`, userID, credentialID, r.now())
	if err != nil {
		return fmt.Errorf("failed to set pending enable[%s]: %w", userID, err)
	}
	return nil
}

func (r *SQLiteRepository) ClearPending(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM encryption_pending WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear pending enable[%s]: %w", userID, err)
	}
	return nil
}
