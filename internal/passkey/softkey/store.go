package softkey

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taskseal/internal/dbx"
)

type credential struct {
	ID            []byte
	RPID          string
	UserHandle    []byte
	UserName      string
	WrappedSecret []byte
	PINSalt       []byte
	PRFEnabled    bool
	CreatedAt     time.Time
}

type store struct {
	db dbx.DBTX
}

// save inserts c, replacing any credential already registered for the same
// relying party and user handle.
func (s *store) save(ctx context.Context, c *credential) error {
	query := `INSERT INTO softkey_credentials
			(id, rp_id, user_handle, user_name, wrapped_secret, pin_salt, prf_enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(rp_id, user_handle) DO UPDATE SET
			id = excluded.id,
			user_name = excluded.user_name,
			wrapped_secret = excluded.wrapped_secret,
			pin_salt = excluded.pin_salt,
			prf_enabled = excluded.prf_enabled,
			created_at = excluded.created_at`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.RPID, c.UserHandle, c.UserName, c.WrappedSecret, c.PINSalt, c.PRFEnabled, c.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// find returns the credential with the given id registered for rpID,
// or nil if there is none.
func (s *store) find(ctx context.Context, rpID string, id []byte) (*credential, error) {
	query := `SELECT id, rp_id, user_handle, user_name, wrapped_secret, pin_salt, prf_enabled, created_at
		FROM softkey_credentials WHERE rp_id = ? AND id = ?`

	c := &credential{}
	err := s.db.QueryRowContext(ctx, query, rpID, id).Scan(
		&c.ID, &c.RPID, &c.UserHandle, &c.UserName, &c.WrappedSecret, &c.PINSalt, &c.PRFEnabled, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	return c, nil
}
