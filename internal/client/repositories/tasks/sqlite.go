package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taskseal/internal/client/models"
	"github.com/dmitrijs2005/taskseal/internal/common"
	"github.com/dmitrijs2005/taskseal/internal/dbx"
	"github.com/google/uuid"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const selectColumns = `id, user_id, title, notes, tags, encrypted_payload, done, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.Task, error) {
	var (
		t    models.Task
		tags string
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.Title, &t.Notes, &tags, &t.EncryptedPayload, &t.Done, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	decoded, err := DecodeTags(tags)
	if err != nil {
		return nil, err
	}
	t.Tags = decoded
	return &t, nil
}

// EncodeTags renders tags the way both stores keep them: a JSON array.
func EncodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(b), nil
}

// DecodeTags is the inverse of EncodeTags. An empty string is no tags.
func DecodeTags(s string) ([]string, error) {
	tags := []string{}
	if s == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

// List returns the user's tasks, oldest first.
func (r *SQLiteRepository) List(ctx context.Context, userID string) ([]models.Task, error) {
	query := `select ` + selectColumns + ` from tasks where user_id=? order by created_at, id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select tasks: %w", err)
	}
	defer rows.Close()

	result := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID returns a single task of the user.
func (r *SQLiteRepository) GetByID(ctx context.Context, userID, id string) (*models.Task, error) {
	query := `select ` + selectColumns + ` from tasks where user_id=? and id=?`
	t, err := scanTask(r.db.QueryRowContext(ctx, query, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return t, nil
}

// Create inserts a task, assigning an id and timestamps when missing.
func (r *SQLiteRepository) Create(ctx context.Context, t *models.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := r.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	tags, err := EncodeTags(t.Tags)
	if err != nil {
		return err
	}

	query := `INSERT INTO tasks (id, user_id, title, notes, tags, encrypted_payload, done, created_at, updated_at)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		t.ID, t.UserID, t.Title, t.Notes, tags, t.EncryptedPayload, t.Done, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// Patch replaces title, notes, tags and encrypted payload in one statement.
func (r *SQLiteRepository) Patch(ctx context.Context, userID, id string, p models.ContentPatch) error {
	tags, err := EncodeTags(p.Tags)
	if err != nil {
		return err
	}
	query := `update tasks set title=?, notes=?, tags=?, encrypted_payload=?, updated_at=?
			where user_id=? and id=?`
	res, err := r.db.ExecContext(ctx, query, p.Title, p.Notes, tags, p.EncryptedPayload, r.now(), userID, id)
	if err != nil {
		return fmt.Errorf("failed to patch task: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

// SetDone updates the done flag of a task.
func (r *SQLiteRepository) SetDone(ctx context.Context, userID, id string, done bool) error {
	res, err := r.db.ExecContext(ctx, `update tasks set done=?, updated_at=? where user_id=? and id=?`,
		done, r.now(), userID, id)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

// Delete removes a task. It expects exactly one row to be affected.
func (r *SQLiteRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `delete from tasks where user_id=? and id=?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return dbx.ExpectOneRow(res)
}
