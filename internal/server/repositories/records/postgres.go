package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskseal/internal/client/models"
	"github.com/dmitrijs2005/taskseal/internal/client/repositories/tasks"
	"github.com/dmitrijs2005/taskseal/internal/common"
	"github.com/dmitrijs2005/taskseal/internal/dbx"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const columns = `id, user_id, title, notes, tags, encrypted_payload, done, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Task, error) {
	var (
		t    models.Task
		tags string
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.Title, &t.Notes, &tags, &t.EncryptedPayload, &t.Done, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	decoded, err := tasks.DecodeTags(tags)
	if err != nil {
		return nil, err
	}
	t.Tags = decoded
	return &t, nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string) ([]models.Task, error) {
	query :=
		`SELECT ` + columns + ` FROM tasks
		 WHERE user_id = $1
		 ORDER BY created_at, id
		 `
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Task{}
	for rows.Next() {
		t, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID, id string) (*models.Task, error) {
	query :=
		`SELECT ` + columns + ` FROM tasks
		 WHERE user_id = $1 AND id = $2
		 `
	t, err := scan(r.db.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// Create inserts t. The id is generated when empty; timestamps always come
// from the database.
func (r *PostgresRepository) Create(ctx context.Context, t *models.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	tags, err := tasks.EncodeTags(t.Tags)
	if err != nil {
		return err
	}

	query :=
		`INSERT INTO tasks (id, user_id, title, notes, tags, encrypted_payload, done)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at
		 `
	err = r.db.QueryRowContext(ctx, query,
		t.ID, t.UserID, t.Title, t.Notes, tags, t.EncryptedPayload, t.Done).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Patch(ctx context.Context, userID, id string, p models.ContentPatch) error {
	tags, err := tasks.EncodeTags(p.Tags)
	if err != nil {
		return err
	}
	query :=
		`UPDATE tasks SET title = $1, notes = $2, tags = $3, encrypted_payload = $4, updated_at = now()
		 WHERE user_id = $5 AND id = $6
		 `
	res, err := r.db.ExecContext(ctx, query, p.Title, p.Notes, tags, p.EncryptedPayload, userID, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *PostgresRepository) SetDone(ctx context.Context, userID, id string, done bool) error {
	query :=
		`UPDATE tasks SET done = $1, updated_at = now()
		 WHERE user_id = $2 AND id = $3
		 `
	res, err := r.db.ExecContext(ctx, query, done, userID, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}
