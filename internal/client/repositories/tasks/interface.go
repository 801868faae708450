package tasks

import (
	"context"

	"github.com/dmitrijs2005/taskseal/internal/client/models"
)

// Repository describes the operations on task records.
type Repository interface {
	// List returns all tasks of the user ordered by creation time.
	List(ctx context.Context, userID string) ([]models.Task, error)

	// GetByID returns one task or common.ErrorNotFound.
	GetByID(ctx context.Context, userID, id string) (*models.Task, error)

	// Create inserts a new task. ID, CreatedAt and UpdatedAt are filled in
	// when empty.
	Create(ctx context.Context, task *models.Task) error

	// Patch atomically replaces the content fields of a task.
	Patch(ctx context.Context, userID, id string, patch models.ContentPatch) error

	// SetDone updates the done flag.
	SetDone(ctx context.Context, userID, id string, done bool) error

	// Delete removes a task.
	Delete(ctx context.Context, userID, id string) error
}
