// Package records stores task records on the server. Encrypted records
// arrive already sealed: the server keeps placeholders and envelope strings
// and never sees the content.
package records

import (
	"context"

	"github.com/dmitrijs2005/taskseal/internal/client/models"
)

type Repository interface {
	List(ctx context.Context, userID string) ([]models.Task, error)
	GetByID(ctx context.Context, userID, id string) (*models.Task, error)
	Create(ctx context.Context, t *models.Task) error
	Patch(ctx context.Context, userID, id string, p models.ContentPatch) error
	SetDone(ctx context.Context, userID, id string, done bool) error
	Delete(ctx context.Context, userID, id string) error
}
