// Package users keeps the server-side user rows. A user row is created on
// the first authenticated write and carries the user's encryption settings.
package users

import (
	"context"

	"github.com/dmitrijs2005/taskseal/internal/client/models"
)

type Repository interface {
	Ensure(ctx context.Context, userID string) error
	GetSettings(ctx context.Context, userID string) (*models.EncryptionSettings, error)
	SetSettings(ctx context.Context, userID, credentialID, keyCheck string) error
	ClearSettings(ctx context.Context, userID string) error
}
