// Package settings persists the per-user encryption settings. The presence
// of a row is what marks encryption as enabled for that user.
package settings

import (
	"context"

	"github.com/dmitrijs2005/taskseal/internal/client/models"
)

type Repository interface {
	// Get returns the user's settings, or (nil, nil) when encryption is off.
	Get(ctx context.Context, userID string) (*models.EncryptionSettings, error)
	Set(ctx context.Context, userID, credentialID, keyCheck string) error
	Clear(ctx context.Context, userID string) error
}

// PendingRepository remembers the credential of an enable that has started
// migrating but not yet committed its settings. It lives next to the
// authenticator on the device, apart from the settings, so an interrupted
// enable still reads as disabled.
type PendingRepository interface {
	// GetPending returns the pending credential id, or "" when none.
	GetPending(ctx context.Context, userID string) (string, error)
	SetPending(ctx context.Context, userID, credentialID string) error
	ClearPending(ctx context.Context, userID string) error
}
