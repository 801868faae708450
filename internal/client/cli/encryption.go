package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/taskseal/internal/client/client"
	"github.com/dmitrijs2005/taskseal/internal/client/services"
	"github.com/dmitrijs2005/taskseal/internal/common"
	"github.com/dmitrijs2005/taskseal/internal/passkey"
)

// ErrLockedHint is returned by commands that need to read encrypted content
// while the session is locked.
var ErrLockedHint = errors.New("this task is encrypted; run 'unlock' first")

func (a *App) Status(ctx context.Context, args []string) error {
	state, err := a.encryption.Status(ctx)
	if err != nil {
		return err
	}
	a.printf("User:       %s\n", a.config.UserID)
	a.printf("Store:      %s\n", a.config.StoreMode)
	a.printf("Encryption: %s\n", state)
	return nil
}

func (a *App) printReport(verb string, r services.MigrationReport) {
	a.printf("%s %d of %d task(s), %d already done.\n", verb, r.Converted, r.Total, r.Skipped)
}

func (a *App) Enable(ctx context.Context, args []string) error {
	a.println("Registering a passkey for encryption...")
	report, err := a.encryption.Enable(ctx, a.config.UserName)
	if err != nil {
		return err
	}
	a.printReport("Encrypted", report)
	a.println("Encryption is enabled and unlocked.")
	return nil
}

func (a *App) Unlock(ctx context.Context, args []string) error {
	if err := a.encryption.Unlock(ctx); err != nil {
		return err
	}
	a.println("Unlocked.")
	return nil
}

func (a *App) Lock(ctx context.Context, args []string) error {
	if err := a.encryption.Lock(ctx); err != nil {
		return err
	}
	a.println("Locked.")
	return nil
}

func (a *App) Disable(ctx context.Context, args []string) error {
	answer, err := GetSimpleText(a.reader, "This decrypts every task and stores it in the clear. Type 'yes' to continue", a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "yes") {
		a.println("Cancelled.")
		return nil
	}
	report, err := a.encryption.Disable(ctx)
	if err != nil {
		return err
	}
	a.printReport("Decrypted", report)
	a.println("Encryption is disabled.")
	return nil
}

// describeError turns a command error into the line shown to the user.
func describeError(err error) string {
	var merr *services.MigrationError
	switch {
	case errors.As(err, &merr):
		return fmt.Sprintf("Migration stopped at task %s after %d of %d task(s): %v. Run the command again to continue.",
			merr.RecordID, merr.Report.Converted, merr.Report.Total, merr.Err)
	case errors.Is(err, ErrLockedHint):
		return err.Error()
	case services.IsLocked(err):
		return "Encryption is locked; run 'unlock' first."
	case errors.Is(err, services.ErrMigrationInProgress):
		return "A migration is running; try again when it finishes."
	case errors.Is(err, services.ErrForeignCiphertext):
		return "Some tasks are encrypted under a different key and cannot be migrated. Delete them and try again."
	case errors.Is(err, services.ErrNotEnabled):
		return "Encryption is not enabled."
	case errors.Is(err, services.ErrAlreadyEnabled):
		return "Encryption is already enabled."
	case errors.Is(err, services.ErrVerificationMismatch):
		return "The passkey did not produce the expected key."
	case errors.Is(err, passkey.ErrCeremonyCancelled):
		return "Passkey ceremony cancelled."
	case errors.Is(err, passkey.ErrExtensionUnsupported):
		return "This authenticator does not support the PRF extension."
	case errors.Is(err, common.ErrorNotFound):
		return "Task not found."
	case errors.Is(err, client.ErrUnavailable):
		return "The server is unavailable."
	case errors.Is(err, client.ErrUnauthorized):
		return "The server rejected the access token."
	default:
		return "Error: " + err.Error()
	}
}
