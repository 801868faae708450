package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/taskseal/internal/client/models"
	"github.com/dmitrijs2005/taskseal/internal/client/repositories/settings"
	"github.com/dmitrijs2005/taskseal/internal/logging"
	"github.com/dmitrijs2005/taskseal/internal/passkey"
	"github.com/dmitrijs2005/taskseal/internal/passkey/softkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSoftkeyDeriver(f *fixture) *passkey.Deriver {
	pin := softkey.UserVerifierFunc(func(ctx context.Context, prompt string) ([]byte, error) {
		return []byte("2468"), nil
	})
	auth := softkey.New(f.db, pin, softkey.Options{
		PRF: true,
		KDF: softkey.KDFParams{Time: 1, Memory: 8 * 1024, Threads: 1},
	})
	return passkey.NewDeriver(auth, "taskseal.test", "TaskSeal", logging.Discard())
}

// failInterruptedEnable runs an enable that stops after two of three records.
func failInterruptedEnable(t *testing.T, f *fixture) {
	t.Helper()
	f.store.failAfter = 2
	_, err := f.manager.Enable(context.Background(), "Ada")
	var merr *MigrationError
	require.True(t, errors.As(err, &merr), "got %v", err)
	require.Equal(t, 2, merr.Report.Converted)
	f.store.heal()
}

func assertReadable(t *testing.T, f *fixture, ids []string, want []models.TaskPayload) {
	t.Helper()
	for i, id := range ids {
		v, err := f.tasks.Get(context.Background(), id)
		require.NoError(t, err)
		assert.False(t, v.Locked)
		assert.Equal(t, want[i].Title, v.Title)
		assert.Equal(t, want[i].Notes, v.Notes)
		assert.Equal(t, want[i].Tags, v.Tags)
	}
}

func TestEnable_ResumesAfterRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := threeTasks()
	ids := f.seed(t, original...)

	failInterruptedEnable(t, f)
	pending, err := f.settings.GetPending(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "cred-1", pending)

	f.restart()
	assert.Equal(t, StateDisabled, status(t, f), "an interrupted enable still reads as disabled")

	report, err := f.manager.Enable(ctx, "Ada")
	require.NoError(t, err)
	assert.Equal(t, MigrationReport{Total: 3, Converted: 1, Skipped: 2}, report)
	assert.Equal(t, 1, f.fake.registers, "the pending credential is authenticated, not replaced")
	assert.Equal(t, 1, f.fake.authCalls)

	s, err := f.settings.Get(ctx, testUser)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "cred-1", s.CredentialID)
	pending, err = f.settings.GetPending(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, pending)

	f.restart()
	require.NoError(t, f.manager.Unlock(ctx))
	assertReadable(t, f, ids, original)
}

func TestEnable_ResumesAfterRestartWithSoftkey(t *testing.T) {
	f := newFixture(t)
	f.deriver = newSoftkeyDeriver(f)
	f.restart()
	ctx := context.Background()
	original := threeTasks()
	ids := f.seed(t, original...)

	failInterruptedEnable(t, f)

	f.deriver = newSoftkeyDeriver(f)
	f.restart()
	report, err := f.manager.Enable(ctx, "Ada")
	require.NoError(t, err)
	assert.Equal(t, MigrationReport{Total: 3, Converted: 1, Skipped: 2}, report)

	var credentials int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM softkey_credentials`).Scan(&credentials))
	assert.Equal(t, 1, credentials)

	f.restart()
	assert.Equal(t, StateLocked, status(t, f))
	require.NoError(t, f.manager.Unlock(ctx))
	assertReadable(t, f, ids, original)

	_, err = f.manager.Disable(ctx)
	require.NoError(t, err)
	for i, id := range ids {
		assert.Equal(t, original[i], byID(f.raw(t))[id].Payload())
	}
}

func TestEnable_RestartWithCancelledResume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, threeTasks()...)
	failInterruptedEnable(t, f)

	f.restart()
	f.fake.authErr = passkey.ErrCeremonyCancelled
	_, err := f.manager.Enable(ctx, "Ada")
	require.ErrorIs(t, err, passkey.ErrCeremonyCancelled)
	assert.Equal(t, 1, f.fake.registers, "a cancelled resume must not register over the pending credential")

	pending, err := f.settings.GetPending(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "cred-1", pending)

	f.fake.authErr = nil
	_, err = f.manager.Enable(ctx, "Ada")
	require.NoError(t, err)
}

// failingPending is a pending store whose writes fail.
type failingPending struct {
	settings.PendingRepository
}

func (failingPending) SetPending(ctx context.Context, userID, credentialID string) error {
	return errStoreDown
}

func TestEnable_PendingNotSavedConvertsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, threeTasks()...)
	f.manager = NewEncryptionManager(testUser, f.store, f.settings, failingPending{f.settings}, f.deriver, f.ring, logging.Discard())

	_, err := f.manager.Enable(ctx, "Ada")
	require.ErrorIs(t, err, errStoreDown)
	assert.Zero(t, f.store.patches)
	assert.Equal(t, StateDisabled, status(t, f))
}

func TestContentWrites_RejectedDuringCeremony(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.seed(t, threeTasks()...)

	var addErr, editErr error
	f.fake.onRegister = func() {
		_, addErr = f.tasks.Add(ctx, models.TaskPayload{Title: "sneaky"})
		editErr = f.tasks.Edit(ctx, ids[0], models.TaskPayload{Title: "changed"})
	}

	_, err := f.manager.Enable(ctx, "Ada")
	require.NoError(t, err)
	assert.ErrorIs(t, addErr, ErrMigrationInProgress)
	assert.ErrorIs(t, editErr, ErrMigrationInProgress)

	records := f.raw(t)
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.Equal(t, models.ModeEncrypted, rec.Mode())
	}
}
