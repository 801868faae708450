package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/taskseal/internal/client/models"
	"github.com/dmitrijs2005/taskseal/internal/common"
	"github.com/dmitrijs2005/taskseal/internal/cryptox"
	"github.com/dmitrijs2005/taskseal/internal/dbx"
	"github.com/dmitrijs2005/taskseal/internal/logging"
	"github.com/dmitrijs2005/taskseal/internal/server/repositories/records"
	"github.com/dmitrijs2005/taskseal/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecordsRepo struct {
	created   []models.Task
	createErr error
	patched   map[string]models.ContentPatch
}

func (f *fakeRecordsRepo) List(ctx context.Context, userID string) ([]models.Task, error) {
	out := []models.Task{}
	for _, t := range f.created {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRecordsRepo) GetByID(ctx context.Context, userID, id string) (*models.Task, error) {
	for _, t := range f.created {
		if t.UserID == userID && t.ID == id {
			return &t, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeRecordsRepo) Create(ctx context.Context, t *models.Task) error {
	if f.createErr != nil {
		return f.createErr
	}
	if t.ID == "" {
		t.ID = "generated"
	}
	f.created = append(f.created, *t)
	return nil
}

func (f *fakeRecordsRepo) Patch(ctx context.Context, userID, id string, p models.ContentPatch) error {
	if f.patched == nil {
		f.patched = map[string]models.ContentPatch{}
	}
	f.patched[userID+"/"+id] = p
	return nil
}

func (f *fakeRecordsRepo) SetDone(ctx context.Context, userID, id string, done bool) error {
	return nil
}

func (f *fakeRecordsRepo) Delete(ctx context.Context, userID, id string) error {
	return nil
}

type fakeUsersRepo struct {
	ensured  []string
	settings map[string]*models.EncryptionSettings
}

func (f *fakeUsersRepo) Ensure(ctx context.Context, userID string) error {
	f.ensured = append(f.ensured, userID)
	return nil
}

func (f *fakeUsersRepo) GetSettings(ctx context.Context, userID string) (*models.EncryptionSettings, error) {
	return f.settings[userID], nil
}

func (f *fakeUsersRepo) SetSettings(ctx context.Context, userID, credentialID, keyCheck string) error {
	if f.settings == nil {
		f.settings = map[string]*models.EncryptionSettings{}
	}
	f.settings[userID] = &models.EncryptionSettings{UserID: userID, CredentialID: credentialID, KeyCheck: keyCheck}
	return nil
}

func (f *fakeUsersRepo) ClearSettings(ctx context.Context, userID string) error {
	delete(f.settings, userID)
	return nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRecordsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository        { return m.u }
func (m *fakeRepoManager) Records(db dbx.DBTX) records.Repository    { return m.r }

func newService(t *testing.T) (*RecordService, *fakeRepoManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRecordsRepo{}}
	return NewRecordService(db, rm, logging.Discard()), rm, mock
}

func envelope(t *testing.T) string {
	t.Helper()
	key, err := cryptox.NewKey(common.GenerateRandByteArray(cryptox.KeySize))
	require.NoError(t, err)
	s, err := cryptox.Seal(key, models.TaskPayload{Title: "secret", Tags: []string{}})
	require.NoError(t, err)
	return s
}

func TestCreate_EnsuresUserInsideTx(t *testing.T) {
	s, rm, mock := newService(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	got, err := s.Create(context.Background(), "alice", models.Task{UserID: "mallory", Title: "milk"})
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserID, "user id comes from the caller, not the record")
	assert.Equal(t, "generated", got.ID)
	assert.Equal(t, []string{"alice"}, rm.u.ensured)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_RollsBackOnRepoError(t *testing.T) {
	s, rm, mock := newService(t)
	rm.r.createErr = errors.New("db down")
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := s.Create(context.Background(), "alice", models.Task{Title: "milk"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_AcceptsEncryptedRecord(t *testing.T) {
	s, _, mock := newService(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	env := envelope(t)
	got, err := s.Create(context.Background(), "alice", models.Task{Title: models.EncryptedTitlePlaceholder, Tags: []string{}, EncryptedPayload: env})
	require.NoError(t, err)
	assert.Equal(t, models.ModeEncrypted, got.Mode())
}

func TestValidateContent(t *testing.T) {
	env := envelope(t)
	tests := []struct {
		name    string
		patch   models.ContentPatch
		wantErr bool
	}{
		{name: "plaintext", patch: models.ContentPatch{Title: "milk", Notes: "2l", Tags: []string{"home"}}},
		{name: "encrypted", patch: models.EncryptedContent(env)},
		{name: "title leaks", patch: models.ContentPatch{Title: "milk", Tags: []string{}, EncryptedPayload: env}, wantErr: true},
		{name: "notes leak", patch: models.ContentPatch{Title: models.EncryptedTitlePlaceholder, Notes: "2l", EncryptedPayload: env}, wantErr: true},
		{name: "tags leak", patch: models.ContentPatch{Title: models.EncryptedTitlePlaceholder, Tags: []string{"home"}, EncryptedPayload: env}, wantErr: true},
		{name: "not an envelope", patch: models.EncryptedContent("hello"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rm, _ := newService(t)
			err := s.Patch(context.Background(), "alice", "t1", tt.patch)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRecord)
				assert.Empty(t, rm.r.patched)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, rm.r.patched, "alice/t1")
		})
	}
}

func TestSettings_Lifecycle(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	got, err := s.Settings(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, got)

	check := envelope(t)
	require.NoError(t, s.SetSettings(ctx, "alice", "cred-1", check))

	got, err = s.Settings(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "cred-1", got.CredentialID)
	assert.Equal(t, check, got.KeyCheck)

	require.NoError(t, s.ClearSettings(ctx, "alice"))
	got, err = s.Settings(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSetSettings_Rejects(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	require.ErrorIs(t, s.SetSettings(ctx, "alice", "", envelope(t)), ErrInvalidRecord)
	require.ErrorIs(t, s.SetSettings(ctx, "alice", "cred-1", "not-an-envelope"), ErrInvalidRecord)
}

func TestList_ScopedToUser(t *testing.T) {
	s, rm, _ := newService(t)
	rm.r.created = []models.Task{{ID: "a", UserID: "alice"}, {ID: "b", UserID: "bob"}}

	got, err := s.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	_, err = s.Get(context.Background(), "alice", "b")
	require.ErrorIs(t, err, common.ErrorNotFound)
}
