package tasks

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/taskseal/internal/client/models"
	"github.com/dmitrijs2005/taskseal/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE tasks (
    id                TEXT PRIMARY KEY,
    user_id           TEXT NOT NULL,
    title             TEXT NOT NULL DEFAULT '',
    notes             TEXT NOT NULL DEFAULT '',
    tags              TEXT NOT NULL DEFAULT '[]',
    encrypted_payload TEXT NOT NULL DEFAULT '',
    done              INTEGER NOT NULL DEFAULT 0,
    created_at        TIMESTAMP NOT NULL,
    updated_at        TIMESTAMP NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestCreateAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	task := &models.Task{UserID: "u1", Title: "buy milk", Notes: "2l", Tags: []string{"home", "errands"}}
	require.NoError(t, r.Create(ctx, task))
	require.NotEmpty(t, task.ID)
	require.False(t, task.CreatedAt.IsZero())

	got, err := r.GetByID(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "buy milk", got.Title)
	assert.Equal(t, "2l", got.Notes)
	assert.Equal(t, []string{"home", "errands"}, got.Tags)
	assert.Empty(t, got.EncryptedPayload)
	assert.False(t, got.Done)
	assert.Equal(t, models.ModePlaintext, got.Mode())
}

func TestGetByID_OtherUserIsNotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	task := &models.Task{ID: "t1", UserID: "u1", Title: "x"}
	require.NoError(t, r.Create(ctx, task))

	_, err := r.GetByID(ctx, "u2", "t1")
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = r.GetByID(ctx, "u1", "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList_ScopedAndOrdered(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, r.Create(ctx, &models.Task{ID: "b", UserID: "u1", Title: "second", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, r.Create(ctx, &models.Task{ID: "a", UserID: "u1", Title: "first", CreatedAt: base}))
	require.NoError(t, r.Create(ctx, &models.Task{ID: "c", UserID: "u2", Title: "other"}))

	got, err := r.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, []string{}, got[0].Tags)

	empty, err := r.List(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestPatch_SwitchesModesAtomically(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	task := &models.Task{ID: "t1", UserID: "u1", Title: "secret", Notes: "n", Tags: []string{"x"}, Done: true}
	require.NoError(t, r.Create(ctx, task))

	require.NoError(t, r.Patch(ctx, "u1", "t1", models.EncryptedContent(`{"v":1}`)))
	got, err := r.GetByID(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, models.ModeEncrypted, got.Mode())
	assert.Equal(t, models.EncryptedTitlePlaceholder, got.Title)
	assert.Empty(t, got.Notes)
	assert.Equal(t, []string{}, got.Tags)
	assert.True(t, got.Done, "patch must not touch done")

	require.NoError(t, r.Patch(ctx, "u1", "t1", models.PlaintextContent(models.TaskPayload{Title: "secret", Notes: "n", Tags: []string{"x"}})))
	got, err = r.GetByID(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, models.ModePlaintext, got.Mode())
	assert.Equal(t, "secret", got.Title)
	assert.Equal(t, []string{"x"}, got.Tags)
}

func TestPatch_NotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	err := r.Patch(context.Background(), "u1", "nope", models.EncryptedContent("x"))
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSetDoneAndDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, &models.Task{ID: "t1", UserID: "u1", Title: "x"}))
	require.NoError(t, r.SetDone(ctx, "u1", "t1", true))

	got, err := r.GetByID(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.True(t, got.Done)

	require.ErrorIs(t, r.Delete(ctx, "u2", "t1"), common.ErrorNotFound)
	require.NoError(t, r.Delete(ctx, "u1", "t1"))
	require.ErrorIs(t, r.Delete(ctx, "u1", "t1"), common.ErrorNotFound)
	require.ErrorIs(t, r.SetDone(ctx, "u1", "t1", false), common.ErrorNotFound)
}

func TestTags_Codec(t *testing.T) {
	s, err := EncodeTags(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", s)

	tags, err := DecodeTags("")
	require.NoError(t, err)
	assert.Equal(t, []string{}, tags)

	tags, err = DecodeTags("null")
	require.NoError(t, err)
	assert.Equal(t, []string{}, tags)

	_, err = DecodeTags("{")
	require.Error(t, err)
}

func TestSQLErrors_AreWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := NewSQLiteRepository(db)
	ctx := context.Background()
	boom := errors.New("boom")

	mock.ExpectQuery(`select .* from tasks where user_id=\?`).WillReturnError(boom)
	_, err = r.List(ctx, "u1")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to select tasks")

	mock.ExpectExec(`INSERT INTO tasks`).WillReturnError(boom)
	err = r.Create(ctx, &models.Task{UserID: "u1"})
	require.ErrorIs(t, err, boom)

	mock.ExpectExec(`update tasks set title`).WillReturnError(boom)
	err = r.Patch(ctx, "u1", "t1", models.EncryptedContent("x"))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to patch task")

	mock.ExpectQuery(`select .* from tasks where user_id=\? and id=\?`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "notes", "tags", "encrypted_payload", "done", "created_at", "updated_at"}).
			AddRow("t1", "u1", "x", "", "not-json", "", false, time.Now(), time.Now()))
	_, err = r.GetByID(ctx, "u1", "t1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode tags")

	require.NoError(t, mock.ExpectationsWereMet())
}
