package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dmitrijs2005/taskseal/internal/client/models"
	"github.com/dmitrijs2005/taskseal/internal/client/repositories/settings"
	"github.com/dmitrijs2005/taskseal/internal/client/repositories/tasks"
	"github.com/dmitrijs2005/taskseal/internal/common"
	"github.com/dmitrijs2005/taskseal/internal/keyring"
	"github.com/dmitrijs2005/taskseal/internal/logging"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

const testUser = "user-1"

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
);
CREATE TABLE encryption_settings (
    user_id       TEXT PRIMARY KEY,
    credential_id TEXT NOT NULL,
    key_check     TEXT NOT NULL,
    created_at    TIMESTAMP NOT NULL
);
CREATE TABLE encryption_pending (
    user_id       TEXT PRIMARY KEY,
    credential_id TEXT NOT NULL,
    created_at    TIMESTAMP NOT NULL
);
CREATE TABLE softkey_credentials (
    id             BLOB PRIMARY KEY,
    rp_id          TEXT NOT NULL,
    user_handle    BLOB NOT NULL,
    user_name      TEXT NOT NULL DEFAULT '',
    wrapped_secret BLOB NOT NULL,
    pin_salt       BLOB NOT NULL,
    prf_enabled    INTEGER NOT NULL DEFAULT 1,
    created_at     TIMESTAMP NOT NULL,
    UNIQUE (rp_id, user_handle)
);`)
	require.NoError(t, err)
	return db
}

// flakyStore fails Patch once failAfter patches have gone through.
// failAfter < 0 disables the failure.
type flakyStore struct {
	tasks.Repository
	mu        sync.Mutex
	patches   int
	failAfter int
	onPatch   func(n int)
}

var errStoreDown = errors.New("store unavailable")

func (s *flakyStore) Patch(ctx context.Context, userID, id string, p models.ContentPatch) error {
	s.mu.Lock()
	n := s.patches
	if s.failAfter >= 0 && n >= s.failAfter {
		s.mu.Unlock()
		return errStoreDown
	}
	s.patches++
	s.mu.Unlock()

	if s.onPatch != nil {
		s.onPatch(n)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Repository.Patch(ctx, userID, id, p)
}

func (s *flakyStore) heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAfter = -1
}

// fakeDeriver hands out a fresh random key per registration and the same key
// for every authentication with that credential.
type fakeDeriver struct {
	mu           sync.Mutex
	keys         map[string][]byte
	registers    int
	authCalls    int
	registerErr  error
	authErr      error
	authOverride []byte
	onRegister   func()
}

func newFakeDeriver() *fakeDeriver {
	return &fakeDeriver{keys: map[string][]byte{}}
}

func (d *fakeDeriver) Register(ctx context.Context, userID, userName string) (string, *keyring.SealedKey, error) {
	if d.onRegister != nil {
		d.onRegister()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.registerErr != nil {
		return "", nil, d.registerErr
	}
	d.registers++
	id := fmt.Sprintf("cred-%d", d.registers)
	d.keys[id] = common.GenerateRandByteArray(32)
	k, err := keyring.Seal(bytes.Clone(d.keys[id]))
	return id, k, err
}

func (d *fakeDeriver) Authenticate(ctx context.Context, credentialID string) (*keyring.SealedKey, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.authCalls++
	if d.authErr != nil {
		return nil, d.authErr
	}
	if d.authOverride != nil {
		return keyring.Seal(bytes.Clone(d.authOverride))
	}
	raw, ok := d.keys[credentialID]
	if !ok {
		return nil, errors.New("unknown credential")
	}
	return keyring.Seal(bytes.Clone(raw))
}

// gateFunc adapts a function to ContentGate.
type gateFunc func(ctx context.Context, write func(enabled bool) error) error

func (g gateFunc) WriteContent(ctx context.Context, write func(enabled bool) error) error {
	return g(ctx, write)
}

type fixture struct {
	db       *sql.DB
	store    *flakyStore
	settings *settings.SQLiteRepository
	deriver  KeyDeriver
	fake     *fakeDeriver
	ring     *keyring.Ring
	manager  *EncryptionManager
	tasks    TaskService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupDB(t)
	fake := newFakeDeriver()
	f := &fixture{
		db:       db,
		store:    &flakyStore{Repository: tasks.NewSQLiteRepository(db), failAfter: -1},
		settings: settings.NewSQLiteRepository(db),
		deriver:  fake,
		fake:     fake,
	}
	f.restart()
	return f
}

// restart drops the in-memory state, as a new process would, and builds a
// fresh manager, ring and task service over the same stores.
func (f *fixture) restart() {
	f.ring = keyring.New()
	f.manager = NewEncryptionManager(testUser, f.store, f.settings, f.settings, f.deriver, f.ring, logging.Discard())
	f.tasks = NewTaskService(testUser, f.store, f.ring, f.manager, logging.Discard())
}

func (f *fixture) seed(t *testing.T, payloads ...models.TaskPayload) []string {
	t.Helper()
	ids := make([]string, 0, len(payloads))
	for _, p := range payloads {
		id, err := f.tasks.Add(context.Background(), p)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func (f *fixture) raw(t *testing.T) []models.Task {
	t.Helper()
	list, err := f.store.List(context.Background(), testUser)
	require.NoError(t, err)
	return list
}

func threeTasks() []models.TaskPayload {
	return []models.TaskPayload{
		{Title: "buy milk", Notes: "2 litres", Tags: []string{"home"}},
		{Title: "file taxes", Notes: "", Tags: []string{"admin", "2026"}},
		{Title: "call mum", Notes: "sunday", Tags: []string{}},
	}
}
