package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/taskseal/internal/client/models"
	"github.com/dmitrijs2005/taskseal/internal/client/repositories/settings"
	"github.com/dmitrijs2005/taskseal/internal/client/repositories/tasks"
	"github.com/dmitrijs2005/taskseal/internal/cryptox"
	"github.com/dmitrijs2005/taskseal/internal/keyring"
	"github.com/dmitrijs2005/taskseal/internal/logging"
)

// State is the encryption state of the current user's account.
type State int

const (
	StateDisabled State = iota
	StateLocked
	StateUnlocked
	StateMigrating
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	case StateMigrating:
		return "migrating"
	default:
		return "unknown"
	}
}

// KeyDeriver runs the passkey ceremonies that produce the encryption key.
// *passkey.Deriver implements it.
type KeyDeriver interface {
	Register(ctx context.Context, userID, userName string) (string, *keyring.SealedKey, error)
	Authenticate(ctx context.Context, credentialID string) (*keyring.SealedKey, error)
}

// EncryptionManager drives the transitions between encryption states.
//
// It is the only component that writes the settings store or the key ring.
// The settings row is written after every record has been migrated on enable
// and removed only after every record has been restored on disable, so the
// persisted "enabled" flag never runs ahead of the data.
type EncryptionManager struct {
	userID   string
	tasks    tasks.Repository
	settings settings.Repository
	pendings settings.PendingRepository
	deriver  KeyDeriver
	ring     *keyring.Ring
	migrator *Migrator
	logger   logging.Logger

	mu        sync.Mutex
	migrating atomic.Bool

	// writes is held exclusively by Enable and Disable from before the
	// ceremony until the settings change is committed; content writers hold
	// it shared.
	writes sync.RWMutex

	// pending keeps the key of an enable whose migration failed, so that a
	// retry converts the remaining records under the same key instead of
	// registering a new credential. Guarded by mu. Its credential id is also
	// kept in the pending store so a restarted process resumes with it.
	pending *pendingEnable
}

type pendingEnable struct {
	credentialID string
	key          *keyring.SealedKey
}

func NewEncryptionManager(userID string, taskRepo tasks.Repository, settingsRepo settings.Repository,
	pendingRepo settings.PendingRepository, deriver KeyDeriver, ring *keyring.Ring, logger logging.Logger) *EncryptionManager {

	l := logger.With("module", "encryption", "user_id", userID)
	return &EncryptionManager{
		userID:   userID,
		tasks:    taskRepo,
		settings: settingsRepo,
		pendings: pendingRepo,
		deriver:  deriver,
		ring:     ring,
		migrator: NewMigrator(taskRepo, logger),
		logger:   l,
	}
}

// Status returns the current state. Settings absent while a key is held is
// not a valid combination; the key is dropped and Disabled reported.
func (m *EncryptionManager) Status(ctx context.Context) (State, error) {
	if m.migrating.Load() {
		return StateMigrating, nil
	}
	s, err := m.settings.Get(ctx, m.userID)
	if err != nil {
		return StateDisabled, fmt.Errorf("load encryption settings: %w", err)
	}
	if s == nil {
		if m.ring.Unlocked() {
			m.logger.Warn(ctx, "session key held without encryption settings, dropping it")
			m.ring.Revoke()
		}
		return StateDisabled, nil
	}
	if m.ring.Unlocked() {
		return StateUnlocked, nil
	}
	return StateLocked, nil
}

// Enabled reports whether encryption settings exist for the user. Writers
// use it to pick the stored form of new content, so it fails while a
// migration runs rather than let a record slip past it.
func (m *EncryptionManager) Enabled(ctx context.Context) (bool, error) {
	if m.migrating.Load() {
		return false, ErrMigrationInProgress
	}
	s, err := m.settings.Get(ctx, m.userID)
	if err != nil {
		return false, fmt.Errorf("load encryption settings: %w", err)
	}
	return s != nil, nil
}

// WriteContent runs write with the current encryption flag while keeping
// Enable and Disable out, so the flag cannot change before the write lands.
// It fails with ErrMigrationInProgress while a transition runs.
func (m *EncryptionManager) WriteContent(ctx context.Context, write func(enabled bool) error) error {
	if !m.writes.TryRLock() {
		return ErrMigrationInProgress
	}
	defer m.writes.RUnlock()

	on, err := m.Enabled(ctx)
	if err != nil {
		return err
	}
	return write(on)
}

// Enable turns encryption on: derive a key from a new passkey, verify it,
// encrypt every record and only then persist the settings and unlock.
//
// On failure nothing is persisted and the session stays locked out of
// encrypted data. Records converted before a migration failure stay
// encrypted; calling Enable again in the same session finishes the job with
// the same key.
func (m *EncryptionManager) Enable(ctx context.Context, userName string) (MigrationReport, error) {
	if !m.mu.TryLock() {
		return MigrationReport{}, ErrMigrationInProgress
	}
	defer m.mu.Unlock()

	s, err := m.settings.Get(ctx, m.userID)
	if err != nil {
		return MigrationReport{}, fmt.Errorf("load encryption settings: %w", err)
	}
	if s != nil {
		return MigrationReport{}, ErrAlreadyEnabled
	}
	m.ring.Revoke()

	m.writes.Lock()
	defer m.writes.Unlock()

	credentialID, key, resumed, err := m.enableKey(ctx, userName)
	if err != nil {
		return MigrationReport{}, err
	}

	var check string
	err = key.Open(func(k *cryptox.Key) error {
		var err error
		if check, err = cryptox.CreateCheck(k); err != nil {
			return fmt.Errorf("create key check: %w", err)
		}
		if !cryptox.VerifyCheck(k, check) {
			return ErrVerificationMismatch
		}
		return nil
	})
	if err != nil {
		return MigrationReport{}, err
	}
	if !resumed {
		if err := m.pendings.SetPending(ctx, m.userID, credentialID); err != nil {
			return MigrationReport{}, fmt.Errorf("save pending enable: %w", err)
		}
	}
	m.pending = &pendingEnable{credentialID: credentialID, key: key}

	m.migrating.Store(true)
	defer m.migrating.Store(false)

	// The migration is not cancellable once started.
	mctx := context.WithoutCancel(ctx)

	records, err := m.tasks.List(mctx, m.userID)
	if err != nil {
		return MigrationReport{}, fmt.Errorf("list records: %w", err)
	}

	var report MigrationReport
	err = key.Open(func(k *cryptox.Key) error {
		if err := m.checkExistingCiphertext(mctx, k, records); err != nil {
			return err
		}
		var err error
		report, err = m.migrator.EncryptAll(mctx, k, records)
		return err
	})
	if errors.Is(err, ErrForeignCiphertext) && !resumed {
		// Nothing was converted under the fresh key.
		m.dropPending(mctx)
	}
	if err != nil {
		return report, err
	}

	if err := m.settings.Set(mctx, m.userID, credentialID, check); err != nil {
		return report, fmt.Errorf("save encryption settings: %w", err)
	}
	m.ring.Grant(key)
	m.dropPending(mctx)

	m.logger.Info(ctx, "encryption enabled", "credential_id", credentialID,
		"converted", report.Converted, "skipped", report.Skipped)
	return report, nil
}

// enableKey returns the key to enable with and whether it continues an
// earlier, interrupted enable. A credential left in the pending store is
// authenticated rather than replaced: registering again would overwrite it
// and lose the key of the records it already encrypted.
func (m *EncryptionManager) enableKey(ctx context.Context, userName string) (string, *keyring.SealedKey, bool, error) {
	if m.pending != nil {
		m.logger.Info(ctx, "resuming interrupted enable", "credential_id", m.pending.credentialID)
		return m.pending.credentialID, m.pending.key, true, nil
	}

	credentialID, err := m.pendings.GetPending(ctx, m.userID)
	if err != nil {
		return "", nil, false, fmt.Errorf("load pending enable: %w", err)
	}
	if credentialID != "" {
		m.logger.Info(ctx, "resuming enable left by an earlier session", "credential_id", credentialID)
		key, err := m.deriver.Authenticate(ctx, credentialID)
		if err != nil {
			m.logger.Warn(ctx, "passkey authentication failed", "error", err)
			return "", nil, false, err
		}
		return credentialID, key, true, nil
	}

	credentialID, key, err := m.deriver.Register(ctx, m.userID, userName)
	if err != nil {
		m.logger.Warn(ctx, "passkey registration failed", "error", err)
		return "", nil, false, err
	}
	return credentialID, key, false, nil
}

// dropPending forgets the pending enable in memory and in the store.
func (m *EncryptionManager) dropPending(ctx context.Context) {
	m.pending = nil
	if err := m.pendings.ClearPending(ctx, m.userID); err != nil {
		m.logger.Warn(ctx, "failed to clear pending enable", "error", err)
	}
}

// checkExistingCiphertext refuses to mix keys: any record that is already
// encrypted must open under the key being enabled.
func (m *EncryptionManager) checkExistingCiphertext(ctx context.Context, key *cryptox.Key, records []models.Task) error {
	foreign := 0
	for _, t := range records {
		if t.Mode() != models.ModeEncrypted {
			continue
		}
		var p models.TaskPayload
		if err := cryptox.Open(key, t.EncryptedPayload, &p); err != nil {
			foreign++
		}
	}
	if foreign > 0 {
		m.logger.Error(ctx, "encrypted records do not open under the new key", "count", foreign)
		return fmt.Errorf("%w: %d record(s)", ErrForeignCiphertext, foreign)
	}
	return nil
}

// Unlock derives the key with the stored credential, checks it against the
// stored key check and makes it the session key. Unlocking an unlocked
// session is a no-op.
func (m *EncryptionManager) Unlock(ctx context.Context) error {
	if m.migrating.Load() {
		return ErrMigrationInProgress
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.settings.Get(ctx, m.userID)
	if err != nil {
		return fmt.Errorf("load encryption settings: %w", err)
	}
	if s == nil {
		return ErrNotEnabled
	}
	if m.ring.Unlocked() {
		return nil
	}

	key, err := m.deriver.Authenticate(ctx, s.CredentialID)
	if err != nil {
		m.logger.Warn(ctx, "passkey authentication failed", "error", err)
		return err
	}

	verified := false
	if err := key.Open(func(k *cryptox.Key) error {
		verified = cryptox.VerifyCheck(k, s.KeyCheck)
		return nil
	}); err != nil {
		return err
	}
	if !verified {
		m.logger.Warn(ctx, "derived key failed verification", "credential_id", s.CredentialID)
		return ErrVerificationMismatch
	}

	m.ring.Grant(key)
	m.logger.Info(ctx, "encryption unlocked")
	return nil
}

// Lock drops the session key.
func (m *EncryptionManager) Lock(ctx context.Context) error {
	if m.migrating.Load() {
		return ErrMigrationInProgress
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ring.Revoke()
	m.logger.Info(ctx, "encryption locked")
	return nil
}

// Disable decrypts every record and then removes the settings. It requires
// an unlocked session. On failure the settings stay in place, the session
// stays unlocked and the records restored so far stay plaintext; calling
// Disable again picks up the rest.
func (m *EncryptionManager) Disable(ctx context.Context) (MigrationReport, error) {
	if !m.mu.TryLock() {
		return MigrationReport{}, ErrMigrationInProgress
	}
	defer m.mu.Unlock()

	s, err := m.settings.Get(ctx, m.userID)
	if err != nil {
		return MigrationReport{}, fmt.Errorf("load encryption settings: %w", err)
	}
	if s == nil {
		return MigrationReport{}, ErrNotEnabled
	}
	if !m.ring.Unlocked() {
		return MigrationReport{}, ErrLocked
	}

	m.writes.Lock()
	defer m.writes.Unlock()

	m.migrating.Store(true)
	defer m.migrating.Store(false)

	mctx := context.WithoutCancel(ctx)

	records, err := m.tasks.List(mctx, m.userID)
	if err != nil {
		return MigrationReport{}, fmt.Errorf("list records: %w", err)
	}

	var report MigrationReport
	err = m.ring.Use(func(k *cryptox.Key) error {
		var err error
		report, err = m.migrator.DecryptAll(mctx, k, records)
		return err
	})
	if err != nil {
		return report, err
	}

	if err := m.settings.Clear(mctx, m.userID); err != nil {
		return report, fmt.Errorf("clear encryption settings: %w", err)
	}
	m.ring.Revoke()

	m.logger.Info(ctx, "encryption disabled", "converted", report.Converted, "skipped", report.Skipped)
	return report, nil
}

// IsLocked reports whether err means the content needs an unlocked session.
func IsLocked(err error) bool {
	return errors.Is(err, ErrLocked)
}
