package keyring

import (
	"errors"
	"sync"

	"github.com/dmitrijs2005/taskseal/internal/cryptox"
)

// ErrLocked is returned when encrypted data is requested but no key is held.
var ErrLocked = errors.New("encryption locked")

// Ring is the single session key slot. Any component may use the key through
// Use; only the holder of the Ring's grant (the encryption state machine)
// puts a key in or takes it out.
type Ring struct {
	mu  sync.RWMutex
	key *SealedKey
}

// New returns an empty (locked) Ring.
func New() *Ring {
	return &Ring{}
}

// Unlocked reports whether a key is currently held.
func (r *Ring) Unlocked() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.key != nil
}

// Use runs fn with the session key. It returns ErrLocked if the ring is empty.
func (r *Ring) Use(fn func(key *cryptox.Key) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.key == nil {
		return ErrLocked
	}
	return r.key.Open(fn)
}

// Grant installs key as the session key, replacing any previous one.
func (r *Ring) Grant(key *SealedKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.key = key
}

// Revoke drops the session key.
func (r *Ring) Revoke() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.key = nil
}
