// Package keyring holds the derived encryption key for the active session.
//
// Raw key bytes live only inside a memguard Enclave. They are decrypted into
// locked memory for the duration of a single callback and destroyed right
// after, so no caller ever owns a copy of the key.
package keyring

import (
	"errors"
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/taskseal/internal/common"
	"github.com/dmitrijs2005/taskseal/internal/cryptox"
)

// ErrKeyUnavailable is returned when a sealed key cannot be opened.
var ErrKeyUnavailable = errors.New("key unavailable")

// SealedKey is an imported 256-bit key that cannot be extracted.
type SealedKey struct {
	enclave *memguard.Enclave
}

// Seal imports raw as a 256-bit key. The source slice is wiped whether or not
// the import succeeds.
func Seal(raw []byte) (*SealedKey, error) {
	if len(raw) != cryptox.KeySize {
		n := len(raw)
		common.WipeByteArray(raw)
		return nil, fmt.Errorf("%w: want %d bytes, got %d", cryptox.ErrInvalidKeySize, cryptox.KeySize, n)
	}
	return &SealedKey{enclave: memguard.NewEnclave(raw)}, nil
}

// Open runs fn with the key opened for use. The decrypted key material is
// destroyed when fn returns.
func (s *SealedKey) Open(fn func(key *cryptox.Key) error) error {
	if s == nil || s.enclave == nil {
		return ErrKeyUnavailable
	}
	buf, err := s.enclave.Open()
	if err != nil {
		return ErrKeyUnavailable
	}
	defer buf.Destroy()

	key, err := cryptox.NewKey(buf.Bytes())
	if err != nil {
		return err
	}
	return fn(key)
}
