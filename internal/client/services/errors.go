package services

import (
	"errors"

	"github.com/dmitrijs2005/taskseal/internal/keyring"
)

var (
	ErrNotEnabled           = errors.New("encryption is not enabled")
	ErrAlreadyEnabled       = errors.New("encryption is already enabled")
	ErrVerificationMismatch = errors.New("key does not match the stored key check")
	ErrMigrationInProgress  = errors.New("encryption migration in progress")

	// ErrForeignCiphertext means the store holds encrypted records that do
	// not open under the key being enabled, e.g. records left behind by an
	// interrupted enable whose credential is gone. They stay unreadable and
	// can only be deleted.
	ErrForeignCiphertext = errors.New("records encrypted under a different key")

	// ErrLocked is returned for encrypted content while no key is held.
	ErrLocked = keyring.ErrLocked
)
