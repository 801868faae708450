package models

import "time"

// EncryptionSettings is the per-user record whose presence means encryption
// is enabled. CredentialID names the passkey the key is derived from and
// KeyCheck is the canary envelope sealed under that key.
type EncryptionSettings struct {
	UserID       string
	CredentialID string
	KeyCheck     string
	CreatedAt    time.Time
}
