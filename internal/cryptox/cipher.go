package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/taskseal/internal/common"
)

// KeySize is the length of a raw AES-256 key in bytes.
const KeySize = 32

// Key is an AES-256-GCM key. It is built from raw bytes once and never hands
// them back out; callers may wipe the source slice right after NewKey.
type Key struct {
	aead cipher.AEAD
}

// NewKey imports a 32-byte raw key.
func NewKey(raw []byte) (*Key, error) {
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKeySize, KeySize, len(raw))
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Key{aead: aead}, nil
}

// Encrypt serializes v to JSON and seals it under key with a fresh random
// nonce. Every call draws a new nonce, including re-encryption of unchanged
// data.
//
// Example:
//
//	env, err := cryptox.Encrypt(key, models.TaskPayload{Title: "buy milk"})
//	if err != nil {
//	    return err
//	}
//	stored, err := cryptox.EncodeEnvelope(env)
func Encrypt(key *Key, v any) (Envelope, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("payload marshal: %w", err)
	}
	defer common.WipeByteArray(plaintext)

	nonce := common.GenerateRandByteArray(NonceSize)
	ciphertext := key.aead.Seal(nil, nonce, plaintext, nil)

	return Envelope{Version: EnvelopeVersion, Nonce: nonce, Ciphertext: ciphertext}, nil
}

// Decrypt opens env under key and unmarshals the JSON payload into v.
//
// The version is checked before anything else, so an unknown version fails
// with ErrUnsupportedVersion even when the ciphertext itself is valid. A tag
// that does not verify fails with ErrAuthenticationFailure. v is left
// untouched on either failure: there is no partial result.
func Decrypt(key *Key, env Envelope, v any) error {
	if env.Version != EnvelopeVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}
	if len(env.Nonce) != key.aead.NonceSize() {
		return ErrAuthenticationFailure
	}

	plaintext, err := key.aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return ErrAuthenticationFailure
	}
	defer common.WipeByteArray(plaintext)

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("payload unmarshal: %w", err)
	}
	return nil
}

// Seal encrypts v and returns the encoded transport string.
func Seal(key *Key, v any) (string, error) {
	env, err := Encrypt(key, v)
	if err != nil {
		return "", err
	}
	return EncodeEnvelope(env)
}

// Open decodes a transport string and decrypts it into v.
func Open(key *Key, s string, v any) error {
	env, err := DecodeEnvelope(s)
	if err != nil {
		return err
	}
	return Decrypt(key, env, v)
}
