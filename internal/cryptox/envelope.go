// Package cryptox implements the authenticated-encryption envelope used for
// everything TaskSeal stores encrypted: the envelope transport codec, AES-GCM
// sealing of JSON payloads and the key check canary.
package cryptox

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const (
	// EnvelopeVersion is the only envelope format this package reads or writes.
	EnvelopeVersion = 1

	// NonceSize is the AES-GCM nonce length in bytes (96 bits).
	NonceSize = 12
)

// Envelope is a sealed payload: format version, the nonce used for this
// encryption and the GCM ciphertext with its authentication tag appended.
type Envelope struct {
	Version    int
	Nonce      []byte
	Ciphertext []byte
}

// wireEnvelope is the JSON transport form. Pointers distinguish a missing
// field from a zero value.
type wireEnvelope struct {
	V          *int    `json:"v"`
	IV         *string `json:"iv"`
	Ciphertext *string `json:"ciphertext"`
}

// EncodeEnvelope serializes e into its transport string:
//
//	{"v":1,"iv":"<base64 nonce>","ciphertext":"<base64 ciphertext+tag>"}
//
// The result is what gets stored in a record's encrypted payload field and in
// the user's key check.
func EncodeEnvelope(e Envelope) (string, error) {
	iv := base64.StdEncoding.EncodeToString(e.Nonce)
	ct := base64.StdEncoding.EncodeToString(e.Ciphertext)
	v := e.Version

	b, err := json.Marshal(wireEnvelope{V: &v, IV: &iv, Ciphertext: &ct})
	if err != nil {
		return "", fmt.Errorf("envelope encode: %w", err)
	}
	return string(b), nil
}

// DecodeEnvelope parses a transport string produced by EncodeEnvelope.
//
// Any structural problem (invalid JSON, missing or null fields, bad base64,
// empty ciphertext, wrong nonce length) is reported as ErrMalformedEnvelope.
// The version value is returned as-is; rejecting unknown versions is left to
// Decrypt.
func DecodeEnvelope(s string) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if w.V == nil || w.IV == nil || w.Ciphertext == nil {
		return Envelope{}, fmt.Errorf("%w: missing field", ErrMalformedEnvelope)
	}

	nonce, err := base64.StdEncoding.DecodeString(*w.IV)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: iv: %v", ErrMalformedEnvelope, err)
	}
	if len(nonce) != NonceSize {
		return Envelope{}, fmt.Errorf("%w: iv must be %d bytes, got %d", ErrMalformedEnvelope, NonceSize, len(nonce))
	}

	ciphertext, err := base64.StdEncoding.DecodeString(*w.Ciphertext)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: ciphertext: %v", ErrMalformedEnvelope, err)
	}
	if len(ciphertext) == 0 {
		return Envelope{}, fmt.Errorf("%w: empty ciphertext", ErrMalformedEnvelope)
	}

	return Envelope{Version: *w.V, Nonce: nonce, Ciphertext: ciphertext}, nil
}
