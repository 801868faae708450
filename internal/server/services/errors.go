package services

import "errors"

// ErrInvalidRecord is returned for writes that would store plaintext next to
// ciphertext or an envelope that does not parse.
var ErrInvalidRecord = errors.New("invalid record")
