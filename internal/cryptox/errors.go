package cryptox

import "errors"

var (
	// ErrMalformedEnvelope means stored data is not a valid envelope. It points
	// at corruption and is not fixed by retrying.
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrUnsupportedVersion is returned for envelopes whose format version is
	// not EnvelopeVersion.
	ErrUnsupportedVersion = errors.New("unsupported envelope version")

	// ErrAuthenticationFailure is returned when the ciphertext does not
	// authenticate under the given key. A wrong key and tampered data are
	// reported identically.
	ErrAuthenticationFailure = errors.New("authentication failure")

	// ErrInvalidKeySize is returned by NewKey for anything but 32 bytes.
	ErrInvalidKeySize = errors.New("invalid key size")
)
