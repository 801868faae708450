package passkey

import "errors"

var (
	// ErrExtensionUnsupported means the authenticator, or the specific
	// credential, did not provide PRF output. Another authenticator may work.
	ErrExtensionUnsupported = errors.New("passkey PRF extension unsupported")

	// ErrCeremonyCancelled means the user aborted the authenticator prompt.
	ErrCeremonyCancelled = errors.New("passkey ceremony cancelled")

	// ErrInvalidCredentialID is returned for a stored credential id that does
	// not decode.
	ErrInvalidCredentialID = errors.New("invalid credential id")
)
