// Package passkey derives the TaskSeal encryption key from a passkey.
//
// The key is the output of the authenticator's deterministic PRF extension
// evaluated over a fixed application salt. The same credential and salt
// always produce the same 32 bytes, the bytes never leave the client, and
// losing the authenticator loses the key: there is no recovery path.
package passkey

import "context"

// CreationOptions are the parameters of a create-credential ceremony.
type CreationOptions struct {
	RPID       string
	RPName     string
	UserHandle []byte
	UserName   string
	Challenge  []byte
	// PRF requests the deterministic pseudorandom extension.
	PRF bool
}

// Credential is the result of a create-credential ceremony.
type Credential struct {
	ID []byte
	// PRFEnabled reports whether the authenticator accepted the PRF extension.
	PRFEnabled bool
}

// AssertionOptions are the parameters of a get-assertion ceremony.
type AssertionOptions struct {
	RPID             string
	Challenge        []byte
	AllowCredentials [][]byte
	// PRFSalt, when non-nil, asks for the PRF evaluated over this salt.
	PRFSalt []byte
}

// Assertion is the result of a get-assertion ceremony.
type Assertion struct {
	CredentialID []byte
	// PRFResult is nil when the authenticator returned no extension output.
	PRFResult []byte
}

// Authenticator is the platform capability the key derivation runs against.
// Both ceremonies block on user interaction; implementations return
// ErrCeremonyCancelled when the user aborts the prompt.
type Authenticator interface {
	CreateCredential(ctx context.Context, opts CreationOptions) (*Credential, error)
	GetAssertion(ctx context.Context, opts AssertionOptions) (*Assertion, error)
}
