// Package softkey is a software passkey authenticator with PRF support.
//
// It stands in for a platform authenticator where none is available (the
// CLI, tests). Each credential owns a random 32-byte secret that is stored
// wrapped (AES-KWP) under a key derived from the user's PIN with argon2id.
// The PRF is evaluated the way WebAuthn maps it onto hmac-secret: the
// application salt is hashed with the "WebAuthn PRF" context string and the
// credential secret is run through HKDF-SHA256 over it.
package softkey

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/taskseal/internal/common"
	"github.com/dmitrijs2005/taskseal/internal/dbx"
	"github.com/dmitrijs2005/taskseal/internal/passkey"
	"github.com/google/tink/go/kwp/subtle"
	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

const (
	secretSize  = 32
	pinSaltSize = 16
	prfSize     = 32
)

var (
	// ErrNoCredential is returned when none of the allowed credentials is
	// registered with this authenticator.
	ErrNoCredential = errors.New("no matching credential")

	// ErrUserVerification is returned for a wrong PIN.
	ErrUserVerification = errors.New("user verification failed")

	// ErrInvalidOptions is returned for ceremony options missing the relying
	// party id or the user handle.
	ErrInvalidOptions = errors.New("invalid ceremony options")
)

// UserVerifier collects the PIN that protects a credential. Returning an
// empty PIN aborts the ceremony.
type UserVerifier interface {
	RequestPIN(ctx context.Context, prompt string) ([]byte, error)
}

// UserVerifierFunc adapts a function to UserVerifier.
type UserVerifierFunc func(ctx context.Context, prompt string) ([]byte, error)

func (f UserVerifierFunc) RequestPIN(ctx context.Context, prompt string) ([]byte, error) {
	return f(ctx, prompt)
}

// KDFParams are the argon2id parameters used to derive the wrapping key.
type KDFParams struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

// DefaultKDFParams matches the cost used for master key derivation elsewhere
// in the project: one pass over 64 MiB with four lanes.
var DefaultKDFParams = KDFParams{Time: 1, Memory: 64 * 1024, Threads: 4}

// Options configures an Authenticator.
type Options struct {
	// PRF enables the PRF extension. With PRF off the authenticator behaves
	// like hardware that lacks the capability.
	PRF bool
	KDF KDFParams
}

// Authenticator implements passkey.Authenticator on top of the client
// database.
type Authenticator struct {
	store    *store
	verifier UserVerifier
	opts     Options
	now      func() time.Time
}

var _ passkey.Authenticator = (*Authenticator)(nil)

// New returns an authenticator persisting credentials through db.
func New(db dbx.DBTX, verifier UserVerifier, opts Options) *Authenticator {
	if opts.KDF == (KDFParams{}) {
		opts.KDF = DefaultKDFParams
	}
	return &Authenticator{store: &store{db: db}, verifier: verifier, opts: opts, now: time.Now}
}

// CreateCredential registers a new credential protected by a freshly chosen
// PIN. A credential already registered for the same relying party and user
// handle is replaced.
func (a *Authenticator) CreateCredential(ctx context.Context, opts passkey.CreationOptions) (*passkey.Credential, error) {
	if opts.RPID == "" || len(opts.UserHandle) == 0 {
		return nil, ErrInvalidOptions
	}

	pin, err := a.requestPIN(ctx, fmt.Sprintf("Choose a PIN for the %s passkey", opts.RPName))
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(pin)

	secret := common.GenerateRandByteArray(secretSize)
	defer common.WipeByteArray(secret)

	salt := common.GenerateRandByteArray(pinSaltSize)
	wrapped, err := a.wrap(pin, salt, secret)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	prf := a.opts.PRF && opts.PRF
	c := &credential{
		ID:            id[:],
		RPID:          opts.RPID,
		UserHandle:    opts.UserHandle,
		UserName:      opts.UserName,
		WrappedSecret: wrapped,
		PINSalt:       salt,
		PRFEnabled:    prf,
		CreatedAt:     a.now(),
	}
	if err := a.store.save(ctx, c); err != nil {
		return nil, err
	}

	return &passkey.Credential{ID: c.ID, PRFEnabled: prf}, nil
}

// GetAssertion verifies the PIN for one of the allowed credentials and, if a
// PRF salt was given and the credential supports it, returns the PRF output.
func (a *Authenticator) GetAssertion(ctx context.Context, opts passkey.AssertionOptions) (*passkey.Assertion, error) {
	if opts.RPID == "" {
		return nil, ErrInvalidOptions
	}

	var cred *credential
	for _, id := range opts.AllowCredentials {
		c, err := a.store.find(ctx, opts.RPID, id)
		if err != nil {
			return nil, err
		}
		if c != nil {
			cred = c
			break
		}
	}
	if cred == nil {
		return nil, ErrNoCredential
	}

	pin, err := a.requestPIN(ctx, "Enter your passkey PIN")
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(pin)

	secret, err := a.unwrap(pin, cred.PINSalt, cred.WrappedSecret)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(secret)

	assertion := &passkey.Assertion{CredentialID: cred.ID}
	if opts.PRFSalt != nil && cred.PRFEnabled {
		out, err := evalPRF(secret, opts.PRFSalt, cred.ID)
		if err != nil {
			return nil, err
		}
		assertion.PRFResult = out
	}
	return assertion, nil
}

func (a *Authenticator) requestPIN(ctx context.Context, prompt string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pin, err := a.verifier.RequestPIN(ctx, prompt)
	if err != nil {
		if errors.Is(err, passkey.ErrCeremonyCancelled) || errors.Is(err, context.Canceled) {
			return nil, passkey.ErrCeremonyCancelled
		}
		return nil, fmt.Errorf("request pin: %w", err)
	}
	if len(pin) == 0 {
		return nil, passkey.ErrCeremonyCancelled
	}
	return pin, nil
}

func (a *Authenticator) wrappingKey(pin, salt []byte) []byte {
	p := a.opts.KDF
	return argon2.IDKey(pin, salt, p.Time, p.Memory, p.Threads, 32)
}

func (a *Authenticator) wrap(pin, salt, secret []byte) ([]byte, error) {
	wk := a.wrappingKey(pin, salt)
	defer common.WipeByteArray(wk)

	kwp, err := subtle.NewKWP(wk)
	if err != nil {
		return nil, err
	}
	return kwp.Wrap(secret)
}

func (a *Authenticator) unwrap(pin, salt, wrapped []byte) ([]byte, error) {
	wk := a.wrappingKey(pin, salt)
	defer common.WipeByteArray(wk)

	kwp, err := subtle.NewKWP(wk)
	if err != nil {
		return nil, err
	}
	secret, err := kwp.Unwrap(wrapped)
	if err != nil {
		return nil, ErrUserVerification
	}
	return secret, nil
}

// evalPRF computes the PRF output for salt. The salt is domain-separated the
// same way browsers do before handing it to hmac-secret.
func evalPRF(secret, salt, credentialID []byte) ([]byte, error) {
	h := sha256.New()
	h.Write([]byte("WebAuthn PRF"))
	h.Write([]byte{0x00})
	h.Write(salt)

	r := hkdf.New(sha256.New, secret, h.Sum(nil), credentialID)
	out := make([]byte, prfSize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("prf: %w", err)
	}
	return out, nil
}
