package passkey

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/dmitrijs2005/taskseal/internal/cryptox"
	"github.com/dmitrijs2005/taskseal/internal/keyring"
	"github.com/dmitrijs2005/taskseal/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuthenticator evaluates the PRF as HMAC(secret[credential], salt).
type fakeAuthenticator struct {
	prfOnCreate   bool
	prfOnAssert   bool
	createErr     error
	assertErr     error
	shortPRF      bool
	nilResult     bool
	secrets       map[string][]byte
	next          byte
	lastCreate    CreationOptions
	lastAssertion AssertionOptions
	assertions    int
}

func newFake() *fakeAuthenticator {
	return &fakeAuthenticator{prfOnCreate: true, prfOnAssert: true, secrets: map[string][]byte{}}
}

func (f *fakeAuthenticator) CreateCredential(ctx context.Context, opts CreationOptions) (*Credential, error) {
	f.lastCreate = opts
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.nilResult {
		return nil, nil
	}
	f.next++
	id := []byte{0xC0, f.next}
	f.secrets[string(id)] = bytes.Repeat([]byte{f.next}, 32)
	return &Credential{ID: id, PRFEnabled: f.prfOnCreate && opts.PRF}, nil
}

func (f *fakeAuthenticator) GetAssertion(ctx context.Context, opts AssertionOptions) (*Assertion, error) {
	f.lastAssertion = opts
	f.assertions++
	if f.assertErr != nil {
		return nil, f.assertErr
	}
	if f.nilResult {
		return nil, nil
	}
	id := opts.AllowCredentials[0]
	secret, ok := f.secrets[string(id)]
	if !ok {
		return nil, errors.New("unknown credential")
	}
	a := &Assertion{CredentialID: id}
	if f.prfOnAssert && opts.PRFSalt != nil {
		m := hmac.New(sha256.New, secret)
		m.Write(opts.PRFSalt)
		a.PRFResult = m.Sum(nil)
		if f.shortPRF {
			a.PRFResult = a.PRFResult[:16]
		}
	}
	return a, nil
}

func newDeriver(f *fakeAuthenticator) *Deriver {
	return NewDeriver(f, "taskseal.test", "TaskSeal", logging.Discard())
}

func keyCheck(t *testing.T, k *keyring.SealedKey) string {
	t.Helper()
	var check string
	require.NoError(t, k.Open(func(key *cryptox.Key) error {
		var err error
		check, err = cryptox.CreateCheck(key)
		return err
	}))
	return check
}

func verifies(t *testing.T, k *keyring.SealedKey, check string) bool {
	t.Helper()
	ok := false
	require.NoError(t, k.Open(func(key *cryptox.Key) error {
		ok = cryptox.VerifyCheck(key, check)
		return nil
	}))
	return ok
}

func TestRegister_DerivesKeyAndAuthenticatesImmediately(t *testing.T) {
	f := newFake()
	d := newDeriver(f)

	credID, key, err := d.Register(context.Background(), "user-1", "Ada")
	require.NoError(t, err)
	require.NotNil(t, key)

	assert.Equal(t, base64.RawURLEncoding.EncodeToString([]byte{0xC0, 1}), credID)
	assert.True(t, f.lastCreate.PRF)
	assert.Equal(t, "taskseal.test", f.lastCreate.RPID)
	assert.Equal(t, UserHandle("user-1"), f.lastCreate.UserHandle)
	assert.Len(t, f.lastCreate.Challenge, challengeSize)
	assert.Equal(t, 1, f.assertions)
	assert.Equal(t, []byte(prfSalt), f.lastAssertion.PRFSalt)
}

func TestAuthenticate_IsDeterministicPerCredential(t *testing.T) {
	f := newFake()
	d := newDeriver(f)
	ctx := context.Background()

	credID, k1, err := d.Register(ctx, "user-1", "Ada")
	require.NoError(t, err)
	check := keyCheck(t, k1)

	k2, err := d.Authenticate(ctx, credID)
	require.NoError(t, err)
	assert.True(t, verifies(t, k2, check), "same credential + salt must give the same key")

	otherID, k3, err := d.Register(ctx, "user-1", "Ada")
	require.NoError(t, err)
	assert.NotEqual(t, credID, otherID)
	assert.False(t, verifies(t, k3, check), "a new credential must give a different key")
}

func TestRegister_ExtensionUnsupported(t *testing.T) {
	f := newFake()
	f.prfOnCreate = false

	_, key, err := newDeriver(f).Register(context.Background(), "u", "u")
	require.ErrorIs(t, err, ErrExtensionUnsupported)
	assert.Nil(t, key)
	assert.Zero(t, f.assertions, "must not continue to authentication")
}

func TestAuthenticate_ExtensionMissingOnAssertion(t *testing.T) {
	f := newFake()
	d := newDeriver(f)
	credID, _, err := d.Register(context.Background(), "u", "u")
	require.NoError(t, err)

	f.prfOnAssert = false
	_, err = d.Authenticate(context.Background(), credID)
	require.ErrorIs(t, err, ErrExtensionUnsupported)

	f.prfOnAssert = true
	f.shortPRF = true
	_, err = d.Authenticate(context.Background(), credID)
	require.ErrorIs(t, err, ErrExtensionUnsupported)
}

func TestCeremonyCancelled_Propagates(t *testing.T) {
	f := newFake()
	f.createErr = ErrCeremonyCancelled
	_, _, err := newDeriver(f).Register(context.Background(), "u", "u")
	require.ErrorIs(t, err, ErrCeremonyCancelled)

	f = newFake()
	d := newDeriver(f)
	credID, _, err := d.Register(context.Background(), "u", "u")
	require.NoError(t, err)
	f.assertErr = ErrCeremonyCancelled
	_, err = d.Authenticate(context.Background(), credID)
	require.ErrorIs(t, err, ErrCeremonyCancelled)
}

func TestAuthenticate_InvalidCredentialID(t *testing.T) {
	d := newDeriver(newFake())
	for _, id := range []string{"", "***", "a b"} {
		_, err := d.Authenticate(context.Background(), id)
		require.ErrorIs(t, err, ErrInvalidCredentialID, "id %q", id)
	}
}

func TestUserHandle_StableAndDistinct(t *testing.T) {
	assert.Equal(t, UserHandle("a"), UserHandle("a"))
	assert.NotEqual(t, UserHandle("a"), UserHandle("b"))
	assert.Len(t, UserHandle("a"), sha256.Size)
}

func TestCeremonies_NilResultIsUnsupported(t *testing.T) {
	f := newFake()
	d := newDeriver(f)
	credID, _, err := d.Register(context.Background(), "u", "u")
	require.NoError(t, err)

	f.nilResult = true
	_, _, err = d.Register(context.Background(), "u", "u")
	require.ErrorIs(t, err, ErrExtensionUnsupported)

	_, err = d.Authenticate(context.Background(), credID)
	require.ErrorIs(t, err, ErrExtensionUnsupported)
}
