package passkey

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/taskseal/internal/common"
	"github.com/dmitrijs2005/taskseal/internal/keyring"
	"github.com/dmitrijs2005/taskseal/internal/logging"
)

const (
	// prfSalt is the fixed application salt the PRF is evaluated over. It must
	// never change: a different salt yields a different key for every user.
	prfSalt = "taskseal-e2ee-prf-salt-v1"

	challengeSize = 32
	prfOutputSize = 32
)

// Deriver runs the registration and authentication ceremonies and imports
// the PRF output as the session key.
type Deriver struct {
	auth   Authenticator
	rpID   string
	rpName string
	logger logging.Logger
}

// NewDeriver returns a Deriver for the given relying party.
func NewDeriver(auth Authenticator, rpID, rpName string, logger logging.Logger) *Deriver {
	return &Deriver{
		auth:   auth,
		rpID:   rpID,
		rpName: rpName,
		logger: logger.With("module", "passkey"),
	}
}

// UserHandle returns the stable authenticator user handle for userID. It is
// the same on every registration of the same user and distinct across users.
func UserHandle(userID string) []byte {
	h := sha256.Sum256([]byte("taskseal-user:" + userID))
	return h[:]
}

// Register creates a new credential for userID and derives the key from it.
//
// Creation alone does not return PRF output, so on success Register
// immediately authenticates with the new credential. It returns
// ErrExtensionUnsupported without going further when the authenticator did
// not enable PRF.
func (d *Deriver) Register(ctx context.Context, userID, userName string) (string, *keyring.SealedKey, error) {
	cred, err := d.auth.CreateCredential(ctx, CreationOptions{
		RPID:       d.rpID,
		RPName:     d.rpName,
		UserHandle: UserHandle(userID),
		UserName:   userName,
		Challenge:  common.GenerateRandByteArray(challengeSize),
		PRF:        true,
	})
	if err != nil {
		return "", nil, fmt.Errorf("create credential: %w", err)
	}
	if cred == nil || !cred.PRFEnabled {
		d.logger.Warn(ctx, "authenticator created credential without PRF")
		return "", nil, ErrExtensionUnsupported
	}

	credentialID := base64.RawURLEncoding.EncodeToString(cred.ID)
	d.logger.Info(ctx, "credential registered", "credential_id", credentialID)

	key, err := d.Authenticate(ctx, credentialID)
	if err != nil {
		return "", nil, err
	}
	return credentialID, key, nil
}

// Authenticate asks the authenticator for an assertion with the stored
// credential and imports the PRF output as a key.
//
// The credential may belong to an authenticator class that supports PRF in
// general and still return nothing for this ceremony; that is reported as
// ErrExtensionUnsupported, as is output of the wrong length.
func (d *Deriver) Authenticate(ctx context.Context, credentialID string) (*keyring.SealedKey, error) {
	rawID, err := base64.RawURLEncoding.DecodeString(credentialID)
	if err != nil || len(rawID) == 0 {
		return nil, ErrInvalidCredentialID
	}

	assertion, err := d.auth.GetAssertion(ctx, AssertionOptions{
		RPID:             d.rpID,
		Challenge:        common.GenerateRandByteArray(challengeSize),
		AllowCredentials: [][]byte{rawID},
		PRFSalt:          []byte(prfSalt),
	})
	if err != nil {
		return nil, fmt.Errorf("get assertion: %w", err)
	}
	if assertion == nil {
		return nil, ErrExtensionUnsupported
	}
	if len(assertion.PRFResult) != prfOutputSize {
		common.WipeByteArray(assertion.PRFResult)
		return nil, ErrExtensionUnsupported
	}

	return keyring.Seal(assertion.PRFResult)
}
