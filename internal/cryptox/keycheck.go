package cryptox

import "crypto/subtle"

// keyCheckSentinel is the known plaintext sealed into every key check.
const keyCheckSentinel = "taskseal-key-check-v1"

type keyCheck struct {
	Check string `json:"check"`
}

// CreateCheck seals the key check canary under key. The result is stored with
// the user's encryption settings and later used by VerifyCheck to confirm a
// freshly derived key before it touches real records.
func CreateCheck(key *Key) (string, error) {
	return Seal(key, keyCheck{Check: keyCheckSentinel})
}

// VerifyCheck reports whether check opens under key and carries the expected
// sentinel. Every failure, including a malformed or foreign-version check,
// is reported as false.
func VerifyCheck(key *Key, check string) bool {
	if key == nil {
		return false
	}
	var kc keyCheck
	if err := Open(key, check, &kc); err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(kc.Check), []byte(keyCheckSentinel)) == 1
}
