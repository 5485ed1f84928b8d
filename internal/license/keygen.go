package license

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
)

// KeyPrefix is the fixed textual prefix of every issued license key.
const KeyPrefix = "EC-"

// keyRandomBytes yields 24 hex characters of unpredictable token.
const keyRandomBytes = 12

var keyPattern = regexp.MustCompile(`^EC-[0-9a-f]{24}$`)

// NewKey mints a license key: the fixed prefix followed by a
// cryptographically random hex token. Keys are globally unique with
// overwhelming probability and immutable once issued.
func NewKey() (string, error) {
	buf := make([]byte, keyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate license key: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(buf), nil
}

// ValidKeyFormat reports whether s looks like an issued key. It is a
// cheap shape check only; existence is decided by the store.
func ValidKeyFormat(s string) bool {
	return keyPattern.MatchString(s)
}
