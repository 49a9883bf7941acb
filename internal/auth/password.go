// Package auth provides credential handling, token issuance, and the
// ownership authorization gate.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password with bcrypt. All newly stored credentials
// use this format.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks a plain password against a stored hash.
//
// Two stored formats are supported:
//   - bcrypt, prefixed $2a$/$2b$/$2y$
//   - legacy "<salt>:<sha256 hex digest>" of salt-appended password
func VerifyPassword(plain, stored string) bool {
	switch {
	case strings.HasPrefix(stored, "$2a$"), strings.HasPrefix(stored, "$2b$"), strings.HasPrefix(stored, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil
	case strings.Contains(stored, ":"):
		salt, want, _ := strings.Cut(stored, ":")
		sum := sha256.Sum256([]byte(plain + salt))
		got := hex.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
	default:
		return false
	}
}

// NeedsRehash reports whether a stored credential uses the legacy format and
// should be migrated to bcrypt on the next successful login.
func NeedsRehash(stored string) bool {
	return !strings.HasPrefix(stored, "$2")
}
