package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func legacyHash(password, salt string) string {
	sum := sha256.Sum256([]byte(password + salt))
	return salt + ":" + hex.EncodeToString(sum[:])
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", hash)
	}

	if !VerifyPassword("correct horse battery staple", hash) {
		t.Error("correct password rejected")
	}
	if VerifyPassword("wrong password", hash) {
		t.Error("wrong password accepted")
	}
}

func TestVerifyPasswordLegacyFormat(t *testing.T) {
	stored := legacyHash("hunter22222", "abc123")

	if !VerifyPassword("hunter22222", stored) {
		t.Error("correct legacy password rejected")
	}
	if VerifyPassword("hunter2", stored) {
		t.Error("wrong legacy password accepted")
	}
}

func TestVerifyPasswordUnknownFormat(t *testing.T) {
	if VerifyPassword("anything", "not-a-valid-stored-hash") {
		t.Error("unrecognized stored format must never verify")
	}
	if VerifyPassword("anything", "") {
		t.Error("empty stored hash must never verify")
	}
}

func TestNeedsRehash(t *testing.T) {
	bcryptHash, err := HashPassword("some password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if NeedsRehash(bcryptHash) {
		t.Error("bcrypt hash flagged for rehash")
	}
	if !NeedsRehash(legacyHash("some password", "salt")) {
		t.Error("legacy hash not flagged for rehash")
	}
}
