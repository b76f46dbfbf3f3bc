package user

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := hashPassword("Pass1234")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash %q is not PHC argon2id", hash)
	}
	if !verifyPassword(hash, "Pass1234") {
		t.Error("correct password rejected")
	}
	if verifyPassword(hash, "Pass12345") {
		t.Error("wrong password accepted")
	}
}

func TestHashPasswordUniqueSalt(t *testing.T) {
	h1, err := hashPassword("Pass1234")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	h2, err := hashPassword("Pass1234")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password share a salt")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	for _, h := range []string{"", "plain", "$argon2id$v=19$garbage"} {
		if verifyPassword(h, "Pass1234") {
			t.Errorf("malformed hash %q accepted", h)
		}
	}
}
