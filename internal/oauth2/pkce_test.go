package oauth2

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestVerifyPKCE(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	if !VerifyPKCE(verifier, challenge) {
		t.Fatal("matching verifier rejected")
	}
	if VerifyPKCE("some-other-verifier", challenge) {
		t.Fatal("mismatching verifier accepted")
	}
	if VerifyPKCE("", challenge) {
		t.Fatal("empty verifier accepted")
	}
	if VerifyPKCE(verifier, "") {
		t.Fatal("empty challenge accepted")
	}
	// A padded encoding of the same digest must not match.
	padded := base64.URLEncoding.EncodeToString(sum[:])
	if padded != challenge && VerifyPKCE(verifier, padded) {
		t.Fatal("padded challenge accepted")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter2" {
		t.Fatal("hash must not equal the plaintext")
	}
	if err := VerifyPassword(hash, "hunter2"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "hunter3"); err == nil {
		t.Fatal("wrong password accepted")
	}
	if err := VerifyPassword("", "hunter2"); err == nil {
		t.Fatal("empty hash accepted")
	}
}
