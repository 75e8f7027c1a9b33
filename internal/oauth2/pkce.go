package oauth2

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// VerifyPKCE checks an S256 code verifier against the challenge recorded at
// authorization time: base64url(sha256(verifier)) without padding must equal
// the stored challenge exactly.
func VerifyPKCE(verifier, challenge string) bool {
	if verifier == "" || challenge == "" {
		return false
	}
	sum := sha256.Sum256([]byte(verifier))
	calculated := base64.RawURLEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(calculated), []byte(challenge)) == 1
}
