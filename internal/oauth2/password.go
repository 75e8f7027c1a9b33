package oauth2

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext secret using bcrypt.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("oauth2: password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext secret with its stored bcrypt hash.
func VerifyPassword(hash, password string) error {
	if hash == "" || password == "" {
		return errors.New("oauth2: empty password or hash")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
