package token

import (
	"encoding/base64"
	"encoding/json"
	"math/big"
)

type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

// JWKS renders the verification key as a JSON Web Key Set document for
// discovery by relying applications.
func (m *Manager) JWKS() ([]byte, error) {
	set := jwkSet{
		Keys: []jwk{{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: m.kid,
			N:   base64.RawURLEncoding.EncodeToString(m.publicKey.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(m.publicKey.E)).Bytes()),
		}},
	}
	return json.Marshal(set)
}
