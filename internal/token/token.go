package token

import (
	"crypto/rsa"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalid indicates the token failed structure or signature checks.
	ErrInvalid = errors.New("token: invalid")
	// ErrExpired indicates the token is past its expiry.
	ErrExpired = errors.New("token: expired")
)

// Claims is the signed access-token claim set. SessionID is present iff the
// token was issued from a user-session-bound flow; client-credentials tokens
// carry no session binding.
type Claims struct {
	Scope     string `json:"scope"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Manager mints and verifies RS256 access tokens with a long-lived key pair.
// Key generation and rotation happen outside the server.
type Manager struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	kid        string
	issuer     string
	accessTTL  time.Duration
	now        func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// NewManager builds a Manager around the server signing key.
func NewManager(key *rsa.PrivateKey, issuer string, accessTTL time.Duration, opts ...Option) (*Manager, error) {
	if key == nil {
		return nil, errors.New("token: signing key is required")
	}
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return nil, errors.New("token: issuer is required")
	}
	if accessTTL <= 0 {
		return nil, errors.New("token: access ttl must be positive")
	}
	kid, err := computeKID(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		privateKey: key,
		publicKey:  &key.PublicKey,
		kid:        kid,
		issuer:     issuer,
		accessTTL:  accessTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration {
	return m.accessTTL
}

// Mint signs an access token for the subject. sessionID may be empty for
// flows with no browser session (client credentials).
func (m *Manager) Mint(subject, clientID, scope, sessionID string) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("token: subject is required")
	}
	now := m.now().UTC()
	claims := Claims{
		Scope:     scope,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{clientID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = m.kid
	signed, err := tok.SignedString(m.privateKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify checks signature, structure and expiry against the public key and
// returns the claim set. Session liveness is not checked here; that is the
// caller's concern.
func (m *Manager) Verify(tokenString string) (Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Claims{}, ErrInvalid
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodRS256 {
			return nil, ErrInvalid
		}
		return m.publicKey, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.IssuedAt == nil {
		return Claims{}, ErrInvalid
	}
	return *claims, nil
}
