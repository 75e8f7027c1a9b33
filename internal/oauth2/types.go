package oauth2

import "time"

// User is an end-user identity. Created out of band; read-only here.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}

// Client is a registered relying application.
type Client struct {
	ID                string
	ClientID          string
	ClientSecretHash  string // empty for public clients
	RedirectURIs      []string
	AllowedGrantTypes []string
	AllowedScopes     []string
	IsConfidential    bool
}

// Session is a single browser login. It is the sole authoritative record of
// whether any credential derived from it remains valid.
type Session struct {
	ID        string
	UserID    string
	IsActive  bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// AuthorizationCode is a one-time voucher exchanged for tokens.
type AuthorizationCode struct {
	Code                string
	ClientID            string
	UserID              string
	RedirectURI         string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
	ExpiresAt           time.Time
}

// RefreshToken is a long-lived opaque credential bound to one session.
type RefreshToken struct {
	Token     string
	ClientID  string
	UserID    string
	SessionID string
	Scope     string
	ExpiresAt time.Time
	IsRevoked bool
}

// TokenResponse is the token endpoint response body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

// Grant type and response type values accepted by the token endpoint.
const (
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
	GrantClientCredentials = "client_credentials"

	ResponseTypeCode = "code"
)
