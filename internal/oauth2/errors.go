package oauth2

import "errors"

var (
	// ErrInvalidRequest indicates a malformed or unsupported grant/response type.
	ErrInvalidRequest = errors.New("oauth2: invalid request")
	// ErrInvalidRedirectURI indicates a redirect URI outside the client allow-list.
	ErrInvalidRedirectURI = errors.New("oauth2: invalid redirect uri")
	// ErrInvalidClient indicates an unknown client identifier.
	ErrInvalidClient = errors.New("oauth2: invalid client")
	// ErrInvalidClientCredentials indicates a missing or wrong client secret.
	ErrInvalidClientCredentials = errors.New("oauth2: invalid client credentials")
	// ErrInvalidGrant covers bad/expired/reused codes, redirect mismatches,
	// failed PKCE, bad refresh tokens and missing active sessions.
	ErrInvalidGrant = errors.New("oauth2: invalid grant")
	// ErrUnauthorized indicates missing or invalid end-user credentials.
	ErrUnauthorized = errors.New("oauth2: unauthorized")

	// ErrInvalidToken indicates a token failing signature or structure checks.
	ErrInvalidToken = errors.New("oauth2: invalid token")
	// ErrTokenExpired indicates a token past its exp claim.
	ErrTokenExpired = errors.New("oauth2: token expired")
	// ErrSessionExpired indicates a session with no live marker.
	ErrSessionExpired = errors.New("oauth2: session expired")
	// ErrSessionRevoked indicates a session explicitly killed.
	ErrSessionRevoked = errors.New("oauth2: session revoked")

	// ErrNotFound is returned by stores for absent records.
	ErrNotFound = errors.New("oauth2: not found")
	// ErrConflict is returned by stores on unique-constraint violations.
	ErrConflict = errors.New("oauth2: already exists")
	// ErrStoreUnavailable wraps infrastructure failures of the durable store
	// or the session cache. It must never be mapped to a domain error.
	ErrStoreUnavailable = errors.New("oauth2: store unavailable")
)
