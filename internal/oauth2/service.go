package oauth2

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"authgrid.org/internal/token"
)

const (
	defaultSessionTTL = 7 * 24 * time.Hour
	defaultRefreshTTL = 30 * 24 * time.Hour
	defaultCodeTTL    = 10 * time.Minute

	codeEntropyBytes    = 32
	refreshEntropyBytes = 48
)

// Service implements the token and session lifecycle: login sessions,
// authorization-code issuance and exactly-once redemption, refresh and
// client-credentials grants, and the dual-store revocation protocol.
type Service struct {
	store  Store
	cache  SessionCache
	tokens *token.Manager
	now    func() time.Time

	sessionTTL time.Duration
	refreshTTL time.Duration
	codeTTL    time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithSessionTTL configures browser session lifetime.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithCodeTTL configures authorization code lifetime.
func WithCodeTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.codeTTL = ttl
		}
	}
}

// NewService constructs the lifecycle service over the durable store, the
// session cache and the signing capability.
func NewService(store Store, cache SessionCache, tokens *token.Manager, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("oauth2: store is required")
	}
	if cache == nil {
		return nil, errors.New("oauth2: session cache is required")
	}
	if tokens == nil {
		return nil, errors.New("oauth2: token manager is required")
	}
	svc := &Service{
		store:      store,
		cache:      cache,
		tokens:     tokens,
		now:        time.Now,
		sessionTTL: defaultSessionTTL,
		refreshTTL: defaultRefreshTTL,
		codeTTL:    defaultCodeTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// AccessTTL returns the access-token lifetime used for expires_in.
func (s *Service) AccessTTL() time.Duration {
	return s.tokens.AccessTTL()
}

// Login authenticates end-user credentials and creates a session: the durable
// record first, then the cache active marker with TTL equal to session life.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	if email == "" || password == "" {
		return Session{}, ErrUnauthorized
	}
	user, err := s.store.FindUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrUnauthorized
	}
	if err != nil {
		return Session{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Session{}, ErrUnauthorized
	}

	now := s.now().UTC()
	session := Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		IsActive:  true,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	if err := s.cache.MarkActive(ctx, session.ID, session.UserID, s.sessionTTL); err != nil {
		return Session{}, fmt.Errorf("mark session active: %w", err)
	}
	return session, nil
}

// CurrentSession resolves a session cookie value to a live session. Both the
// session and its user must still be active.
func (s *Service) CurrentSession(ctx context.Context, sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, ErrUnauthorized
	}
	session, err := s.store.FindActiveSession(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrUnauthorized
	}
	if err != nil {
		return Session{}, err
	}
	user, err := s.store.FindUser(ctx, session.UserID)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrUnauthorized
	}
	if err != nil {
		return Session{}, err
	}
	if !user.IsActive {
		return Session{}, ErrUnauthorized
	}
	return session, nil
}

// AuthorizeRequest carries the parameters of an /authorize call after the
// browser session has been resolved.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               string
	UserID              string
	CodeChallenge       string
	CodeChallengeMethod string
}

// IssueAuthorizationCode validates the request against the client
// registration and persists a one-time code with a short expiry.
func (s *Service) IssueAuthorizationCode(ctx context.Context, req AuthorizeRequest) (string, error) {
	if req.ResponseType != ResponseTypeCode {
		return "", ErrInvalidRequest
	}
	client, err := s.store.FindClient(ctx, req.ClientID)
	if errors.Is(err, ErrNotFound) {
		return "", ErrInvalidClient
	}
	if err != nil {
		return "", err
	}
	if !containsString(client.RedirectURIs, req.RedirectURI) {
		return "", ErrInvalidRedirectURI
	}

	// A unique-constraint hit on the random code is a transient condition:
	// retry once with fresh entropy before surfacing a server error.
	for attempt := 0; attempt < 2; attempt++ {
		code, err := randomToken(codeEntropyBytes)
		if err != nil {
			return "", err
		}
		record := AuthorizationCode{
			Code:                code,
			ClientID:            client.ClientID,
			UserID:              req.UserID,
			RedirectURI:         req.RedirectURI,
			Scope:               req.Scope,
			CodeChallenge:       req.CodeChallenge,
			CodeChallengeMethod: req.CodeChallengeMethod,
			ExpiresAt:           s.now().UTC().Add(s.codeTTL),
		}
		err = s.store.CreateAuthorizationCode(ctx, record)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("persist authorization code: %w", err)
		}
		return code, nil
	}
	return "", fmt.Errorf("persist authorization code: %w", ErrConflict)
}

// AuthenticateClient looks up the client and, for confidential clients,
// verifies the secret. Public clients skip secret verification.
func (s *Service) AuthenticateClient(ctx context.Context, clientID, clientSecret string) (Client, error) {
	client, err := s.store.FindClient(ctx, clientID)
	if errors.Is(err, ErrNotFound) {
		return Client{}, ErrInvalidClient
	}
	if err != nil {
		return Client{}, err
	}
	if client.IsConfidential {
		if clientSecret == "" || VerifyPassword(client.ClientSecretHash, clientSecret) != nil {
			return Client{}, ErrInvalidClientCredentials
		}
	}
	return client, nil
}

// ExchangeRequest carries the parameters of an authorization_code token call.
type ExchangeRequest struct {
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
	CodeVerifier string
}

// ExchangeAuthorizationCode redeems a code exactly once and returns an access
// token bound to the user's session plus a fresh refresh token. Redemption
// and code deletion happen in one store transaction; a second redemption of
// the same code observes no code and fails with ErrInvalidGrant.
func (s *Service) ExchangeAuthorizationCode(ctx context.Context, req ExchangeRequest) (TokenResponse, error) {
	client, err := s.AuthenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return TokenResponse{}, err
	}
	if !grantAllowed(client, GrantAuthorizationCode) {
		return TokenResponse{}, ErrInvalidRequest
	}

	now := s.now().UTC()
	code, session, err := s.store.RedeemAuthorizationCode(ctx, req.Code, func(c AuthorizationCode) error {
		if now.After(c.ExpiresAt) {
			return ErrInvalidGrant
		}
		if c.ClientID != client.ClientID {
			return ErrInvalidGrant
		}
		if c.RedirectURI != req.RedirectURI {
			return ErrInvalidGrant
		}
		if c.CodeChallenge != "" {
			if req.CodeVerifier == "" || !VerifyPKCE(req.CodeVerifier, c.CodeChallenge) {
				return ErrInvalidGrant
			}
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return TokenResponse{}, ErrInvalidGrant
	}
	if err != nil {
		return TokenResponse{}, err
	}

	accessToken, err := s.tokens.Mint(code.UserID, client.ClientID, code.Scope, session.ID)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("mint access token: %w", err)
	}

	refreshValue, err := randomToken(refreshEntropyBytes)
	if err != nil {
		return TokenResponse{}, err
	}
	refresh := RefreshToken{
		Token:     refreshValue,
		ClientID:  client.ClientID,
		UserID:    code.UserID,
		SessionID: session.ID,
		Scope:     code.Scope,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.store.CreateRefreshToken(ctx, refresh); err != nil {
		return TokenResponse{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshValue,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
		Scope:        code.Scope,
	}, nil
}

// Refresh exchanges a live refresh token for a new access token bound to the
// same session. The token must belong to the presenting client, and the
// refresh token is only ever as valid as its session: the active marker must
// be present and the revoked marker absent. The token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, clientID, refreshToken string) (TokenResponse, error) {
	if refreshToken == "" {
		return TokenResponse{}, ErrInvalidGrant
	}
	client, err := s.store.FindClient(ctx, clientID)
	if errors.Is(err, ErrNotFound) {
		return TokenResponse{}, ErrInvalidClient
	}
	if err != nil {
		return TokenResponse{}, err
	}
	if !grantAllowed(client, GrantRefreshToken) {
		return TokenResponse{}, ErrInvalidRequest
	}
	record, err := s.store.FindRefreshToken(ctx, refreshToken)
	if errors.Is(err, ErrNotFound) {
		return TokenResponse{}, ErrInvalidGrant
	}
	if err != nil {
		return TokenResponse{}, err
	}
	if record.ClientID != client.ClientID {
		return TokenResponse{}, ErrInvalidGrant
	}
	if s.now().After(record.ExpiresAt) {
		return TokenResponse{}, ErrInvalidGrant
	}
	if err := s.checkSessionLiveness(ctx, record.SessionID); err != nil {
		return TokenResponse{}, err
	}

	accessToken, err := s.tokens.Mint(record.UserID, record.ClientID, record.Scope, record.SessionID)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("mint access token: %w", err)
	}
	return TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.AccessTTL().Seconds()),
		Scope:       record.Scope,
	}, nil
}

// ClientCredentials issues an access token for a machine client. The token
// carries no session binding.
func (s *Service) ClientCredentials(ctx context.Context, clientID, clientSecret, scope string) (TokenResponse, error) {
	client, err := s.AuthenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return TokenResponse{}, err
	}
	if !grantAllowed(client, GrantClientCredentials) {
		return TokenResponse{}, ErrInvalidRequest
	}
	accessToken, err := s.tokens.Mint(client.ClientID, client.ClientID, scope, "")
	if err != nil {
		return TokenResponse{}, fmt.Errorf("mint access token: %w", err)
	}
	return TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.AccessTTL().Seconds()),
		Scope:       scope,
	}, nil
}

// Logout kills every active session of the presenting session's user: cache
// markers first (revoked written before active is deleted), then the durable
// flip of sessions and refresh tokens in one transaction.
func (s *Service) Logout(ctx context.Context, session Session) (int, error) {
	sessions, err := s.store.ActiveSessionsForUser(ctx, session.UserID)
	if err != nil {
		return 0, err
	}
	retention := s.tokens.AccessTTL()
	for _, sess := range sessions {
		if err := s.cache.Revoke(ctx, sess.ID, retention); err != nil {
			return 0, fmt.Errorf("revoke session %s: %w", sess.ID, err)
		}
	}
	if err := s.store.TerminateUserSessions(ctx, session.UserID); err != nil {
		return 0, err
	}
	return len(sessions), nil
}

// RevokeToken implements RFC 7009 semantics. The input may be a signed access
// token or an opaque refresh token; both interpretations are attempted
// independently and decode failures are swallowed. Only infrastructure
// failures propagate.
func (s *Service) RevokeToken(ctx context.Context, tokenString string) error {
	if claims, err := s.tokens.Verify(tokenString); err == nil && claims.SessionID != "" {
		// Over-revocation is intentional: killing the session invalidates
		// every access token tied to it, not just the presented one.
		if err := s.cache.Revoke(ctx, claims.SessionID, s.tokens.AccessTTL()); err != nil {
			return fmt.Errorf("revoke session %s: %w", claims.SessionID, err)
		}
	}
	if err := s.store.RevokeRefreshToken(ctx, tokenString); err != nil {
		return err
	}
	return nil
}

// Introspection is the RFC 7662 response shape.
type Introspection struct {
	Active   bool   `json:"active"`
	Sub      string `json:"sub,omitempty"`
	Scope    string `json:"scope,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Iss      string `json:"iss,omitempty"`
	Iat      int64  `json:"iat,omitempty"`
	Exp      int64  `json:"exp,omitempty"`
}

// Introspect reports whether a presented token is currently good. A token
// without session binding, or one whose session carries a revoked marker,
// reports inactive.
func (s *Service) Introspect(ctx context.Context, tokenString string) (Introspection, error) {
	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		return Introspection{Active: false}, nil
	}
	if claims.SessionID == "" {
		return Introspection{Active: false}, nil
	}
	revoked, err := s.cache.IsRevoked(ctx, claims.SessionID)
	if err != nil {
		return Introspection{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if revoked {
		return Introspection{Active: false}, nil
	}
	clientID := ""
	if len(claims.Audience) > 0 {
		clientID = claims.Audience[0]
	}
	return Introspection{
		Active:   true,
		Sub:      claims.Subject,
		Scope:    claims.Scope,
		ClientID: clientID,
		Iss:      claims.Issuer,
		Iat:      claims.IssuedAt.Unix(),
		Exp:      claims.ExpiresAt.Unix(),
	}, nil
}

// VerifyToken validates a bearer token for resource access: signature and
// expiry through the verifier, then session liveness through the cache when
// the token carries a session id. Client-credentials tokens have no session
// binding and skip the cache entirely. Cache failures reject the token
// (fail-closed) and surface as infrastructure errors.
func (s *Service) VerifyToken(ctx context.Context, tokenString string) (token.Claims, error) {
	claims, err := s.tokens.Verify(tokenString)
	if errors.Is(err, token.ErrExpired) {
		return token.Claims{}, ErrTokenExpired
	}
	if err != nil {
		return token.Claims{}, ErrInvalidToken
	}
	if claims.SessionID != "" {
		if err := s.checkSessionLiveness(ctx, claims.SessionID); err != nil {
			return token.Claims{}, err
		}
	}
	return claims, nil
}

func (s *Service) checkSessionLiveness(ctx context.Context, sessionID string) error {
	revoked, err := s.cache.IsRevoked(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if revoked {
		return ErrSessionRevoked
	}
	active, err := s.cache.IsActive(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !active {
		return ErrSessionExpired
	}
	return nil
}

func grantAllowed(client Client, grant string) bool {
	if len(client.AllowedGrantTypes) == 0 {
		return true
	}
	return containsString(client.AllowedGrantTypes, grant)
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
