package oauth2

import (
	"context"
	"time"
)

// Store is the durable, transactional credential store. It is the source of
// truth for users, clients, sessions, authorization codes and refresh tokens.
// Implementations must return ErrNotFound for absent records, ErrConflict for
// unique-constraint violations, and wrap infrastructure failures in
// ErrStoreUnavailable rather than coercing them into either.
type Store interface {
	// FindUserByEmail returns the active user with the given email.
	FindUserByEmail(ctx context.Context, email string) (User, error)
	// FindUser returns the user by id regardless of active flag.
	FindUser(ctx context.Context, id string) (User, error)

	// FindClient returns the client registration by public client id.
	FindClient(ctx context.Context, clientID string) (Client, error)

	// CreateSession persists a new login session.
	CreateSession(ctx context.Context, s Session) error
	// FindActiveSession returns the session by id if it is still active.
	FindActiveSession(ctx context.Context, id string) (Session, error)
	// ActiveSessionsForUser lists every active session of a user.
	ActiveSessionsForUser(ctx context.Context, userID string) ([]Session, error)
	// TerminateUserSessions marks all of the user's sessions inactive with
	// expires_at = now and revokes all of the user's refresh tokens, in a
	// single transaction.
	TerminateUserSessions(ctx context.Context, userID string) error

	// CreateAuthorizationCode persists a freshly issued code.
	CreateAuthorizationCode(ctx context.Context, c AuthorizationCode) error
	// RedeemAuthorizationCode loads the code under a row lock, runs validate
	// against it, resolves the owning user's currently active session, deletes
	// the code and commits — all in one transaction. A validation error rolls
	// the transaction back and is returned unchanged. Concurrent redemptions
	// of the same code serialize on the row lock; at most one observes the
	// code. Returns ErrNotFound when the code is absent or no active session
	// exists for its user.
	RedeemAuthorizationCode(ctx context.Context, code string, validate func(AuthorizationCode) error) (AuthorizationCode, Session, error)

	// CreateRefreshToken persists a refresh token bound to a session.
	CreateRefreshToken(ctx context.Context, t RefreshToken) error
	// FindRefreshToken returns the non-revoked refresh token with the given value.
	FindRefreshToken(ctx context.Context, token string) (RefreshToken, error)
	// RevokeRefreshToken flips the is_revoked flag of a stored token. Absent
	// tokens are not an error; revocation is idempotent.
	RevokeRefreshToken(ctx context.Context, token string) error
}

// SessionCache is the volatile fast path for session liveness. Presence of
// the active marker means the session is live; presence of the revoked marker
// means it was killed. The cache is a hint, never the source of truth.
type SessionCache interface {
	// MarkActive writes the active marker with TTL equal to the session's
	// remaining life. The value is the owning user id.
	MarkActive(ctx context.Context, sessionID, userID string, ttl time.Duration) error
	// Revoke writes the revoked marker (retention must cover the longest
	// lifetime of any access token signed against the session) and then
	// deletes the active marker. The write ordering is part of the contract:
	// a session must never be observable as neither active nor revoked
	// mid-revocation.
	Revoke(ctx context.Context, sessionID string, retention time.Duration) error
	// IsActive reports presence of the active marker.
	IsActive(ctx context.Context, sessionID string) (bool, error)
	// IsRevoked reports presence of the revoked marker.
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}
