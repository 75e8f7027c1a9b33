package pg

import (
	"context"
	"database/sql"
	"errors"

	"authgrid.org/internal/oauth2"
)

func (s *Store) CreateRefreshToken(ctx context.Context, t oauth2.RefreshToken) error {
	_, err := s.db.ExecContext(ctx, `
		insert into refresh_tokens
			(token, client_id, user_id, session_id, scope, expires_at, is_revoked)
		values ($1, $2, $3, $4, $5, $6, false)
	`, t.Token, t.ClientID, t.UserID, t.SessionID, t.Scope, t.ExpiresAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return oauth2.ErrConflict
		}
		return infraErr("create refresh token", err)
	}
	return nil
}

func (s *Store) FindRefreshToken(ctx context.Context, token string) (oauth2.RefreshToken, error) {
	var t oauth2.RefreshToken
	err := s.db.QueryRowContext(ctx, `
		select token, client_id, user_id, session_id, scope, expires_at, is_revoked
		from refresh_tokens
		where token = $1 and not is_revoked
	`, token).Scan(&t.Token, &t.ClientID, &t.UserID, &t.SessionID, &t.Scope, &t.ExpiresAt, &t.IsRevoked)
	if errors.Is(err, sql.ErrNoRows) {
		return oauth2.RefreshToken{}, oauth2.ErrNotFound
	}
	if err != nil {
		return oauth2.RefreshToken{}, infraErr("find refresh token", err)
	}
	return t, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `
		update refresh_tokens
		set is_revoked = true
		where token = $1 and not is_revoked
	`, token)
	if err != nil {
		return infraErr("revoke refresh token", err)
	}
	return nil
}
