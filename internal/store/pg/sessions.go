package pg

import (
	"context"
	"database/sql"
	"errors"

	"authgrid.org/internal/oauth2"
)

func (s *Store) CreateSession(ctx context.Context, sess oauth2.Session) error {
	_, err := s.db.ExecContext(ctx, `
		insert into user_sessions (id, user_id, is_active, created_at, expires_at)
		values ($1, $2, $3, $4, $5)
	`, sess.ID, sess.UserID, sess.IsActive, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return oauth2.ErrConflict
		}
		return infraErr("create session", err)
	}
	return nil
}

func (s *Store) FindActiveSession(ctx context.Context, id string) (oauth2.Session, error) {
	var sess oauth2.Session
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, is_active, created_at, expires_at
		from user_sessions
		where id = $1 and is_active and expires_at > now()
	`, id).Scan(&sess.ID, &sess.UserID, &sess.IsActive, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return oauth2.Session{}, oauth2.ErrNotFound
	}
	if err != nil {
		return oauth2.Session{}, infraErr("find active session", err)
	}
	return sess, nil
}

func (s *Store) ActiveSessionsForUser(ctx context.Context, userID string) ([]oauth2.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, is_active, created_at, expires_at
		from user_sessions
		where user_id = $1 and is_active
		order by created_at asc
	`, userID)
	if err != nil {
		return nil, infraErr("list active sessions", err)
	}
	defer rows.Close()

	var res []oauth2.Session
	for rows.Next() {
		var sess oauth2.Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.IsActive, &sess.CreatedAt, &sess.ExpiresAt); err != nil {
			return nil, infraErr("scan session", err)
		}
		res = append(res, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("list active sessions", err)
	}
	return res, nil
}

// TerminateUserSessions flips every session of the user to inactive and
// revokes every refresh token of the user in one transaction, so a crash
// mid-logout cannot leave sessions dead but refresh tokens alive.
func (s *Store) TerminateUserSessions(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return infraErr("begin logout tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		update user_sessions
		set is_active = false, expires_at = now()
		where user_id = $1
	`, userID); err != nil {
		return infraErr("deactivate sessions", err)
	}
	if _, err := tx.ExecContext(ctx, `
		update refresh_tokens
		set is_revoked = true
		where user_id = $1
	`, userID); err != nil {
		return infraErr("revoke refresh tokens", err)
	}
	if err := tx.Commit(); err != nil {
		return infraErr("commit logout tx", err)
	}
	return nil
}
