package pg

import (
	"context"
	"database/sql"
	"errors"

	"authgrid.org/internal/oauth2"
)

func (s *Store) CreateAuthorizationCode(ctx context.Context, c oauth2.AuthorizationCode) error {
	_, err := s.db.ExecContext(ctx, `
		insert into authorization_codes
			(code, client_id, user_id, redirect_uri, scope, code_challenge, code_challenge_method, expires_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.Code, c.ClientID, c.UserID, c.RedirectURI, c.Scope,
		nullableString(c.CodeChallenge), nullableString(c.CodeChallengeMethod), c.ExpiresAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return oauth2.ErrConflict
		}
		return infraErr("create authorization code", err)
	}
	return nil
}

// RedeemAuthorizationCode performs the exactly-once exchange. The row lock on
// the code is the serialization point: concurrent redeemers queue behind it,
// and whichever commits first deletes the row, so the loser scans no rows and
// fails with ErrNotFound. A validation failure rolls the transaction back.
func (s *Store) RedeemAuthorizationCode(ctx context.Context, code string, validate func(oauth2.AuthorizationCode) error) (oauth2.AuthorizationCode, oauth2.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return oauth2.AuthorizationCode{}, oauth2.Session{}, infraErr("begin redeem tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		c         oauth2.AuthorizationCode
		challenge sql.NullString
		method    sql.NullString
	)
	err = tx.QueryRowContext(ctx, `
		select code, client_id, user_id, redirect_uri, scope, code_challenge, code_challenge_method, expires_at
		from authorization_codes
		where code = $1
		for update
	`, code).Scan(&c.Code, &c.ClientID, &c.UserID, &c.RedirectURI, &c.Scope, &challenge, &method, &c.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return oauth2.AuthorizationCode{}, oauth2.Session{}, oauth2.ErrNotFound
	}
	if err != nil {
		return oauth2.AuthorizationCode{}, oauth2.Session{}, infraErr("load authorization code", err)
	}
	c.CodeChallenge = challenge.String
	c.CodeChallengeMethod = method.String

	if err := validate(c); err != nil {
		return oauth2.AuthorizationCode{}, oauth2.Session{}, err
	}

	// The browser session that authorized this code must still be live.
	var sess oauth2.Session
	err = tx.QueryRowContext(ctx, `
		select id, user_id, is_active, created_at, expires_at
		from user_sessions
		where user_id = $1 and is_active and expires_at > now()
		order by created_at desc
		limit 1
	`, c.UserID).Scan(&sess.ID, &sess.UserID, &sess.IsActive, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return oauth2.AuthorizationCode{}, oauth2.Session{}, oauth2.ErrNotFound
	}
	if err != nil {
		return oauth2.AuthorizationCode{}, oauth2.Session{}, infraErr("load active session", err)
	}

	if _, err := tx.ExecContext(ctx, `delete from authorization_codes where code = $1`, code); err != nil {
		return oauth2.AuthorizationCode{}, oauth2.Session{}, infraErr("delete authorization code", err)
	}
	if err := tx.Commit(); err != nil {
		return oauth2.AuthorizationCode{}, oauth2.Session{}, infraErr("commit redeem tx", err)
	}
	return c, sess, nil
}

func nullableString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
