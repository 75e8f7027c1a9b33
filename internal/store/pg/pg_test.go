package pg

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"authgrid.org/internal/oauth2"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindClient(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{
		"id", "client_id", "client_secret_hash", "redirect_uris",
		"allowed_grant_types", "allowed_scopes", "is_confidential",
	}).AddRow(
		"row-1", "c1", "bcrypt-hash", "{https://app.example/callback,https://app.example/alt}",
		"{authorization_code,refresh_token}", "{read,write}", true,
	)
	mock.ExpectQuery(regexp.QuoteMeta("from oauth_clients")).
		WithArgs("c1").
		WillReturnRows(rows)

	c, err := store.FindClient(context.Background(), "c1")
	if err != nil {
		t.Fatalf("FindClient: %v", err)
	}
	if c.ClientID != "c1" || c.ClientSecretHash != "bcrypt-hash" || !c.IsConfidential {
		t.Fatalf("unexpected client: %+v", c)
	}
	if len(c.RedirectURIs) != 2 || c.RedirectURIs[0] != "https://app.example/callback" {
		t.Fatalf("unexpected redirect uris: %v", c.RedirectURIs)
	}
	if len(c.AllowedGrantTypes) != 2 || len(c.AllowedScopes) != 2 {
		t.Fatalf("unexpected arrays: %+v", c)
	}
	expectationsMet(t, mock)
}

func TestFindClientNullSecret(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{
		"id", "client_id", "client_secret_hash", "redirect_uris",
		"allowed_grant_types", "allowed_scopes", "is_confidential",
	}).AddRow("row-2", "public", nil, "{https://app.example/cb}", "{authorization_code}", "{read}", false)
	mock.ExpectQuery(regexp.QuoteMeta("from oauth_clients")).
		WithArgs("public").
		WillReturnRows(rows)

	c, err := store.FindClient(context.Background(), "public")
	if err != nil {
		t.Fatalf("FindClient: %v", err)
	}
	if c.ClientSecretHash != "" || c.IsConfidential {
		t.Fatalf("unexpected client: %+v", c)
	}
	expectationsMet(t, mock)
}

func TestFindClientNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("from oauth_clients")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := store.FindClient(context.Background(), "missing"); !errors.Is(err, oauth2.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestCreateAuthorizationCodeConflict(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("insert into authorization_codes")).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	err := store.CreateAuthorizationCode(context.Background(), oauth2.AuthorizationCode{
		Code: "dup", ClientID: "c1", UserID: "u1",
		RedirectURI: "https://app.example/cb", ExpiresAt: time.Now().Add(10 * time.Minute),
	})
	if !errors.Is(err, oauth2.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestRedeemAuthorizationCode(t *testing.T) {
	store, mock := newMockStore(t)
	expires := time.Now().Add(10 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("for update")).
		WithArgs("code-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"code", "client_id", "user_id", "redirect_uri", "scope",
			"code_challenge", "code_challenge_method", "expires_at",
		}).AddRow("code-1", "c1", "u1", "https://app.example/cb", "read", "chal", "S256", expires))
	mock.ExpectQuery(regexp.QuoteMeta("from user_sessions")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "is_active", "created_at", "expires_at",
		}).AddRow("sess-1", "u1", true, time.Now(), time.Now().Add(time.Hour)))
	mock.ExpectExec(regexp.QuoteMeta("delete from authorization_codes")).
		WithArgs("code-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	code, sess, err := store.RedeemAuthorizationCode(context.Background(), "code-1", func(c oauth2.AuthorizationCode) error {
		if c.CodeChallenge != "chal" || c.CodeChallengeMethod != "S256" {
			t.Fatalf("challenge not surfaced to validator: %+v", c)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RedeemAuthorizationCode: %v", err)
	}
	if code.Code != "code-1" || code.UserID != "u1" || sess.ID != "sess-1" {
		t.Fatalf("unexpected result: %+v %+v", code, sess)
	}
	expectationsMet(t, mock)
}

func TestRedeemAuthorizationCodeMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("for update")).
		WithArgs("gone").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := store.RedeemAuthorizationCode(context.Background(), "gone", func(oauth2.AuthorizationCode) error {
		t.Fatal("validator must not run without a code row")
		return nil
	})
	if !errors.Is(err, oauth2.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestRedeemAuthorizationCodeValidationRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("for update")).
		WithArgs("code-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"code", "client_id", "user_id", "redirect_uri", "scope",
			"code_challenge", "code_challenge_method", "expires_at",
		}).AddRow("code-1", "c1", "u1", "https://app.example/cb", "read", nil, nil, time.Now().Add(time.Minute)))
	// No session query, no delete: the transaction rolls back and the code
	// row survives for inspection.
	mock.ExpectRollback()

	_, _, err := store.RedeemAuthorizationCode(context.Background(), "code-1", func(oauth2.AuthorizationCode) error {
		return oauth2.ErrInvalidGrant
	})
	if !errors.Is(err, oauth2.ErrInvalidGrant) {
		t.Fatalf("expected ErrInvalidGrant, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestRedeemAuthorizationCodeNoActiveSession(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("for update")).
		WithArgs("code-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"code", "client_id", "user_id", "redirect_uri", "scope",
			"code_challenge", "code_challenge_method", "expires_at",
		}).AddRow("code-1", "c1", "u1", "https://app.example/cb", "read", nil, nil, time.Now().Add(time.Minute)))
	mock.ExpectQuery(regexp.QuoteMeta("from user_sessions")).
		WithArgs("u1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := store.RedeemAuthorizationCode(context.Background(), "code-1", func(oauth2.AuthorizationCode) error { return nil })
	if !errors.Is(err, oauth2.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestTerminateUserSessions(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("update user_sessions")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("update refresh_tokens")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	if err := store.TerminateUserSessions(context.Background(), "u1"); err != nil {
		t.Fatalf("TerminateUserSessions: %v", err)
	}
	expectationsMet(t, mock)
}

func TestFindRefreshToken(t *testing.T) {
	store, mock := newMockStore(t)
	expires := time.Now().Add(30 * 24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("from refresh_tokens")).
		WithArgs("rt-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"token", "client_id", "user_id", "session_id", "scope", "expires_at", "is_revoked",
		}).AddRow("rt-1", "c1", "u1", "sess-1", "read", expires, false))

	rt, err := store.FindRefreshToken(context.Background(), "rt-1")
	if err != nil {
		t.Fatalf("FindRefreshToken: %v", err)
	}
	if rt.SessionID != "sess-1" || rt.IsRevoked {
		t.Fatalf("unexpected token: %+v", rt)
	}
	expectationsMet(t, mock)
}

func TestRevokeRefreshTokenIdempotent(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("update refresh_tokens")).
		WithArgs("unknown").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.RevokeRefreshToken(context.Background(), "unknown"); err != nil {
		t.Fatalf("RevokeRefreshToken: %v", err)
	}
	expectationsMet(t, mock)
}

func TestInfraErrorsWrapStoreUnavailable(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("from user_sessions")).
		WithArgs("sess-1").
		WillReturnError(errors.New("connection refused"))

	_, err := store.FindActiveSession(context.Background(), "sess-1")
	if !errors.Is(err, oauth2.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	expectationsMet(t, mock)
}
