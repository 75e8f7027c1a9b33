// Package pg implements the durable credential store over PostgreSQL.
//
// Expected tables (schema management is handled outside this service):
// users, oauth_clients, user_sessions, authorization_codes, refresh_tokens.
package pg

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"authgrid.org/internal/oauth2"
)

const (
	pgErrUniqueViolation = "23505"
)

// Store implements oauth2.Store backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ oauth2.Store = (*Store)(nil)

// Open connects to PostgreSQL with pool defaults tuned for many short
// transactions.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing connection pool.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// infraErr marks a store failure as infrastructure, never a domain error.
func infraErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", oauth2.ErrStoreUnavailable, op, err)
}
