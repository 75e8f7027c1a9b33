package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"authgrid.org/internal/oauth2"
)

func (s *Store) FindUserByEmail(ctx context.Context, email string) (oauth2.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	var u oauth2.User
	err := s.db.QueryRowContext(ctx, `
		select id, email, password_hash, is_active, created_at
		from users
		where email = $1 and is_active
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return oauth2.User{}, oauth2.ErrNotFound
	}
	if err != nil {
		return oauth2.User{}, infraErr("find user by email", err)
	}
	return u, nil
}

func (s *Store) FindUser(ctx context.Context, id string) (oauth2.User, error) {
	var u oauth2.User
	err := s.db.QueryRowContext(ctx, `
		select id, email, password_hash, is_active, created_at
		from users
		where id = $1
	`, id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return oauth2.User{}, oauth2.ErrNotFound
	}
	if err != nil {
		return oauth2.User{}, infraErr("find user", err)
	}
	return u, nil
}
