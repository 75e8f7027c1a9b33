package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"authgrid.org/internal/oauth2"
)

func (s *Store) FindClient(ctx context.Context, clientID string) (oauth2.Client, error) {
	var (
		c          oauth2.Client
		secretHash sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select id, client_id, client_secret_hash, redirect_uris,
		       allowed_grant_types, allowed_scopes, is_confidential
		from oauth_clients
		where client_id = $1
	`, clientID).Scan(
		&c.ID,
		&c.ClientID,
		&secretHash,
		pq.Array(&c.RedirectURIs),
		pq.Array(&c.AllowedGrantTypes),
		pq.Array(&c.AllowedScopes),
		&c.IsConfidential,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return oauth2.Client{}, oauth2.ErrNotFound
	}
	if err != nil {
		return oauth2.Client{}, infraErr("find client", err)
	}
	c.ClientSecretHash = secretHash.String
	return c, nil
}
