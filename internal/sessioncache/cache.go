// Package sessioncache implements the fast-path session liveness store as a
// pair of independently expiring Redis presence markers. The durable store
// remains the source of truth; the cache only answers "is this session still
// good" without a transactional read on the hot path.
package sessioncache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	activeKeyPrefix  = "oauth:session:active:"
	revokedKeyPrefix = "oauth:session:revoked:"

	revokedSentinel = "1"
)

// Cache wraps a Redis client with the two-marker protocol.
type Cache struct {
	rdb *redis.Client
}

// New builds a Cache over an existing Redis client.
func New(rdb *redis.Client) (*Cache, error) {
	if rdb == nil {
		return nil, errors.New("sessioncache: redis client is required")
	}
	return &Cache{rdb: rdb}, nil
}

// Open connects to Redis using a URL (redis://host:port/db).
func Open(url string) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("sessioncache: parse url: %w", err)
	}
	return &Cache{rdb: redis.NewClient(opts)}, nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// Ping verifies connectivity for readiness probes.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// MarkActive records session liveness. The value is the owning user id so
// reconciliation tooling can attribute markers without a durable-store read.
func (c *Cache) MarkActive(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("sessioncache: ttl must be positive")
	}
	return c.rdb.Set(ctx, activeKeyPrefix+sessionID, userID, ttl).Err()
}

// Revoke kills a session in the cache. The revoked marker is written before
// the active marker is deleted so no observer can see the session as neither
// active nor revoked mid-revocation. The retention must be at least the
// longest lifetime of any access token signed against the session.
func (c *Cache) Revoke(ctx context.Context, sessionID string, retention time.Duration) error {
	if retention <= 0 {
		return errors.New("sessioncache: retention must be positive")
	}
	if err := c.rdb.Set(ctx, revokedKeyPrefix+sessionID, revokedSentinel, retention).Err(); err != nil {
		return err
	}
	return c.rdb.Del(ctx, activeKeyPrefix+sessionID).Err()
}

// IsActive reports presence of the active marker.
func (c *Cache) IsActive(ctx context.Context, sessionID string) (bool, error) {
	return c.exists(ctx, activeKeyPrefix+sessionID)
}

// IsRevoked reports presence of the revoked marker.
func (c *Cache) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	return c.exists(ctx, revokedKeyPrefix+sessionID)
}

func (c *Cache) exists(ctx context.Context, key string) (bool, error) {
	err := c.rdb.Get(ctx, key).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
