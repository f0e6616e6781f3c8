// Package revocation tracks revoked token identifiers in Redis so that
// access tokens can be invalidated before their natural expiry.
package revocation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sentra-id/sentra/pkg/config"
)

const keyPrefix = "sentra:revoked:"

// Cache stores revoked token jtis with a TTL matching the remaining
// lifetime of the token, so entries expire on their own once the token
// itself is no longer valid.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// NewCacheFromConfig connects to Redis using the given config and verifies
// the connection with a ping.
func NewCacheFromConfig(ctx context.Context, cfg config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Cache{client: client}, nil
}

func (c *Cache) key(jti string) string {
	return keyPrefix + jti
}

// Revoke marks the jti as revoked until the given TTL elapses. A zero or
// negative TTL means the token is already expired and nothing is stored.
func (c *Cache) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return fmt.Errorf("jti is empty")
	}
	if ttl <= 0 {
		slog.Debug("skipping revocation of already expired token", "jti", jti)
		return nil
	}
	if err := c.client.Set(ctx, c.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the jti has been revoked and not yet expired.
func (c *Cache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	n, err := c.client.Exists(ctx, c.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// Unrevoke removes the jti from the revocation set. Mostly useful for
// administrative correction; returns nil when the key did not exist.
func (c *Cache) Unrevoke(ctx context.Context, jti string) error {
	if err := c.client.Del(ctx, c.key(jti)).Err(); err != nil {
		return fmt.Errorf("failed to unrevoke token: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
