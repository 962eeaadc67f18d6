package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const statusKeyPrefix = "domain:status:failure:"

// StatusCache implements tenant.StatusCache on Redis. Entries expire after
// the configured TTL so stale failure reasons age out on their own.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatusCache creates a failure-reason cache with the given TTL.
// A non-positive ttl defaults to 72 hours.
func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &StatusCache{client: client, ttl: ttl}
}

func statusKey(tenantID uuid.UUID) string {
	return statusKeyPrefix + tenantID.String()
}

func (c *StatusCache) SetFailure(ctx context.Context, tenantID uuid.UUID, reason string) error {
	if reason == "" {
		return c.ClearFailure(ctx, tenantID)
	}
	return c.client.Set(ctx, statusKey(tenantID), reason, c.ttl).Err()
}

func (c *StatusCache) LastFailure(ctx context.Context, tenantID uuid.UUID) (string, error) {
	reason, err := c.client.Get(ctx, statusKey(tenantID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return reason, err
}

func (c *StatusCache) ClearFailure(ctx context.Context, tenantID uuid.UUID) error {
	return c.client.Del(ctx, statusKey(tenantID)).Err()
}
