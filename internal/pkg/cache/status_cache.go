package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
)

const statusKeyPrefix = "subscription_status:"

// StatusCache is an injected TTL cache for per-user subscription status.
// It replaces module-global user caching so tests can reset it and servers
// never share state across unrelated requests.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatusCache builds a status cache on an explicit client.
func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StatusCache{client: client, ttl: ttl}
}

// NewDefaultStatusCache uses the shared Redis client with a 5 minute TTL.
func NewDefaultStatusCache() *StatusCache {
	return NewStatusCache(GetClient(), 5*time.Minute)
}

// SetStatus caches a user's subscription status for the TTL window.
func (c *StatusCache) SetStatus(userID, status string) {
	if c.client == nil {
		return
	}
	_ = c.client.Set(ctx, statusKeyPrefix+userID, status, c.ttl).Err()
}

// GetStatus returns the cached status and whether it was present.
func (c *StatusCache) GetStatus(userID string) (string, bool) {
	if c.client == nil {
		return "", false
	}
	val, err := c.client.Get(ctx, statusKeyPrefix+userID).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Invalidate drops a user's cached status.
func (c *StatusCache) Invalidate(userID string) {
	if c.client == nil {
		return
	}
	_ = c.client.Del(ctx, statusKeyPrefix+userID).Err()
}
