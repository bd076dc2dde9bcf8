package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Loader fetches a fresh payload on cache miss.
type Loader func(ctx context.Context) (any, error)

// PayloadCache is a read-through cache for decoded upstream responses.
// Concurrent misses for the same key collapse into a single upstream call.
type PayloadCache struct {
	client  *redis.Client
	ttl     time.Duration
	group   singleflight.Group
	observe func(result string)
}

// NewPayloadCache constructs a PayloadCache. A zero ttl disables expiry.
func NewPayloadCache(client *redis.Client, ttl time.Duration) *PayloadCache {
	return &PayloadCache{client: client, ttl: ttl}
}

// Observe reports each lookup result ("hit" or "miss") to fn.
func (c *PayloadCache) Observe(fn func(result string)) {
	c.observe = fn
}

// Key builds the cache key for a tenant-scoped upstream path.
func Key(tenantID, path string) string {
	return fmt.Sprintf("klinika:payload:%s:%s", tenantID, path)
}

// GetOrLoad returns the cached payload for key, loading and storing it on a
// miss. Redis failures degrade to a direct load; the cache never makes a
// working upstream look broken.
func (c *PayloadCache) GetOrLoad(ctx context.Context, key string, load Loader) (any, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			c.observed("hit")
			return decoded, nil
		}
		// Unreadable entry, drop it and fall through to the loader.
		_ = c.client.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	c.observed("miss")
	result := c.group.DoChan(key, func() (any, error) {
		payload, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if encoded, err := json.Marshal(payload); err == nil {
			_ = c.client.Set(context.WithoutCancel(ctx), key, encoded, c.ttl).Err()
		}
		return payload, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		return res.Val, res.Err
	}
}

func (c *PayloadCache) observed(result string) {
	if c.observe != nil {
		c.observe(result)
	}
}

// Invalidate removes cached payloads for the given keys after a mutation.
func (c *PayloadCache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	_ = c.client.Del(ctx, keys...).Err()
}
