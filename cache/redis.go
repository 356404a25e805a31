package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/advdv/bcycle"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces the keys of the Redis cache.
const DefaultPrefix = "bcycle:response:"

// Redis is a [bcycle.Cache] shared between processes through Redis.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis inits a cache on top of client. An empty prefix uses [DefaultPrefix].
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Redis{client: client, prefix: prefix}
}

// Get implements [bcycle.Cache].
func (c *Redis) Get(ctx context.Context, key string) (*bcycle.CachedResponse, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to get %q", key)
	}

	var item bcycle.CachedResponse
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, errors.Wrapf(err, "failed to decode cached response for %q", key)
	}

	return &item, nil
}

// Set implements [bcycle.Cache].
func (c *Redis) Set(ctx context.Context, key string, res *bcycle.CachedResponse, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(res)
	if err != nil {
		return errors.Wrapf(err, "failed to encode response for %q", key)
	}

	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to set %q", key)
	}

	return nil
}

// Drop implements [bcycle.Cache].
func (c *Redis) Drop(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return errors.Wrapf(err, "failed to drop %q", key)
	}

	return nil
}

var _ bcycle.Cache = &Redis{}
