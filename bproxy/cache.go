package bproxy

import (
	"context"
	"time"

	"github.com/advdv/bcycle"
	"github.com/advdv/bcycle/cache"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const redisPingTimeout = 3 * time.Second

// NewCache returns a Redis backed cache when BPROXY_REDIS_ADDR is set and reachable, and an
// in-memory cache otherwise.
func NewCache(lc fx.Lifecycle, env Environment, logger *zap.Logger) bcycle.Cache {
	if env.RedisAddr == "" {
		return cache.NewMemory()
	}

	client := redis.NewClient(&redis.Options{Addr: env.RedisAddr})
	if err := ping(client); err != nil {
		logger.Warn("redis unavailable, falling back to in-memory cache",
			zap.String("addr", env.RedisAddr), zap.Error(err))
		_ = client.Close()
		return cache.NewMemory()
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	logger.Info("using redis cache", zap.String("addr", env.RedisAddr))
	return cache.NewRedis(client, "")
}

func ping(client *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "failed to ping")
	}

	return nil
}
