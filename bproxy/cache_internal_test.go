package bproxy

import (
	"testing"

	"github.com/advdv/bcycle/cache"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewCache(t *testing.T) {
	t.Run("memory without redis address", func(t *testing.T) {
		c := NewCache(fxtest.NewLifecycle(t), Environment{}, zap.NewNop())
		assert.IsType(t, &cache.Memory{}, c)
	})

	t.Run("redis when reachable", func(t *testing.T) {
		srv := miniredis.RunT(t)
		lc := fxtest.NewLifecycle(t)

		c := NewCache(lc, Environment{RedisAddr: srv.Addr()}, zap.NewNop())
		assert.IsType(t, &cache.Redis{}, c)

		lc.RequireStart()
		lc.RequireStop()
	})

	t.Run("memory fallback when unreachable", func(t *testing.T) {
		srv := miniredis.RunT(t)
		addr := srv.Addr()
		srv.Close()

		core, logs := observer.New(zapcore.WarnLevel)
		c := NewCache(fxtest.NewLifecycle(t), Environment{RedisAddr: addr}, zap.New(core))
		assert.IsType(t, &cache.Memory{}, c)
		assert.Equal(t, 1, logs.FilterMessage("redis unavailable, falling back to in-memory cache").Len())
	})
}
