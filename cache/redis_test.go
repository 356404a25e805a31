package cache_test

import (
	"testing"
	"time"

	"github.com/advdv/bcycle"
	"github.com/advdv/bcycle/cache"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *cache.Redis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return srv, cache.NewRedis(client, "")
}

func TestRedis(t *testing.T) {
	srv, rc := newRedis(t)
	ctx := t.Context()

	item, err := rc.Get(ctx, "/a")
	require.NoError(t, err)
	assert.Nil(t, item)

	expires := time.Now().Add(time.Minute).Truncate(time.Second)
	require.NoError(t, rc.Set(ctx, "/a", &bcycle.CachedResponse{
		Code: 200, ContentType: "text/plain", Payload: []byte("hello"), ExpiresAt: expires,
	}, time.Minute))

	assert.True(t, srv.Exists(cache.DefaultPrefix+"/a"))
	assert.Equal(t, time.Minute, srv.TTL(cache.DefaultPrefix+"/a"))

	item, err = rc.Get(ctx, "/a")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "hello", string(item.Payload))
	assert.Equal(t, "text/plain", item.ContentType)
	assert.True(t, expires.Equal(item.ExpiresAt))

	srv.FastForward(time.Minute)
	item, err = rc.Get(ctx, "/a")
	require.NoError(t, err)
	assert.Nil(t, item)

	require.NoError(t, rc.Set(ctx, "/b", &bcycle.CachedResponse{Code: 200}, time.Minute))
	require.NoError(t, rc.Drop(ctx, "/b"))
	assert.False(t, srv.Exists(cache.DefaultPrefix+"/b"))

	require.NoError(t, rc.Set(ctx, "/zero", &bcycle.CachedResponse{Code: 200}, 0))
	assert.False(t, srv.Exists(cache.DefaultPrefix+"/zero"))
}

func TestRedisErrors(t *testing.T) {
	srv, rc := newRedis(t)
	ctx := t.Context()

	require.NoError(t, srv.Set(cache.DefaultPrefix+"/corrupt", "not json"))
	_, err := rc.Get(ctx, "/corrupt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")

	srv.Close()
	_, err = rc.Get(ctx, "/a")
	require.Error(t, err)
	require.Error(t, rc.Drop(ctx, "/a"))
}
