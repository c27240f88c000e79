package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/certquiz-backend/internal/config"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

func deadClient(t *testing.T) *goredis.Client {
	t.Helper()
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNewWithoutAddressIsDisabled(t *testing.T) {
	rdb, err := New(context.Background(), config.RedisConfig{}, logger.Nop())
	require.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestNewPingFailure(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"}, logger.Nop())
	assert.ErrorContains(t, err, "redis ping")
}

func TestDebouncerFailsOpen(t *testing.T) {
	ctx := context.Background()

	ok, err := NewDebouncer(nil, "x:").Acquire(ctx, "user", time.Minute)
	assert.True(t, ok)
	assert.NoError(t, err)

	ok, err = NewDebouncer(deadClient(t), "x:").Acquire(ctx, "user", time.Minute)
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestJSONCacheDisabled(t *testing.T) {
	ctx := context.Background()
	c := NewJSONCache(nil, "snap:", time.Hour)
	assert.False(t, c.Enabled())
	require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}))

	var out map[string]int
	hit, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestJSONCacheRedisDown(t *testing.T) {
	c := NewJSONCache(deadClient(t), "snap:", time.Hour)
	var out map[string]int
	hit, err := c.Get(context.Background(), "k", &out)
	assert.False(t, hit)
	assert.Error(t, err)
}

func TestJSONCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	c := NewJSONCache(rdb, "snap:", time.Hour)
	require.NoError(t, c.Set(ctx, "u1", map[string]int{"xp": 40}))
	assert.Equal(t, time.Hour, mr.TTL("snap:u1"))

	var out map[string]int
	hit, err := c.Get(ctx, "u1", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 40, out["xp"])

	require.NoError(t, c.Delete(ctx, "u1"))
	hit, err = c.Get(ctx, "u1", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	d := NewDebouncer(rdb, "win:")
	ok, err := d.Acquire(ctx, "u1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = d.Acquire(ctx, "u1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	mr.FastForward(time.Minute)
	ok, err = d.Acquire(ctx, "u1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
