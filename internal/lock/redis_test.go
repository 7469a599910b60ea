package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *Redis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedisWithClient(client, ttl)
	t.Cleanup(func() { _ = r.Close() })
	return mr, r
}

func TestRedisTryLockSetsKeyWithTTL(t *testing.T) {
	mr, r := newMiniRedis(t, 10*time.Minute)
	ctx := context.Background()

	lease, err := r.TryLock(ctx, "lab-rg")
	require.NoError(t, err)

	key := redisKeyPrefix + "lab-rg"
	require.True(t, mr.Exists(key))
	token, err := mr.Get(key)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, 10*time.Minute, mr.TTL(key))

	_, err = r.TryLock(ctx, "lab-rg")
	assert.ErrorIs(t, err, ErrLocked)

	// other resource groups are independent
	other, err := r.TryLock(ctx, "other-rg")
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists(key))

	again, err := r.TryLock(ctx, "lab-rg")
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestRedisLockExpires(t *testing.T) {
	mr, r := newMiniRedis(t, time.Minute)
	ctx := context.Background()

	_, err := r.TryLock(ctx, "lab-rg")
	require.NoError(t, err)

	mr.FastForward(time.Minute + time.Second)

	lease, err := r.TryLock(ctx, "lab-rg")
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
}

func TestRedisReleaseKeepsNewHolder(t *testing.T) {
	mr, r := newMiniRedis(t, time.Minute)
	ctx := context.Background()
	key := redisKeyPrefix + "lab-rg"

	stale, err := r.TryLock(ctx, "lab-rg")
	require.NoError(t, err)

	// the lease expired and another process took the lock
	mr.FastForward(2 * time.Minute)
	require.False(t, mr.Exists(key))
	current, err := r.TryLock(ctx, "lab-rg")
	require.NoError(t, err)
	holder, err := mr.Get(key)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))

	got, err := mr.Get(key)
	require.NoError(t, err, "stale release must not delete the new holder's key")
	assert.Equal(t, holder, got)

	_, err = r.TryLock(ctx, "lab-rg")
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, current.Release(ctx))
	assert.False(t, mr.Exists(key))
}

func TestRedisReleaseOverwrittenToken(t *testing.T) {
	mr, r := newMiniRedis(t, time.Minute)
	ctx := context.Background()
	key := redisKeyPrefix + "lab-rg"

	lease, err := r.TryLock(ctx, "lab-rg")
	require.NoError(t, err)
	require.NoError(t, mr.Set(key, "someone-else"))

	require.NoError(t, lease.Release(ctx))

	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisTryLockServerDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	r := NewRedisWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), time.Minute)
	t.Cleanup(func() { _ = r.Close() })
	mr.Close()

	_, err = r.TryLock(context.Background(), "lab-rg")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	l, err := Open("redis", RedisOptions{Addr: mr.Addr(), TTL: time.Minute})
	require.NoError(t, err)
	r, ok := l.(*Redis)
	require.True(t, ok)
	t.Cleanup(func() { _ = r.Close() })

	lease, err := r.TryLock(context.Background(), "lab-rg")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(redisKeyPrefix+"lab-rg"))
	require.NoError(t, lease.Release(context.Background()))
}
