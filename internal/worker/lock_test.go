package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/batchflow/internal/domain"
)

func newTestLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, ttl), mr
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	locker, mr := newTestLocker(t, time.Minute)
	key := jobLockKey("job-1")

	release, err := locker.Acquire(ctx, key)
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	_, err = locker.Acquire(ctx, key)
	require.ErrorIs(t, err, domain.ErrLockNotAcquired)

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists(key))

	release, err = locker.Acquire(ctx, key)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	ctx := context.Background()
	locker, mr := newTestLocker(t, time.Second)
	key := jobLockKey("job-2")

	release, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	// The lock expires and another runner takes it.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set(key, "other-runner"))

	require.NoError(t, release(ctx))
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "other-runner", got)
}

func TestRedisLocker_Unavailable(t *testing.T) {
	locker, mr := newTestLocker(t, time.Minute)
	mr.Close()

	_, err := locker.Acquire(context.Background(), jobLockKey("job-3"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrLockNotAcquired)
}
