package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T, wait time.Duration) *RedisLocker {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" || testing.Short() {
		t.Skip("未设置 TEST_REDIS_ADDR")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("TEST_REDIS_PASSWORD")})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	return NewRedisLocker(client, 5*time.Second, wait)
}

func TestAcquireIsExclusive(t *testing.T) {
	l := newTestLocker(t, 200*time.Millisecond)
	ctx := context.Background()
	key := "test:" + t.Name()

	release, err := l.Acquire(ctx, key)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, key)
	assert.ErrorIs(t, err, ErrNotAcquired)

	release()

	release, err = l.Acquire(ctx, key)
	require.NoError(t, err)
	release()
}

func TestReleaseKeepsForeignLock(t *testing.T) {
	l := newTestLocker(t, 200*time.Millisecond)
	ctx := context.Background()
	key := "test:" + t.Name()

	release, err := l.Acquire(ctx, key)
	require.NoError(t, err)
	defer release()

	// 其他持有者的令牌不能删除锁
	l.release("lock:"+key, "someone-else")

	_, err = l.Acquire(ctx, key)
	assert.ErrorIs(t, err, ErrNotAcquired)
}
