package lock

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotAcquired = errors.New("lock: not acquired")

// 只有持有者才能释放锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker 基于 SET NX PX 实现的分布式互斥锁
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		wait:   wait,
		retry:  50 * time.Millisecond,
	}
}

// Acquire 在 wait 时间内反复尝试获取锁，超时返回 ErrNotAcquired
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	key = "lock:" + key
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	for {
		ok, err := l.client.SetNX(waitCtx, key, token, l.ttl).Result()
		if err != nil {
			if waitCtx.Err() != nil {
				return nil, ErrNotAcquired
			}
			return nil, err
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		select {
		case <-waitCtx.Done():
			return nil, ErrNotAcquired
		case <-time.After(l.retry):
		}
	}
}

func (l *RedisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), l.wait)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		slog.Warn("无法释放锁", "key", key, "error", err)
	}
}
