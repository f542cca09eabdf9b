package lock

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	domainLock "loan-ledger/internal/domain/lock"
	"loan-ledger/pkg/id"
)

var _ domainLock.Locker = (*RedisLocker)(nil)

const (
	keyPrefix    = "lock:loan:"
	minRetry     = 5 * time.Millisecond
	maxRetry     = 100 * time.Millisecond
	releaseAfter = 2 * time.Second
)

// Only the holder that set the token may delete the key.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker is a lease lock shared by every replica talking to the same
// Redis. The ttl bounds how long a crashed holder can block a key.
type RedisLocker struct {
	rdb  *redis.Client
	ttl  time.Duration
	wait time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl, wait: wait}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	k := keyPrefix + key
	token := id.NewID32()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	backoff := minRetry
	for {
		ok, err := l.rdb.SetNX(waitCtx, k, token, l.ttl).Result()
		if err == nil && ok {
			return l.releaser(k, token), nil
		}
		if err != nil && waitCtx.Err() == nil {
			return nil, err
		}

		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, domainLock.ErrTimeout
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxRetry {
			backoff = maxRetry
		}
	}
}

func (l *RedisLocker) releaser(key, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true
		ctx, cancel := context.WithTimeout(context.Background(), releaseAfter)
		defer cancel()
		if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
			// the lease expires on its own after ttl
			slog.Warn("lock release failed", "key", key, "err", err)
		}
	}
}
