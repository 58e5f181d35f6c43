package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "lock:"

// releaseScript deletes the key only while it still carries our token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// extendScript resets the expiry only while the key still carries our token.
const extendScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`

// RedisLocker shares locks across API replicas through SET NX PX.
type RedisLocker struct {
	rdb      goredis.Cmdable
	newToken func() string
}

func NewRedisLocker(rdb goredis.Cmdable) *RedisLocker {
	return &RedisLocker{rdb: rdb, newToken: uuid.NewString}
}

func (l *RedisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	token := l.newToken()
	ok, err := l.rdb.SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	stop := keepAlive(ttl, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), ttl/3)
		defer cancel()
		held, err := l.extend(ctx, key, token, ttl)
		if err != nil {
			// keep trying while the key has not expired
			slog.Warn("failed to renew lock", "key", key, "error", err)
			return true
		}
		if !held {
			slog.Error("lock lost before release", "key", key)
		}
		return held
	})

	return func(ctx context.Context) error {
		stop()
		if err := l.rdb.Eval(ctx, releaseScript, []string{keyPrefix + key}, token).Err(); err != nil {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		return nil
	}, nil
}

// extend reports false when the key expired or passed to another owner.
func (l *RedisLocker) extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	n, err := l.rdb.Eval(ctx, extendScript, []string{keyPrefix + key}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("extend lock %s: %w", key, err)
	}
	return n == 1, nil
}

// NewRedisClient connects and pings, mirroring how the database pool is opened.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return rdb, nil
}
