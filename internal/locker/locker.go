// Package locker provides the per-(student, exam) mutex that serializes
// start/resume. Any mechanism giving mutual exclusion across the
// check-then-create sequence would do; this one uses a Redis SET NX lease so
// it holds across all instances of a stateless deployment.
package locker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock could not be obtained before the
// caller's context expired.
var ErrNotAcquired = errors.New("lock not acquired")

// releaseScript deletes the lock only if the caller still owns it, so an
// expired lease cannot release a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements a lease-based mutex on a Redis key.
type RedisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisLocker creates a RedisLocker. ttl bounds how long a crashed holder
// can block other callers.
func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

// WithLock runs fn while holding the named lock. Contending callers spin
// with a short backoff until the lock frees or ctx is done.
func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	token := uuid.New().String()

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return ErrNotAcquired
		case <-time.After(25 * time.Millisecond):
		}
	}

	defer func() {
		// Best effort: the TTL reclaims the lock if release fails.
		_ = releaseScript.Run(context.WithoutCancel(ctx), l.rdb, []string{key}, token).Err()
	}()

	return fn(ctx)
}
