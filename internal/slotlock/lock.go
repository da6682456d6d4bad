// Package slotlock serialises the final re-check and write for one clinic
// day across server instances. It narrows the double-booking window; the
// calendar remains the only source of truth.
package slotlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired means another request held the key for the whole wait.
var ErrLockNotAcquired = errors.New("slot lock not acquired")

// Locker guards a critical section keyed by slot.
type Locker interface {
	WithSlotLock(ctx context.Context, slot string, fn func(ctx context.Context) error) error
}

// Key builds the lock key for the clinic date of start. Occupancy is shared
// by every type and daily caps count a whole date, so one key per date
// covers both re-checks.
func Key(start time.Time) string {
	return start.Format("2006-01-02")
}

// Noop runs fn without locking.
type Noop struct{}

// WithSlotLock calls fn directly.
func (Noop) WithSlotLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// RedisLocker holds a SETNX key for at most ttl. A held key is polled until
// wait elapses.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
	prefix string
}

// NewRedisLocker returns a locker using client. A non-positive ttl defaults
// to 10s; the wait for a held key defaults to ttl.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, wait: ttl, poll: 25 * time.Millisecond, prefix: "booking:lock:"}
}

// WithWait sets how long WithSlotLock waits for a held key. Zero fails at once.
func (l *RedisLocker) WithWait(d time.Duration) *RedisLocker {
	if d < 0 {
		d = 0
	}
	l.wait = d
	return l
}

// WithSlotLock runs fn while holding the slot key. fn's context expires with
// the lock so a slow write cannot outlive it unnoticed.
func (l *RedisLocker) WithSlotLock(ctx context.Context, slot string, fn func(ctx context.Context) error) error {
	key := l.prefix + slot
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}
	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()
	return fn(lockCtx)
}

func (l *RedisLocker) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire slot lock: %w", err)
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrLockNotAcquired, ctx.Err())
		case <-time.After(l.poll):
		}
	}
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *RedisLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release slot lock: %w", err)
	}
	return nil
}
