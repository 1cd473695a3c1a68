// Package redislock implements lock.Locker on Redis.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/mmynk/splitpass/internal/lock"
)

var _ lock.Locker = (*Locker)(nil)

// releaseScript deletes the key only if it still holds our token, so a
// holder whose lease expired cannot free someone else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker holds named locks as Redis keys with an expiry.
type Locker struct {
	client *redis.Client
	holder string
	lease  time.Duration
	prefix string
}

// New returns a Locker that writes holder into lock keys and lets them
// expire after lease.
func New(client *redis.Client, holder string, lease time.Duration) *Locker {
	return &Locker{
		client: client,
		holder: holder,
		lease:  lease,
		prefix: "splitpass:lock:",
	}
}

// TryAcquire sets the lock key if absent (SET NX PX).
func (l *Locker) TryAcquire(ctx context.Context, name string) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.prefix+name, l.holder, l.lease).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// Release deletes the lock key if this holder owns it.
func (l *Locker) Release(ctx context.Context, name string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.prefix + name}, l.holder).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}
