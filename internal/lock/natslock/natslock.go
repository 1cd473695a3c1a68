// Package natslock implements lock.Locker on a NATS JetStream key-value
// bucket. The bucket TTL bounds how long a lock can be held.
package natslock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/mmynk/splitpass/internal/lock"
)

var _ lock.Locker = (*Locker)(nil)

// Locker holds named locks as keys in a JetStream KV bucket.
type Locker struct {
	kv     jetstream.KeyValue
	holder string
}

// New returns a Locker over an existing bucket.
func New(kv jetstream.KeyValue, holder string) *Locker {
	return &Locker{kv: kv, holder: holder}
}

// Open creates (or reuses) the bucket with the given lease as TTL and
// returns a Locker over it.
func Open(ctx context.Context, js jetstream.JetStream, bucket, holder string, lease time.Duration) (*Locker, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "splitpass job locks",
		TTL:         lease,
		History:     1,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open lock bucket %s: %w", bucket, err)
	}
	return New(kv, holder), nil
}

// TryAcquire creates the lock key. Create fails if the key exists, which
// means someone else holds the lock.
func (l *Locker) TryAcquire(ctx context.Context, name string) (bool, error) {
	value := []byte(fmt.Sprintf("%s:%d", l.holder, time.Now().Unix()))

	_, err := l.kv.Create(ctx, name, value)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create lock key %s: %w", name, err)
	}
	return true, nil
}

// Release deletes the lock key if it still carries this holder's revision.
func (l *Locker) Release(ctx context.Context, name string) error {
	entry, err := l.kv.Get(ctx, name)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("failed to read lock key %s: %w", name, err)
	}
	if !ownedBy(entry.Value(), l.holder) {
		return nil
	}

	err = l.kv.Delete(ctx, name, jetstream.LastRevision(entry.Revision()))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete lock key %s: %w", name, err)
	}
	return nil
}

func ownedBy(value []byte, holder string) bool {
	prefix := holder + ":"
	return len(value) >= len(prefix) && string(value[:len(prefix)]) == prefix
}
