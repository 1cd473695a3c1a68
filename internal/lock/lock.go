// Package lock defines the cross-instance mutual exclusion used by the
// batch scheduler, plus an in-process implementation.
//
// Backends live in their own packages: the SQLite lease lock in
// internal/storage/sqlite, Redis in redislock and NATS JetStream KV in
// natslock. All of them acquire without waiting and bound how long a
// crashed holder can keep a lock.
package lock

import (
	"context"
	"sync"
	"time"
)

// Locker is a named, non-blocking mutual-exclusion lock.
type Locker interface {
	// TryAcquire takes the named lock and reports whether it succeeded.
	// It must return immediately when another holder has the lock.
	TryAcquire(ctx context.Context, name string) (bool, error)

	// Release frees the named lock if the caller holds it.
	Release(ctx context.Context, name string) error
}

// Memory is a Locker for a single process. Leases expire like the
// distributed backends so behavior matches in tests.
type Memory struct {
	mu    sync.Mutex
	lease time.Duration
	held  map[string]time.Time
	now   func() time.Time
}

// NewMemory returns an in-process Locker whose acquisitions expire after lease.
func NewMemory(lease time.Duration) *Memory {
	return &Memory{
		lease: lease,
		held:  make(map[string]time.Time),
		now:   time.Now,
	}
}

func (m *Memory) TryAcquire(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expires, ok := m.held[name]; ok && now.Before(expires) {
		return false, nil
	}
	m.held[name] = now.Add(m.lease)
	return true, nil
}

func (m *Memory) Release(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.held, name)
	return nil
}
