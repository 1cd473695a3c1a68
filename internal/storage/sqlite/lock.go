package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/splitpass/internal/lock"
)

var _ lock.Locker = (*LeaseLock)(nil)

// LeaseLock is a named mutual-exclusion lock stored in the job_locks table.
// A lock whose lease expired is free to take, so a crashed holder cannot
// wedge the job for longer than the lease.
type LeaseLock struct {
	store  *SQLiteStore
	holder string
	lease  time.Duration
}

// NewLeaseLock returns a lock that identifies itself as holder and keeps
// each acquisition for at most lease.
func (s *SQLiteStore) NewLeaseLock(holder string, lease time.Duration) *LeaseLock {
	return &LeaseLock{store: s, holder: holder, lease: lease}
}

// TryAcquire takes the lock if it is free or its lease expired.
// It never waits for the current holder.
func (l *LeaseLock) TryAcquire(ctx context.Context, name string) (bool, error) {
	now := time.Now()
	res, err := l.store.db.ExecContext(ctx, `
		INSERT INTO job_locks (name, holder, acquired_at, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			holder = excluded.holder,
			acquired_at = excluded.acquired_at,
			expires_at = excluded.expires_at
		WHERE job_locks.expires_at <= ?`,
		name, l.holder, now.UnixMilli(), now.Add(l.lease).UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read lock result: %w", err)
	}
	return n == 1, nil
}

// Release frees the lock if this holder owns it.
func (l *LeaseLock) Release(ctx context.Context, name string) error {
	_, err := l.store.db.ExecContext(ctx,
		"DELETE FROM job_locks WHERE name = ? AND holder = ?",
		name, l.holder,
	)
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}
