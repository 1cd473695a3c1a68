package grouping

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// tripLock is one trip's mutex and the number of callers holding or
// waiting on it. refs is only touched inside Compute.
type tripLock struct {
	mu   sync.Mutex
	refs int
}

// TripLocks serializes work on the same trip within this process.
// Other processes are kept out by the store's write transaction.
// An entry lives only while someone holds or waits on it.
type TripLocks struct {
	locks *xsync.Map[string, *tripLock]
}

// NewTripLocks creates an empty lock table.
func NewTripLocks() *TripLocks {
	return &TripLocks{locks: xsync.NewMap[string, *tripLock]()}
}

// Lock blocks until tripID is free and returns the unlock function.
func (l *TripLocks) Lock(tripID string) func() {
	entry, _ := l.locks.Compute(tripID, func(e *tripLock, loaded bool) (*tripLock, xsync.ComputeOp) {
		if !loaded {
			e = &tripLock{}
		}
		e.refs++
		return e, xsync.UpdateOp
	})
	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.locks.Compute(tripID, func(e *tripLock, loaded bool) (*tripLock, xsync.ComputeOp) {
			if !loaded {
				return e, xsync.CancelOp
			}
			e.refs--
			if e.refs == 0 {
				return nil, xsync.DeleteOp
			}
			return e, xsync.UpdateOp
		})
	}
}
