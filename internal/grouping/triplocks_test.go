package grouping

import (
	"sync"
	"testing"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/stretchr/testify/require"
)

func TestTripLocks(t *testing.T) {
	t.Run("serializes the same trip", func(t *testing.T) {
		locks := NewTripLocks()
		var wg sync.WaitGroup
		inside, maxInside := 0, 0
		var mu sync.Mutex

		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := locks.Lock("trip")
				defer unlock()

				mu.Lock()
				inside++
				maxInside = max(maxInside, inside)
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
			}()
		}
		wg.Wait()

		require.Equal(t, 1, maxInside)
		require.Zero(t, locks.locks.Size())
	})

	t.Run("different trips do not block", func(t *testing.T) {
		locks := NewTripLocks()
		unlockA := locks.Lock("a")
		defer unlockA()

		done := make(chan struct{})
		go func() {
			locks.Lock("b")()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("lock on trip b blocked behind trip a")
		}
	})

	t.Run("entry is dropped only after the last holder", func(t *testing.T) {
		locks := NewTripLocks()
		unlock := locks.Lock("trip")

		acquired := make(chan func())
		go func() { acquired <- locks.Lock("trip") }()
		require.Eventually(t, func() bool {
			refs := 0
			locks.locks.Compute("trip", func(cur *tripLock, loaded bool) (*tripLock, xsync.ComputeOp) {
				if loaded {
					refs = cur.refs
				}
				return cur, xsync.CancelOp
			})
			return refs == 2
		}, time.Second, time.Millisecond)

		unlock()
		second := <-acquired
		require.Equal(t, 1, locks.locks.Size())

		second()
		require.Zero(t, locks.locks.Size())
	})
}
