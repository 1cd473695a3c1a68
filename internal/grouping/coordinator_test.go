package grouping

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitpass/internal/calculator"
	"github.com/mmynk/splitpass/internal/models"
	"github.com/mmynk/splitpass/internal/storage"
	"github.com/mmynk/splitpass/internal/storage/sqlite"
)

func newTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestTrip(t *testing.T, store storage.Store) *models.Trip {
	t.Helper()
	trip := &models.Trip{
		LegID:       "RE1-0812",
		ServiceDate: "2026-10-15",
		DepartsAt:   time.Now().Add(10 * time.Minute).Unix(),
	}
	require.NoError(t, store.CreateTrip(context.Background(), trip))
	return trip
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rider(id string, steward bool, legs ...string) *models.Participant {
	return &models.Participant{RiderID: id, WillingSteward: steward, Legs: legs}
}

// requireConsistent checks every stored group against the size bounds and
// that each active participant's group reference matches the groups.
func requireConsistent(t *testing.T, store storage.Store, tripID string, limits calculator.Limits) []*models.Group {
	t.Helper()
	ctx := context.Background()

	groups, err := store.ListGroups(ctx, tripID)
	require.NoError(t, err)
	participants, err := store.ListParticipants(ctx, tripID)
	require.NoError(t, err)

	groupOf := map[string]string{}
	for _, g := range groups {
		require.GreaterOrEqual(t, len(g.Members), limits.Min, "group %d too small", g.Number)
		require.LessOrEqual(t, len(g.Members), limits.Max, "group %d too large", g.Number)
		require.True(t, g.HasMember(g.StewardID), "group %d steward not a member", g.Number)
		for _, m := range g.Members {
			_, dup := groupOf[m]
			require.False(t, dup, "participant %s in two groups", m)
			groupOf[m] = g.ID
		}
	}
	for _, p := range participants {
		require.Equal(t, groupOf[p.ID], p.GroupID, "participant %s group reference", p.ID)
		if !p.Active() {
			require.Empty(t, p.GroupID)
		}
	}
	return groups
}

func TestCoordinatorJoinLeave(t *testing.T) {
	ctx := context.Background()

	t.Run("five riders one steward form one group", func(t *testing.T) {
		store := newTestStore(t)
		trip := newTestTrip(t, store)
		c := NewCoordinator(store, calculator.DefaultLimits, discardLogger())

		var partition *Partition
		var err error
		for i := range 5 {
			partition, err = c.Join(ctx, trip.ID, rider(fmt.Sprintf("r%d", i), i == 0))
			require.NoError(t, err)
		}

		require.Len(t, partition.Groups, 1)
		require.Len(t, partition.Groups[0].Members, 5)
		groups := requireConsistent(t, store, trip.ID, calculator.DefaultLimits)
		require.Len(t, groups, 1)
	})

	t.Run("single rider is recorded without a group", func(t *testing.T) {
		store := newTestStore(t)
		trip := newTestTrip(t, store)
		c := NewCoordinator(store, calculator.DefaultLimits, discardLogger())

		partition, err := c.Join(ctx, trip.ID, rider("solo", true))
		require.NoError(t, err)
		require.Empty(t, partition.Groups)
		require.Equal(t, 1, partition.Result.Failures[models.FailureTooSmall])
	})

	t.Run("join then leave restores the partition", func(t *testing.T) {
		for _, joinerSteward := range []bool{false, true} {
			t.Run(fmt.Sprintf("joiner steward=%v", joinerSteward), func(t *testing.T) {
				store := newTestStore(t)
				trip := newTestTrip(t, store)
				c := NewCoordinator(store, calculator.DefaultLimits, discardLogger())

				for i := range 8 {
					_, err := c.Join(ctx, trip.ID, rider(fmt.Sprintf("r%d", i), i%3 == 0))
					require.NoError(t, err)
				}
				before := requireConsistent(t, store, trip.ID, calculator.DefaultLimits)

				joiner := rider("late", joinerSteward)
				_, err := c.Join(ctx, trip.ID, joiner)
				require.NoError(t, err)
				requireConsistent(t, store, trip.ID, calculator.DefaultLimits)

				_, err = c.Leave(ctx, trip.ID, joiner.ID)
				require.NoError(t, err)
				after := requireConsistent(t, store, trip.ID, calculator.DefaultLimits)

				require.Equal(t, stewardMap(before), stewardMap(after))
				require.Equal(t, memberSets(before), memberSets(after))
			})
		}
	})

	t.Run("last steward leaving dissolves all groups", func(t *testing.T) {
		store := newTestStore(t)
		trip := newTestTrip(t, store)
		c := NewCoordinator(store, calculator.DefaultLimits, discardLogger())

		steward := rider("s", true)
		_, err := c.Join(ctx, trip.ID, steward)
		require.NoError(t, err)
		for i := range 3 {
			_, err := c.Join(ctx, trip.ID, rider(fmt.Sprintf("r%d", i), false))
			require.NoError(t, err)
		}

		partition, err := c.Leave(ctx, trip.ID, steward.ID)
		require.NoError(t, err)
		require.Empty(t, partition.Groups)
		require.Equal(t, 3, partition.Result.Ungrouped)

		groups := requireConsistent(t, store, trip.ID, calculator.DefaultLimits)
		require.Empty(t, groups)
	})

	t.Run("failed leave changes nothing", func(t *testing.T) {
		store := newTestStore(t)
		trip := newTestTrip(t, store)
		c := NewCoordinator(store, calculator.DefaultLimits, discardLogger())

		for i := range 4 {
			_, err := c.Join(ctx, trip.ID, rider(fmt.Sprintf("r%d", i), i == 0))
			require.NoError(t, err)
		}
		before := requireConsistent(t, store, trip.ID, calculator.DefaultLimits)

		_, err := c.Leave(ctx, trip.ID, "no-such-participant")
		require.ErrorIs(t, err, storage.ErrNotFound)

		after := requireConsistent(t, store, trip.ID, calculator.DefaultLimits)
		require.Equal(t, memberSets(before), memberSets(after))
	})

	t.Run("unknown trip", func(t *testing.T) {
		store := newTestStore(t)
		c := NewCoordinator(store, calculator.DefaultLimits, discardLogger())

		_, err := c.Join(ctx, "missing", rider("r", true))
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestCoordinatorConcurrentJoins(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	trip := newTestTrip(t, store)

	// Two coordinators on one database stand in for two instances.
	coordinators := []*Coordinator{
		NewCoordinator(store, calculator.DefaultLimits, discardLogger()),
		NewCoordinator(store, calculator.DefaultLimits, discardLogger()),
	}

	const riders = 20
	var wg sync.WaitGroup
	errs := make(chan error, riders)
	for i := range riders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := coordinators[i%2].Join(ctx, trip.ID, rider(fmt.Sprintf("r%02d", i), i%4 == 0))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	groups := requireConsistent(t, store, trip.ID, calculator.DefaultLimits)
	require.Len(t, groups, 5)
	total := 0
	for _, g := range groups {
		total += len(g.Members)
	}
	require.Equal(t, riders, total)
}

func TestCoordinatorFormGroups(t *testing.T) {
	ctx := context.Background()

	addCheckedIn := func(t *testing.T, store storage.Store, tripID string, riders ...*models.Participant) {
		t.Helper()
		err := store.UpdateTrip(ctx, tripID, func(tx storage.TripTx) error {
			for _, r := range riders {
				r.CheckedIn = true
				if err := tx.AddParticipant(ctx, r); err != nil {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err)
	}

	t.Run("itineraries are packed independently", func(t *testing.T) {
		store := newTestStore(t)
		trip := newTestTrip(t, store)
		c := NewCoordinator(store, calculator.DefaultLimits, discardLogger())

		addCheckedIn(t, store, trip.ID,
			rider("a", true, "RE1-0812", "S7-0905"),
			rider("b", false, "RE1-0812", "S7-0905"),
			rider("c", false, "RE1-0812", "S7-0905"),
			rider("d", false, "RE1-0812", "S7-0905"),
			rider("e", true, "S7-0905", "RE1-0812"),
		)

		result := c.FormGroups(ctx, trip)
		require.Equal(t, 1, result.Groups)
		require.Equal(t, 4, result.Grouped)
		require.Equal(t, 1, result.Ungrouped)
		require.Equal(t, 1, result.Failures[models.FailureTooSmall])

		groups := requireConsistent(t, store, trip.ID, calculator.DefaultLimits)
		require.Len(t, groups, 1)
		require.Len(t, groups[0].Members, 4)
	})

	t.Run("existing groups are kept and new ones numbered after them", func(t *testing.T) {
		store := newTestStore(t)
		trip := newTestTrip(t, store)
		c := NewCoordinator(store, calculator.DefaultLimits, discardLogger())

		addCheckedIn(t, store, trip.ID, rider("a", true), rider("b", false), rider("c", false))
		first := c.FormGroups(ctx, trip)
		require.Equal(t, 1, first.Groups)
		before, err := store.ListGroups(ctx, trip.ID)
		require.NoError(t, err)

		addCheckedIn(t, store, trip.ID, rider("d", true), rider("e", false))
		second := c.FormGroups(ctx, trip)
		require.Equal(t, 1, second.Groups)
		require.Equal(t, 2, second.Grouped)

		groups := requireConsistent(t, store, trip.ID, calculator.DefaultLimits)
		require.Len(t, groups, 2)
		require.Equal(t, before[0].ID, groups[0].ID)
		require.Equal(t, before[0].Members, groups[0].Members)
		require.Equal(t, 2, groups[1].Number)
	})

	t.Run("riders not checked in are left alone", func(t *testing.T) {
		store := newTestStore(t)
		trip := newTestTrip(t, store)
		c := NewCoordinator(store, calculator.DefaultLimits, discardLogger())

		err := store.UpdateTrip(ctx, trip.ID, func(tx storage.TripTx) error {
			for _, r := range []*models.Participant{rider("a", true), rider("b", false)} {
				if err := tx.AddParticipant(ctx, r); err != nil {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err)

		result := c.FormGroups(ctx, trip)
		require.Zero(t, result.Groups)
		require.Zero(t, result.Ungrouped)
	})

	t.Run("check in makes a rider eligible", func(t *testing.T) {
		store := newTestStore(t)
		trip := newTestTrip(t, store)
		c := NewCoordinator(store, calculator.DefaultLimits, discardLogger())

		a, b := rider("a", true), rider("b", false)
		err := store.UpdateTrip(ctx, trip.ID, func(tx storage.TripTx) error {
			if err := tx.AddParticipant(ctx, a); err != nil {
				return err
			}
			return tx.AddParticipant(ctx, b)
		})
		require.NoError(t, err)

		require.NoError(t, c.CheckIn(ctx, trip.ID, a.ID))
		require.NoError(t, c.CheckIn(ctx, trip.ID, b.ID))
		require.ErrorIs(t, c.CheckIn(ctx, trip.ID, "nobody"), storage.ErrNotFound)

		result := c.FormGroups(ctx, trip)
		require.Equal(t, 1, result.Groups)
	})
}

type recordingObserver struct {
	mu   sync.Mutex
	ops  []string
	errs int
}

func (o *recordingObserver) ObserveRebalance(op string, _ models.TripResult, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op)
	if err != nil {
		o.errs++
	}
}

func TestCoordinatorObserver(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	trip := newTestTrip(t, store)
	obs := &recordingObserver{}
	c := NewCoordinator(store, calculator.DefaultLimits, discardLogger()).WithObserver(obs)

	p := rider("anna", true)
	_, err := c.Join(ctx, trip.ID, p)
	require.NoError(t, err)
	_, err = c.Leave(ctx, trip.ID, p.ID)
	require.NoError(t, err)
	_, err = c.Leave(ctx, trip.ID, p.ID)
	require.Error(t, err)

	require.Equal(t, []string{"join", "leave", "leave"}, obs.ops)
	require.Equal(t, 1, obs.errs)
}
