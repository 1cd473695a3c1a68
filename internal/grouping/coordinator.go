package grouping

import (
	"context"
	"log/slog"

	"github.com/mmynk/splitpass/internal/calculator"
	"github.com/mmynk/splitpass/internal/models"
	"github.com/mmynk/splitpass/internal/storage"
)

// Coordinator runs every group-changing operation on a trip: roster
// changes with their rebalance, and batch formation. Operations on one
// trip are linearized; different trips proceed independently.
type Coordinator struct {
	store      storage.Store
	limits     calculator.Limits
	rebalancer *Rebalancer
	locks      *TripLocks
	observer   Observer
	logger     *slog.Logger
}

// Observer is notified after every join or leave rebalance.
type Observer interface {
	ObserveRebalance(op string, r models.TripResult, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveRebalance(string, models.TripResult, error) {}

// NewCoordinator creates a Coordinator over store.
func NewCoordinator(store storage.Store, limits calculator.Limits, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:      store,
		limits:     limits,
		rebalancer: NewRebalancer(limits),
		locks:      NewTripLocks(),
		observer:   nopObserver{},
		logger:     logger,
	}
}

// WithObserver sets the observer notified of rebalances and returns c.
func (c *Coordinator) WithObserver(o Observer) *Coordinator {
	c.observer = o
	return c
}

// Limits returns the group size bounds in use.
func (c *Coordinator) Limits() calculator.Limits {
	return c.limits
}

// Join adds p to the trip roster and rebalances in the same transaction.
// A roster that cannot be partitioned is not an error; it ends up with
// no groups and the reason is in the result.
func (c *Coordinator) Join(ctx context.Context, tripID string, p *models.Participant) (*Partition, error) {
	return c.change(ctx, tripID, "join", func(ctx context.Context, tx storage.TripTx) error {
		return tx.AddParticipant(ctx, p)
	})
}

// Leave removes a participant from the roster and rebalances in the same
// transaction.
func (c *Coordinator) Leave(ctx context.Context, tripID, participantID string) (*Partition, error) {
	return c.change(ctx, tripID, "leave", func(ctx context.Context, tx storage.TripTx) error {
		return tx.RemoveParticipant(ctx, participantID)
	})
}

// CheckIn marks a participant as traveling, making it eligible for batch
// grouping. The roster does not change, so no rebalance runs.
func (c *Coordinator) CheckIn(ctx context.Context, tripID, participantID string) error {
	unlock := c.locks.Lock(tripID)
	defer unlock()

	return c.store.UpdateTrip(ctx, tripID, func(tx storage.TripTx) error {
		return tx.CheckIn(ctx, participantID)
	})
}

func (c *Coordinator) change(ctx context.Context, tripID, op string, mutate func(context.Context, storage.TripTx) error) (*Partition, error) {
	unlock := c.locks.Lock(tripID)
	defer unlock()

	var partition *Partition
	err := c.store.UpdateTrip(ctx, tripID, func(tx storage.TripTx) error {
		if err := mutate(ctx, tx); err != nil {
			return err
		}
		p, err := c.rebalancer.Rebalance(ctx, tx)
		if err != nil {
			return err
		}
		partition = p
		return nil
	})
	if err != nil {
		c.observer.ObserveRebalance(op, models.TripResult{TripID: tripID}, err)
		c.logger.Error("Rebalance failed", "op", op, "trip_id", tripID, "error", err)
		return nil, err
	}

	c.observer.ObserveRebalance(op, partition.Result, nil)
	c.logFailures("Rebalance", partition.Result)
	c.logger.Info("Rebalanced trip",
		"op", op,
		"trip_id", tripID,
		"groups", partition.Result.Groups,
		"grouped", partition.Result.Grouped,
		"ungrouped", partition.Result.Ungrouped,
	)
	return partition, nil
}

// FormGroups runs the batch pass for one trip. Failures are reported in
// the result rather than returned, so a batch can move on to the next trip.
func (c *Coordinator) FormGroups(ctx context.Context, trip *models.Trip) models.TripResult {
	unlock := c.locks.Lock(trip.ID)
	defer unlock()

	var partition *Partition
	err := c.store.UpdateTrip(ctx, trip.ID, func(tx storage.TripTx) error {
		p, err := formBatch(ctx, tx, c.limits)
		if err != nil {
			return err
		}
		partition = p
		return nil
	})
	if err != nil {
		c.logger.Error("Batch grouping failed", "trip_id", trip.ID, "error", err)
		return models.TripResult{
			TripID:   trip.ID,
			Failures: map[models.FailureReason]int{models.FailurePersistence: 1},
			Error:    err.Error(),
		}
	}

	c.logFailures("Batch grouping", partition.Result)
	return partition.Result
}

func (c *Coordinator) logFailures(what string, r models.TripResult) {
	for reason, n := range r.Failures {
		level := slog.LevelInfo
		if reason == models.FailureOverflow {
			level = slog.LevelError
		}
		c.logger.Log(context.Background(), level, what+" left riders ungrouped",
			"trip_id", r.TripID,
			"reason", reason,
			"buckets", n,
		)
	}
}
