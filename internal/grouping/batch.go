package grouping

import (
	"context"
	"fmt"

	"github.com/mmynk/splitpass/internal/calculator"
	"github.com/mmynk/splitpass/internal/itinerary"
	"github.com/mmynk/splitpass/internal/models"
	"github.com/mmynk/splitpass/internal/storage"
)

// formBatch packs the trip's eligible riders into new groups numbered
// after the existing ones and writes existing plus new groups back as one
// partition. Existing groups are kept as they are.
func formBatch(ctx context.Context, tx storage.TripTx, limits calculator.Limits) (*Partition, error) {
	trip := tx.Trip()

	existing, err := tx.Groups(ctx)
	if err != nil {
		return nil, err
	}
	eligible, err := tx.Eligible(ctx)
	if err != nil {
		return nil, err
	}

	buckets := itinerary.Partition(eligible, trip.LegID)
	planned, result := packBuckets(trip.ID, buckets, limits, nil)

	next := 1
	for _, g := range existing {
		next = max(next, g.Number+1)
	}

	formed := make([]*models.Group, len(planned))
	for i, pg := range planned {
		formed[i] = toGroup(pg)
		formed[i].Number = next
		next++
	}

	if len(formed) > 0 {
		all := append(append([]*models.Group{}, existing...), formed...)
		if err := tx.ReplacePartition(ctx, all); err != nil {
			return nil, fmt.Errorf("%w: trip %s: %w", ErrPersistence, trip.ID, err)
		}
	}

	return &Partition{Groups: formed, Result: result}, nil
}
