package grouping

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mmynk/splitpass/internal/calculator"
	"github.com/mmynk/splitpass/internal/itinerary"
	"github.com/mmynk/splitpass/internal/models"
	"github.com/mmynk/splitpass/internal/storage"
)

// ErrPersistence wraps failures to write a new partition.
var ErrPersistence = errors.New("failed to persist partition")

// Partition is a computed set of groups for one trip and its tally.
type Partition struct {
	Groups []*models.Group
	Result models.TripResult
}

// Rebalancer recomputes a trip's full partition on membership changes.
type Rebalancer struct {
	limits calculator.Limits
}

// NewRebalancer creates a Rebalancer packing groups within limits.
func NewRebalancer(limits calculator.Limits) *Rebalancer {
	return &Rebalancer{limits: limits}
}

// Plan partitions roster from scratch. previous maps the participant IDs
// of the current stewards to their group numbers; stewards still on the
// roster are reused and keep their number when they stay stewards.
// New groups are numbered after the highest previous number, so number
// order is steward seniority. Plan does no I/O.
func (r *Rebalancer) Plan(tripID, currentLeg string, roster []*models.Participant, previous map[string]int) *Partition {
	buckets := itinerary.Partition(roster, currentLeg)
	planned, result := packBuckets(tripID, buckets, r.limits, previous)

	groups := make([]*models.Group, len(planned))
	used := make(map[int]bool, len(planned))
	for i, pg := range planned {
		groups[i] = toGroup(pg)
		if n, ok := previous[pg.Steward.ID]; ok && n > 0 && !used[n] {
			groups[i].Number = n
			used[n] = true
		}
	}

	next := 1
	for _, n := range previous {
		next = max(next, n+1)
	}
	for _, g := range groups {
		if g.Number != 0 {
			continue
		}
		for used[next] {
			next++
		}
		g.Number = next
		used[next] = true
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Number < groups[j].Number })

	return &Partition{Groups: groups, Result: result}
}

// Rebalance re-partitions the trip inside tx. Stewards and numbers come
// from the groups currently stored. A group whose steward and number both
// survive keeps its status. If no valid partition exists, the trip ends
// with no groups at all.
func (r *Rebalancer) Rebalance(ctx context.Context, tx storage.TripTx) (*Partition, error) {
	trip := tx.Trip()

	roster, err := tx.Roster(ctx)
	if err != nil {
		return nil, err
	}
	current, err := tx.Groups(ctx)
	if err != nil {
		return nil, err
	}

	previous := make(map[string]int, len(current))
	statusByNumber := make(map[int]models.GroupStatus, len(current))
	for _, g := range current {
		previous[g.StewardID] = g.Number
		statusByNumber[g.Number] = g.Status
	}

	partition := r.Plan(trip.ID, trip.LegID, roster, previous)
	for _, g := range partition.Groups {
		if n, ok := previous[g.StewardID]; ok && n == g.Number {
			g.Status = statusByNumber[n]
		}
	}

	if err := tx.ReplacePartition(ctx, partition.Groups); err != nil {
		return nil, fmt.Errorf("%w: trip %s: %w", ErrPersistence, trip.ID, err)
	}

	return partition, nil
}

// packBuckets packs each bucket independently. A failed bucket leaves its
// riders ungrouped and is counted by reason; it never affects the others.
func packBuckets(tripID string, buckets []*itinerary.Bucket, limits calculator.Limits, preferred map[string]int) ([]calculator.PlannedGroup, models.TripResult) {
	result := models.TripResult{TripID: tripID, Failures: map[models.FailureReason]int{}}

	var planned []calculator.PlannedGroup
	for _, bucket := range buckets {
		plan, err := calculator.Pack(bucket, limits, preferred)
		if err != nil {
			result.Failures[FailureReason(err)]++
			result.Ungrouped += bucket.Size()
			continue
		}
		planned = append(planned, plan.Groups...)
		result.Groups += len(plan.Groups)
		result.Grouped += plan.Grouped()
		result.Ungrouped += len(plan.Ungrouped)
	}

	return planned, result
}

func toGroup(pg calculator.PlannedGroup) *models.Group {
	members := make([]string, len(pg.Members))
	for i, m := range pg.Members {
		members[i] = m.ID
	}
	return &models.Group{
		StewardID: pg.Steward.ID,
		Status:    models.GroupStatusForming,
		Members:   members,
	}
}

// FailureReason classifies an error from packing or persistence.
func FailureReason(err error) models.FailureReason {
	switch {
	case errors.Is(err, calculator.ErrTooSmall):
		return models.FailureTooSmall
	case errors.Is(err, calculator.ErrNoSteward):
		return models.FailureNoSteward
	case errors.Is(err, calculator.ErrInfeasible), errors.Is(err, calculator.ErrInvalidLimits):
		return models.FailureInfeasible
	case errors.Is(err, calculator.ErrOverflow):
		return models.FailureOverflow
	default:
		return models.FailurePersistence
	}
}
