package grouping

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitpass/internal/models"
)

// Aggregator accumulates per-trip outcomes into one RunResult.
// It is not safe for concurrent use.
type Aggregator struct {
	mode       models.RunMode
	startedAt  time.Time
	skipped    bool
	skipReason string

	groups    int
	grouped   int
	ungrouped int
	failures  map[models.FailureReason]int
	trips     []models.TripResult
}

// NewAggregator starts a run of the given mode at startedAt.
func NewAggregator(mode models.RunMode, startedAt time.Time) *Aggregator {
	return &Aggregator{
		mode:      mode,
		startedAt: startedAt,
		failures:  make(map[models.FailureReason]int),
	}
}

// Add folds one trip's outcome into the run.
func (a *Aggregator) Add(r models.TripResult) {
	a.groups += r.Groups
	a.grouped += r.Grouped
	a.ungrouped += r.Ungrouped
	for reason, n := range r.Failures {
		a.failures[reason] += n
	}
	r.Failures = maps.Clone(r.Failures)
	a.trips = append(a.trips, r)
}

// Skip marks the run as not executed.
func (a *Aggregator) Skip(reason string) {
	a.skipped = true
	a.skipReason = reason
}

// Result returns the run's record. Later calls to Add do not change
// a result already returned.
func (a *Aggregator) Result(finishedAt time.Time) models.RunResult {
	return models.RunResult{
		ID:             uuid.New().String(),
		Mode:           a.mode,
		StartedAt:      a.startedAt,
		FinishedAt:     finishedAt,
		Skipped:        a.skipped,
		SkipReason:     a.skipReason,
		TotalGroups:    a.groups,
		TotalGrouped:   a.grouped,
		TotalUngrouped: a.ungrouped,
		Failures:       maps.Clone(a.failures),
		Trips:          slices.Clone(a.trips),
	}
}
