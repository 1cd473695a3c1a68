package models

import "time"

// RunMode identifies what triggered a grouping run.
type RunMode string

const (
	RunModeBatch    RunMode = "batch"
	RunModeManual   RunMode = "manual"
	RunModeReactive RunMode = "reactive"
)

// FailureReason classifies why riders were left ungrouped.
type FailureReason string

const (
	FailureTooSmall    FailureReason = "too_small"
	FailureNoSteward   FailureReason = "no_steward"
	FailureInfeasible  FailureReason = "infeasible"
	FailureOverflow    FailureReason = "overflow"
	FailurePersistence FailureReason = "persistence"
)

// TripResult is the outcome of grouping one trip.
type TripResult struct {
	TripID    string
	Groups    int
	Grouped   int
	Ungrouped int

	// Failures counts failed itinerary buckets by reason.
	Failures map[FailureReason]int

	// Error holds the message of a trip-level failure, if any.
	Error string
}

// RunResult is the aggregate outcome of one tick or rebalance.
// It is built once by an aggregator and never modified afterwards.
type RunResult struct {
	ID         string
	Mode       RunMode
	StartedAt  time.Time
	FinishedAt time.Time

	// Skipped is set when the run did not execute, e.g. because the
	// batch lock was held by another instance.
	Skipped    bool
	SkipReason string

	TotalGroups    int
	TotalGrouped   int
	TotalUngrouped int
	Failures       map[FailureReason]int

	Trips []TripResult
}
