// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitpass/internal/models"
)

// ErrNotFound is returned when a trip or participant does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for roster and group storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the grouping engine.
type Store interface {
	// CreateTrip persists a new trip. The trip.ID field is generated if empty.
	CreateTrip(ctx context.Context, trip *models.Trip) error

	// GetTrip retrieves a trip by its ID.
	// Returns an error wrapping ErrNotFound if the trip does not exist.
	GetTrip(ctx context.Context, tripID string) (*models.Trip, error)

	// ListDepartingTrips returns trips departing in [from, to] (Unix seconds)
	// that have at least one checked-in, ungrouped, active participant.
	ListDepartingTrips(ctx context.Context, from, to int64) ([]*models.Trip, error)

	// UpdateTrip runs fn inside one transaction scoped to a trip.
	// Transactions on the same trip are serialized. If fn returns an error
	// nothing fn wrote is kept.
	UpdateTrip(ctx context.Context, tripID string, fn func(tx TripTx) error) error

	// ListParticipants returns every participant of a trip, including
	// those who left, ordered by join time.
	ListParticipants(ctx context.Context, tripID string) ([]*models.Participant, error)

	// ListGroups returns the current groups of a trip ordered by number.
	ListGroups(ctx context.Context, tripID string) ([]*models.Group, error)

	// SaveRun records the outcome of a grouping run.
	SaveRun(ctx context.Context, run *models.RunResult) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*models.RunResult, error)

	// Close releases any resources held by the store.
	Close() error
}

// TripTx is a unit of work on one trip's roster and groups.
// All group membership changes go through ReplacePartition.
type TripTx interface {
	// Trip returns the trip the transaction is scoped to.
	Trip() *models.Trip

	// Roster returns the active participants ordered by join time, then ID.
	Roster(ctx context.Context) ([]*models.Participant, error)

	// Eligible returns active participants who are checked in and not in a
	// group, ordered like Roster.
	Eligible(ctx context.Context) ([]*models.Participant, error)

	// Groups returns the trip's current groups ordered by number.
	Groups(ctx context.Context) ([]*models.Group, error)

	// AddParticipant adds a rider to the roster. A rider who left and joins
	// again reuses the same participant record. p.ID is filled in.
	AddParticipant(ctx context.Context, p *models.Participant) error

	// RemoveParticipant marks a participant as left and clears its group.
	RemoveParticipant(ctx context.Context, participantID string) error

	// CheckIn marks an active participant as checked in.
	CheckIn(ctx context.Context, participantID string) error

	// ReplacePartition discards every group of the trip and stores groups
	// in their place. Participants not listed end up with no group.
	ReplacePartition(ctx context.Context, groups []*models.Group) error
}
