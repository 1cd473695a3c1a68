// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/splitpass/internal/models"
	"github.com/mmynk/splitpass/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
//
// Transactions take the write lock when they begin (_txlock=immediate), so
// two trip transactions never interleave, even across processes sharing
// the file. Waiting writers back off for up to busy_timeout.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_txlock=immediate", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTrip persists a new trip to the database.
func (s *SQLiteStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}
	if trip.CreatedAt == 0 {
		trip.CreatedAt = time.Now().Unix()
	}
	if trip.Name == "" {
		trip.Name = fmt.Sprintf("%s %s", trip.LegID, time.Unix(trip.DepartsAt, 0).UTC().Format("2006-01-02 15:04"))
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO trips (id, leg_id, name, service_date, departs_at, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		trip.ID, trip.LegID, trip.Name, trip.ServiceDate, trip.DepartsAt, trip.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}

	return nil
}

// GetTrip retrieves a trip by ID.
func (s *SQLiteStore) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	return getTrip(ctx, s.db, tripID)
}

func getTrip(ctx context.Context, q queryer, tripID string) (*models.Trip, error) {
	trip := &models.Trip{}
	err := q.QueryRowContext(ctx,
		"SELECT id, leg_id, name, service_date, departs_at, created_at FROM trips WHERE id = ?",
		tripID,
	).Scan(&trip.ID, &trip.LegID, &trip.Name, &trip.ServiceDate, &trip.DepartsAt, &trip.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trip %s: %w", tripID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

// ListDepartingTrips returns trips departing in [from, to] with at least
// one participant waiting for a group.
func (s *SQLiteStore) ListDepartingTrips(ctx context.Context, from, to int64) ([]*models.Trip, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.leg_id, t.name, t.service_date, t.departs_at, t.created_at
		FROM trips t
		WHERE t.departs_at BETWEEN ? AND ?
		  AND EXISTS (
		      SELECT 1 FROM participants p
		      WHERE p.trip_id = t.id
		        AND p.checked_in = 1
		        AND p.group_id IS NULL
		        AND p.left_at IS NULL
		  )
		ORDER BY t.departs_at, t.id`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list departing trips: %w", err)
	}
	defer rows.Close()

	var trips []*models.Trip
	for rows.Next() {
		trip := &models.Trip{}
		if err := rows.Scan(&trip.ID, &trip.LegID, &trip.Name, &trip.ServiceDate, &trip.DepartsAt, &trip.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trips: %w", err)
	}

	return trips, nil
}

// UpdateTrip runs fn in a transaction scoped to tripID.
func (s *SQLiteStore) UpdateTrip(ctx context.Context, tripID string, fn func(tx storage.TripTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	trip, err := getTrip(ctx, tx, tripID)
	if err != nil {
		return err
	}

	if err := fn(&tripTx{tx: tx, trip: trip}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListParticipants returns every participant of a trip, including those who left.
func (s *SQLiteStore) ListParticipants(ctx context.Context, tripID string) ([]*models.Participant, error) {
	return queryParticipants(ctx, s.db, "WHERE trip_id = ?", tripID)
}

// ListGroups returns the current groups of a trip.
func (s *SQLiteStore) ListGroups(ctx context.Context, tripID string) ([]*models.Group, error) {
	return queryGroups(ctx, s.db, tripID)
}

// SaveRun stores a run result as JSON.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *models.RunResult) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO runs (id, mode, started_at, skipped, result) VALUES (?, ?, ?, ?, ?)",
		run.ID, string(run.Mode), run.StartedAt.UnixNano(), run.Skipped, string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// ListRuns returns up to limit runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*models.RunResult, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT result FROM runs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.RunResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run := &models.RunResult{}
		if err := json.Unmarshal([]byte(payload), run); err != nil {
			return nil, fmt.Errorf("failed to decode run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}
