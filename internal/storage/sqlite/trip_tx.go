package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitpass/internal/models"
	"github.com/mmynk/splitpass/internal/storage"
)

var _ storage.TripTx = (*tripTx)(nil)

// tripTx implements storage.TripTx on top of an open transaction.
type tripTx struct {
	tx   *sql.Tx
	trip *models.Trip
}

func (t *tripTx) Trip() *models.Trip {
	return t.trip
}

func (t *tripTx) Roster(ctx context.Context) ([]*models.Participant, error) {
	return queryParticipants(ctx, t.tx, "WHERE trip_id = ? AND left_at IS NULL", t.trip.ID)
}

func (t *tripTx) Eligible(ctx context.Context) ([]*models.Participant, error) {
	return queryParticipants(ctx, t.tx,
		"WHERE trip_id = ? AND left_at IS NULL AND checked_in = 1 AND group_id IS NULL",
		t.trip.ID,
	)
}

func (t *tripTx) Groups(ctx context.Context) ([]*models.Group, error) {
	return queryGroups(ctx, t.tx, t.trip.ID)
}

// AddParticipant inserts a rider, or reactivates the rider's earlier record.
func (t *tripTx) AddParticipant(ctx context.Context, p *models.Participant) error {
	p.TripID = t.trip.ID
	if p.JoinedAt == 0 {
		p.JoinedAt = time.Now().UnixNano()
	}

	legs, err := json.Marshal(p.Legs)
	if err != nil {
		return fmt.Errorf("failed to encode legs: %w", err)
	}

	var existingID string
	var leftAt sql.NullInt64
	var joinedAt int64
	err = t.tx.QueryRowContext(ctx,
		"SELECT id, joined_at, left_at FROM participants WHERE trip_id = ? AND rider_id = ?",
		t.trip.ID, p.RiderID,
	).Scan(&existingID, &joinedAt, &leftAt)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO participants (id, trip_id, rider_id, legs, willing_steward, checked_in, joined_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.TripID, p.RiderID, string(legs), p.WillingSteward, p.CheckedIn, p.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
		return nil

	case err != nil:
		return fmt.Errorf("failed to look up participant: %w", err)
	}

	p.ID = existingID
	if !leftAt.Valid {
		// Already on the roster: refresh what the rider told us, keep the
		// join time so the roster order does not change.
		p.JoinedAt = joinedAt
	}
	_, err = t.tx.ExecContext(ctx, `
		UPDATE participants
		SET legs = ?, willing_steward = ?, checked_in = ?, joined_at = ?, left_at = NULL
		WHERE id = ?`,
		string(legs), p.WillingSteward, p.CheckedIn, p.JoinedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}

	return nil
}

func (t *tripTx) RemoveParticipant(ctx context.Context, participantID string) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE participants
		SET left_at = ?, group_id = NULL, group_position = NULL
		WHERE id = ? AND trip_id = ? AND left_at IS NULL`,
		time.Now().Unix(), participantID, t.trip.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	return expectOne(res, "participant "+participantID)
}

func (t *tripTx) CheckIn(ctx context.Context, participantID string) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE participants SET checked_in = 1 WHERE id = ? AND trip_id = ? AND left_at IS NULL",
		participantID, t.trip.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to check in participant: %w", err)
	}
	return expectOne(res, "participant "+participantID)
}

// ReplacePartition clears every group reference on the trip, drops the
// old groups and writes the new ones, all inside the trip transaction.
func (t *tripTx) ReplacePartition(ctx context.Context, groups []*models.Group) error {
	if _, err := t.tx.ExecContext(ctx,
		"UPDATE participants SET group_id = NULL, group_position = NULL WHERE trip_id = ?",
		t.trip.ID,
	); err != nil {
		return fmt.Errorf("failed to clear group references: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM pass_groups WHERE trip_id = ?", t.trip.ID); err != nil {
		return fmt.Errorf("failed to delete groups: %w", err)
	}

	now := time.Now().Unix()
	for _, g := range groups {
		if !g.HasMember(g.StewardID) {
			return fmt.Errorf("group %d: steward %q is not a member", g.Number, g.StewardID)
		}
		if g.ID == "" {
			g.ID = uuid.New().String()
		}
		if g.CreatedAt == 0 {
			g.CreatedAt = now
		}
		if g.Status == "" {
			g.Status = models.GroupStatusForming
		}
		g.TripID = t.trip.ID

		_, err := t.tx.ExecContext(ctx,
			"INSERT INTO pass_groups (id, trip_id, number, steward_id, status, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			g.ID, g.TripID, g.Number, g.StewardID, string(g.Status), g.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group %d: %w", g.Number, err)
		}

		for pos, member := range g.Members {
			res, err := t.tx.ExecContext(ctx, `
				UPDATE participants SET group_id = ?, group_position = ?
				WHERE id = ? AND trip_id = ? AND left_at IS NULL AND group_id IS NULL`,
				g.ID, pos, member, t.trip.ID,
			)
			if err != nil {
				return fmt.Errorf("failed to assign participant to group %d: %w", g.Number, err)
			}
			if err := expectOne(res, "active ungrouped participant "+member); err != nil {
				return err
			}
		}
	}

	return nil
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return nil
}

func queryParticipants(ctx context.Context, q queryer, where string, args ...any) ([]*models.Participant, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, trip_id, rider_id, legs, willing_steward, checked_in, group_id, joined_at, left_at
		FROM participants `+where+`
		ORDER BY joined_at, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		p := &models.Participant{}
		var legs string
		var groupID sql.NullString
		var leftAt sql.NullInt64
		if err := rows.Scan(&p.ID, &p.TripID, &p.RiderID, &legs, &p.WillingSteward, &p.CheckedIn,
			&groupID, &p.JoinedAt, &leftAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		if err := json.Unmarshal([]byte(legs), &p.Legs); err != nil {
			return nil, fmt.Errorf("failed to decode legs of %s: %w", p.ID, err)
		}
		p.GroupID = groupID.String
		p.LeftAt = leftAt.Int64
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return participants, nil
}

func queryGroups(ctx context.Context, q queryer, tripID string) ([]*models.Group, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, trip_id, number, steward_id, status, created_at FROM pass_groups WHERE trip_id = ? ORDER BY number",
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	byID := make(map[string]*models.Group)
	for rows.Next() {
		g := &models.Group{}
		var status string
		if err := rows.Scan(&g.ID, &g.TripID, &g.Number, &g.StewardID, &status, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		g.Status = models.GroupStatus(status)
		groups = append(groups, g)
		byID[g.ID] = g
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	rows.Close()

	memberRows, err := q.QueryContext(ctx,
		"SELECT id, group_id FROM participants WHERE trip_id = ? AND group_id IS NOT NULL ORDER BY group_position",
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var participantID, groupID string
		if err := memberRows.Scan(&participantID, &groupID); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		if g, ok := byID[groupID]; ok {
			g.Members = append(g.Members, participantID)
		}
	}
	if err := memberRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}

	return groups, nil
}
