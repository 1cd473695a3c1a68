package models

import "fmt"

// GroupStatus is the lifecycle stage of a group.
type GroupStatus string

const (
	GroupStatusForming   GroupStatus = "forming"
	GroupStatusFinalized GroupStatus = "finalized"
	GroupStatusDeparted  GroupStatus = "departed"
	GroupStatusCompleted GroupStatus = "completed"
)

// Next returns the status that follows s.
// Advancing past completed is an error.
func (s GroupStatus) Next() (GroupStatus, error) {
	switch s {
	case GroupStatusForming:
		return GroupStatusFinalized, nil
	case GroupStatusFinalized:
		return GroupStatusDeparted, nil
	case GroupStatusDeparted:
		return GroupStatusCompleted, nil
	default:
		return s, fmt.Errorf("group status %q has no successor", s)
	}
}

// Group represents the riders sharing one multi-rider pass.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// TripID is the trip this group travels on.
	TripID string

	// Number is the group's label within its trip, starting at 1.
	// Rebalances keep a steward's number when the steward stays.
	Number int

	// StewardID is the participant who buys the pass. Always in Members.
	StewardID string

	// Status is the lifecycle stage. Groups are created as forming.
	Status GroupStatus

	// Members are participant IDs in placement order.
	Members []string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// HasMember reports whether participantID belongs to the group.
func (g *Group) HasMember(participantID string) bool {
	for _, m := range g.Members {
		if m == participantID {
			return true
		}
	}
	return false
}
