package models

// Participant is one rider's candidate-for-grouping record on a trip.
type Participant struct {
	// ID is the unique identifier for the participant (UUID format).
	ID string

	// TripID is the trip this participant joined.
	TripID string

	// RiderID identifies the person behind the record.
	RiderID string

	// Legs is the ordered sequence of leg identifiers the rider is
	// committed to. Empty when the parent booking could not be resolved.
	Legs []string

	// WillingSteward reports whether the rider volunteers to buy the pass.
	WillingSteward bool

	// CheckedIn is set once the rider confirms they are traveling.
	// Only checked-in riders are eligible for batch grouping.
	CheckedIn bool

	// GroupID is the group the participant currently belongs to, or empty.
	GroupID string

	// JoinedAt is the Unix timestamp (nanoseconds) when the rider joined.
	// It orders rosters deterministically.
	JoinedAt int64

	// LeftAt is the Unix timestamp when the rider left, or zero.
	LeftAt int64
}

// Active reports whether the participant is still on the trip roster.
func (p *Participant) Active() bool {
	return p.LeftAt == 0
}

// Grouped reports whether the participant has a group reference.
func (p *Participant) Grouped() bool {
	return p.GroupID != ""
}
