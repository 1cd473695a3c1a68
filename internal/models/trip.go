package models

// Trip represents one scheduled train leg that riders join.
type Trip struct {
	// ID is the unique identifier for the trip (UUID format).
	ID string

	// LegID identifies the train leg this trip runs. It doubles as the
	// itinerary fallback for riders whose full itinerary is unknown.
	LegID string

	// Name is a display label (e.g., "RE1 Berlin → Potsdam 08:12").
	Name string

	// ServiceDate is the operating day in YYYY-MM-DD form.
	ServiceDate string

	// DepartsAt is the Unix timestamp of the scheduled departure.
	DepartsAt int64

	// CreatedAt is the Unix timestamp when the trip was created.
	CreatedAt int64
}
