package api

// Trip is one scheduled train leg.
type Trip struct {
	ID          string `json:"id"`
	LegID       string `json:"leg_id"`
	Name        string `json:"name"`
	ServiceDate string `json:"service_date"`
	DepartsAt   int64  `json:"departs_at"`
	CreatedAt   int64  `json:"created_at"`
}

// Participant is a rider on a trip roster.
type Participant struct {
	ID             string   `json:"id"`
	RiderID        string   `json:"rider_id"`
	Legs           []string `json:"legs,omitempty"`
	WillingSteward bool     `json:"willing_steward"`
	CheckedIn      bool     `json:"checked_in"`
	GroupID        string   `json:"group_id,omitempty"`
}

// Member is a participant as seen from its group.
type Member struct {
	ParticipantID string `json:"participant_id"`
	RiderID       string `json:"rider_id"`
	Steward       bool   `json:"steward"`

	// ShareCents is the member's part of the pass price. Zero when no
	// price is configured.
	ShareCents int64 `json:"share_cents"`
}

// Group is one pass-sharing group.
type Group struct {
	ID        string   `json:"id"`
	Number    int      `json:"number"`
	StewardID string   `json:"steward_id"`
	Status    string   `json:"status"`
	Members   []Member `json:"members"`
	CreatedAt int64    `json:"created_at"`
}

// TripResult is the grouping outcome for one trip.
type TripResult struct {
	TripID    string         `json:"trip_id"`
	Groups    int            `json:"groups"`
	Grouped   int            `json:"grouped"`
	Ungrouped int            `json:"ungrouped"`
	Failures  map[string]int `json:"failures,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// RunResult is the outcome of a batch or manual run.
type RunResult struct {
	ID             string         `json:"id"`
	Mode           string         `json:"mode"`
	StartedAt      int64          `json:"started_at"`
	FinishedAt     int64          `json:"finished_at"`
	Skipped        bool           `json:"skipped"`
	SkipReason     string         `json:"skip_reason,omitempty"`
	TotalGroups    int            `json:"total_groups"`
	TotalGrouped   int            `json:"total_grouped"`
	TotalUngrouped int            `json:"total_ungrouped"`
	Failures       map[string]int `json:"failures,omitempty"`
	Trips          []TripResult   `json:"trips,omitempty"`
}

type CreateTripRequest struct {
	LegID       string `json:"leg_id"`
	Name        string `json:"name"`
	ServiceDate string `json:"service_date"`
	DepartsAt   int64  `json:"departs_at"`
}

type CreateTripResponse struct {
	Trip Trip `json:"trip"`
}

type JoinTripRequest struct {
	TripID         string   `json:"trip_id"`
	RiderID        string   `json:"rider_id"`
	Legs           []string `json:"legs,omitempty"`
	WillingSteward bool     `json:"willing_steward"`
	CheckedIn      bool     `json:"checked_in"`
}

type JoinTripResponse struct {
	Participant Participant `json:"participant"`
	Groups      []Group     `json:"groups"`
	Result      TripResult  `json:"result"`
}

type LeaveTripRequest struct {
	TripID        string `json:"trip_id"`
	ParticipantID string `json:"participant_id"`
}

type LeaveTripResponse struct {
	Groups []Group    `json:"groups"`
	Result TripResult `json:"result"`
}

type CheckInRequest struct {
	TripID        string `json:"trip_id"`
	ParticipantID string `json:"participant_id"`
}

type CheckInResponse struct{}

type GetTripGroupsRequest struct {
	TripID string `json:"trip_id"`
}

type GetTripGroupsResponse struct {
	Trip      Trip          `json:"trip"`
	Groups    []Group       `json:"groups"`
	Ungrouped []Participant `json:"ungrouped"`
}

type RunBatchRequest struct{}

type RunBatchResponse struct {
	Run RunResult `json:"run"`
}

type GetSchedulerStatusRequest struct{}

type GetSchedulerStatusResponse struct {
	Enabled       bool       `json:"enabled"`
	Schedule      string     `json:"schedule"`
	WindowMinutes int        `json:"window_minutes"`
	MinSize       int        `json:"min_size"`
	MaxSize       int        `json:"max_size"`
	Running       bool       `json:"running"`
	LastRun       *RunResult `json:"last_run,omitempty"`
}

type ListRunsRequest struct {
	Limit int `json:"limit"`
}

type ListRunsResponse struct {
	Runs []RunResult `json:"runs"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// IssueTokenRequest asks for a collaborator token, e.g. for the service
// that forwards rider joins and leaves.
type IssueTokenRequest struct {
	Subject string `json:"subject"`
}

type IssueTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}
