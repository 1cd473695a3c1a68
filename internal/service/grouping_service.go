package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitpass/internal/grouping"
	"github.com/mmynk/splitpass/internal/models"
	"github.com/mmynk/splitpass/internal/scheduler"
	"github.com/mmynk/splitpass/internal/storage"
	"github.com/mmynk/splitpass/pkg/api"
)

const defaultRunsLimit = 20

// BatchRunner runs batch ticks and reports scheduler state.
type BatchRunner interface {
	Tick(ctx context.Context, mode models.RunMode) (models.RunResult, error)
	Status() scheduler.Status
}

// GroupingService implements the Connect GroupingService.
type GroupingService struct {
	store       storage.Store
	coordinator *grouping.Coordinator
	batch       BatchRunner
	priceCents  int64
	logger      *slog.Logger
}

// NewGroupingService creates a GroupingService. priceCents is the pass
// price shown split across group members; zero hides shares.
func NewGroupingService(store storage.Store, coordinator *grouping.Coordinator, batch BatchRunner, priceCents int64, logger *slog.Logger) *GroupingService {
	return &GroupingService{
		store:       store,
		coordinator: coordinator,
		batch:       batch,
		priceCents:  priceCents,
		logger:      logger,
	}
}

// toConnectError maps storage and grouping errors onto RPC codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, grouping.ErrPersistence):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// CreateTrip registers a trip riders can join.
func (s *GroupingService) CreateTrip(ctx context.Context, req *connect.Request[api.CreateTripRequest]) (*connect.Response[api.CreateTripResponse], error) {
	s.logger.Info("CreateTrip request received",
		"leg_id", req.Msg.LegID,
		"departs_at", req.Msg.DepartsAt,
	)

	if req.Msg.LegID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("leg_id is required"))
	}
	if req.Msg.DepartsAt <= 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("departs_at is required"))
	}

	trip := &models.Trip{
		LegID:       req.Msg.LegID,
		Name:        req.Msg.Name,
		ServiceDate: req.Msg.ServiceDate,
		DepartsAt:   req.Msg.DepartsAt,
	}
	if err := s.store.CreateTrip(ctx, trip); err != nil {
		s.logger.Error("CreateTrip failed", "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Trip created", "trip_id", trip.ID)
	return connect.NewResponse(&api.CreateTripResponse{Trip: toAPITrip(trip)}), nil
}

// JoinTrip adds a rider to a trip and rebalances its groups.
func (s *GroupingService) JoinTrip(ctx context.Context, req *connect.Request[api.JoinTripRequest]) (*connect.Response[api.JoinTripResponse], error) {
	s.logger.Info("JoinTrip request received",
		"trip_id", req.Msg.TripID,
		"rider_id", req.Msg.RiderID,
		"legs", len(req.Msg.Legs),
		"willing_steward", req.Msg.WillingSteward,
	)

	if req.Msg.TripID == "" || req.Msg.RiderID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("trip_id and rider_id are required"))
	}

	p := &models.Participant{
		RiderID:        req.Msg.RiderID,
		Legs:           req.Msg.Legs,
		WillingSteward: req.Msg.WillingSteward,
		CheckedIn:      req.Msg.CheckedIn,
	}
	partition, err := s.coordinator.Join(ctx, req.Msg.TripID, p)
	if err != nil {
		return nil, toConnectError(err)
	}

	for _, g := range partition.Groups {
		if g.HasMember(p.ID) {
			p.GroupID = g.ID
			break
		}
	}

	groups, err := s.groupsWithRiders(ctx, req.Msg.TripID, partition.Groups)
	if err != nil {
		return nil, toConnectError(err)
	}

	s.logger.Info("Rider joined", "trip_id", req.Msg.TripID, "participant_id", p.ID, "group_id", p.GroupID)
	return connect.NewResponse(&api.JoinTripResponse{
		Participant: toAPIParticipant(p),
		Groups:      groups,
		Result:      toAPITripResult(partition.Result),
	}), nil
}

// LeaveTrip removes a participant and rebalances the trip's groups.
func (s *GroupingService) LeaveTrip(ctx context.Context, req *connect.Request[api.LeaveTripRequest]) (*connect.Response[api.LeaveTripResponse], error) {
	s.logger.Info("LeaveTrip request received",
		"trip_id", req.Msg.TripID,
		"participant_id", req.Msg.ParticipantID,
	)

	if req.Msg.TripID == "" || req.Msg.ParticipantID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("trip_id and participant_id are required"))
	}

	partition, err := s.coordinator.Leave(ctx, req.Msg.TripID, req.Msg.ParticipantID)
	if err != nil {
		return nil, toConnectError(err)
	}

	groups, err := s.groupsWithRiders(ctx, req.Msg.TripID, partition.Groups)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.LeaveTripResponse{
		Groups: groups,
		Result: toAPITripResult(partition.Result),
	}), nil
}

// CheckIn marks a participant as traveling so the batch pass considers it.
func (s *GroupingService) CheckIn(ctx context.Context, req *connect.Request[api.CheckInRequest]) (*connect.Response[api.CheckInResponse], error) {
	s.logger.Info("CheckIn request received",
		"trip_id", req.Msg.TripID,
		"participant_id", req.Msg.ParticipantID,
	)

	if req.Msg.TripID == "" || req.Msg.ParticipantID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("trip_id and participant_id are required"))
	}

	if err := s.coordinator.CheckIn(ctx, req.Msg.TripID, req.Msg.ParticipantID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.CheckInResponse{}), nil
}

// GetTripGroups returns a trip's groups and the riders not in any.
func (s *GroupingService) GetTripGroups(ctx context.Context, req *connect.Request[api.GetTripGroupsRequest]) (*connect.Response[api.GetTripGroupsResponse], error) {
	if req.Msg.TripID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("trip_id is required"))
	}

	trip, err := s.store.GetTrip(ctx, req.Msg.TripID)
	if err != nil {
		return nil, toConnectError(err)
	}
	groups, err := s.store.ListGroups(ctx, trip.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	participants, err := s.store.ListParticipants(ctx, trip.ID)
	if err != nil {
		return nil, toConnectError(err)
	}

	byID := make(map[string]*models.Participant, len(participants))
	ungrouped := []api.Participant{}
	for _, p := range participants {
		byID[p.ID] = p
		if p.Active() && !p.Grouped() {
			ungrouped = append(ungrouped, toAPIParticipant(p))
		}
	}

	s.logger.Info("GetTripGroups successful", "trip_id", trip.ID, "groups", len(groups), "ungrouped", len(ungrouped))
	return connect.NewResponse(&api.GetTripGroupsResponse{
		Trip:      toAPITrip(trip),
		Groups:    toAPIGroups(groups, byID, s.priceCents),
		Ungrouped: ungrouped,
	}), nil
}

// RunBatch runs one batch tick now. A skipped tick is a normal response.
func (s *GroupingService) RunBatch(ctx context.Context, req *connect.Request[api.RunBatchRequest]) (*connect.Response[api.RunBatchResponse], error) {
	s.logger.Info("RunBatch request received")

	result, err := s.batch.Tick(ctx, models.RunModeManual)
	if err != nil {
		s.logger.Error("RunBatch failed", "error", err)
		return nil, connect.NewError(connect.CodeUnavailable, fmt.Errorf("batch run failed: %w", err))
	}

	return connect.NewResponse(&api.RunBatchResponse{Run: toAPIRunResult(&result)}), nil
}

// GetSchedulerStatus reports the scheduler configuration and last run.
func (s *GroupingService) GetSchedulerStatus(ctx context.Context, req *connect.Request[api.GetSchedulerStatusRequest]) (*connect.Response[api.GetSchedulerStatusResponse], error) {
	status := s.batch.Status()

	resp := &api.GetSchedulerStatusResponse{
		Enabled:       status.Enabled,
		Schedule:      status.Schedule,
		WindowMinutes: int(status.Window.Minutes()),
		MinSize:       status.Limits.Min,
		MaxSize:       status.Limits.Max,
		Running:       status.Running,
	}
	if status.LastRun != nil {
		last := toAPIRunResult(status.LastRun)
		resp.LastRun = &last
	}
	return connect.NewResponse(resp), nil
}

// ListRuns returns recent batch and manual runs, newest first.
func (s *GroupingService) ListRuns(ctx context.Context, req *connect.Request[api.ListRunsRequest]) (*connect.Response[api.ListRunsResponse], error) {
	limit := req.Msg.Limit
	if limit <= 0 {
		limit = defaultRunsLimit
	}

	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		s.logger.Error("ListRuns failed", "error", err)
		return nil, toConnectError(err)
	}

	out := make([]api.RunResult, len(runs))
	for i, r := range runs {
		out[i] = toAPIRunResult(r)
	}
	return connect.NewResponse(&api.ListRunsResponse{Runs: out}), nil
}

func (s *GroupingService) groupsWithRiders(ctx context.Context, tripID string, groups []*models.Group) ([]api.Group, error) {
	participants, err := s.store.ListParticipants(ctx, tripID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}
	return toAPIGroups(groups, byID, s.priceCents), nil
}
