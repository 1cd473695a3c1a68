package api

import (
	"context"

	"connectrpc.com/connect"
)

// GroupingClient calls GroupingService.
type GroupingClient struct {
	createTrip         *connect.Client[CreateTripRequest, CreateTripResponse]
	joinTrip           *connect.Client[JoinTripRequest, JoinTripResponse]
	leaveTrip          *connect.Client[LeaveTripRequest, LeaveTripResponse]
	checkIn            *connect.Client[CheckInRequest, CheckInResponse]
	getTripGroups      *connect.Client[GetTripGroupsRequest, GetTripGroupsResponse]
	runBatch           *connect.Client[RunBatchRequest, RunBatchResponse]
	getSchedulerStatus *connect.Client[GetSchedulerStatusRequest, GetSchedulerStatusResponse]
	listRuns           *connect.Client[ListRunsRequest, ListRunsResponse]
}

// NewGroupingClient constructs a client for the GroupingService at baseURL.
func NewGroupingClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupingClient {
	opts = append([]connect.ClientOption{WithCodec()}, opts...)
	return &GroupingClient{
		createTrip:         connect.NewClient[CreateTripRequest, CreateTripResponse](httpClient, baseURL+CreateTripProcedure, opts...),
		joinTrip:           connect.NewClient[JoinTripRequest, JoinTripResponse](httpClient, baseURL+JoinTripProcedure, opts...),
		leaveTrip:          connect.NewClient[LeaveTripRequest, LeaveTripResponse](httpClient, baseURL+LeaveTripProcedure, opts...),
		checkIn:            connect.NewClient[CheckInRequest, CheckInResponse](httpClient, baseURL+CheckInProcedure, opts...),
		getTripGroups:      connect.NewClient[GetTripGroupsRequest, GetTripGroupsResponse](httpClient, baseURL+GetTripGroupsProcedure, opts...),
		runBatch:           connect.NewClient[RunBatchRequest, RunBatchResponse](httpClient, baseURL+RunBatchProcedure, opts...),
		getSchedulerStatus: connect.NewClient[GetSchedulerStatusRequest, GetSchedulerStatusResponse](httpClient, baseURL+GetSchedulerStatusProcedure, opts...),
		listRuns:           connect.NewClient[ListRunsRequest, ListRunsResponse](httpClient, baseURL+ListRunsProcedure, opts...),
	}
}

func (c *GroupingClient) CreateTrip(ctx context.Context, req *connect.Request[CreateTripRequest]) (*connect.Response[CreateTripResponse], error) {
	return c.createTrip.CallUnary(ctx, req)
}

func (c *GroupingClient) JoinTrip(ctx context.Context, req *connect.Request[JoinTripRequest]) (*connect.Response[JoinTripResponse], error) {
	return c.joinTrip.CallUnary(ctx, req)
}

func (c *GroupingClient) LeaveTrip(ctx context.Context, req *connect.Request[LeaveTripRequest]) (*connect.Response[LeaveTripResponse], error) {
	return c.leaveTrip.CallUnary(ctx, req)
}

func (c *GroupingClient) CheckIn(ctx context.Context, req *connect.Request[CheckInRequest]) (*connect.Response[CheckInResponse], error) {
	return c.checkIn.CallUnary(ctx, req)
}

func (c *GroupingClient) GetTripGroups(ctx context.Context, req *connect.Request[GetTripGroupsRequest]) (*connect.Response[GetTripGroupsResponse], error) {
	return c.getTripGroups.CallUnary(ctx, req)
}

func (c *GroupingClient) RunBatch(ctx context.Context, req *connect.Request[RunBatchRequest]) (*connect.Response[RunBatchResponse], error) {
	return c.runBatch.CallUnary(ctx, req)
}

func (c *GroupingClient) GetSchedulerStatus(ctx context.Context, req *connect.Request[GetSchedulerStatusRequest]) (*connect.Response[GetSchedulerStatusResponse], error) {
	return c.getSchedulerStatus.CallUnary(ctx, req)
}

func (c *GroupingClient) ListRuns(ctx context.Context, req *connect.Request[ListRunsRequest]) (*connect.Response[ListRunsResponse], error) {
	return c.listRuns.CallUnary(ctx, req)
}

// AuthClient calls AuthService.
type AuthClient struct {
	login      *connect.Client[LoginRequest, LoginResponse]
	issueToken *connect.Client[IssueTokenRequest, IssueTokenResponse]
}

// NewAuthClient constructs a client for the AuthService at baseURL.
func NewAuthClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthClient {
	opts = append([]connect.ClientOption{WithCodec()}, opts...)
	return &AuthClient{
		login:      connect.NewClient[LoginRequest, LoginResponse](httpClient, baseURL+LoginProcedure, opts...),
		issueToken: connect.NewClient[IssueTokenRequest, IssueTokenResponse](httpClient, baseURL+IssueTokenProcedure, opts...),
	}
}

func (c *AuthClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *AuthClient) IssueToken(ctx context.Context, req *connect.Request[IssueTokenRequest]) (*connect.Response[IssueTokenResponse], error) {
	return c.issueToken.CallUnary(ctx, req)
}
