package api

const (
	GroupingServiceName = "splitpass.v1.GroupingService"
	AuthServiceName     = "splitpass.v1.AuthService"
)

// Procedure paths, as Connect routes them.
const (
	CreateTripProcedure         = "/" + GroupingServiceName + "/CreateTrip"
	JoinTripProcedure           = "/" + GroupingServiceName + "/JoinTrip"
	LeaveTripProcedure          = "/" + GroupingServiceName + "/LeaveTrip"
	CheckInProcedure            = "/" + GroupingServiceName + "/CheckIn"
	GetTripGroupsProcedure      = "/" + GroupingServiceName + "/GetTripGroups"
	RunBatchProcedure           = "/" + GroupingServiceName + "/RunBatch"
	GetSchedulerStatusProcedure = "/" + GroupingServiceName + "/GetSchedulerStatus"
	ListRunsProcedure           = "/" + GroupingServiceName + "/ListRuns"

	LoginProcedure      = "/" + AuthServiceName + "/Login"
	IssueTokenProcedure = "/" + AuthServiceName + "/IssueToken"
)
