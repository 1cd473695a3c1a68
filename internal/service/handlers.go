package service

import (
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitpass/internal/auth"
	"github.com/mmynk/splitpass/internal/middleware"
	"github.com/mmynk/splitpass/pkg/api"
)

// access is the interceptor chain for one class of procedure.
type access struct {
	public       connect.HandlerOption
	collaborator connect.HandlerOption
	admin        connect.HandlerOption
}

func newAccess(jwtManager *auth.JWTManager, logger *slog.Logger) access {
	logging := middleware.LoggingInterceptor(logger)
	return access{
		public: connect.WithInterceptors(
			middleware.OptionalAuth(jwtManager),
			logging,
		),
		collaborator: connect.WithInterceptors(
			middleware.RequireAuth(jwtManager),
			middleware.RequireRole(auth.RoleCollaborator),
			logging,
		),
		admin: connect.WithInterceptors(
			middleware.RequireAuth(jwtManager),
			middleware.RequireRole(auth.RoleAdmin),
			logging,
		),
	}
}

// NewGroupingServiceHandler builds an http.Handler serving every
// GroupingService procedure and returns the path to mount it on.
func NewGroupingServiceHandler(svc *GroupingService, jwtManager *auth.JWTManager, logger *slog.Logger) (string, http.Handler) {
	a := newAccess(jwtManager, logger)
	codec := api.WithCodec()

	mux := http.NewServeMux()
	mux.Handle(api.CreateTripProcedure, connect.NewUnaryHandler(api.CreateTripProcedure, svc.CreateTrip, codec, a.collaborator))
	mux.Handle(api.JoinTripProcedure, connect.NewUnaryHandler(api.JoinTripProcedure, svc.JoinTrip, codec, a.collaborator))
	mux.Handle(api.LeaveTripProcedure, connect.NewUnaryHandler(api.LeaveTripProcedure, svc.LeaveTrip, codec, a.collaborator))
	mux.Handle(api.CheckInProcedure, connect.NewUnaryHandler(api.CheckInProcedure, svc.CheckIn, codec, a.collaborator))
	mux.Handle(api.GetTripGroupsProcedure, connect.NewUnaryHandler(api.GetTripGroupsProcedure, svc.GetTripGroups, codec, a.collaborator))
	mux.Handle(api.RunBatchProcedure, connect.NewUnaryHandler(api.RunBatchProcedure, svc.RunBatch, codec, a.admin))
	mux.Handle(api.ListRunsProcedure, connect.NewUnaryHandler(api.ListRunsProcedure, svc.ListRuns, codec, a.admin))
	mux.Handle(api.GetSchedulerStatusProcedure, connect.NewUnaryHandler(api.GetSchedulerStatusProcedure, svc.GetSchedulerStatus, codec, a.public))

	return "/" + api.GroupingServiceName + "/", mux
}

// NewAuthServiceHandler builds an http.Handler serving AuthService and
// returns the path to mount it on.
func NewAuthServiceHandler(svc *AuthService, jwtManager *auth.JWTManager, logger *slog.Logger) (string, http.Handler) {
	a := newAccess(jwtManager, logger)
	codec := api.WithCodec()

	mux := http.NewServeMux()
	mux.Handle(api.LoginProcedure, connect.NewUnaryHandler(api.LoginProcedure, svc.Login, codec, a.public))
	mux.Handle(api.IssueTokenProcedure, connect.NewUnaryHandler(api.IssueTokenProcedure, svc.IssueToken, codec, a.admin))

	return "/" + api.AuthServiceName + "/", mux
}
