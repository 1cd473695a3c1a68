package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitpass/internal/auth"
	"github.com/mmynk/splitpass/internal/middleware"
	"github.com/mmynk/splitpass/pkg/api"
)

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		logger:        logger,
	}
}

// Login authenticates an operator and returns an admin token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	s.logger.Info("Login request", "username", req.Msg.Username)

	if req.Msg.Username == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	principal, err := s.authenticator.Authenticate(ctx, req.Msg.Username, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Login failed", "username", req.Msg.Username, "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	token, expires, err := s.jwtManager.Generate(*principal)
	if err != nil {
		s.logger.Error("Failed to generate token", "subject", principal.Subject, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Logged in", "subject", principal.Subject, "role", principal.Role)
	return connect.NewResponse(&api.LoginResponse{Token: token, ExpiresAt: expires.Unix()}), nil
}

// IssueToken mints a collaborator token for another service. Admin only.
func (s *AuthService) IssueToken(ctx context.Context, req *connect.Request[api.IssueTokenRequest]) (*connect.Response[api.IssueTokenResponse], error) {
	if req.Msg.Subject == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("subject is required"))
	}

	token, expires, err := s.jwtManager.Generate(auth.Principal{Subject: req.Msg.Subject, Role: auth.RoleCollaborator})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Collaborator token issued",
		"subject", req.Msg.Subject,
		"issued_by", middleware.GetSubject(ctx),
	)
	return connect.NewResponse(&api.IssueTokenResponse{Token: token, ExpiresAt: expires.Unix()}), nil
}
