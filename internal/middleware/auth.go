package middleware

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitpass/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// SubjectKey is the context key for storing the authenticated subject.
	SubjectKey contextKey = "subject"
	// RoleKey is the context key for storing the authenticated role.
	RoleKey contextKey = "role"
)

// GetSubject extracts the caller's subject from the context.
// Returns empty string if not found.
func GetSubject(ctx context.Context) string {
	subject, _ := ctx.Value(SubjectKey).(string)
	return subject
}

// GetRole extracts the caller's role from the context.
// Returns empty string if not found.
func GetRole(ctx context.Context) string {
	role, _ := ctx.Value(RoleKey).(string)
	return role
}

func withPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	ctx = context.WithValue(ctx, SubjectKey, p.Subject)
	return context.WithValue(ctx, RoleKey, p.Role)
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// RequireAuth returns a middleware that validates JWT tokens and requires authentication.
// It extracts the token from the Authorization header, validates it, and adds
// the subject and role to the request context.
func RequireAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}

			tokenString, ok := bearerToken(authHeader)
			if !ok {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}

			principal, err := jwtManager.Validate(tokenString)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(withPrincipal(ctx, principal), req)
		}
	}
}

// RequireRole rejects callers whose role does not allow role. It must run
// after RequireAuth.
func RequireRole(role string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			p := auth.Principal{Subject: GetSubject(ctx), Role: GetRole(ctx)}
			if p.Subject == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}
			if !p.Allows(role) {
				return nil, connect.NewError(connect.CodePermissionDenied,
					fmt.Errorf("%s role required", role))
			}
			return next(ctx, req)
		}
	}
}

// OptionalAuth returns a middleware that validates JWT tokens if present, but allows
// requests without authentication. Useful for public endpoints where the
// caller is still worth logging.
func OptionalAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if tokenString, ok := bearerToken(req.Header().Get("Authorization")); ok {
				// Invalid tokens are ignored on optional routes.
				if principal, err := jwtManager.Validate(tokenString); err == nil {
					ctx = withPrincipal(ctx, principal)
				}
			}

			return next(ctx, req)
		}
	}
}
