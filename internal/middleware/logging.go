package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call
// with its procedure, subject and duration. Place it after the auth
// interceptors so the subject is known.
func LoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []any{
				"procedure", req.Spec().Procedure,
				"subject", GetSubject(ctx),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if err == nil {
				logger.Info("RPC ok", attrs...)
				return resp, nil
			}

			code := connect.CodeOf(err)
			attrs = append(attrs, "code", code)
			var connectErr *connect.Error
			if errors.As(err, &connectErr) {
				attrs = append(attrs, "error", connectErr.Message())
			} else {
				attrs = append(attrs, "error", err)
			}

			if callerFault(code) {
				logger.Warn("RPC error", attrs...)
			} else {
				logger.Error("RPC error", attrs...)
			}
			return resp, err
		}
	}
}

func callerFault(code connect.Code) bool {
	switch code {
	case connect.CodeInvalidArgument, connect.CodeNotFound, connect.CodeAlreadyExists,
		connect.CodeFailedPrecondition, connect.CodeUnauthenticated, connect.CodePermissionDenied:
		return true
	}
	return false
}
