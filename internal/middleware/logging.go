package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// Outcome is implemented by household responses that report whether the mutation
// was applied and how many notifications it raised.
type Outcome interface {
	Outcome() (applied bool, notifications int)
}

// LoggingInterceptor logs every RPC with its procedure, session subject and duration.
// Mutations rejected by validation are logged at warn level with their notification count.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []any{
				"procedure", req.Spec().Procedure,
				"subject", GetSubject(ctx), // empty when auth is disabled
				"duration_ms", time.Since(start).Milliseconds(),
			}
			var connectErr *connect.Error
			switch {
			case errors.As(err, &connectErr):
				slog.Warn("RPC failed", append(attrs, "code", connectErr.Code(), "error", connectErr.Message())...)
			case err != nil:
				slog.Error("RPC failed", append(attrs, "error", err)...)
			default:
				out, ok := resp.Any().(Outcome)
				if !ok {
					slog.Info("RPC served", attrs...)
					break
				}
				applied, notifications := out.Outcome()
				attrs = append(attrs, "applied", applied, "notifications", notifications)
				if applied {
					slog.Info("Household change applied", attrs...)
				} else {
					slog.Warn("Household change rejected", attrs...)
				}
			}
			return resp, err
		}
	}
}
