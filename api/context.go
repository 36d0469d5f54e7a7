package api

import (
	"context"
	"log/slog"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/authtoken"
)

type ctxKey int

const (
	ctxLoggerKey ctxKey = iota
	ctxClaimsKey
)

func ctxWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey, logger)
}

// getLoggerFromCtx falls back to the API logger for contexts that did not go
// through the router, as in handler unit tests.
func (a *API) getLoggerFromCtx(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxLoggerKey).(*slog.Logger); ok {
		return logger
	}
	return a.logger
}

func ctxWithClaims(ctx context.Context, claims authtoken.Claims) context.Context {
	return context.WithValue(ctx, ctxClaimsKey, claims)
}

// getClaimsFromCtx must only be called behind authMiddleware.
func getClaimsFromCtx(ctx context.Context) authtoken.Claims {
	return ctx.Value(ctxClaimsKey).(authtoken.Claims)
}
