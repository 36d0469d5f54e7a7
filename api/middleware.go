package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/roles"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	middleware "github.com/oapi-codegen/nethttp-middleware"
	"github.com/rs/cors"
)

type middlewareFunc func(next http.Handler) http.Handler

// requestLoggerMiddleware stores a logger tagged with the request id in the
// request context.
func (a *API) requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := a.logger.With(slog.String("request-id", chimiddleware.GetReqID(r.Context())))
		next.ServeHTTP(w, r.WithContext(ctxWithLogger(r.Context(), logger)))
	})
}

func (a *API) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		loggingRW := newLoggingResponseWriter(w)

		next.ServeHTTP(loggingRW, r)

		a.getLoggerFromCtx(r.Context()).InfoContext(r.Context(),
			"Access log",
			slog.String("latency", formatDuration(time.Since(start))),
			slog.Int64("request-content-length", r.ContentLength),
			slog.Int("resp-body-size", loggingRW.responseSize),
			slog.String("host", r.Host),
			slog.String("remote-addr", r.RemoteAddr),
			slog.String("method", r.Method),
			slog.Int("status-code", loggingRW.statusCode),
			slog.String("path", r.URL.Path),
		)
	})
}

// openapiValidateMiddleware checks request shape only. Authentication is left
// to authMiddleware so token failures are reported the same way everywhere.
func (a *API) openapiValidateMiddleware(swagger *openapi3.T) middlewareFunc {
	return middleware.OapiRequestValidatorWithOptions(swagger, &middleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
		SilenceServersWarning: true,
		ErrorHandlerWithOpts: func(ctx context.Context, err error, w http.ResponseWriter, r *http.Request, opts middleware.ErrorHandlerOpts) {
			var e Error

			var requestErr *openapi3filter.RequestError
			var secErr *openapi3filter.SecurityRequirementsError
			var routeErr *routers.RouteError
			switch {
			case errors.As(err, &requestErr):
				e = Error{
					Message: requestErr.Error(),
					Code:    InputValidationError,
				}
			case errors.As(err, &secErr):
				e = Error{
					Message: "Missing or invalid credentials",
					Code:    AuthError,
				}
			case errors.As(err, &routeErr):
				e = Error{
					Message: routeErr.Error(),
					Code:    NotFound,
				}
			default:
				a.getLoggerFromCtx(ctx).ErrorContext(ctx, "request validation failed unexpectedly", slog.Any("error", err))
				e = Error{
					Message: "Internal server error",
					Code:    InternalError,
				}
			}

			writeJSON(w, opts.StatusCode, e)
		},
	})
}

func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, AuthError, "Missing bearer token")
			return
		}

		claims, err := a.tokens.Validate(token)
		if err != nil {
			// authtoken never says why, and neither do we.
			writeError(w, http.StatusUnauthorized, AuthError, "Invalid or expired token")
			return
		}

		ctx := ctxWithClaims(r.Context(), claims)
		ctx = ctxWithLogger(ctx, a.getLoggerFromCtx(ctx).With(slog.String("account-id", claims.AccountID.String())))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRoleMiddleware must sit behind authMiddleware. A valid identity
// without the role gets 403, never 401 or 404.
func (a *API) requireRoleMiddleware(role roles.Role) middlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claims := getClaimsFromCtx(ctx)

			err := roles.RequireRole(ctx, a.db, claims.AccountID, role)
			if err != nil {
				var roleErr *roles.Error
				if errors.As(err, &roleErr) && roleErr.Reason == roles.REASON_MISSING_ROLE {
					writeError(w, http.StatusForbidden, Forbidden, roleErr.Message)
					return
				}

				a.getLoggerFromCtx(ctx).ErrorContext(ctx, "Failed to check role", slog.String("role", string(role)), slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, InternalError, "Internal server error")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (a *API) corsMiddleware() middlewareFunc {
	var serverCors *cors.Cors

	switch a.env {
	case PROD:
		serverCors = cors.New(cors.Options{
			AllowedOrigins:   a.allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		})
	default:
		serverCors = cors.AllowAll()
	}

	return serverCors.Handler
}

// formatDuration formats a duration to one decimal point.
func formatDuration(d time.Duration) string {
	div := time.Duration(10)
	switch {
	case d > time.Second:
		d = d.Round(time.Second / div)
	case d > time.Millisecond:
		d = d.Round(time.Millisecond / div)
	case d > time.Microsecond:
		d = d.Round(time.Microsecond / div)
	case d > time.Nanosecond:
		d = d.Round(time.Nanosecond / div)
	}
	return d.String()
}
