package api

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/accounts"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/authtoken"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/catalogcache"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/events"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/registration"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/roles"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/stats"
	"github.com/Rhymond/go-money"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

//go:embed openapi.yaml
var openapiSpec []byte

type Environment int

const (
	LOCAL Environment = iota
	PROD
)

func ParseEnvironment(s string) (Environment, error) {
	switch s {
	case "local", "LOCAL", "":
		return LOCAL, nil
	case "prod", "PROD":
		return PROD, nil
	default:
		return LOCAL, fmt.Errorf("unknown environment %q", s)
	}
}

type DB interface {
	accounts.Repository
	roles.Repository
	events.Repository
	registration.Repository
	stats.Repository
}

type API struct {
	db      DB
	catalog *catalogcache.Repository
	ledger  *registration.Ledger
	tokens  *authtoken.Issuer
	logger  *slog.Logger
	env     Environment

	currency       string
	allowedOrigins []string
	cacheTTL       time.Duration
	ledgerOpts     []registration.LedgerOption
	now            func() time.Time
}

type Option func(*API)

// WithCurrency sets the ISO currency code new event prices are recorded in.
func WithCurrency(code string) Option {
	return func(a *API) {
		a.currency = code
	}
}

func WithAllowedOrigins(origins []string) Option {
	return func(a *API) {
		a.allowedOrigins = origins
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(a *API) {
		a.cacheTTL = ttl
	}
}

func WithLedgerOptions(opts ...registration.LedgerOption) Option {
	return func(a *API) {
		a.ledgerOpts = append(a.ledgerOpts, opts...)
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *API) {
		a.now = now
	}
}

func NewAPI(db DB, logger *slog.Logger, env Environment, tokens *authtoken.Issuer, opts ...Option) (*API, error) {
	a := &API{
		db:             db,
		tokens:         tokens,
		logger:         logger,
		env:            env,
		currency:       money.USD,
		allowedOrigins: []string{"http://localhost:3000"},
		cacheTTL:       catalogcache.DefaultExpiration,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if money.GetCurrency(a.currency) == nil {
		return nil, fmt.Errorf("unknown currency %q", a.currency)
	}

	a.catalog = catalogcache.New(db, logger, a.cacheTTL)
	a.ledger = registration.NewLedger(db, db, logger, append([]registration.LedgerOption{registration.WithClock(a.now)}, a.ledgerOpts...)...)

	return a, nil
}

func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi document: %w", err)
	}
	if err := swagger.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("openapi document is invalid: %w", err)
	}
	return swagger, nil
}

// Handler builds the full router. Requests under /api are validated against
// the embedded OpenAPI document once they have passed authentication and role
// checks, so callers without access never learn the request schema.
func (a *API) Handler() (http.Handler, error) {
	swagger, err := GetSwagger()
	if err != nil {
		return nil, err
	}
	swagger.Servers = nil
	validate := a.openapiValidateMiddleware(swagger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(a.requestLoggerMiddleware)
	r.Use(a.loggingMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(a.corsMiddleware())

	r.Get("/health", a.getHealth)

	r.Route("/api", func(r chi.Router) {
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, NotFound, "Route not found")
		})

		r.Group(func(r chi.Router) {
			r.Use(validate)

			r.Post("/auth/signup", a.postSignUp)
			r.Post("/auth/signin", a.postSignIn)
			r.Get("/events", a.getEvents)
			r.Get("/events/{eventId}", a.getEventsId)
		})

		r.Group(func(r chi.Router) {
			r.Use(a.authMiddleware)

			r.Group(func(r chi.Router) {
				r.Use(validate)

				r.Get("/auth/me", a.getMe)
				r.Post("/registrations", a.postRegistrations)
				r.Get("/registrations/my-tickets", a.getMyTickets)
			})

			r.Group(func(r chi.Router) {
				r.Use(a.requireRoleMiddleware(roles.ADMIN))
				r.Use(validate)

				r.Post("/events", a.postEvents)
				r.Put("/events/{eventId}", a.putEventsId)
				r.Delete("/events/{eventId}", a.deleteEventsId)
				r.Get("/registrations/event/{eventId}", a.getEventRegistrations)
				r.Get("/admin/stats", a.getAdminStats)
			})
		})
	})

	return r, nil
}

func (a *API) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
