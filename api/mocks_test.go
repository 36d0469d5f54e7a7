package api

import (
	"context"
	"log/slog"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/accounts"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/events"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/registration"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/roles"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/stats"
	"github.com/google/uuid"
)

var noopLogger = slog.New(slog.DiscardHandler)

var _ DB = &mockDB{}

type mockDB struct {
	CreateAccountFunc               func(ctx context.Context, account accounts.Account, defaultGrant roles.Grant) error
	GetAccountFunc                  func(ctx context.Context, id uuid.UUID) (accounts.Account, error)
	GetAccountByEmailFunc           func(ctx context.Context, email string) (accounts.Account, error)
	CreateGrantFunc                 func(ctx context.Context, grant roles.Grant) error
	GetGrantsFunc                   func(ctx context.Context, accountID uuid.UUID) ([]roles.Grant, error)
	GetEventFunc                    func(ctx context.Context, id uuid.UUID) (events.Event, error)
	GetEventsFunc                   func(ctx context.Context, limit int32, cursor *string) (events.GetEventsResponse, error)
	CreateEventFunc                 func(ctx context.Context, event events.Event) error
	UpdateEventFunc                 func(ctx context.Context, event events.Event) error
	DeleteEventFunc                 func(ctx context.Context, id uuid.UUID) error
	CreateRegistrationFunc          func(ctx context.Context, reg registration.Registration) error
	GetRegistrationsForAccountFunc  func(ctx context.Context, accountID uuid.UUID) ([]registration.Registration, error)
	GetAllRegistrationsForEventFunc func(ctx context.Context, eventID uuid.UUID, limit int32, cursor *string) (registration.GetAllRegistrationsResponse, error)
	CountEventsFunc                 func(ctx context.Context) (int, error)
	GetRevenueTotalsFunc            func(ctx context.Context) ([]stats.RevenueTotal, error)
}

func (m *mockDB) CreateAccount(ctx context.Context, account accounts.Account, defaultGrant roles.Grant) error {
	return m.CreateAccountFunc(ctx, account, defaultGrant)
}

func (m *mockDB) GetAccount(ctx context.Context, id uuid.UUID) (accounts.Account, error) {
	return m.GetAccountFunc(ctx, id)
}

func (m *mockDB) GetAccountByEmail(ctx context.Context, email string) (accounts.Account, error) {
	return m.GetAccountByEmailFunc(ctx, email)
}

func (m *mockDB) CreateGrant(ctx context.Context, grant roles.Grant) error {
	return m.CreateGrantFunc(ctx, grant)
}

// GetGrants defaults to no grants so tests that never reach an admin route
// need not set it.
func (m *mockDB) GetGrants(ctx context.Context, accountID uuid.UUID) ([]roles.Grant, error) {
	if m.GetGrantsFunc != nil {
		return m.GetGrantsFunc(ctx, accountID)
	}
	return nil, nil
}

func (m *mockDB) GetEvent(ctx context.Context, id uuid.UUID) (events.Event, error) {
	return m.GetEventFunc(ctx, id)
}

func (m *mockDB) GetEvents(ctx context.Context, limit int32, cursor *string) (events.GetEventsResponse, error) {
	return m.GetEventsFunc(ctx, limit, cursor)
}

func (m *mockDB) CreateEvent(ctx context.Context, event events.Event) error {
	return m.CreateEventFunc(ctx, event)
}

func (m *mockDB) UpdateEvent(ctx context.Context, event events.Event) error {
	return m.UpdateEventFunc(ctx, event)
}

func (m *mockDB) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	return m.DeleteEventFunc(ctx, id)
}

func (m *mockDB) CreateRegistration(ctx context.Context, reg registration.Registration) error {
	return m.CreateRegistrationFunc(ctx, reg)
}

func (m *mockDB) GetRegistrationsForAccount(ctx context.Context, accountID uuid.UUID) ([]registration.Registration, error) {
	return m.GetRegistrationsForAccountFunc(ctx, accountID)
}

func (m *mockDB) GetAllRegistrationsForEvent(ctx context.Context, eventID uuid.UUID, limit int32, cursor *string) (registration.GetAllRegistrationsResponse, error) {
	return m.GetAllRegistrationsForEventFunc(ctx, eventID, limit, cursor)
}

func (m *mockDB) CountEvents(ctx context.Context) (int, error) {
	return m.CountEventsFunc(ctx)
}

func (m *mockDB) GetRevenueTotals(ctx context.Context) ([]stats.RevenueTotal, error) {
	return m.GetRevenueTotalsFunc(ctx)
}
