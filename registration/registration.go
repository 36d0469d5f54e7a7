package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/events"
	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultMaxTicketCodeAttempts = 10

var tracer = otel.Tracer("github.com/International-Combat-Archery-Alliance/event-ticketing/registration")

type PaymentStatus string

const (
	PAYMENT_COMPLETED PaymentStatus = "completed"
)

type Registration struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	AccountID     uuid.UUID
	PaymentAmount *money.Money
	PaymentStatus PaymentStatus
	TicketCode    string
	RegisteredAt  time.Time
}

type GetAllRegistrationsResponse struct {
	Data        []Registration
	Cursor      *string
	HasNextPage bool
}

type Repository interface {
	// CreateRegistration is the reservation. In one atomic store operation it
	// must verify, in this order of precedence, that the event exists, that
	// the account holds no registration for it, that the event is below
	// capacity and that the ticket code is unused, and then insert the row
	// and count it against the event. Failures are reported with the
	// matching ErrorReason and leave no trace in the store.
	CreateRegistration(ctx context.Context, reg Registration) error
	GetRegistrationsForAccount(ctx context.Context, accountID uuid.UUID) ([]Registration, error)
	GetAllRegistrationsForEvent(ctx context.Context, eventID uuid.UUID, limit int32, cursor *string) (GetAllRegistrationsResponse, error)
}

type Request struct {
	EventID   uuid.UUID
	AccountID uuid.UUID
	// PaymentAmount is in major units of the event's currency. It is
	// recorded as given; nothing verifies it against a payment provider.
	PaymentAmount float64
}

type Ledger struct {
	events        events.Repository
	registrations Repository
	logger        *slog.Logger
	newTicketCode TicketCodeGenerator
	maxAttempts   int
	now           func() time.Time
}

type LedgerOption func(*Ledger)

func WithTicketCodeGenerator(gen TicketCodeGenerator) LedgerOption {
	return func(l *Ledger) {
		l.newTicketCode = gen
	}
}

func WithMaxTicketCodeAttempts(n int) LedgerOption {
	return func(l *Ledger) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

func NewLedger(eventRepo events.Repository, registrationRepo Repository, logger *slog.Logger, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		events:        eventRepo,
		registrations: registrationRepo,
		logger:        logger,
		newTicketCode: NewTicketCode,
		maxAttempts:   DefaultMaxTicketCodeAttempts,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Register(ctx context.Context, req Request) (reg Registration, err error) {
	ctx, span := tracer.Start(ctx, "Ledger.Register", trace.WithAttributes(
		attribute.String("event.id", req.EventID.String()),
		attribute.String("account.id", req.AccountID.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	event, err := l.events.GetEvent(ctx, req.EventID)
	if err != nil {
		var eventErr *events.Error
		if errors.As(err, &eventErr) {
			switch eventErr.Reason {
			case events.REASON_EVENT_DOES_NOT_EXIST:
				return Registration{}, NewAssociatedEventDoesNotExistError(fmt.Sprintf("Event does not exist with ID %q", req.EventID), err)
			}
		}

		return Registration{}, NewFailedToFetchError(fmt.Sprintf("Failed to fetch event with ID %q", req.EventID), err)
	}

	if !events.ValidAmount(req.PaymentAmount) {
		return Registration{}, NewInvalidPaymentError(fmt.Sprintf("Payment amount must be a number between 0 and %.0f", events.MaxAmount))
	}

	currency := money.USD
	if event.Price != nil {
		currency = event.Price.Currency().Code
	}

	reg = Registration{
		ID:            uuid.New(),
		EventID:       event.ID,
		AccountID:     req.AccountID,
		PaymentAmount: money.NewFromFloat(req.PaymentAmount, currency),
		PaymentStatus: PAYMENT_COMPLETED,
		RegisteredAt:  l.now().UTC(),
	}

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		reg.TicketCode, err = l.newTicketCode()
		if err != nil {
			return Registration{}, fmt.Errorf("failed to generate ticket code: %w", err)
		}

		err = l.registrations.CreateRegistration(ctx, reg)
		if err == nil {
			span.SetAttributes(attribute.Int("ticket_code.attempts", attempt))
			return reg, nil
		}

		var regErr *Error
		if errors.As(err, &regErr) && regErr.Reason == REASON_TICKET_CODE_TAKEN {
			l.logger.WarnContext(ctx, "ticket code collision, regenerating", slog.Int("attempt", attempt))
			continue
		}

		return Registration{}, err
	}

	return Registration{}, NewTicketCodesExhaustedError(l.maxAttempts)
}
