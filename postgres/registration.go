package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/registration"
	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ registration.Repository = &DB{}

const registrationColumns = `id, event_id, account_id, payment_amount, payment_currency, payment_status, ticket_code, registered_at`

func scanRegistration(row pgx.CollectableRow) (registration.Registration, error) {
	var (
		r        registration.Registration
		amount   int64
		currency string
		status   string
	)
	err := row.Scan(&r.ID, &r.EventID, &r.AccountID, &amount, &currency, &status, &r.TicketCode, &r.RegisteredAt)
	if err != nil {
		return registration.Registration{}, err
	}
	r.PaymentAmount = money.New(amount, currency)
	r.PaymentStatus = registration.PaymentStatus(status)
	r.RegisteredAt = r.RegisteredAt.UTC()
	return r, nil
}

// CreateRegistration locks the event row for the rest of the transaction, so
// concurrent registrations for one event are checked and counted one at a
// time.
func (d *DB) CreateRegistration(ctx context.Context, reg registration.Registration) (err error) {
	ctx, span := tracer.Start(ctx, "DB.CreateRegistration", trace.WithAttributes(
		attribute.String("event.id", reg.EventID.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err = pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		var capacity, numRegistrations int
		err := tx.QueryRow(ctx,
			`SELECT capacity, num_registrations FROM events WHERE id = $1 FOR UPDATE`,
			reg.EventID,
		).Scan(&capacity, &numRegistrations)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return registration.NewAssociatedEventDoesNotExistError(fmt.Sprintf("Event with ID %q not found", reg.EventID), nil)
			}
			return fmt.Errorf("lock event row: %w", err)
		}

		var alreadyRegistered bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1 AND account_id = $2)`,
			reg.EventID, reg.AccountID,
		).Scan(&alreadyRegistered)
		if err != nil {
			return fmt.Errorf("check duplicate: %w", err)
		}
		if alreadyRegistered {
			return registration.NewRegistrationAlreadyExistsError("Account is already registered for this event", nil)
		}

		if numRegistrations >= capacity {
			return registration.NewCapacityExceededError(capacity, nil)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO registrations (`+registrationColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			reg.ID, reg.EventID, reg.AccountID, reg.PaymentAmount.Amount(), reg.PaymentAmount.Currency().Code,
			string(reg.PaymentStatus), reg.TicketCode, reg.RegisteredAt,
		)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE events SET num_registrations = num_registrations + 1 WHERE id = $1`, reg.EventID)
		if err != nil {
			return fmt.Errorf("increment num_registrations: %w", err)
		}

		return nil
	})
	if err == nil {
		return nil
	}

	var regErr *registration.Error
	if errors.As(err, &regErr) {
		return regErr
	}
	if constraint, ok := violatedConstraint(err, codeUniqueViolation); ok {
		switch constraint {
		case constraintTicketCode:
			return registration.NewTicketCodeTakenError(reg.TicketCode, err)
		case constraintEventAccount:
			return registration.NewRegistrationAlreadyExistsError("Account is already registered for this event", err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return registration.NewTimeoutError("CreateRegistration timed out")
	}
	return registration.NewFailedToWriteError("Registration transaction failed", err)
}

func (d *DB) GetRegistrationsForAccount(ctx context.Context, accountID uuid.UUID) ([]registration.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, _ := d.pool.Query(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE account_id = $1
		 ORDER BY registered_at DESC, id DESC`,
		accountID,
	)
	regs, err := pgx.CollectRows(rows, scanRegistration)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, registration.NewTimeoutError("GetRegistrationsForAccount timed out")
		}
		return nil, registration.NewFailedToFetchError(fmt.Sprintf("Failed to fetch registrations for account %q", accountID), err)
	}
	return regs, nil
}

func (d *DB) GetAllRegistrationsForEvent(ctx context.Context, eventID uuid.UUID, limit int32, cursor *string) (registration.GetAllRegistrationsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rows pgx.Rows
	if cursor == nil {
		rows, _ = d.pool.Query(ctx,
			`SELECT `+registrationColumns+` FROM registrations
			 WHERE event_id = $1
			 ORDER BY registered_at, id
			 LIMIT $2`,
			eventID, limit+1,
		)
	} else {
		after, err := decodeCursor(*cursor)
		if err != nil {
			return registration.GetAllRegistrationsResponse{}, registration.NewInvalidCursorError("Invalid cursor", err)
		}
		rows, _ = d.pool.Query(ctx,
			`SELECT `+registrationColumns+` FROM registrations
			 WHERE event_id = $1 AND (registered_at, id) > ($2, $3)
			 ORDER BY registered_at, id
			 LIMIT $4`,
			eventID, after.At, after.ID, limit+1,
		)
	}

	page, err := pgx.CollectRows(rows, scanRegistration)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return registration.GetAllRegistrationsResponse{}, registration.NewTimeoutError("GetAllRegistrationsForEvent timed out")
		}
		return registration.GetAllRegistrationsResponse{}, registration.NewFailedToFetchError("Failed to fetch registrations from postgres", err)
	}

	resp := registration.GetAllRegistrationsResponse{Data: page}
	if len(page) > int(limit) {
		resp.Data = page[:limit]
		last := resp.Data[len(resp.Data)-1]
		resp.Cursor = encodeCursor(last.RegisteredAt, last.ID)
		resp.HasNextPage = true
	}
	return resp, nil
}
