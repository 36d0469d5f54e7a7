package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/accounts"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/registration"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/slices"
	"github.com/oapi-codegen/runtime/types"
)

func (a *API) postRegistrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerFromCtx(ctx)
	claims := getClaimsFromCtx(ctx)

	var body RegistrationRequest
	if err := decodeJSON(w, r, &body); err != nil {
		logger.WarnContext(ctx, "Invalid body for registration", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, InvalidBody, "Invalid body")
		return
	}

	reg, err := a.ledger.Register(ctx, registration.Request{
		EventID:       body.EventId,
		AccountID:     claims.AccountID,
		PaymentAmount: body.PaymentAmount,
	})
	if err != nil {
		var registrationErr *registration.Error
		if errors.As(err, &registrationErr) {
			switch registrationErr.Reason {
			case registration.REASON_ASSOCIATED_EVENT_DOES_NOT_EXIST:
				writeError(w, http.StatusNotFound, NotFound, "Event to register with was not found")
				return
			case registration.REASON_REGISTRATION_ALREADY_EXISTS:
				writeError(w, http.StatusConflict, AlreadyExists, "already registered")
				return
			case registration.REASON_CAPACITY_EXCEEDED:
				writeError(w, http.StatusConflict, CapacityExceeded, "capacity exceeded")
				return
			case registration.REASON_INVALID_PAYMENT:
				writeError(w, http.StatusBadRequest, InputValidationError, registrationErr.Message)
				return
			}
		}

		logger.ErrorContext(ctx, "Error trying to register", slog.String("event-id", body.EventId.String()), slog.Any("error", err))
		writeInternalError(w, "Registration failed")
		return
	}

	// The cached copy still carries the old registration count.
	a.catalog.Invalidate(reg.EventID)

	logger.InfoContext(ctx, "registered for event",
		slog.String("event-id", reg.EventID.String()),
		slog.String("registration-id", reg.ID.String()),
	)
	writeJSON(w, http.StatusCreated, registrationToApiRegistration(reg))
}

func (a *API) getMyTickets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerFromCtx(ctx)
	claims := getClaimsFromCtx(ctx)

	tickets, err := registration.ListForAccount(ctx, claims.AccountID, a.db, a.catalog)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to get tickets", slog.Any("error", err))
		writeInternalError(w, "Failed to fetch tickets")
		return
	}

	writeJSON(w, http.StatusOK, slices.Map(tickets, func(t registration.Ticket) Ticket {
		ticket := Ticket{Registration: registrationToApiRegistration(t.Registration)}
		if t.Event != nil {
			event := eventToApiEvent(*t.Event)
			ticket.Event = &event
		}
		return ticket
	}))
}

func (a *API) getEventRegistrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerFromCtx(ctx)

	eventID, err := bindEventID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, InputValidationError, err.Error())
		return
	}
	params, err := bindPageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, InputValidationError, err.Error())
		return
	}
	limit, ok := params.limitFrom()
	if !ok {
		logger.WarnContext(ctx, "Limit out of bounds", slog.Int("limit", *params.Limit))
		writeError(w, http.StatusBadRequest, LimitOutOfBounds, "Limit must be between 1 and 50")
		return
	}

	result, err := registration.ListForEvent(ctx, eventID, limit, params.Cursor, a.db, a.db)
	if err != nil {
		var registrationErr *registration.Error
		if errors.As(err, &registrationErr) && registrationErr.Reason == registration.REASON_INVALID_CURSOR {
			writeError(w, http.StatusBadRequest, InvalidCursor, "Cursor is invalid")
			return
		}

		logger.ErrorContext(ctx, "Failed to get registrations for event", slog.String("event-id", eventID.String()), slog.Any("error", err))
		writeInternalError(w, "Failed to fetch registrations")
		return
	}

	writeJSON(w, http.StatusOK, AttendeesPage{
		Data: slices.Map(result.Data, func(v registration.Attendee) Attendee {
			attendee := Attendee{Registration: registrationToApiRegistration(v.Registration)}
			if v.Account != nil {
				attendee.User = publicProfileToApiPublicProfile(*v.Account)
			}
			return attendee
		}),
		Cursor:      result.Cursor,
		HasNextPage: result.HasNextPage,
	})
}

func registrationToApiRegistration(reg registration.Registration) Registration {
	apiReg := Registration{
		Id:            reg.ID,
		EventId:       reg.EventID,
		UserId:        reg.AccountID,
		PaymentStatus: string(reg.PaymentStatus),
		TicketCode:    reg.TicketCode,
		RegisteredAt:  reg.RegisteredAt,
	}
	if reg.PaymentAmount != nil {
		apiReg.PaymentAmount = reg.PaymentAmount.AsMajorUnits()
		apiReg.Currency = reg.PaymentAmount.Currency().Code
	}
	return apiReg
}

func publicProfileToApiPublicProfile(p accounts.PublicProfile) *PublicProfile {
	return &PublicProfile{
		FullName: p.FullName,
		Email:    types.Email(p.Email),
		Phone:    p.Phone,
	}
}
