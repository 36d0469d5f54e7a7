package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/events"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/slices"
	"github.com/google/uuid"
)

func (a *API) getEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerFromCtx(ctx)

	params, err := bindPageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, InputValidationError, err.Error())
		return
	}
	limit, ok := params.limitFrom()
	if !ok {
		writeError(w, http.StatusBadRequest, LimitOutOfBounds, "Limit must be between 1 and 50")
		return
	}

	result, err := a.catalog.GetEvents(ctx, limit, params.Cursor)
	if err != nil {
		var eventErr *events.Error
		if errors.As(err, &eventErr) && eventErr.Reason == events.REASON_INVALID_CURSOR {
			writeError(w, http.StatusBadRequest, InvalidCursor, "Passed in cursor is invalid")
			return
		}

		logger.ErrorContext(ctx, "Failed to get events from the DB", slog.Any("error", err))
		writeInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, EventsPage{
		Data:        slices.Map(result.Data, eventToApiEvent),
		Cursor:      result.Cursor,
		HasNextPage: result.HasNextPage,
	})
}

func (a *API) getEventsId(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerFromCtx(ctx)

	id, err := bindEventID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, InputValidationError, err.Error())
		return
	}

	event, err := a.catalog.GetEvent(ctx, id)
	if err != nil {
		if writeEventError(w, err) {
			return
		}
		logger.ErrorContext(ctx, "Failed to fetch an event", slog.Any("error", err))
		writeInternalError(w, "Failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, eventToApiEvent(event))
}

func (a *API) postEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerFromCtx(ctx)
	claims := getClaimsFromCtx(ctx)

	var body EventCreate
	if err := decodeJSON(w, r, &body); err != nil {
		logger.WarnContext(ctx, "Invalid body for event creation", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, InvalidBody, "Must specify a valid JSON body in the request")
		return
	}

	price, err := events.PriceFromFloat(body.Price, a.currency)
	if err != nil {
		writeEventError(w, err)
		return
	}

	event, err := events.CreateEvent(ctx, a.catalog, events.Event{
		Name:        body.Name,
		Description: body.Description,
		Date:        body.Date,
		Location:    body.Location,
		Price:       price,
		Capacity:    body.MaxParticipants,
		ImageURL:    body.ImageUrl,
	}, claims.AccountID, a.now())
	if err != nil {
		if writeEventError(w, err) {
			return
		}
		logger.ErrorContext(ctx, "Failed to create an event", slog.Any("error", err))
		writeInternalError(w, "Failed to create the event")
		return
	}

	logger.InfoContext(ctx, "event created", slog.String("event-id", event.ID.String()))
	writeJSON(w, http.StatusCreated, eventToApiEvent(event))
}

func (a *API) putEventsId(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerFromCtx(ctx)

	id, err := bindEventID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, InputValidationError, err.Error())
		return
	}

	var body EventUpdate
	if err := decodeJSON(w, r, &body); err != nil {
		logger.WarnContext(ctx, "Invalid body for event update", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, InvalidBody, "Must specify a valid JSON body in the request")
		return
	}

	patch := events.Patch{
		Name:        body.Name,
		Description: body.Description,
		Date:        body.Date,
		Location:    body.Location,
		Capacity:    body.MaxParticipants,
		ImageURL:    body.ImageUrl,
	}

	// Reads go to the store directly so the patch applies to fresh data.
	current, err := a.db.GetEvent(ctx, id)
	if err != nil {
		if writeEventError(w, err) {
			return
		}
		logger.ErrorContext(ctx, "Failed to fetch event for update", slog.Any("error", err))
		writeInternalError(w, "Failed to update the event")
		return
	}
	if body.Price != nil {
		patch.Price, err = events.PriceFromFloat(*body.Price, current.Price.Currency().Code)
		if err != nil {
			writeEventError(w, err)
			return
		}
	}

	event, err := events.UpdateEvent(ctx, a.db, id, patch, a.now())
	a.catalog.Invalidate(id)
	if err != nil {
		if writeEventError(w, err) {
			return
		}
		logger.ErrorContext(ctx, "Failed to update an event", slog.Any("error", err))
		writeInternalError(w, "Failed to update the event")
		return
	}

	writeJSON(w, http.StatusOK, eventToApiEvent(event))
}

func (a *API) deleteEventsId(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerFromCtx(ctx)

	id, err := bindEventID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, InputValidationError, err.Error())
		return
	}

	if err := a.catalog.DeleteEvent(ctx, id); err != nil {
		if writeEventError(w, err) {
			return
		}
		logger.ErrorContext(ctx, "Failed to delete an event", slog.Any("error", err))
		writeInternalError(w, "Failed to delete the event")
		return
	}

	logger.InfoContext(ctx, "event deleted", slog.String("event-id", id.String()))
	writeJSON(w, http.StatusOK, Message{Message: "Event deleted successfully"})
}

// writeEventError answers for the expected event failures and reports
// whether it wrote a response.
func writeEventError(w http.ResponseWriter, err error) bool {
	var eventErr *events.Error
	if !errors.As(err, &eventErr) {
		return false
	}

	switch eventErr.Reason {
	case events.REASON_EVENT_DOES_NOT_EXIST:
		writeError(w, http.StatusNotFound, NotFound, "Event does not exist")
		return true
	case events.REASON_INVALID_EVENT:
		writeError(w, http.StatusBadRequest, InputValidationError, eventErr.Message)
		return true
	}
	return false
}

func eventToApiEvent(event events.Event) Event {
	apiEvent := Event{
		Id:               event.ID,
		Name:             event.Name,
		Description:      event.Description,
		Date:             event.Date,
		Location:         event.Location,
		MaxParticipants:  event.Capacity,
		NumRegistrations: event.NumRegistrations,
		SpotsRemaining:   event.SpotsRemaining(),
		ImageUrl:         event.ImageURL,
		CreatedAt:        event.CreatedAt,
		UpdatedAt:        event.UpdatedAt,
	}
	if event.Price != nil {
		apiEvent.Price = event.Price.AsMajorUnits()
		apiEvent.Currency = event.Price.Currency().Code
	}
	if event.CreatedBy != uuid.Nil {
		createdBy := event.CreatedBy
		apiEvent.CreatedBy = &createdBy
	}
	return apiEvent
}
