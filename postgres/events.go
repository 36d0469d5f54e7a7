package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/events"
	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ events.Repository = &DB{}

const eventColumns = `id, name, description, date, location, price_amount, price_currency,
	capacity, image_url, created_by, created_at, updated_at, num_registrations`

func scanEvent(row pgx.CollectableRow) (events.Event, error) {
	var (
		e        events.Event
		amount   int64
		currency string
	)
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Date, &e.Location, &amount, &currency,
		&e.Capacity, &e.ImageURL, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt, &e.NumRegistrations)
	if err != nil {
		return events.Event{}, err
	}
	e.Price = money.New(amount, currency)
	e.Date = e.Date.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}

func (d *DB) GetEvent(ctx context.Context, id uuid.UUID) (events.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, _ := d.pool.Query(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	event, err := pgx.CollectExactlyOneRow(rows, scanEvent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return events.Event{}, events.NewEventDoesNotExistsError(fmt.Sprintf("Event with ID %q not found", id), nil)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return events.Event{}, events.NewTimeoutError("GetEvent timed out")
		}
		return events.Event{}, events.NewFailedToFetchError(fmt.Sprintf("Failed to fetch event with ID %q", id), err)
	}
	return event, nil
}

func (d *DB) GetEvents(ctx context.Context, limit int32, cursor *string) (events.GetEventsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rows pgx.Rows
	if cursor == nil {
		rows, _ = d.pool.Query(ctx,
			`SELECT `+eventColumns+` FROM events
			 ORDER BY date DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	} else {
		after, err := decodeCursor(*cursor)
		if err != nil {
			return events.GetEventsResponse{}, events.NewInvalidCursorError("Invalid cursor", err)
		}
		rows, _ = d.pool.Query(ctx,
			`SELECT `+eventColumns+` FROM events
			 WHERE (date, id) < ($1, $2)
			 ORDER BY date DESC, id DESC
			 LIMIT $3`,
			after.At, after.ID, limit+1,
		)
	}

	page, err := pgx.CollectRows(rows, scanEvent)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return events.GetEventsResponse{}, events.NewTimeoutError("GetEvents timed out")
		}
		return events.GetEventsResponse{}, events.NewFailedToFetchError("Failed to fetch events from postgres", err)
	}

	resp := events.GetEventsResponse{Data: page}
	if len(page) > int(limit) {
		resp.Data = page[:limit]
		last := resp.Data[len(resp.Data)-1]
		resp.Cursor = encodeCursor(last.Date, last.ID)
		resp.HasNextPage = true
	}
	return resp, nil
}

func (d *DB) CreateEvent(ctx context.Context, event events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := d.pool.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0)`,
		event.ID, event.Name, event.Description, event.Date, event.Location,
		event.Price.Amount(), event.Price.Currency().Code, event.Capacity, event.ImageURL,
		event.CreatedBy, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		if _, ok := violatedConstraint(err, codeUniqueViolation); ok {
			return events.NewEventAlreadyExistsError(fmt.Sprintf("Event with ID %q already exists", event.ID), err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return events.NewTimeoutError("CreateEvent timed out")
		}
		return events.NewFailedToWriteError("Failed to insert event", err)
	}
	return nil
}

// UpdateEvent leaves num_registrations alone; only the registration write
// changes it.
func (d *DB) UpdateEvent(ctx context.Context, event events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := d.pool.Exec(ctx,
		`UPDATE events
		 SET name = $2, description = $3, date = $4, location = $5, price_amount = $6,
		     price_currency = $7, capacity = $8, image_url = $9, updated_at = $10
		 WHERE id = $1`,
		event.ID, event.Name, event.Description, event.Date, event.Location,
		event.Price.Amount(), event.Price.Currency().Code, event.Capacity, event.ImageURL, event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return events.NewTimeoutError("UpdateEvent timed out")
		}
		return events.NewFailedToWriteError("Failed to update event", err)
	}
	if tag.RowsAffected() == 0 {
		return events.NewEventDoesNotExistsError(fmt.Sprintf("Event with ID %q does not exists", event.ID), nil)
	}
	return nil
}

func (d *DB) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := d.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return events.NewTimeoutError("DeleteEvent timed out")
		}
		return events.NewFailedToWriteError("Failed to delete event", err)
	}
	if tag.RowsAffected() == 0 {
		return events.NewEventDoesNotExistsError(fmt.Sprintf("Event with ID %q does not exists", id), nil)
	}
	return nil
}
