package events

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
)

type Event struct {
	ID          uuid.UUID
	Name        string
	Description string
	Date        time.Time
	Location    string
	Price       *money.Money
	// Capacity is the hard upper bound on registrations for the event.
	Capacity  int
	ImageURL  *string
	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	// NumRegistrations is maintained by the registration write and is never
	// set from user input.
	NumRegistrations int
}

func (e Event) SpotsRemaining() int {
	return max(0, e.Capacity-e.NumRegistrations)
}

type GetEventsResponse struct {
	Data        []Event
	Cursor      *string
	HasNextPage bool
}

type Repository interface {
	GetEvent(ctx context.Context, id uuid.UUID) (Event, error)
	GetEvents(ctx context.Context, limit int32, cursor *string) (GetEventsResponse, error)
	CreateEvent(ctx context.Context, event Event) error
	// UpdateEvent writes the descriptive fields and capacity of an existing
	// event. NumRegistrations is left untouched in storage.
	UpdateEvent(ctx context.Context, event Event) error
	DeleteEvent(ctx context.Context, id uuid.UUID) error
}

// Patch holds the fields of a partial update. Nil fields are left as-is.
type Patch struct {
	Name        *string
	Description *string
	Date        *time.Time
	Location    *string
	Price       *money.Money
	Capacity    *int
	ImageURL    *string
}

func CreateEvent(ctx context.Context, repo Repository, event Event, createdBy uuid.UUID, now time.Time) (Event, error) {
	now = now.UTC()

	event.ID = uuid.New()
	event.Name = strings.TrimSpace(event.Name)
	event.Date = event.Date.UTC()
	event.CreatedBy = createdBy
	event.CreatedAt = now
	event.UpdatedAt = now
	event.NumRegistrations = 0

	if err := validate(event); err != nil {
		return Event{}, err
	}

	if err := repo.CreateEvent(ctx, event); err != nil {
		return Event{}, err
	}

	return event, nil
}

func UpdateEvent(ctx context.Context, repo Repository, id uuid.UUID, patch Patch, now time.Time) (Event, error) {
	event, err := repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}

	if patch.Name != nil {
		event.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.Date != nil {
		event.Date = patch.Date.UTC()
	}
	if patch.Location != nil {
		event.Location = *patch.Location
	}
	if patch.Price != nil {
		event.Price = patch.Price
	}
	if patch.Capacity != nil {
		event.Capacity = *patch.Capacity
	}
	if patch.ImageURL != nil {
		event.ImageURL = patch.ImageURL
	}
	event.UpdatedAt = now.UTC()

	if err := validate(event); err != nil {
		return Event{}, err
	}

	if err := repo.UpdateEvent(ctx, event); err != nil {
		return Event{}, err
	}

	return event, nil
}

func validate(event Event) error {
	if event.Name == "" {
		return NewInvalidEventError("Event name is required")
	}
	if event.Capacity < 1 {
		return NewInvalidEventError(fmt.Sprintf("Capacity must be a positive integer, got %d", event.Capacity))
	}
	if event.Price == nil {
		return NewInvalidEventError("Price is required")
	}
	if event.Price.IsNegative() {
		return NewInvalidEventError("Price cannot be negative")
	}

	return nil
}

// MaxAmount bounds prices and payments in major units. Converting anything
// larger to minor units could overflow int64.
const MaxAmount = 1e12

// ValidAmount reports whether amount is a finite, non-negative number no
// larger than MaxAmount.
func ValidAmount(amount float64) bool {
	return !math.IsNaN(amount) && !math.IsInf(amount, 0) && amount >= 0 && amount <= MaxAmount
}

// PriceFromFloat converts a price in major units of currency.
func PriceFromFloat(amount float64, currency string) (*money.Money, error) {
	if !ValidAmount(amount) {
		return nil, NewInvalidEventError(fmt.Sprintf("Price must be between 0 and %.0f", MaxAmount))
	}
	return money.NewFromFloat(amount, currency), nil
}
