package events

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/ptr"
	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	GetEventFunc    func(ctx context.Context, id uuid.UUID) (Event, error)
	GetEventsFunc   func(ctx context.Context, limit int32, cursor *string) (GetEventsResponse, error)
	CreateEventFunc func(ctx context.Context, event Event) error
	UpdateEventFunc func(ctx context.Context, event Event) error
	DeleteEventFunc func(ctx context.Context, id uuid.UUID) error
}

func (m *mockRepository) GetEvent(ctx context.Context, id uuid.UUID) (Event, error) {
	return m.GetEventFunc(ctx, id)
}

func (m *mockRepository) GetEvents(ctx context.Context, limit int32, cursor *string) (GetEventsResponse, error) {
	return m.GetEventsFunc(ctx, limit, cursor)
}

func (m *mockRepository) CreateEvent(ctx context.Context, event Event) error {
	return m.CreateEventFunc(ctx, event)
}

func (m *mockRepository) UpdateEvent(ctx context.Context, event Event) error {
	return m.UpdateEventFunc(ctx, event)
}

func (m *mockRepository) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	return m.DeleteEventFunc(ctx, id)
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	admin := uuid.New()
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	t.Run("successful create", func(t *testing.T) {
		var captured Event
		repo := &mockRepository{
			CreateEventFunc: func(ctx context.Context, event Event) error {
				captured = event
				return nil
			},
		}

		result, err := CreateEvent(ctx, repo, Event{
			Name:             "  Battle of the Bands ",
			Capacity:         100,
			Price:            money.New(2500, money.USD),
			NumRegistrations: 40,
		}, admin, now)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, result.ID)
		assert.Equal(t, "Battle of the Bands", result.Name)
		assert.Equal(t, admin, result.CreatedBy)
		assert.Equal(t, now, result.CreatedAt)
		assert.Equal(t, 0, result.NumRegistrations, "registration count is never taken from input")
		assert.Equal(t, result, captured)
	})

	t.Run("invalid events", func(t *testing.T) {
		cases := map[string]Event{
			"empty name":     {Name: " ", Capacity: 1, Price: money.New(0, money.USD)},
			"zero capacity":  {Name: "x", Capacity: 0, Price: money.New(0, money.USD)},
			"missing price":  {Name: "x", Capacity: 1},
			"negative price": {Name: "x", Capacity: 1, Price: money.New(-1, money.USD)},
		}

		for name, e := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := CreateEvent(ctx, &mockRepository{}, e, admin, now)
				var eventErr *Error
				require.ErrorAs(t, err, &eventErr)
				assert.Equal(t, REASON_INVALID_EVENT, eventErr.Reason)
			})
		}
	})
}

func TestUpdateEvent(t *testing.T) {
	eventID := uuid.New()
	date := time.Now().Add(24 * time.Hour).UTC()
	now := time.Now()

	t.Run("successful update", func(t *testing.T) {
		existingEvent := Event{
			ID:               eventID,
			Name:             "Original Event",
			Description:      "keep me",
			Capacity:         10,
			Price:            money.New(1000, money.USD),
			NumRegistrations: 7,
		}

		repo := &mockRepository{
			GetEventFunc: func(ctx context.Context, id uuid.UUID) (Event, error) {
				assert.Equal(t, eventID, id)
				return existingEvent, nil
			},
			UpdateEventFunc: func(ctx context.Context, event Event) error {
				assert.Equal(t, eventID, event.ID)
				assert.Equal(t, "Updated Event Name", event.Name)
				assert.Equal(t, "keep me", event.Description)
				assert.Equal(t, date, event.Date)
				assert.Equal(t, 20, event.Capacity)
				assert.Equal(t, ptr.String("https://example.com/x.png"), event.ImageURL)
				assert.Equal(t, 7, event.NumRegistrations)
				return nil
			},
		}

		result, err := UpdateEvent(context.Background(), repo, eventID, Patch{
			Name:     ptr.String("Updated Event Name"),
			Date:     &date,
			Capacity: ptr.Int(20),
			ImageURL: ptr.String("https://example.com/x.png"),
		}, now)

		assert.NoError(t, err)
		assert.Equal(t, eventID, result.ID)
		assert.Equal(t, "Updated Event Name", result.Name)
		assert.Equal(t, 7, result.NumRegistrations)
		assert.Equal(t, now.UTC(), result.UpdatedAt)
	})

	t.Run("event does not exist", func(t *testing.T) {
		repo := &mockRepository{
			GetEventFunc: func(ctx context.Context, id uuid.UUID) (Event, error) {
				return Event{}, &Error{Reason: REASON_EVENT_DOES_NOT_EXIST}
			},
		}

		result, err := UpdateEvent(context.Background(), repo, eventID, Patch{Name: ptr.String("Test Event")}, now)

		assert.Error(t, err)
		assert.Equal(t, Event{}, result)
		var eventErr *Error
		assert.True(t, errors.As(err, &eventErr))
		assert.Equal(t, REASON_EVENT_DOES_NOT_EXIST, eventErr.Reason)
	})

	t.Run("capacity cannot drop below one", func(t *testing.T) {
		repo := &mockRepository{
			GetEventFunc: func(ctx context.Context, id uuid.UUID) (Event, error) {
				return Event{ID: eventID, Name: "x", Capacity: 5, Price: money.New(0, money.USD)}, nil
			},
		}

		_, err := UpdateEvent(context.Background(), repo, eventID, Patch{Capacity: ptr.Int(0)}, now)

		var eventErr *Error
		require.ErrorAs(t, err, &eventErr)
		assert.Equal(t, REASON_INVALID_EVENT, eventErr.Reason)
	})

	t.Run("UpdateEvent repository error", func(t *testing.T) {
		repo := &mockRepository{
			GetEventFunc: func(ctx context.Context, id uuid.UUID) (Event, error) {
				return Event{ID: eventID, Name: "x", Capacity: 5, Price: money.New(0, money.USD)}, nil
			},
			UpdateEventFunc: func(ctx context.Context, event Event) error {
				return errors.New("update failed")
			},
		}

		result, err := UpdateEvent(context.Background(), repo, eventID, Patch{}, now)

		assert.Error(t, err)
		assert.Equal(t, Event{}, result)
		assert.Contains(t, err.Error(), "update failed")
	})
}

func TestSpotsRemaining(t *testing.T) {
	assert.Equal(t, 3, Event{Capacity: 5, NumRegistrations: 2}.SpotsRemaining())
	assert.Equal(t, 0, Event{Capacity: 5, NumRegistrations: 7}.SpotsRemaining())
}

func TestPriceFromFloat(t *testing.T) {
	price, err := PriceFromFloat(12.5, money.EUR)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), price.Amount())
	assert.Equal(t, money.EUR, price.Currency().Code)

	price, err = PriceFromFloat(MaxAmount, money.USD)
	require.NoError(t, err)
	assert.False(t, price.IsNegative())

	for _, amount := range []float64{-1, math.NaN(), math.Inf(1), MaxAmount + 1, 1e19} {
		_, err := PriceFromFloat(amount, money.USD)

		var eventErr *Error
		require.ErrorAs(t, err, &eventErr, "amount %v", amount)
		assert.Equal(t, REASON_INVALID_EVENT, eventErr.Reason)
	}
}
