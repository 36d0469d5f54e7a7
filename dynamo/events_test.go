package dynamo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/events"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/ptr"
	"github.com/Rhymond/go-money"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvent(capacity int) events.Event {
	now := time.Now().UTC().Truncate(time.Second)
	return events.Event{
		ID:          uuid.New(),
		Name:        "Spring Fest",
		Description: "Music and food",
		Date:        now.Add(72 * time.Hour),
		Location:    "Main Auditorium",
		Price:       money.New(2500, money.USD),
		Capacity:    capacity,
		ImageURL:    ptr.String("https://example.com/fest.png"),
		CreatedBy:   uuid.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("successfully create an event and verify data", func(t *testing.T) {
		resetTable(ctx)
		event := newTestEvent(50)

		require.NoError(t, db.CreateEvent(ctx, event))

		dynamoEvent := newEventDynamo(event)
		out, err := dynamoClient.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(tableName),
			Key:       itemKey(dynamoEvent.PK, dynamoEvent.SK),
		})
		require.NoError(t, err)

		var savedEvent eventDynamo
		require.NoError(t, attributevalue.UnmarshalMap(out.Item, &savedEvent))

		assert.Equal(t, event.ID.String(), savedEvent.ID)
		assert.Equal(t, int64(2500), savedEvent.PriceAmount)
		assert.Equal(t, money.USD, savedEvent.PriceCurrency)
		assert.Equal(t, 50, savedEvent.Capacity)
		assert.Equal(t, 0, savedEvent.NumRegistrations)
		assert.Equal(t, eventEntityName, savedEvent.GSI1PK)
	})

	t.Run("fail to create an event that already exists", func(t *testing.T) {
		resetTable(ctx)
		event := newTestEvent(10)

		require.NoError(t, db.CreateEvent(ctx, event))

		err := db.CreateEvent(ctx, event)
		var eventError *events.Error
		require.ErrorAs(t, err, &eventError)
		assert.Equal(t, events.REASON_EVENT_ALREADY_EXISTS, eventError.Reason)
	})
}

func TestGetEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("successfully get an event", func(t *testing.T) {
		resetTable(ctx)
		event := newTestEvent(10)
		require.NoError(t, db.CreateEvent(ctx, event))

		got, err := db.GetEvent(ctx, event.ID)
		require.NoError(t, err)

		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, event.Name, got.Name)
		assert.Equal(t, event.Description, got.Description)
		assert.True(t, event.Date.Equal(got.Date))
		assert.Equal(t, event.Location, got.Location)
		assert.Equal(t, event.Price, got.Price)
		assert.Equal(t, event.ImageURL, got.ImageURL)
		assert.Equal(t, event.CreatedBy, got.CreatedBy)
	})

	t.Run("fail to get an event that does not exist", func(t *testing.T) {
		resetTable(ctx)

		_, err := db.GetEvent(ctx, uuid.New())

		var eventError *events.Error
		require.ErrorAs(t, err, &eventError)
		assert.Equal(t, events.REASON_EVENT_DOES_NOT_EXIST, eventError.Reason)
	})
}

func TestGetEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("successfully get no events", func(t *testing.T) {
		resetTable(ctx)

		resp, err := db.GetEvents(ctx, 10, nil)
		require.NoError(t, err)
		assert.Empty(t, resp.Data)
		assert.False(t, resp.HasNextPage)
		assert.Nil(t, resp.Cursor)
	})

	t.Run("newest date first with pagination", func(t *testing.T) {
		resetTable(ctx)

		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		var ids []uuid.UUID
		for i := range 5 {
			event := newTestEvent(10)
			event.Name = fmt.Sprintf("Event %d", i)
			event.Date = base.Add(time.Duration(i) * 24 * time.Hour)
			require.NoError(t, db.CreateEvent(ctx, event))
			ids = append(ids, event.ID)
		}

		first, err := db.GetEvents(ctx, 2, nil)
		require.NoError(t, err)
		require.Len(t, first.Data, 2)
		assert.True(t, first.HasNextPage)
		require.NotNil(t, first.Cursor)
		assert.Equal(t, ids[4], first.Data[0].ID)
		assert.Equal(t, ids[3], first.Data[1].ID)

		second, err := db.GetEvents(ctx, 2, first.Cursor)
		require.NoError(t, err)
		require.Len(t, second.Data, 2)
		assert.Equal(t, ids[2], second.Data[0].ID)
		assert.Equal(t, ids[1], second.Data[1].ID)

		third, err := db.GetEvents(ctx, 2, second.Cursor)
		require.NoError(t, err)
		require.Len(t, third.Data, 1)
		assert.Equal(t, ids[0], third.Data[0].ID)
		assert.False(t, third.HasNextPage)
		assert.Nil(t, third.Cursor)
	})

	t.Run("invalid cursor", func(t *testing.T) {
		resetTable(ctx)

		_, err := db.GetEvents(ctx, 2, ptr.String("not-a-cursor"))

		var eventError *events.Error
		require.ErrorAs(t, err, &eventError)
		assert.Equal(t, events.REASON_INVALID_CURSOR, eventError.Reason)
	})
}

func TestUpdateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("update keeps the registration count", func(t *testing.T) {
		resetTable(ctx)
		event := newTestEvent(10)
		require.NoError(t, db.CreateEvent(ctx, event))
		require.NoError(t, db.CreateRegistration(ctx, newTestRegistration(event, uuid.New(), "KEEP0001")))

		stale := event
		stale.Name = "Renamed"
		stale.Price = money.New(3000, money.USD)
		stale.ImageURL = nil
		stale.Date = event.Date.Add(time.Hour)
		require.NoError(t, db.UpdateEvent(ctx, stale))

		got, err := db.GetEvent(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
		assert.Equal(t, int64(3000), got.Price.Amount())
		assert.Nil(t, got.ImageURL)
		assert.True(t, stale.Date.Equal(got.Date))
		assert.Equal(t, 1, got.NumRegistrations)
	})

	t.Run("fail to update an event that does not exist", func(t *testing.T) {
		resetTable(ctx)

		err := db.UpdateEvent(ctx, newTestEvent(10))

		var eventError *events.Error
		require.ErrorAs(t, err, &eventError)
		assert.Equal(t, events.REASON_EVENT_DOES_NOT_EXIST, eventError.Reason)
	})
}

func TestDeleteEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("successfully delete an event", func(t *testing.T) {
		resetTable(ctx)
		event := newTestEvent(10)
		require.NoError(t, db.CreateEvent(ctx, event))

		require.NoError(t, db.DeleteEvent(ctx, event.ID))

		_, err := db.GetEvent(ctx, event.ID)
		var eventError *events.Error
		require.ErrorAs(t, err, &eventError)
		assert.Equal(t, events.REASON_EVENT_DOES_NOT_EXIST, eventError.Reason)
	})

	t.Run("fail to delete an event that does not exist", func(t *testing.T) {
		resetTable(ctx)

		err := db.DeleteEvent(ctx, uuid.New())

		var eventError *events.Error
		require.ErrorAs(t, err, &eventError)
		assert.Equal(t, events.REASON_EVENT_DOES_NOT_EXIST, eventError.Reason)
	})
}
