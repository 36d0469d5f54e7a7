package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/events"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/slices"
	"github.com/Rhymond/go-money"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

var _ events.Repository = &DB{}

type eventDynamo struct {
	PK               string
	SK               string
	GSI1PK           string
	GSI1SK           string
	ID               string
	Name             string
	Description      string
	Date             time.Time
	Location         string
	PriceAmount      int64
	PriceCurrency    string
	Capacity         int
	ImageURL         *string
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	NumRegistrations int
}

const (
	eventEntityName = "EVENT"
)

func eventPK(id uuid.UUID) string {
	return fmt.Sprintf("%s#%s", eventEntityName, id)
}

func eventSK(id uuid.UUID) string {
	return fmt.Sprintf("%s#%s", eventEntityName, id)
}

func eventGSI1SK(event events.Event) string {
	return fmt.Sprintf("%s#%s#%s", eventEntityName, formatSortableTime(event.Date), event.ID)
}

func newEventDynamo(event events.Event) eventDynamo {
	return eventDynamo{
		PK:               eventPK(event.ID),
		SK:               eventSK(event.ID),
		GSI1PK:           eventEntityName,
		GSI1SK:           eventGSI1SK(event),
		ID:               event.ID.String(),
		Name:             event.Name,
		Description:      event.Description,
		Date:             event.Date,
		Location:         event.Location,
		PriceAmount:      event.Price.Amount(),
		PriceCurrency:    event.Price.Currency().Code,
		Capacity:         event.Capacity,
		ImageURL:         event.ImageURL,
		CreatedBy:        event.CreatedBy.String(),
		CreatedAt:        event.CreatedAt,
		UpdatedAt:        event.UpdatedAt,
		NumRegistrations: event.NumRegistrations,
	}
}

func eventFromEventDynamo(event eventDynamo) events.Event {
	return events.Event{
		ID:               uuid.MustParse(event.ID),
		Name:             event.Name,
		Description:      event.Description,
		Date:             event.Date,
		Location:         event.Location,
		Price:            money.New(event.PriceAmount, event.PriceCurrency),
		Capacity:         event.Capacity,
		ImageURL:         event.ImageURL,
		CreatedBy:        uuid.MustParse(event.CreatedBy),
		CreatedAt:        event.CreatedAt,
		UpdatedAt:        event.UpdatedAt,
		NumRegistrations: event.NumRegistrations,
	}
}

func (d *DB) GetEvent(ctx context.Context, id uuid.UUID) (events.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	resp, err := d.dynamoClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            itemKey(eventPK(id), eventSK(id)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return events.Event{}, events.NewTimeoutError("GetEvent timed out")
		}
		return events.Event{}, events.NewFailedToFetchError(fmt.Sprintf("Failed to fetch event with ID %q", id), err)
	}

	if len(resp.Item) == 0 {
		return events.Event{}, events.NewEventDoesNotExistsError(fmt.Sprintf("Event with ID %q not found", id), nil)
	}

	var event eventDynamo
	err = attributevalue.UnmarshalMap(resp.Item, &event)
	if err != nil {
		panic(fmt.Sprintf("failed to unmarshal event from DB: %s", err))
	}
	return eventFromEventDynamo(event), nil
}

func (d *DB) CreateEvent(ctx context.Context, event events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	item, err := attributevalue.MarshalMap(newEventDynamo(event))
	if err != nil {
		return events.NewFailedToTranslateToDBModelError("Failed to convert Event to eventDynamo", err)
	}

	expr := exprMustBuild(expression.NewBuilder().WithCondition(newEntityConditional()))

	_, err = d.dynamoClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(d.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condCheckFailedErr *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailedErr) {
			return events.NewEventAlreadyExistsError(fmt.Sprintf("Event with ID %q already exists", event.ID), err)
		} else if errors.Is(err, context.DeadlineExceeded) {
			return events.NewTimeoutError("CreateEvent timed out")
		} else {
			return events.NewFailedToWriteError("Failed PutItem call", err)
		}
	}

	return nil
}

func (d *DB) GetEvents(ctx context.Context, limit int32, cursor *string) (events.GetEventsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	keyCond := expression.Key("GSI1PK").Equal(expression.Value(eventEntityName)).
		And(expression.Key("GSI1SK").BeginsWith(eventEntityName))

	expr := exprMustBuild(expression.NewBuilder().WithKeyCondition(keyCond))

	var startKey map[string]types.AttributeValue
	if cursor != nil {
		var err error
		startKey, err = cursorToLastEval(*cursor)
		if err != nil {
			return events.GetEventsResponse{}, events.NewInvalidCursorError("Invalid cursor", err)
		}
	}

	result, err := d.dynamoClient.Query(ctx, &dynamodb.QueryInput{
		IndexName:                 aws.String(gsi1),
		TableName:                 aws.String(d.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		// Want to sort newest event first
		ScanIndexForward: aws.Bool(false),
		// Fetch 1 more than limit to check if there is another page or not
		Limit:             aws.Int32(limit + 1),
		ExclusiveStartKey: startKey,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return events.GetEventsResponse{}, events.NewTimeoutError("GetEvents timed out")
		}
		return events.GetEventsResponse{}, events.NewFailedToFetchError("Failed to fetch events from dynamo", err)
	}

	var dynamoItems []eventDynamo
	err = attributevalue.UnmarshalListOfMaps(result.Items, &dynamoItems)
	if err != nil {
		panic(fmt.Sprintf("failed to unmarshal dynamo events: %s", err))
	}

	return events.GetEventsResponse{
		Data: slices.Map(dynamoItems, func(v eventDynamo) events.Event {
			return eventFromEventDynamo(v)
		})[:min(int(limit), len(dynamoItems))],
		Cursor:      nextPageCursor(result.Items, gsi1KeyAttributes, limit),
		HasNextPage: len(dynamoItems) > int(limit),
	}, nil
}

// UpdateEvent only sets the descriptive fields so a registration landing at
// the same time keeps its increment of NumRegistrations.
func (d *DB) UpdateEvent(ctx context.Context, event events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	dynamoItem := newEventDynamo(event)

	update := expression.Set(expression.Name("Name"), expression.Value(dynamoItem.Name)).
		Set(expression.Name("Description"), expression.Value(dynamoItem.Description)).
		Set(expression.Name("Date"), expression.Value(dynamoItem.Date)).
		Set(expression.Name("GSI1SK"), expression.Value(dynamoItem.GSI1SK)).
		Set(expression.Name("Location"), expression.Value(dynamoItem.Location)).
		Set(expression.Name("PriceAmount"), expression.Value(dynamoItem.PriceAmount)).
		Set(expression.Name("PriceCurrency"), expression.Value(dynamoItem.PriceCurrency)).
		Set(expression.Name("Capacity"), expression.Value(dynamoItem.Capacity)).
		Set(expression.Name("UpdatedAt"), expression.Value(dynamoItem.UpdatedAt))
	if dynamoItem.ImageURL != nil {
		update = update.Set(expression.Name("ImageURL"), expression.Value(*dynamoItem.ImageURL))
	} else {
		update = update.Remove(expression.Name("ImageURL"))
	}

	expr := exprMustBuild(expression.NewBuilder().
		WithUpdate(update).
		WithCondition(existingEntityConditional()))

	_, err := d.dynamoClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(d.tableName),
		Key:                       itemKey(eventPK(event.ID), eventSK(event.ID)),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condCheckFailedErr *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailedErr) {
			return events.NewEventDoesNotExistsError(fmt.Sprintf("Event with ID %q does not exists", event.ID), err)
		} else if errors.Is(err, context.DeadlineExceeded) {
			return events.NewTimeoutError("UpdateEvent timed out")
		} else {
			return events.NewFailedToWriteError("Failed UpdateItem call", err)
		}
	}

	return nil
}

// DeleteEvent removes the event item only. Registrations and their markers
// stay behind so issued ticket codes are never reused.
func (d *DB) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	expr := exprMustBuild(expression.NewBuilder().WithCondition(existingEntityConditional()))

	_, err := d.dynamoClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(d.tableName),
		Key:                       itemKey(eventPK(id), eventSK(id)),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condCheckFailedErr *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailedErr) {
			return events.NewEventDoesNotExistsError(fmt.Sprintf("Event with ID %q does not exists", id), err)
		} else if errors.Is(err, context.DeadlineExceeded) {
			return events.NewTimeoutError("DeleteEvent timed out")
		} else {
			return events.NewFailedToWriteError("Failed DeleteItem call", err)
		}
	}

	return nil
}
