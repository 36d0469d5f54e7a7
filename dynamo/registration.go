package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/registration"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/slices"
	"github.com/Rhymond/go-money"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ registration.Repository = &DB{}

type registrationDynamo struct {
	PK              string
	SK              string
	GSI1PK          string
	GSI1SK          string
	ID              string
	EventID         string
	AccountID       string
	PaymentAmount   int64
	PaymentCurrency string
	PaymentStatus   registration.PaymentStatus
	TicketCode      string
	RegisteredAt    time.Time
}

// attendeeDynamo marks that an account holds a registration for an event.
type attendeeDynamo struct {
	PK             string
	SK             string
	RegistrationID string
}

// ticketDynamo reserves a ticket code for the lifetime of the table.
type ticketDynamo struct {
	PK             string
	SK             string
	RegistrationID string
	EventID        string
}

const (
	registrationEntityName = "REGISTRATION"
	attendeeEntityName     = "ATTENDEE"
	ticketEntityName       = "TICKET"
)

// Positions of the items in the registration transaction. Cancellation
// reasons come back in the same order.
const (
	txEventCounter = iota
	txAttendeeMarker
	txTicketMarker
	txRegistration
)

func registrationPK(eventId uuid.UUID) string {
	return eventPK(eventId)
}

func registrationSK(id uuid.UUID) string {
	return fmt.Sprintf("%s#%s", registrationEntityName, id)
}

func attendeeSK(accountID uuid.UUID) string {
	return fmt.Sprintf("%s#%s", attendeeEntityName, accountID)
}

func ticketPK(code string) string {
	return fmt.Sprintf("%s#%s", ticketEntityName, code)
}

func registrationToDynamo(reg registration.Registration) registrationDynamo {
	return registrationDynamo{
		PK:              registrationPK(reg.EventID),
		SK:              registrationSK(reg.ID),
		GSI1PK:          accountPK(reg.AccountID),
		GSI1SK:          fmt.Sprintf("%s#%s#%s", registrationEntityName, formatSortableTime(reg.RegisteredAt), reg.ID),
		ID:              reg.ID.String(),
		EventID:         reg.EventID.String(),
		AccountID:       reg.AccountID.String(),
		PaymentAmount:   reg.PaymentAmount.Amount(),
		PaymentCurrency: reg.PaymentAmount.Currency().Code,
		PaymentStatus:   reg.PaymentStatus,
		TicketCode:      reg.TicketCode,
		RegisteredAt:    reg.RegisteredAt,
	}
}

func dynamoToRegistration(dynReg registrationDynamo) registration.Registration {
	return registration.Registration{
		ID:            uuid.MustParse(dynReg.ID),
		EventID:       uuid.MustParse(dynReg.EventID),
		AccountID:     uuid.MustParse(dynReg.AccountID),
		PaymentAmount: money.New(dynReg.PaymentAmount, dynReg.PaymentCurrency),
		PaymentStatus: dynReg.PaymentStatus,
		TicketCode:    dynReg.TicketCode,
		RegisteredAt:  dynReg.RegisteredAt,
	}
}

// CreateRegistration writes the registration in one transaction that also
// counts it against the event's capacity and claims the attendee and ticket
// code markers. Either every item commits or none does.
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

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	dynamoReg := registrationToDynamo(reg)
	regItem, err := attributevalue.MarshalMap(dynamoReg)
	if err != nil {
		return registration.NewFailedToTranslateToDBModelError("Failed to translate registration to dynamo model", err)
	}
	attendeeItem, err := attributevalue.MarshalMap(attendeeDynamo{
		PK:             eventPK(reg.EventID),
		SK:             attendeeSK(reg.AccountID),
		RegistrationID: reg.ID.String(),
	})
	if err != nil {
		return registration.NewFailedToTranslateToDBModelError("Failed to translate attendee marker to dynamo model", err)
	}
	ticketItem, err := attributevalue.MarshalMap(ticketDynamo{
		PK:             ticketPK(reg.TicketCode),
		SK:             ticketPK(reg.TicketCode),
		RegistrationID: reg.ID.String(),
		EventID:        reg.EventID.String(),
	})
	if err != nil {
		return registration.NewFailedToTranslateToDBModelError("Failed to translate ticket marker to dynamo model", err)
	}

	counterExpr := exprMustBuild(expression.NewBuilder().
		WithCondition(existingEntityConditional().
			And(expression.Name("NumRegistrations").LessThan(expression.Name("Capacity")))).
		WithUpdate(expression.Add(expression.Name("NumRegistrations"), expression.Value(1))))
	newExpr := exprMustBuild(expression.NewBuilder().WithCondition(newEntityConditional()))

	put := func(item map[string]types.AttributeValue) types.TransactWriteItem {
		return types.TransactWriteItem{
			Put: &types.Put{
				TableName:                 aws.String(d.tableName),
				Item:                      item,
				ConditionExpression:       newExpr.Condition(),
				ExpressionAttributeNames:  newExpr.Names(),
				ExpressionAttributeValues: newExpr.Values(),
			},
		}
	}

	items := make([]types.TransactWriteItem, 4)
	items[txEventCounter] = types.TransactWriteItem{
		Update: &types.Update{
			TableName:                           aws.String(d.tableName),
			Key:                                 itemKey(eventPK(reg.EventID), eventSK(reg.EventID)),
			UpdateExpression:                    counterExpr.Update(),
			ConditionExpression:                 counterExpr.Condition(),
			ExpressionAttributeNames:            counterExpr.Names(),
			ExpressionAttributeValues:           counterExpr.Values(),
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		},
	}
	items[txAttendeeMarker] = put(attendeeItem)
	items[txTicketMarker] = put(ticketItem)
	items[txRegistration] = put(regItem)

	err = d.transactWrite(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err == nil {
		return nil
	}

	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		return d.registrationCancellationError(ctx, reg, canceled)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return registration.NewTimeoutError("CreateRegistration timed out")
	}
	return registration.NewFailedToWriteError("Failed TransactWriteItems call", err)
}

// registrationCancellationError picks the error for a cancelled registration
// transaction. A missing event wins over a duplicate, which wins over a full
// event, which wins over a taken ticket code.
func (d *DB) registrationCancellationError(ctx context.Context, reg registration.Registration, canceled *types.TransactionCanceledException) error {
	if conditionFailed(canceled, txEventCounter) {
		old := canceled.CancellationReasons[txEventCounter].Item
		if len(old) == 0 {
			return registration.NewAssociatedEventDoesNotExistError(fmt.Sprintf("Event with ID %q not found", reg.EventID), canceled)
		}
		registered := conditionFailed(canceled, txAttendeeMarker)
		if !registered {
			var err error
			registered, err = d.hasAttendeeMarker(ctx, reg)
			if err != nil {
				return registration.NewFailedToFetchError("Failed to check existing registration after a cancelled transaction", errors.Join(canceled, err))
			}
		}
		if registered {
			return registration.NewRegistrationAlreadyExistsError("Account is already registered for this event", canceled)
		}

		var event eventDynamo
		if err := attributevalue.UnmarshalMap(old, &event); err != nil {
			panic(fmt.Sprintf("failed to unmarshal event from DB: %s", err))
		}
		return registration.NewCapacityExceededError(event.Capacity, canceled)
	}
	if conditionFailed(canceled, txAttendeeMarker) {
		return registration.NewRegistrationAlreadyExistsError("Account is already registered for this event", canceled)
	}
	if conditionFailed(canceled, txTicketMarker) {
		return registration.NewTicketCodeTakenError(reg.TicketCode, canceled)
	}
	if conditionFailed(canceled, txRegistration) {
		return registration.NewRegistrationAlreadyExistsError(fmt.Sprintf("Registration with ID %q already exists", reg.ID), canceled)
	}
	return registration.NewFailedToWriteError("Registration transaction cancelled", canceled)
}

// DynamoDB may stop evaluating conditions at the first failure, so a full
// event can hide the fact that the account is already registered.
func (d *DB) hasAttendeeMarker(ctx context.Context, reg registration.Registration) (bool, error) {
	resp, err := d.dynamoClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            itemKey(eventPK(reg.EventID), attendeeSK(reg.AccountID)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, err
	}
	return len(resp.Item) > 0, nil
}

func (d *DB) GetRegistrationsForAccount(ctx context.Context, accountID uuid.UUID) ([]registration.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	keyCond := expression.Key("GSI1PK").Equal(expression.Value(accountPK(accountID))).
		And(expression.Key("GSI1SK").BeginsWith(registrationEntityName))

	expr := exprMustBuild(expression.NewBuilder().WithKeyCondition(keyCond))

	paginator := dynamodb.NewQueryPaginator(d.dynamoClient, &dynamodb.QueryInput{
		IndexName:                 aws.String(gsi1),
		TableName:                 aws.String(d.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		// Newest registration first
		ScanIndexForward: aws.Bool(false),
	})

	var regs []registration.Registration
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, registration.NewTimeoutError("GetRegistrationsForAccount timed out")
			}
			return nil, registration.NewFailedToFetchError(fmt.Sprintf("Failed to fetch registrations for account %q", accountID), err)
		}

		var dynamoItems []registrationDynamo
		err = attributevalue.UnmarshalListOfMaps(page.Items, &dynamoItems)
		if err != nil {
			panic(fmt.Sprintf("failed to unmarshal dynamo registrations: %s", err))
		}
		regs = append(regs, slices.Map(dynamoItems, dynamoToRegistration)...)
	}

	return regs, nil
}

func (d *DB) GetAllRegistrationsForEvent(ctx context.Context, eventId uuid.UUID, limit int32, cursor *string) (registration.GetAllRegistrationsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	keyCond := expression.Key("PK").Equal(expression.Value(registrationPK(eventId))).
		And(expression.Key("SK").BeginsWith(registrationEntityName))

	expr := exprMustBuild(expression.NewBuilder().WithKeyCondition(keyCond))

	var startKey map[string]types.AttributeValue
	if cursor != nil {
		var err error
		startKey, err = cursorToLastEval(*cursor)
		if err != nil {
			return registration.GetAllRegistrationsResponse{}, registration.NewInvalidCursorError("Invalid cursor", err)
		}
	}

	result, err := d.dynamoClient.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(d.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		// Fetch 1 more than limit to check if there is another page or not
		Limit:             aws.Int32(limit + 1),
		ExclusiveStartKey: startKey,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return registration.GetAllRegistrationsResponse{}, registration.NewTimeoutError("GetAllRegistrationsForEvent timed out")
		}
		return registration.GetAllRegistrationsResponse{}, registration.NewFailedToFetchError("Failed to fetch registrations from dynamo", err)
	}

	var dynamoItems []registrationDynamo
	err = attributevalue.UnmarshalListOfMaps(result.Items, &dynamoItems)
	if err != nil {
		panic(fmt.Sprintf("failed to unmarshal dynamo registrations: %s", err))
	}

	return registration.GetAllRegistrationsResponse{
		Data:        slices.Map(dynamoItems, dynamoToRegistration)[:min(int(limit), len(dynamoItems))],
		Cursor:      nextPageCursor(result.Items, tableKeyAttributes, limit),
		HasNextPage: len(dynamoItems) > int(limit),
	}, nil
}
