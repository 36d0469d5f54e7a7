package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
)

const (
	gsi1 = "GSI1"

	// sortableTime keeps every timestamp the same width so GSI sort keys order
	// lexicographically the same way they order in time.
	sortableTime = "2006-01-02T15:04:05.000000000Z"

	cancellationConditionFailed = "ConditionalCheckFailed"
	cancellationConflict        = "TransactionConflict"

	maxTransactionTries = 8
)

var tracer = otel.Tracer("github.com/International-Combat-Archery-Alliance/event-ticketing/dynamo")

type DB struct {
	dynamoClient *dynamodb.Client
	tableName    string
}

func NewDB(dynamoClient *dynamodb.Client, tableName string) *DB {
	return &DB{
		dynamoClient: dynamoClient,
		tableName:    tableName,
	}
}

func newEntityConditional() expression.ConditionBuilder {
	return expression.Name("PK").AttributeNotExists()
}

func existingEntityConditional() expression.ConditionBuilder {
	return expression.Name("PK").AttributeExists()
}

func exprMustBuild(builder expression.Builder) expression.Expression {
	expr, err := builder.Build()
	if err != nil {
		panic("failed to build dynamo expression")
	}

	return expr
}

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func formatSortableTime(t time.Time) string {
	return t.UTC().Format(sortableTime)
}

// transactWrite runs a transaction and retries it while DynamoDB reports it
// lost a race with another transaction on the same items. Any other outcome,
// including a failed condition, is returned to the caller as-is.
func (d *DB) transactWrite(ctx context.Context, input *dynamodb.TransactWriteItemsInput) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		_, err := d.dynamoClient.TransactWriteItems(ctx, input)
		if err == nil {
			return struct{}{}, nil
		}
		if isTransactionConflict(err) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxTransactionTries))

	return err
}

func isTransactionConflict(err error) bool {
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if aws.ToString(reason.Code) == cancellationConflict {
				return true
			}
		}
		return false
	}

	var conflict *types.TransactionConflictException
	return errors.As(err, &conflict)
}

// conditionFailed reports whether the item at index i of a cancelled
// transaction failed its condition.
func conditionFailed(canceled *types.TransactionCanceledException, i int) bool {
	if i >= len(canceled.CancellationReasons) {
		return false
	}
	return aws.ToString(canceled.CancellationReasons[i].Code) == cancellationConditionFailed
}

// CreateTable creates the single table every repository in this package
// shares, and waits for it to become active.
func CreateTable(ctx context.Context, client *dynamodb.Client, tableName string) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(tableName),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("PK"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("SK"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("GSI1PK"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("GSI1SK"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("PK"),
				KeyType:       types.KeyTypeHash,
			},
			{
				AttributeName: aws.String("SK"),
				KeyType:       types.KeyTypeRange,
			},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(gsi1),
				KeySchema: []types.KeySchemaElement{
					{
						AttributeName: aws.String("GSI1PK"),
						KeyType:       types.KeyTypeHash,
					},
					{
						AttributeName: aws.String("GSI1SK"),
						KeyType:       types.KeyTypeRange,
					},
				},
				Projection: &types.Projection{
					ProjectionType: types.ProjectionTypeAll,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	err = waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)}, 2*time.Minute)
	if err != nil {
		return fmt.Errorf("table %q never became active: %w", tableName, err)
	}

	return nil
}
