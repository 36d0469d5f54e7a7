package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/stats"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var _ stats.Repository = &DB{}

const statsTimeout = 10 * time.Second

func (d *DB) CountEvents(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, statsTimeout)
	defer cancel()

	keyCond := expression.Key("GSI1PK").Equal(expression.Value(eventEntityName))
	expr := exprMustBuild(expression.NewBuilder().WithKeyCondition(keyCond))

	paginator := dynamodb.NewQueryPaginator(d.dynamoClient, &dynamodb.QueryInput{
		IndexName:                 aws.String(gsi1),
		TableName:                 aws.String(d.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Select:                    types.SelectCount,
	})

	count := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count events: %w", err)
		}
		count += int(page.Count)
	}

	return count, nil
}

type revenueDynamo struct {
	PaymentAmount   int64
	PaymentCurrency string
}

// GetRevenueTotals scans the whole table. It is only used for the admin
// summary, which tolerates the cost and the lack of a snapshot.
func (d *DB) GetRevenueTotals(ctx context.Context) ([]stats.RevenueTotal, error) {
	ctx, cancel := context.WithTimeout(ctx, statsTimeout)
	defer cancel()

	filter := expression.Name("SK").BeginsWith(registrationEntityName)
	projection := expression.NamesList(expression.Name("PaymentAmount"), expression.Name("PaymentCurrency"))
	expr := exprMustBuild(expression.NewBuilder().WithFilter(filter).WithProjection(projection))

	paginator := dynamodb.NewScanPaginator(d.dynamoClient, &dynamodb.ScanInput{
		TableName:                 aws.String(d.tableName),
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	byCurrency := map[string]*stats.RevenueTotal{}
	var order []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registrations: %w", err)
		}

		var items []revenueDynamo
		err = attributevalue.UnmarshalListOfMaps(page.Items, &items)
		if err != nil {
			panic(fmt.Sprintf("failed to unmarshal dynamo registrations: %s", err))
		}

		for _, item := range items {
			total, ok := byCurrency[item.PaymentCurrency]
			if !ok {
				total = &stats.RevenueTotal{Currency: item.PaymentCurrency}
				byCurrency[item.PaymentCurrency] = total
				order = append(order, item.PaymentCurrency)
			}
			total.Registrations++
			total.Amount += item.PaymentAmount
		}
	}

	totals := make([]stats.RevenueTotal, 0, len(order))
	for _, currency := range order {
		totals = append(totals, *byCurrency[currency])
	}
	return totals, nil
}
