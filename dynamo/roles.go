package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/roles"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

var _ roles.Repository = &DB{}

// Grants live in the account's partition so one query returns all of them.
type grantDynamo struct {
	PK        string
	SK        string
	AccountID string
	Role      roles.Role
	CreatedAt time.Time
}

const (
	roleEntityName = "ROLE"
)

func grantSK(role roles.Role) string {
	return fmt.Sprintf("%s#%s", roleEntityName, role)
}

func newGrantDynamo(grant roles.Grant) grantDynamo {
	return grantDynamo{
		PK:        accountPK(grant.AccountID),
		SK:        grantSK(grant.Role),
		AccountID: grant.AccountID.String(),
		Role:      grant.Role,
		CreatedAt: grant.CreatedAt,
	}
}

func grantFromGrantDynamo(grant grantDynamo) roles.Grant {
	return roles.Grant{
		AccountID: uuid.MustParse(grant.AccountID),
		Role:      grant.Role,
		CreatedAt: grant.CreatedAt,
	}
}

func (d *DB) CreateGrant(ctx context.Context, grant roles.Grant) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	item, err := attributevalue.MarshalMap(newGrantDynamo(grant))
	if err != nil {
		return roles.NewFailedToWriteError("Failed to convert Grant to grantDynamo", err)
	}

	accountExpr := exprMustBuild(expression.NewBuilder().WithCondition(existingEntityConditional()))
	grantExpr := exprMustBuild(expression.NewBuilder().WithCondition(newEntityConditional()))

	err = d.transactWrite(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				ConditionCheck: &types.ConditionCheck{
					TableName:                 aws.String(d.tableName),
					Key:                       itemKey(accountPK(grant.AccountID), accountSK(grant.AccountID)),
					ConditionExpression:       accountExpr.Condition(),
					ExpressionAttributeNames:  accountExpr.Names(),
					ExpressionAttributeValues: accountExpr.Values(),
				},
			},
			{
				Put: &types.Put{
					TableName:                 aws.String(d.tableName),
					Item:                      item,
					ConditionExpression:       grantExpr.Condition(),
					ExpressionAttributeNames:  grantExpr.Names(),
					ExpressionAttributeValues: grantExpr.Values(),
				},
			},
		},
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			switch {
			case conditionFailed(canceled, 0):
				return roles.NewAccountDoesNotExistError(fmt.Sprintf("Account with ID %q not found", grant.AccountID), err)
			case conditionFailed(canceled, 1):
				return roles.NewGrantAlreadyExistsError(fmt.Sprintf("Account %q already holds role %q", grant.AccountID, grant.Role), err)
			}
		}
		return roles.NewFailedToWriteError("Failed TransactWriteItems call", err)
	}

	return nil
}

func (d *DB) GetGrants(ctx context.Context, accountID uuid.UUID) ([]roles.Grant, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	keyCond := expression.Key("PK").Equal(expression.Value(accountPK(accountID))).
		And(expression.Key("SK").BeginsWith(roleEntityName))

	expr := exprMustBuild(expression.NewBuilder().WithKeyCondition(keyCond))

	result, err := d.dynamoClient.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(d.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})
	if err != nil {
		return nil, roles.NewFailedToFetchError(fmt.Sprintf("Failed to fetch grants for account %q", accountID), err)
	}

	var dynamoItems []grantDynamo
	err = attributevalue.UnmarshalListOfMaps(result.Items, &dynamoItems)
	if err != nil {
		panic(fmt.Sprintf("failed to unmarshal dynamo grants: %s", err))
	}

	grants := make([]roles.Grant, 0, len(dynamoItems))
	for _, g := range dynamoItems {
		grants = append(grants, grantFromGrantDynamo(g))
	}
	return grants, nil
}
