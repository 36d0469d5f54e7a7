package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/accounts"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/roles"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

var _ accounts.Repository = &DB{}

type accountDynamo struct {
	PK           string
	SK           string
	ID           string
	FullName     string
	Email        string
	Phone        string
	College      string
	Course       string
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// emailDynamo claims an email address for one account. Its key is the
// address, so a second claim fails its condition.
type emailDynamo struct {
	PK        string
	SK        string
	AccountID string
}

const (
	accountEntityName = "ACCOUNT"
	emailEntityName   = "EMAIL"
)

func accountPK(id uuid.UUID) string {
	return fmt.Sprintf("%s#%s", accountEntityName, id)
}

func accountSK(id uuid.UUID) string {
	return fmt.Sprintf("%s#%s", accountEntityName, id)
}

func emailPK(email string) string {
	return fmt.Sprintf("%s#%s", emailEntityName, email)
}

func emailSK(email string) string {
	return fmt.Sprintf("%s#%s", emailEntityName, email)
}

func newAccountDynamo(account accounts.Account) accountDynamo {
	return accountDynamo{
		PK:           accountPK(account.ID),
		SK:           accountSK(account.ID),
		ID:           account.ID.String(),
		FullName:     account.FullName,
		Email:        account.Email,
		Phone:        account.Phone,
		College:      account.College,
		Course:       account.Course,
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	}
}

func accountFromAccountDynamo(account accountDynamo) accounts.Account {
	return accounts.Account{
		ID:           uuid.MustParse(account.ID),
		FullName:     account.FullName,
		Email:        account.Email,
		Phone:        account.Phone,
		College:      account.College,
		Course:       account.Course,
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	}
}

func (d *DB) CreateAccount(ctx context.Context, account accounts.Account, defaultGrant roles.Grant) error {
	ctx, span := tracer.Start(ctx, "DB.CreateAccount")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	accountItem, err := attributevalue.MarshalMap(newAccountDynamo(account))
	if err != nil {
		return accounts.NewFailedToTranslateToDBModelError("Failed to convert Account to accountDynamo", err)
	}
	emailItem, err := attributevalue.MarshalMap(emailDynamo{
		PK:        emailPK(account.Email),
		SK:        emailSK(account.Email),
		AccountID: account.ID.String(),
	})
	if err != nil {
		return accounts.NewFailedToTranslateToDBModelError("Failed to convert email claim to dynamo model", err)
	}
	grantItem, err := attributevalue.MarshalMap(newGrantDynamo(defaultGrant))
	if err != nil {
		return accounts.NewFailedToTranslateToDBModelError("Failed to convert Grant to grantDynamo", err)
	}

	expr := exprMustBuild(expression.NewBuilder().WithCondition(newEntityConditional()))
	put := func(item map[string]types.AttributeValue) types.TransactWriteItem {
		return types.TransactWriteItem{
			Put: &types.Put{
				TableName:                 aws.String(d.tableName),
				Item:                      item,
				ConditionExpression:       expr.Condition(),
				ExpressionAttributeNames:  expr.Names(),
				ExpressionAttributeValues: expr.Values(),
			},
		}
	}

	err = d.transactWrite(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			put(accountItem),
			put(emailItem),
			put(grantItem),
		},
	})
	if err != nil {
		span.RecordError(err)

		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			switch {
			case conditionFailed(canceled, 1):
				return accounts.NewEmailAlreadyRegisteredError(account.Email, err)
			case conditionFailed(canceled, 0), conditionFailed(canceled, 2):
				return accounts.NewAccountAlreadyExistsError(fmt.Sprintf("Account with ID %q already exists", account.ID), err)
			}
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return accounts.NewTimeoutError("CreateAccount timed out")
		}
		return accounts.NewFailedToWriteError("Failed TransactWriteItems call", err)
	}

	return nil
}

func (d *DB) GetAccount(ctx context.Context, id uuid.UUID) (accounts.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	resp, err := d.dynamoClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            itemKey(accountPK(id), accountSK(id)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return accounts.Account{}, accounts.NewTimeoutError("GetAccount timed out")
		}
		return accounts.Account{}, accounts.NewFailedToFetchError(fmt.Sprintf("Failed to fetch account with ID %q", id), err)
	}

	if len(resp.Item) == 0 {
		return accounts.Account{}, accounts.NewAccountDoesNotExistError(fmt.Sprintf("Account with ID %q not found", id), nil)
	}

	var account accountDynamo
	err = attributevalue.UnmarshalMap(resp.Item, &account)
	if err != nil {
		panic(fmt.Sprintf("failed to unmarshal account from DB: %s", err))
	}
	return accountFromAccountDynamo(account), nil
}

func (d *DB) GetAccountByEmail(ctx context.Context, email string) (accounts.Account, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	resp, err := d.dynamoClient.GetItem(lookupCtx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            itemKey(emailPK(email), emailSK(email)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return accounts.Account{}, accounts.NewTimeoutError("GetAccountByEmail timed out")
		}
		return accounts.Account{}, accounts.NewFailedToFetchError("Failed to fetch email claim", err)
	}

	if len(resp.Item) == 0 {
		return accounts.Account{}, accounts.NewAccountDoesNotExistError("No account registered with that email", nil)
	}

	var claim emailDynamo
	err = attributevalue.UnmarshalMap(resp.Item, &claim)
	if err != nil {
		panic(fmt.Sprintf("failed to unmarshal email claim from DB: %s", err))
	}

	return d.GetAccount(ctx, uuid.MustParse(claim.AccountID))
}
