package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/accounts"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/roles"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ accounts.Repository = &DB{}

const accountColumns = `id, full_name, email, phone, college, course, password_hash, created_at, updated_at`

func scanAccount(row pgx.CollectableRow) (accounts.Account, error) {
	var a accounts.Account
	err := row.Scan(&a.ID, &a.FullName, &a.Email, &a.Phone, &a.College, &a.Course, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return accounts.Account{}, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

func (d *DB) CreateAccount(ctx context.Context, account accounts.Account, defaultGrant roles.Grant) error {
	ctx, span := tracer.Start(ctx, "DB.CreateAccount")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO accounts (`+accountColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			account.ID, account.FullName, account.Email, account.Phone, account.College, account.Course,
			account.PasswordHash, account.CreatedAt, account.UpdatedAt,
		)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO role_grants (account_id, role, created_at) VALUES ($1, $2, $3)`,
			defaultGrant.AccountID, string(defaultGrant.Role), defaultGrant.CreatedAt,
		)
		return err
	})
	if err != nil {
		span.RecordError(err)

		if constraint, ok := violatedConstraint(err, codeUniqueViolation); ok {
			if constraint == constraintAccountsEmail {
				return accounts.NewEmailAlreadyRegisteredError(account.Email, err)
			}
			return accounts.NewAccountAlreadyExistsError(fmt.Sprintf("Account with ID %q already exists", account.ID), err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return accounts.NewTimeoutError("CreateAccount timed out")
		}
		return accounts.NewFailedToWriteError("Failed to insert account", err)
	}

	return nil
}

func (d *DB) GetAccount(ctx context.Context, id uuid.UUID) (accounts.Account, error) {
	return d.getAccountWhere(ctx, "id", id)
}

func (d *DB) GetAccountByEmail(ctx context.Context, email string) (accounts.Account, error) {
	return d.getAccountWhere(ctx, "email", email)
}

func (d *DB) getAccountWhere(ctx context.Context, column string, value any) (accounts.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, _ := d.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+column+` = $1`, value)
	account, err := pgx.CollectExactlyOneRow(rows, scanAccount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounts.Account{}, accounts.NewAccountDoesNotExistError(fmt.Sprintf("No account with %s %v", column, value), nil)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return accounts.Account{}, accounts.NewTimeoutError("Account lookup timed out")
		}
		return accounts.Account{}, accounts.NewFailedToFetchError("Failed to fetch account", err)
	}
	return account, nil
}
