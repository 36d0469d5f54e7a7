package postgres

import (
	"context"
	"fmt"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/roles"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ roles.Repository = &DB{}

func (d *DB) CreateGrant(ctx context.Context, grant roles.Grant) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := d.pool.Exec(ctx,
		`INSERT INTO role_grants (account_id, role, created_at) VALUES ($1, $2, $3)`,
		grant.AccountID, string(grant.Role), grant.CreatedAt,
	)
	if err != nil {
		if _, ok := violatedConstraint(err, codeForeignKeyViolation); ok {
			return roles.NewAccountDoesNotExistError(fmt.Sprintf("Account with ID %q not found", grant.AccountID), err)
		}
		if _, ok := violatedConstraint(err, codeUniqueViolation); ok {
			return roles.NewGrantAlreadyExistsError(fmt.Sprintf("Account %q already holds role %q", grant.AccountID, grant.Role), err)
		}
		return roles.NewFailedToWriteError("Failed to insert grant", err)
	}
	return nil
}

func (d *DB) GetGrants(ctx context.Context, accountID uuid.UUID) ([]roles.Grant, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, _ := d.pool.Query(ctx,
		`SELECT account_id, role, created_at FROM role_grants WHERE account_id = $1 ORDER BY created_at`,
		accountID,
	)
	grants, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (roles.Grant, error) {
		var (
			g    roles.Grant
			role string
		)
		if err := row.Scan(&g.AccountID, &role, &g.CreatedAt); err != nil {
			return roles.Grant{}, err
		}
		g.Role = roles.Role(role)
		g.CreatedAt = g.CreatedAt.UTC()
		return g, nil
	})
	if err != nil {
		return nil, roles.NewFailedToFetchError(fmt.Sprintf("Failed to fetch grants for account %q", accountID), err)
	}
	return grants, nil
}
