// Package postgres stores accounts, role grants, events and registrations in
// PostgreSQL. Every write that has to respect an invariant runs in a single
// transaction.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
)

//go:embed schema.sql
var schema string

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"

	constraintTicketCode    = "registrations_ticket_code_key"
	constraintEventAccount  = "registrations_event_account_key"
	constraintAccountsEmail = "accounts_email_key"

	queryTimeout = 2 * time.Second
)

var tracer = otel.Tracer("github.com/International-Combat-Archery-Alliance/event-ticketing/postgres")

type DB struct {
	pool *pgxpool.Pool
}

func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

// NewPool connects to dsn, retrying while the server is still starting.
func NewPool(ctx context.Context, dsn string, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	poolCfg.MaxConns = 20
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond

	return backoff.Retry(ctx, func() (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			logger.WarnContext(ctx, "postgres not reachable yet", slog.String("error", err.Error()))
			return nil, err
		}
		return pool, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(5))
}

// Migrate creates any missing tables and indexes. It is safe to run on every
// start.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func violatedConstraint(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName, true
	}
	return "", false
}
