package postgres

import (
	"context"
	"fmt"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/stats"
	"github.com/jackc/pgx/v5"
)

var _ stats.Repository = &DB{}

func (d *DB) CountEvents(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var count int
	if err := d.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

func (d *DB) GetRevenueTotals(ctx context.Context) ([]stats.RevenueTotal, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, _ := d.pool.Query(ctx,
		`SELECT payment_currency, COUNT(*), COALESCE(SUM(payment_amount), 0)::BIGINT
		 FROM registrations
		 GROUP BY payment_currency
		 ORDER BY payment_currency`,
	)
	totals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (stats.RevenueTotal, error) {
		var t stats.RevenueTotal
		err := row.Scan(&t.Currency, &t.Registrations, &t.Amount)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("total registrations: %w", err)
	}
	return totals, nil
}
