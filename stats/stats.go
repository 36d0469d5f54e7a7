package stats

import (
	"context"
	"fmt"
	"sort"

	"github.com/Rhymond/go-money"
)

// RevenueTotal is one currency's share of all recorded registrations.
// Amount is in minor units.
type RevenueTotal struct {
	Currency      string
	Registrations int
	Amount        int64
}

type Repository interface {
	CountEvents(ctx context.Context) (int, error)
	GetRevenueTotals(ctx context.Context) ([]RevenueTotal, error)
}

type Summary struct {
	EventCount        int
	RegistrationCount int
	// Revenue holds one sum per currency, keyed by ISO code.
	Revenue map[string]*money.Money
}

// Currencies returns the keys of Revenue in a stable order.
func (s Summary) Currencies() []string {
	codes := make([]string, 0, len(s.Revenue))
	for code := range s.Revenue {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// RevenueIn returns the revenue recorded in the given currency, zero if none.
func (s Summary) RevenueIn(currency string) *money.Money {
	if m, ok := s.Revenue[currency]; ok {
		return m
	}
	return money.New(0, currency)
}

// GetSummary is a read-only fold. Registrations committed while it runs may
// or may not be counted.
func GetSummary(ctx context.Context, repo Repository) (Summary, error) {
	eventCount, err := repo.CountEvents(ctx)
	if err != nil {
		return Summary{}, NewFailedToFetchError("Failed to count events", err)
	}

	totals, err := repo.GetRevenueTotals(ctx)
	if err != nil {
		return Summary{}, NewFailedToFetchError("Failed to total registrations", err)
	}

	summary := Summary{
		EventCount: eventCount,
		Revenue:    make(map[string]*money.Money, len(totals)),
	}
	for _, t := range totals {
		summary.RegistrationCount += t.Registrations

		amount := money.New(t.Amount, t.Currency)
		existing, ok := summary.Revenue[t.Currency]
		if !ok {
			summary.Revenue[t.Currency] = amount
			continue
		}
		sum, err := existing.Add(amount)
		if err != nil {
			return Summary{}, fmt.Errorf("failed to add %s revenue: %w", t.Currency, err)
		}
		summary.Revenue[t.Currency] = sum
	}

	return summary, nil
}
