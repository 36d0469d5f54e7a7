package api

import (
	"log/slog"
	"net/http"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/stats"
)

func (a *API) getAdminStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerFromCtx(ctx)

	summary, err := stats.GetSummary(ctx, a.db)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to get stats", slog.Any("error", err))
		writeInternalError(w, "Failed to fetch statistics")
		return
	}

	byCurrency := make(map[string]float64, len(summary.Revenue))
	for _, code := range summary.Currencies() {
		byCurrency[code] = summary.Revenue[code].AsMajorUnits()
	}

	writeJSON(w, http.StatusOK, Stats{
		TotalEvents:        summary.EventCount,
		TotalRegistrations: summary.RegistrationCount,
		TotalRevenue:       summary.RevenueIn(a.currency).AsMajorUnits(),
		Currency:           a.currency,
		RevenueByCurrency:  byCurrency,
	})
}
