package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/stockcast/backend/internal/contracts"
	"github.com/wonny/stockcast/backend/pkg/logger"
)

const maxHistoryLimit = 100

// RunLister lists stored forecast runs (store.RunRepository)
type RunLister interface {
	ListRuns(ctx context.Context, symbol string, limit int) ([]contracts.ForecastRun, error)
}

// HistoryHandler serves past forecast runs
type HistoryHandler struct {
	runs   RunLister
	logger *logger.Logger
}

// NewHistoryHandler creates a history handler; runs may be nil when the DB is disabled
func NewHistoryHandler(runs RunLister, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{runs: runs, logger: log}
}

// List returns recent runs for a symbol
// GET /api/forecasts/{symbol}?limit=20
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "forecast history is disabled (DATABASE_URL not set)")
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["symbol"]))
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := h.runs.ListRuns(r.Context(), symbol, limit)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to list forecast runs")
		respondError(w, http.StatusInternalServerError, "failed to list forecast runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"count":  len(runs),
		"runs":   runs,
	})
}
