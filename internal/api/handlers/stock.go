package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/wonny/stockcast/backend/internal/contracts"
	"github.com/wonny/stockcast/backend/pkg/logger"
)

// ProfileFetcher returns company details (yahoo.Client or its cached wrapper)
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, symbol string) (*contracts.StockProfile, error)
}

// StockInfoRequest is the /stock-info body
type StockInfoRequest struct {
	Symbol string `json:"symbol" validate:"required"`
}

// StockHandler serves company profiles
type StockHandler struct {
	profiles ProfileFetcher
	logger   *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(profiles ProfileFetcher, log *logger.Logger) *StockHandler {
	return &StockHandler{profiles: profiles, logger: log}
}

// StockInfo returns the profile of a symbol
// POST /stock-info
func (h *StockHandler) StockInfo(w http.ResponseWriter, r *http.Request) {
	var req StockInfoRequest
	if err := decodeRequest(r, &req); err != nil {
		respondErr(w, err)
		return
	}

	profile, err := h.profiles.FetchProfile(r.Context(), req.Symbol)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", req.Symbol).Error("Failed to fetch stock info")
		// 프로필 조회 실패는 원인과 무관하게 500
		status := http.StatusInternalServerError
		if errors.Is(err, contracts.ErrMissingInput) {
			status = http.StatusBadRequest
		}
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, profile)
}
