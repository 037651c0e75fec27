package handler

import (
	"context"
	"net/http"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// BalanceSource reports exchange collateral balances.
type BalanceSource interface {
	GetBalances(ctx context.Context) (domain.Balances, error)
}

// BalanceHandler serves the account balance endpoint.
type BalanceHandler struct {
	source BalanceSource
}

// NewBalanceHandler creates a BalanceHandler.
func NewBalanceHandler(source BalanceSource) *BalanceHandler {
	return &BalanceHandler{source: source}
}

// Get handles GET /api/balances.
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	balances, err := h.source.GetBalances(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}
