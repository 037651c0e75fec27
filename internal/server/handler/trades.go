package handler

import (
	"net/http"

	"github.com/alanyoungcy/edgebot/internal/ledger"
)

// TradeHandler serves the trade history endpoints.
type TradeHandler struct {
	ledger *ledger.Ledger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(l *ledger.Ledger) *TradeHandler {
	return &TradeHandler{ledger: l}
}

// List handles GET /api/trades. Entries are returned newest first.
func (h *TradeHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	writeJSON(w, http.StatusOK, h.ledger.History(limit))
}

// Open handles GET /api/trades/open. An optional market_id query parameter
// scopes the listing to one market; by default every market is included.
func (h *TradeHandler) Open(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.OpenPositions(r.URL.Query().Get("market_id")))
}
