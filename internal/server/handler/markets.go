package handler

import (
	"context"
	"net/http"

	"github.com/alanyoungcy/edgebot/internal/domain"
	"github.com/alanyoungcy/edgebot/internal/engine"
)

// MarketDirectory lists and resolves markets from the market data API.
type MarketDirectory interface {
	ListMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error)
	GetMarket(ctx context.Context, id string) (domain.Market, error)
	GetMarketBySlug(ctx context.Context, slug string) (domain.Market, error)
}

// BookSubscriber receives the set of token IDs whose order books should be
// kept fresh.
type BookSubscriber interface {
	SetTokens(tokens []string)
}

// MarketHandler serves market discovery and selection endpoints.
type MarketHandler struct {
	directory MarketDirectory
	engine    *engine.Engine
	books     BookSubscriber
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(directory MarketDirectory, eng *engine.Engine, books BookSubscriber) *MarketHandler {
	return &MarketHandler{directory: directory, engine: eng, books: books}
}

// List handles GET /api/markets.
func (h *MarketHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	if limit < 1 || limit > 500 {
		limit = 50
	}

	markets, err := h.directory.ListMarkets(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, markets)
}

// selectRequest identifies a market by ID or by slug.
type selectRequest struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// Select handles POST /api/markets/select. The engine switches to the new
// market and the book refresher starts tracking its tokens.
func (h *MarketHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid select payload: "+err.Error())
		return
	}
	if req.ID == "" && req.Slug == "" {
		writeBadRequest(w, "either id or slug is required")
		return
	}

	var (
		market domain.Market
		err    error
	)
	if req.ID != "" {
		market, err = h.directory.GetMarket(r.Context(), req.ID)
	} else {
		market, err = h.directory.GetMarketBySlug(r.Context(), req.Slug)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	h.engine.SelectMarket(market)
	h.books.SetTokens(market.TokenIDs[:])
	writeJSON(w, http.StatusOK, market)
}

// Current handles GET /api/markets/current.
func (h *MarketHandler) Current(w http.ResponseWriter, r *http.Request) {
	market := h.engine.Market()
	if market == nil {
		writeError(w, domain.ErrNoMarketSelected)
		return
	}
	writeJSON(w, http.StatusOK, market)
}
