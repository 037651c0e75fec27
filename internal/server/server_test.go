package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/edgebot/internal/books"
	"github.com/alanyoungcy/edgebot/internal/domain"
	"github.com/alanyoungcy/edgebot/internal/engine"
	"github.com/alanyoungcy/edgebot/internal/events"
	"github.com/alanyoungcy/edgebot/internal/ledger"
	"github.com/alanyoungcy/edgebot/internal/pricefeed"
	"github.com/alanyoungcy/edgebot/internal/server/handler"
)

type stubTrader struct{}

func (stubTrader) Ready() bool { return true }

func (stubTrader) PostOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	return domain.OrderResult{Success: true}, nil
}

type stubDirectory struct {
	markets []domain.Market
}

func (d *stubDirectory) ListMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	return d.markets, nil
}

func (d *stubDirectory) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	for _, m := range d.markets {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.Market{}, domain.ErrNotFound
}

func (d *stubDirectory) GetMarketBySlug(ctx context.Context, slug string) (domain.Market, error) {
	for _, m := range d.markets {
		if m.Slug == slug {
			return m, nil
		}
	}
	return domain.Market{}, domain.ErrNotFound
}

type stubSubscriber struct {
	tokens []string
}

func (s *stubSubscriber) SetTokens(tokens []string) {
	s.tokens = tokens
}

func testPolicy() domain.RiskPolicy {
	return domain.RiskPolicy{
		MaxPositionUSD:   10,
		MinEdgePct:       3,
		MinProbability:   60,
		Bias:             domain.BiasBoth,
		TakeProfitPct:    20,
		SellAmountPct:    100,
		MaxBuysPerMarket: 2,
	}
}

type testEnv struct {
	server     *httptest.Server
	engine     *engine.Engine
	ledger     *ledger.Ledger
	events     *events.Log
	subscriber *stubSubscriber
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	feed := pricefeed.New()
	cache := books.NewCache()
	led := ledger.New(nil, logger)
	eventLog := events.NewLog(50)
	eng := engine.New(feed, cache, led, stubTrader{}, eventLog, nil, testPolicy(), engine.Options{}, logger)

	directory := &stubDirectory{markets: []domain.Market{
		{
			ID:       "mkt-1",
			Question: "Will BTC be above $100,000 on September 1?",
			Slug:     "btc-above-100k",
			TokenIDs: [2]string{"yes-tok", "no-tok"},
			Active:   true,
		},
	}}
	subscriber := &stubSubscriber{}

	srv := NewServer(Config{Port: 0, APIKey: apiKey}, Handlers{
		Health:  handler.NewHealthHandler(),
		Engine:  handler.NewEngineHandler(eng),
		Markets: handler.NewMarketHandler(directory, eng, subscriber),
		Trades:  handler.NewTradeHandler(led),
		Events:  handler.NewEventHandler(eventLog),
	}, logger)

	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{
		server:     ts,
		engine:     eng,
		ledger:     led,
		events:     eventLog,
		subscriber: subscriber,
	}
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, env.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[map[string]any](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestAuthRequiredWhenKeyConfigured(t *testing.T) {
	env := newTestEnv(t, "secret-key")

	resp := env.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/status", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret-key")

	resp, err = env.server.Client().Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAuthAcceptsAPIKeyHeader(t *testing.T) {
	env := newTestEnv(t, "secret-key")

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/status", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "secret-key")

	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestEngineStartStop(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.do(t, http.MethodPost, "/api/engine/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.True(t, env.engine.Active())

	resp = env.do(t, http.MethodPost, "/api/engine/stop", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.False(t, env.engine.Active())
}

func TestStatusReportsEngineState(t *testing.T) {
	env := newTestEnv(t, "")
	env.engine.Start()

	resp := env.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status := decodeJSON[map[string]any](t, resp)
	assert.Equal(t, true, status["active"])
}

func TestGetPolicy(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.do(t, http.MethodGet, "/api/policy", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	policy := decodeJSON[map[string]any](t, resp)
	assert.Equal(t, float64(10), policy["max_position_usd"])
	assert.Equal(t, "both", policy["bias"])
}

func TestUpdatePolicy(t *testing.T) {
	env := newTestEnv(t, "")

	payload := map[string]any{
		"max_position_usd":    25,
		"min_edge_pct":        5,
		"min_probability":     70,
		"bias":                "yes_only",
		"take_profit_pct":     15,
		"sell_amount_pct":     50,
		"max_buys_per_market": 3,
	}

	resp := env.do(t, http.MethodPut, "/api/policy", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	updated := env.engine.Policy()
	assert.Equal(t, 25.0, updated.MaxPositionUSD)
	assert.Equal(t, domain.BiasYesOnly, updated.Bias)
	assert.Equal(t, 3, updated.MaxBuysPerMarket)
}

func TestUpdatePolicyRejectsInvalid(t *testing.T) {
	env := newTestEnv(t, "")
	before := env.engine.Policy()

	payload := map[string]any{
		"max_position_usd":    -5,
		"min_edge_pct":        3,
		"min_probability":     60,
		"bias":                "both",
		"take_profit_pct":     20,
		"sell_amount_pct":     100,
		"max_buys_per_market": 2,
	}

	resp := env.do(t, http.MethodPut, "/api/policy", payload)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, before, env.engine.Policy())
}

func TestListMarkets(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.do(t, http.MethodGet, "/api/markets", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	markets := decodeJSON[[]domain.Market](t, resp)
	require.Len(t, markets, 1)
	assert.Equal(t, "mkt-1", markets[0].ID)
}

func TestSelectMarketByID(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.do(t, http.MethodPost, "/api/markets/select", map[string]string{"id": "mkt-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	market := env.engine.Market()
	require.NotNil(t, market)
	assert.Equal(t, "mkt-1", market.ID)
	assert.Equal(t, []string{"yes-tok", "no-tok"}, env.subscriber.tokens)
}

func TestSelectMarketBySlug(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.do(t, http.MethodPost, "/api/markets/select", map[string]string{"slug": "btc-above-100k"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	market := env.engine.Market()
	require.NotNil(t, market)
	assert.Equal(t, "btc-above-100k", market.Slug)
}

func TestSelectMarketNotFound(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.do(t, http.MethodPost, "/api/markets/select", map[string]string{"id": "missing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestSelectMarketRequiresIdentifier(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.do(t, http.MethodPost, "/api/markets/select", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCurrentMarketWhenNoneSelected(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.do(t, http.MethodGet, "/api/markets/current", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestListTrades(t *testing.T) {
	env := newTestEnv(t, "")

	env.ledger.Append(context.Background(), domain.TradeLog{
		MarketID:   "mkt-1",
		Question:   "Will BTC be above $100,000 on September 1?",
		Outcome:    domain.OutcomeYes,
		Side:       domain.OrderSideBuy,
		EntryPrice: 0.55,
		Size:       18,
		CreatedAt:  time.Now(),
	})

	resp := env.do(t, http.MethodGet, "/api/trades", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	trades := decodeJSON[[]domain.TradeLog](t, resp)
	require.Len(t, trades, 1)
	assert.Equal(t, "mkt-1", trades[0].MarketID)
}

func TestOpenTradesFilteredByMarket(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()

	env.ledger.Append(ctx, domain.TradeLog{MarketID: "mkt-1", Side: domain.OrderSideBuy})
	env.ledger.Append(ctx, domain.TradeLog{MarketID: "mkt-2", Side: domain.OrderSideBuy})

	resp := env.do(t, http.MethodGet, "/api/trades/open?market_id=mkt-2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	open := decodeJSON[[]domain.TradeLog](t, resp)
	require.Len(t, open, 1)
	assert.Equal(t, "mkt-2", open[0].MarketID)

	resp = env.do(t, http.MethodGet, "/api/trades/open", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeJSON[[]domain.TradeLog](t, resp), 2)
}

func TestListEvents(t *testing.T) {
	env := newTestEnv(t, "")

	env.events.Append(domain.EventInfo, "first")
	env.events.Append(domain.EventWarn, "second")

	resp := env.do(t, http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decodeJSON[[]domain.Event](t, resp)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Message)
}
