package handler

import (
	"net/http"

	"github.com/alanyoungcy/edgebot/internal/domain"
	"github.com/alanyoungcy/edgebot/internal/engine"
)

// EngineHandler exposes operator controls for the decision engine.
type EngineHandler struct {
	engine *engine.Engine
}

// NewEngineHandler creates an EngineHandler.
func NewEngineHandler(eng *engine.Engine) *EngineHandler {
	return &EngineHandler{engine: eng}
}

// Status handles GET /api/status.
func (h *EngineHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

// Start handles POST /api/engine/start.
func (h *EngineHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.engine.Start()
	writeJSON(w, http.StatusOK, map[string]bool{"active": true})
}

// Stop handles POST /api/engine/stop.
func (h *EngineHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.engine.Stop()
	writeJSON(w, http.StatusOK, map[string]bool{"active": false})
}

// policyPayload is the wire representation of a risk policy.
type policyPayload struct {
	MaxPositionUSD   float64 `json:"max_position_usd"`
	MinEdgePct       float64 `json:"min_edge_pct"`
	MinProbability   float64 `json:"min_probability"`
	Bias             string  `json:"bias"`
	TakeProfitPct    float64 `json:"take_profit_pct"`
	SellAmountPct    float64 `json:"sell_amount_pct"`
	MaxBuysPerMarket int     `json:"max_buys_per_market"`
}

func policyToPayload(p domain.RiskPolicy) policyPayload {
	return policyPayload{
		MaxPositionUSD:   p.MaxPositionUSD,
		MinEdgePct:       p.MinEdgePct,
		MinProbability:   p.MinProbability,
		Bias:             string(p.Bias),
		TakeProfitPct:    p.TakeProfitPct,
		SellAmountPct:    p.SellAmountPct,
		MaxBuysPerMarket: p.MaxBuysPerMarket,
	}
}

func (p policyPayload) toDomain() domain.RiskPolicy {
	return domain.RiskPolicy{
		MaxPositionUSD:   p.MaxPositionUSD,
		MinEdgePct:       p.MinEdgePct,
		MinProbability:   p.MinProbability,
		Bias:             domain.Bias(p.Bias),
		TakeProfitPct:    p.TakeProfitPct,
		SellAmountPct:    p.SellAmountPct,
		MaxBuysPerMarket: p.MaxBuysPerMarket,
	}
}

// GetPolicy handles GET /api/policy.
func (h *EngineHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, policyToPayload(h.engine.Policy()))
}

// UpdatePolicy handles PUT /api/policy. The new policy is validated before
// it is applied; an invalid policy leaves the current one in place.
func (h *EngineHandler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var payload policyPayload
	if err := decodeBody(r, &payload); err != nil {
		writeBadRequest(w, "invalid policy payload: "+err.Error())
		return
	}
	if err := h.engine.SetPolicy(payload.toDomain()); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, policyToPayload(h.engine.Policy()))
}
