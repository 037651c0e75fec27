package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Gamma API. Several list
// fields arrive JSON-encoded inside strings.
type APIMarket struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	ConditionID   string   `json:"condition_id"`
	Slug          string   `json:"slug"`
	ActiveFromAPI flexBool `json:"active"`
	Closed        bool     `json:"closed"`
	Outcomes      string   `json:"outcomes"`       // e.g. "[\"Yes\",\"No\"]"
	ClobTokenIDs  string   `json:"clob_token_ids"` // e.g. "[\"123\",\"456\"]"
	Volume        string   `json:"volume"`
	EndDateISO    string   `json:"end_date_iso"`
	Description   string   `json:"description"`
}

// ToDomainMarket converts the Gamma DTO into a domain.Market. Markets with a
// malformed outcome or token list come back with empty slots; callers filter
// on Tradeable-style checks before selection.
func (m *APIMarket) ToDomainMarket() domain.Market {
	out := domain.Market{
		ID:          m.ID,
		Question:    m.Question,
		Slug:        m.Slug,
		ConditionID: m.ConditionID,
		Active:      bool(m.ActiveFromAPI) && !m.Closed,
	}

	var outcomes []string
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err == nil && len(outcomes) >= 2 {
		out.Outcomes[0] = outcomes[0]
		out.Outcomes[1] = outcomes[1]
	}
	var tokenIDs []string
	if err := json.Unmarshal([]byte(m.ClobTokenIDs), &tokenIDs); err == nil && len(tokenIDs) >= 2 {
		out.TokenIDs[0] = tokenIDs[0]
		out.TokenIDs[1] = tokenIDs[1]
	}

	if v, err := strconv.ParseFloat(m.Volume, 64); err == nil {
		out.Volume = v
	}
	if t, err := time.Parse(time.RFC3339, m.EndDateISO); err == nil {
		out.EndDate = t
	}
	return out
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIBook is an orderbook snapshot as returned by the CLOB /book endpoint.
type APIBook struct {
	AssetID   string          `json:"asset_id"`
	Market    string          `json:"market"`
	Bids      []APIPriceLevel `json:"bids"`
	Asks      []APIPriceLevel `json:"asks"`
	Timestamp string          `json:"timestamp"`
	Hash      string          `json:"hash"`
}

// APIPriceLevel is a single bid/ask level; prices and sizes arrive as
// decimal strings.
type APIPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// ToDomainSnapshot converts the CLOB book DTO, sorting bids descending and
// asks ascending. Levels that fail to parse are dropped.
func (b *APIBook) ToDomainSnapshot(fetchedAt time.Time) domain.BookSnapshot {
	snap := domain.BookSnapshot{
		TokenID:   b.AssetID,
		FetchedAt: fetchedAt,
	}
	snap.Bids = parseLevels(b.Bids, func(a, b domain.PriceLevel) bool { return a.Price > b.Price })
	snap.Asks = parseLevels(b.Asks, func(a, b domain.PriceLevel) bool { return a.Price < b.Price })
	return snap
}

func parseLevels(raw []APIPriceLevel, less func(a, b domain.PriceLevel) bool) []domain.PriceLevel {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, l := range raw {
		price, err := strconv.ParseFloat(l.Price, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(l.Size, 64)
		if err != nil {
			continue
		}
		levels = append(levels, domain.PriceLevel{Price: price, Size: size})
	}
	// Insertion sort; books rarely exceed a few dozen levels.
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0 && less(levels[j], levels[j-1]); j-- {
			levels[j], levels[j-1] = levels[j-1], levels[j]
		}
	}
	return levels
}

// APIOrderResult is the response from placing an order via the CLOB API.
type APIOrderResult struct {
	Success     bool   `json:"success"`
	ErrorMsg    string `json:"errorMsg,omitempty"`
	OrderID     string `json:"orderID,omitempty"`
	Status      string `json:"status,omitempty"`
	TransactID  string `json:"transactID,omitempty"`
	ShouldRetry bool   `json:"shouldRetry,omitempty"`
}

// ToDomainOrderResult converts the CLOB order response.
func (r *APIOrderResult) ToDomainOrderResult() domain.OrderResult {
	return domain.OrderResult{
		Success: r.Success,
		OrderID: r.OrderID,
		Status:  r.Status,
		Message: r.ErrorMsg,
	}
}

// APIBalanceAllowance is the response from the CLOB balance-allowance
// endpoint; amounts arrive as base-unit decimal strings.
type APIBalanceAllowance struct {
	Balance   string `json:"balance"`
	Allowance string `json:"allowance"`
}
