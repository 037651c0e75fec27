package domain

import "time"

// TradeStatus tracks the lifecycle of a trade log entry. OPEN is initial;
// PARTIAL means a take-profit sell filled part of the position; CLOSED is
// terminal. There is no re-opening.
type TradeStatus string

const (
	TradeStatusOpen    TradeStatus = "open"
	TradeStatusPartial TradeStatus = "partial"
	TradeStatusClosed  TradeStatus = "closed"
)

// OrderSide indicates whether an order buys or sells outcome tokens.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// TradeLog is an append-only record of an engine trade decision. All fields
// except Status are immutable after creation; the model/market snapshot
// fields record the inputs the engine saw at entry time.
type TradeLog struct {
	ID         string
	CreatedAt  time.Time
	MarketID   string
	Question   string // denormalized for display
	Outcome    Outcome
	Side       OrderSide
	EntryPrice float64
	Size       float64 // units of the outcome token

	// Model inputs at entry.
	RefPrice   float64
	ModelProb  int
	MarketProb float64
	Volatility float64

	Status TradeStatus
}

// Notional returns the entry notional in collateral units.
func (t TradeLog) Notional() float64 {
	return t.EntryPrice * t.Size
}
