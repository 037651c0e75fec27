package domain

import "fmt"

// Bias restricts which side of the market the engine may enter.
type Bias string

const (
	BiasBoth    Bias = "both"
	BiasYesOnly Bias = "yes_only"
	BiasNoOnly  Bias = "no_only"
)

// AllowsYes reports whether the bias permits YES entries.
func (b Bias) AllowsYes() bool { return b == BiasBoth || b == BiasYesOnly }

// AllowsNo reports whether the bias permits NO entries.
func (b Bias) AllowsNo() bool { return b == BiasBoth || b == BiasNoOnly }

// RiskPolicy is the operator-tunable risk configuration. It is replaced
// wholesale by the operator and read-only within an engine tick; validation
// happens at the boundary that sets it, never inside the engine.
type RiskPolicy struct {
	// MaxPositionUSD is the maximum notional per entry, in collateral units.
	MaxPositionUSD float64
	// MinEdgePct is the minimum edge (model probability minus market ask, in
	// percentage points) required to enter.
	MinEdgePct float64
	// MinProbability is the minimum model probability, in [0,100], required
	// on a side before it can trigger.
	MinProbability float64
	// Bias filters which sides may be entered.
	Bias Bias
	// TakeProfitPct is the unrealized-gain percentage that triggers an exit.
	TakeProfitPct float64
	// SellAmountPct is the percentage of the position sold when take-profit
	// triggers; 100 closes the position fully.
	SellAmountPct float64
	// MaxBuysPerMarket caps the lifetime number of BUY entries per market.
	// The count never decrements, even after a position closes.
	MaxBuysPerMarket int
}

// Validate checks the policy for out-of-range values. Callers that accept
// operator input must validate before handing the policy to the engine.
func (p RiskPolicy) Validate() error {
	if p.MaxPositionUSD <= 0 {
		return fmt.Errorf("risk policy: max_position_usd must be > 0, got %g", p.MaxPositionUSD)
	}
	if p.MinEdgePct < 0 {
		return fmt.Errorf("risk policy: min_edge_pct must be >= 0, got %g", p.MinEdgePct)
	}
	if p.MinProbability < 0 || p.MinProbability > 100 {
		return fmt.Errorf("risk policy: min_probability must be in [0,100], got %g", p.MinProbability)
	}
	switch p.Bias {
	case BiasBoth, BiasYesOnly, BiasNoOnly:
	default:
		return fmt.Errorf("risk policy: unknown bias %q (valid: both, yes_only, no_only)", p.Bias)
	}
	if p.TakeProfitPct <= 0 {
		return fmt.Errorf("risk policy: take_profit_pct must be > 0, got %g", p.TakeProfitPct)
	}
	if p.SellAmountPct <= 0 || p.SellAmountPct > 100 {
		return fmt.Errorf("risk policy: sell_amount_pct must be in (0,100], got %g", p.SellAmountPct)
	}
	if p.MaxBuysPerMarket < 1 {
		return fmt.Errorf("risk policy: max_buys_per_market must be >= 1, got %d", p.MaxBuysPerMarket)
	}
	return nil
}
