package domain

// OrderRequest describes a single limit order the engine wants placed.
type OrderRequest struct {
	TokenID string
	Side    OrderSide
	Price   float64 // limit price in (0,1)
	Size    float64 // outcome token units
}

// OrderResult is the exchange's response to an order submission.
type OrderResult struct {
	Success bool
	OrderID string
	Status  string
	Message string
}

// Balances is the wallet snapshot consumed for display and gating only; it
// never feeds decision logic.
type Balances struct {
	Collateral float64 // settlement-token balance
	Allowance  float64 // exchange spending allowance
	Native     float64 // gas-token balance
}
