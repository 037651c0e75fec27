package domain

import "time"

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price float64
	Size  float64
}

// BookSnapshot is a wholesale snapshot of one outcome token's book: bids
// sorted descending by price, asks ascending. Snapshots are replaced on each
// refresh; there is no incremental merge.
type BookSnapshot struct {
	TokenID   string
	Bids      []PriceLevel
	Asks      []PriceLevel
	FetchedAt time.Time
}

// BestBid returns the highest bid, or 0 when the bid side is empty. The zero
// default means "no exit benefit" in decision logic.
func (b BookSnapshot) BestBid() float64 {
	if len(b.Bids) == 0 {
		return 0
	}
	return b.Bids[0].Price
}

// BestAsk returns the lowest ask, or 1 when the ask side is empty. The
// worst-case default means "no edge" in decision logic.
func (b BookSnapshot) BestAsk() float64 {
	if len(b.Asks) == 0 {
		return 1
	}
	return b.Asks[0].Price
}

// DisplayBid returns the best bid, or 0.5 when the bid side is empty. This
// neutral default is for display surfaces only; decision logic uses BestBid.
func (b BookSnapshot) DisplayBid() float64 {
	if len(b.Bids) == 0 {
		return 0.5
	}
	return b.Bids[0].Price
}

// Empty reports whether both sides of the book are empty.
func (b BookSnapshot) Empty() bool {
	return len(b.Bids) == 0 && len(b.Asks) == 0
}
