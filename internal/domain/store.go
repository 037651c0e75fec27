package domain

import (
	"context"
	"time"
)

// TradeLogStore persists trade log entries. The in-memory ledger is the
// authority during a run; the store is a best-effort write-through used for
// history across restarts and for archival.
type TradeLogStore interface {
	Insert(ctx context.Context, entry TradeLog) error
	UpdateStatus(ctx context.Context, id string, status TradeStatus) error
	ListRecent(ctx context.Context, limit int) ([]TradeLog, error)
	// ListClosedBefore returns CLOSED entries created strictly before the
	// cutoff, for archival.
	ListClosedBefore(ctx context.Context, before time.Time) ([]TradeLog, error)
}
