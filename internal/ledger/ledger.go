// Package ledger tracks the engine's trade history and open positions in
// memory, with a best-effort write-through to persistent storage.
package ledger

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// Ledger is the in-memory authority for trade state during a run. Entries
// are append-only; the only mutation after creation is the status
// transition OPEN -> PARTIAL -> CLOSED. Per-market buy counts are lifetime
// counters and never decrement, even after a position closes.
type Ledger struct {
	mu       sync.RWMutex
	entries  []domain.TradeLog
	byID     map[string]int // entry ID -> index into entries
	buyCount map[string]int // market ID -> cumulative BUY entries

	store  domain.TradeLogStore // optional write-through
	logger *slog.Logger
}

// New creates a Ledger. store may be nil, in which case entries live only in
// memory.
func New(store domain.TradeLogStore, logger *slog.Logger) *Ledger {
	return &Ledger{
		byID:     make(map[string]int),
		buyCount: make(map[string]int),
		store:    store,
		logger:   logger.With(slog.String("component", "ledger")),
	}
}

// Load seeds the ledger from persistent storage, newest entries included up
// to the store's listing limit. It replaces any in-memory state and is meant
// to run once at startup, before the engine starts ticking. Without a store
// it is a no-op.
func (l *Ledger) Load(ctx context.Context) error {
	if l.store == nil {
		return nil
	}

	recent, err := l.store.ListRecent(ctx, 500)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = l.entries[:0]
	l.byID = make(map[string]int, len(recent))
	l.buyCount = make(map[string]int)

	// ListRecent returns newest first; restore creation order.
	for i := len(recent) - 1; i >= 0; i-- {
		e := recent[i]
		l.byID[e.ID] = len(l.entries)
		l.entries = append(l.entries, e)
		if e.Side == domain.OrderSideBuy {
			l.buyCount[e.MarketID]++
		}
	}

	l.logger.Info("ledger restored from store", slog.Int("entries", len(l.entries)))
	return nil
}

// Append records a new entry, assigning an ID if the caller left it empty,
// and returns the stored copy. BUY entries increment the market's lifetime
// buy count. Store failures are logged, never surfaced: the in-memory state
// is the authority.
func (l *Ledger) Append(ctx context.Context, entry domain.TradeLog) domain.TradeLog {
	l.mu.Lock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Status == "" {
		entry.Status = domain.TradeStatusOpen
	}
	l.byID[entry.ID] = len(l.entries)
	l.entries = append(l.entries, entry)
	if entry.Side == domain.OrderSideBuy {
		l.buyCount[entry.MarketID]++
	}
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.Insert(ctx, entry); err != nil {
			l.logger.Warn("trade log persist failed",
				slog.String("trade_id", entry.ID),
				slog.String("error", err.Error()))
		}
	}
	return entry
}

// SetStatus transitions an entry's status. Unknown IDs are ignored.
func (l *Ledger) SetStatus(ctx context.Context, id string, status domain.TradeStatus) {
	l.mu.Lock()
	idx, ok := l.byID[id]
	if ok {
		l.entries[idx].Status = status
	}
	l.mu.Unlock()
	if !ok {
		return
	}

	if l.store != nil {
		if err := l.store.UpdateStatus(ctx, id, status); err != nil {
			l.logger.Warn("trade status persist failed",
				slog.String("trade_id", id),
				slog.String("error", err.Error()))
		}
	}
}

// OpenPositions returns BUY entries with status OPEN for the given market,
// in creation order. An empty marketID matches every market. PARTIAL entries
// are excluded: their take-profit sell has already run, and re-evaluating
// them would sell the position again.
func (l *Ledger) OpenPositions(marketID string) []domain.TradeLog {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.TradeLog
	for _, e := range l.entries {
		if e.Side != domain.OrderSideBuy || e.Status != domain.TradeStatusOpen {
			continue
		}
		if marketID != "" && e.MarketID != marketID {
			continue
		}
		out = append(out, e)
	}
	return out
}

// BuyCount returns the lifetime number of BUY entries recorded for the
// market.
func (l *Ledger) BuyCount(marketID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.buyCount[marketID]
}

// History returns up to n entries, newest first. n <= 0 returns everything.
func (l *Ledger) History(n int) []domain.TradeLog {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := len(l.entries)
	if n <= 0 || n > total {
		n = total
	}
	out := make([]domain.TradeLog, n)
	for i := 0; i < n; i++ {
		out[i] = l.entries[total-1-i]
	}
	return out
}
