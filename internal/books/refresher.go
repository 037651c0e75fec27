package books

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Refresher polls the exchange for the tracked tokens' books on a fixed
// interval and writes the results into the cache. Fetch failures are logged
// and the previous snapshot is left in place.
type Refresher struct {
	source   Source
	cache    *Cache
	interval time.Duration
	logger   *slog.Logger

	mu     sync.RWMutex
	tokens []string
}

// NewRefresher wires a Refresher. A non-positive interval defaults to 5s.
func NewRefresher(source Source, cache *Cache, interval time.Duration, logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Refresher{
		source:   source,
		cache:    cache,
		interval: interval,
		logger:   logger.With(slog.String("component", "book_refresher")),
	}
}

// SetTokens replaces the set of tracked tokens. Called when the operator
// selects a different market.
func (r *Refresher) SetTokens(tokens []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append([]string(nil), tokens...)
}

// Run polls until the context is cancelled. It refreshes once immediately so
// the first engine tick has books to read.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refreshAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.refreshAll(ctx)
		}
	}
}

func (r *Refresher) refreshAll(ctx context.Context) {
	r.mu.RLock()
	tokens := r.tokens
	r.mu.RUnlock()

	for _, tokenID := range tokens {
		snap, err := r.source.GetBook(ctx, tokenID)
		if err != nil {
			r.logger.Warn("book refresh failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()))
			continue
		}
		r.cache.Set(snap)
	}
}
