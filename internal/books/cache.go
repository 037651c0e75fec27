// Package books caches orderbook snapshots per outcome token and refreshes
// them on a fixed cadence from the exchange.
package books

import (
	"context"
	"sync"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// Source fetches a fresh orderbook snapshot for a token.
type Source interface {
	GetBook(ctx context.Context, tokenID string) (domain.BookSnapshot, error)
}

// Cache holds the latest snapshot per token. Snapshots are replaced
// wholesale; a read between refreshes sees the previous complete snapshot,
// never a partial one.
type Cache struct {
	mu    sync.RWMutex
	books map[string]domain.BookSnapshot
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{books: make(map[string]domain.BookSnapshot)}
}

// Set replaces the stored snapshot for its token.
func (c *Cache) Set(snap domain.BookSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.books[snap.TokenID] = snap
}

// Get returns the stored snapshot for the token. An unknown token yields a
// zero snapshot, whose empty-side defaults (bid 0, ask 1) make decision
// logic conservatively pass on it.
func (c *Cache) Get(tokenID string) domain.BookSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.books[tokenID]
	if !ok {
		return domain.BookSnapshot{TokenID: tokenID}
	}
	return snap
}

// Clear drops all stored snapshots.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.books = make(map[string]domain.BookSnapshot)
}
