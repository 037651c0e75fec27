package books

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

func TestCacheUnknownTokenDefaults(t *testing.T) {
	c := NewCache()
	snap := c.Get("missing")

	assert.Equal(t, 0.0, snap.BestBid())
	assert.Equal(t, 1.0, snap.BestAsk())
	assert.Equal(t, 0.5, snap.DisplayBid())
	assert.True(t, snap.Empty())
}

func TestCacheSetReplacesWholesale(t *testing.T) {
	c := NewCache()
	c.Set(domain.BookSnapshot{
		TokenID: "tok",
		Bids:    []domain.PriceLevel{{Price: 0.40, Size: 100}},
		Asks:    []domain.PriceLevel{{Price: 0.45, Size: 50}},
	})
	c.Set(domain.BookSnapshot{
		TokenID: "tok",
		Asks:    []domain.PriceLevel{{Price: 0.60, Size: 10}},
	})

	snap := c.Get("tok")
	assert.Equal(t, 0.0, snap.BestBid(), "old bids must not survive replacement")
	assert.Equal(t, 0.60, snap.BestAsk())
}

type stubSource struct {
	snaps map[string]domain.BookSnapshot
	err   error
}

func (s *stubSource) GetBook(_ context.Context, tokenID string) (domain.BookSnapshot, error) {
	if s.err != nil {
		return domain.BookSnapshot{}, s.err
	}
	return s.snaps[tokenID], nil
}

func TestRefresherKeepsPreviousSnapshotOnError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := NewCache()
	src := &stubSource{snaps: map[string]domain.BookSnapshot{
		"tok": {TokenID: "tok", Bids: []domain.PriceLevel{{Price: 0.30, Size: 5}}},
	}}
	r := NewRefresher(src, cache, time.Second, logger)
	r.SetTokens([]string{"tok"})

	r.refreshAll(context.Background())
	assert.Equal(t, 0.30, cache.Get("tok").BestBid())

	src.err = errors.New("boom")
	r.refreshAll(context.Background())
	assert.Equal(t, 0.30, cache.Get("tok").BestBid(), "failed refresh must not clobber the cache")
}
