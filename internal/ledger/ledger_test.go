package ledger

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

func newTestLedger() *Ledger {
	return New(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeStore struct {
	entries []domain.TradeLog
}

func (s *fakeStore) Insert(ctx context.Context, entry domain.TradeLog) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, id string, status domain.TradeStatus) error {
	return nil
}

func (s *fakeStore) ListRecent(ctx context.Context, limit int) ([]domain.TradeLog, error) {
	// Newest first, matching the real store.
	out := make([]domain.TradeLog, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *fakeStore) ListClosedBefore(ctx context.Context, before time.Time) ([]domain.TradeLog, error) {
	return nil, nil
}

func TestAppendAssignsIDAndStatus(t *testing.T) {
	l := newTestLedger()
	e := l.Append(context.Background(), domain.TradeLog{
		MarketID: "m1",
		Side:     domain.OrderSideBuy,
	})

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, domain.TradeStatusOpen, e.Status)
}

func TestBuyCountNeverDecrements(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	e1 := l.Append(ctx, domain.TradeLog{MarketID: "m1", Side: domain.OrderSideBuy})
	l.Append(ctx, domain.TradeLog{MarketID: "m1", Side: domain.OrderSideBuy})
	assert.Equal(t, 2, l.BuyCount("m1"))

	// Closing a position leaves the lifetime count intact.
	l.SetStatus(ctx, e1.ID, domain.TradeStatusClosed)
	assert.Equal(t, 2, l.BuyCount("m1"))

	// Sells never touch the count.
	l.Append(ctx, domain.TradeLog{MarketID: "m1", Side: domain.OrderSideSell})
	assert.Equal(t, 2, l.BuyCount("m1"))
}

func TestOpenPositionsFiltersStatusAndSide(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	open := l.Append(ctx, domain.TradeLog{MarketID: "m1", Side: domain.OrderSideBuy})
	partial := l.Append(ctx, domain.TradeLog{MarketID: "m1", Side: domain.OrderSideBuy})
	closed := l.Append(ctx, domain.TradeLog{MarketID: "m1", Side: domain.OrderSideBuy})
	l.Append(ctx, domain.TradeLog{MarketID: "m1", Side: domain.OrderSideSell})

	l.SetStatus(ctx, partial.ID, domain.TradeStatusPartial)
	l.SetStatus(ctx, closed.ID, domain.TradeStatusClosed)

	// Only fully OPEN buys qualify; a PARTIAL entry already had its exit.
	got := l.OpenPositions("m1")
	require.Len(t, got, 1)
	assert.Equal(t, open.ID, got[0].ID)
}

func TestOpenPositionsScopedByMarket(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	first := l.Append(ctx, domain.TradeLog{MarketID: "m1", Side: domain.OrderSideBuy})
	second := l.Append(ctx, domain.TradeLog{MarketID: "m2", Side: domain.OrderSideBuy})

	got := l.OpenPositions("m2")
	require.Len(t, got, 1)
	assert.Equal(t, second.ID, got[0].ID)

	// Empty market ID lists every market's open positions.
	all := l.OpenPositions("")
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
}

func TestSetStatusUnknownIDIsNoop(t *testing.T) {
	l := newTestLedger()
	l.SetStatus(context.Background(), "nope", domain.TradeStatusClosed)
	assert.Empty(t, l.History(0))
}

func TestLoadRestoresStateFromStore(t *testing.T) {
	store := &fakeStore{entries: []domain.TradeLog{
		{ID: "t1", MarketID: "m1", Side: domain.OrderSideBuy, Status: domain.TradeStatusClosed},
		{ID: "t2", MarketID: "m1", Side: domain.OrderSideBuy, Status: domain.TradeStatusOpen},
		{ID: "t3", MarketID: "m1", Side: domain.OrderSideSell, Status: domain.TradeStatusClosed},
	}}

	l := New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, l.Load(context.Background()))

	// Buy counts include closed entries: the cap is a lifetime counter.
	assert.Equal(t, 2, l.BuyCount("m1"))

	open := l.OpenPositions("m1")
	require.Len(t, open, 1)
	assert.Equal(t, "t2", open[0].ID)

	// Creation order survives the newest-first store listing.
	history := l.History(0)
	require.Len(t, history, 3)
	assert.Equal(t, "t3", history[0].ID)
	assert.Equal(t, "t1", history[2].ID)
}

func TestHistoryNewestFirst(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	l.Append(ctx, domain.TradeLog{MarketID: "m1", Side: domain.OrderSideBuy})
	last := l.Append(ctx, domain.TradeLog{MarketID: "m2", Side: domain.OrderSideBuy})

	got := l.History(1)
	require.Len(t, got, 1)
	assert.Equal(t, last.ID, got[0].ID)
}
