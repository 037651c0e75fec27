// Package feed streams the reference asset price over WebSocket and fans
// each trade out to a handler.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// PriceHandler is called for each trade received from the stream.
type PriceHandler func(price float64, ts time.Time)

// tradeMessage is the exchange's trade-stream payload; price arrives as a
// decimal string, the trade time as epoch milliseconds.
type tradeMessage struct {
	Price     string `json:"p"`
	TradeTime int64  `json:"T"`
}

// ReferenceFeed connects to the reference exchange's trade stream for one
// symbol and invokes the handler on each trade. It reconnects with a fixed
// backoff on disconnect.
type ReferenceFeed struct {
	wsHost  string
	symbol  string
	handler PriceHandler
	logger  *slog.Logger
}

// NewReferenceFeed creates a feed for the given symbol (e.g. "btcusdt").
func NewReferenceFeed(wsHost, symbol string, handler PriceHandler, logger *slog.Logger) *ReferenceFeed {
	return &ReferenceFeed{
		wsHost:  wsHost,
		symbol:  strings.ToLower(symbol),
		handler: handler,
		logger:  logger.With(slog.String("component", "reference_feed")),
	}
}

// Run connects and streams until ctx is cancelled. Reconnects with backoff
// on disconnect.
func (f *ReferenceFeed) Run(ctx context.Context) error {
	url := fmt.Sprintf("%s/ws/%s@trade", f.wsHost, f.symbol)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := f.runConnection(ctx, url)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("reference feed disconnected, reconnecting",
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (f *ReferenceFeed) runConnection(ctx context.Context, url string) error {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", url, err)
	}
	defer conn.Close()

	f.logger.Info("reference feed connected", slog.String("symbol", f.symbol))

	// Close the connection when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed: read: %w", err)
		}

		var msg tradeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			f.logger.Warn("reference feed: bad message", slog.String("error", err.Error()))
			continue
		}
		price, err := strconv.ParseFloat(msg.Price, 64)
		if err != nil || price <= 0 {
			continue
		}

		f.handler(price, time.UnixMilli(msg.TradeTime))
	}
}
