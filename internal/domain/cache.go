package domain

import (
	"context"
	"time"
)

// PriceCache mirrors the latest reference price for external consumers
// (dashboards, other processes). The engine itself reads prices from the
// in-process feed, never from this cache.
type PriceCache interface {
	SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, symbol string) (float64, time.Time, error)
}

// SignalBus provides pub/sub for engine events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
