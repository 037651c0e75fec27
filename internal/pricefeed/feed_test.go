package pricefeed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAt(now time.Time) *Feed {
	f := New()
	f.now = func() time.Time { return now }
	return f
}

func TestVolatilityDefaultsWithFewSamples(t *testing.T) {
	now := time.Now()
	f := feedAt(now)
	assert.Equal(t, 5.0, f.Volatility())

	f.Record(100_000, now)
	assert.Equal(t, 5.0, f.Volatility())
}

func TestVolatilityFloor(t *testing.T) {
	now := time.Now()
	f := feedAt(now)
	// Two nearly identical prices: raw stddev well under 1.0.
	f.Record(100_000.0, now.Add(-time.Minute))
	f.Record(100_000.1, now)
	assert.Equal(t, 1.0, f.Volatility())
}

func TestVolatilitySampleStdDev(t *testing.T) {
	now := time.Now()
	f := feedAt(now)
	// Prices 10, 20, 30: sample variance = 100, stddev = 10.
	f.Record(10, now.Add(-2*time.Minute))
	f.Record(20, now.Add(-time.Minute))
	f.Record(30, now)
	assert.InDelta(t, 10.0, f.Volatility(), 1e-9)
}

func TestLaggedPriceNearest(t *testing.T) {
	now := time.Now()
	f := feedAt(now)
	f.Record(1, now.Add(-19*time.Minute))
	f.Record(2, now.Add(-16*time.Minute)) // nearest to now-15m
	f.Record(3, now.Add(-10*time.Minute))
	f.Record(4, now)

	assert.Equal(t, 2.0, f.LaggedPrice(15*time.Minute))
}

func TestLaggedPriceTieBreaksFirst(t *testing.T) {
	now := time.Now()
	f := feedAt(now)
	// Equidistant from now-15m: the first stored sample wins.
	f.Record(7, now.Add(-16*time.Minute))
	f.Record(9, now.Add(-14*time.Minute))

	assert.Equal(t, 7.0, f.LaggedPrice(15*time.Minute))
}

func TestLaggedPriceEmptyHistory(t *testing.T) {
	f := feedAt(time.Now())
	assert.Equal(t, 0.0, f.LaggedPrice(15*time.Minute))
}

func TestPruneKeepsMostRecentSample(t *testing.T) {
	now := time.Now()
	f := feedAt(now)
	// Both samples are older than the retention window; the latest must
	// survive pruning so the series never empties.
	f.Record(1, now.Add(-50*time.Minute))
	f.Record(2, now.Add(-40*time.Minute))

	require.Equal(t, 1, f.Len())
	price, _, ok := f.Current()
	require.True(t, ok)
	assert.Equal(t, 2.0, price)
}

func TestPruneDropsOldSamples(t *testing.T) {
	now := time.Now()
	f := feedAt(now)
	f.Record(1, now.Add(-25*time.Minute))
	f.Record(2, now.Add(-5*time.Minute))
	f.Record(3, now)

	assert.Equal(t, 2, f.Len())
}
