// Package pricefeed maintains a bounded, time-windowed history of reference
// price samples and derives the rolling statistics the decision engine
// consumes: volatility and a lagged price.
package pricefeed

import (
	"math"
	"sync"
	"time"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

const (
	// retention is how far back samples are kept.
	retention = 20 * time.Minute

	// defaultVolatility is returned when fewer than two samples exist.
	defaultVolatility = 5.0
	// volatilityFloor is the minimum volatility ever reported.
	volatilityFloor = 1.0
)

// Feed holds the sample history. It is written by the streaming feed callback
// and read by the engine tick, so all access is mutex-guarded.
type Feed struct {
	mu      sync.RWMutex
	samples []domain.PriceSample
	now     func() time.Time
}

// New creates an empty Feed.
func New() *Feed {
	return &Feed{now: time.Now}
}

// Record appends a sample and prunes entries older than the retention
// window. The most recent sample is never pruned, so the series cannot
// become empty once written to.
func (f *Feed) Record(price float64, ts time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.samples = append(f.samples, domain.PriceSample{Price: price, Timestamp: ts})

	cutoff := f.now().Add(-retention)
	i := 0
	for i < len(f.samples)-1 && f.samples[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		f.samples = append([]domain.PriceSample(nil), f.samples[i:]...)
	}
}

// Current returns the most recent sample. ok is false when no sample has
// been recorded yet.
func (f *Feed) Current() (price float64, ts time.Time, ok bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.samples) == 0 {
		return 0, time.Time{}, false
	}
	last := f.samples[len(f.samples)-1]
	return last.Price, last.Timestamp, true
}

// Volatility returns the sample standard deviation of all retained prices,
// floored at 1.0. With fewer than two samples it returns the 5.0 default.
func (f *Feed) Volatility() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := len(f.samples)
	if n < 2 {
		return defaultVolatility
	}

	var sum float64
	for _, s := range f.samples {
		sum += s.Price
	}
	mean := sum / float64(n)

	var variance float64
	for _, s := range f.samples {
		d := s.Price - mean
		variance += d * d
	}
	variance /= float64(n - 1)

	vol := math.Sqrt(variance)
	if vol < volatilityFloor {
		return volatilityFloor
	}
	return vol
}

// LaggedPrice returns the price of the retained sample whose timestamp is
// nearest (by absolute difference) to now-lag. Ties resolve to the first
// sample encountered in stored order. When the history is empty it returns
// zero, which callers treat as "insufficient data".
func (f *Feed) LaggedPrice(lag time.Duration) float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.samples) == 0 {
		return 0
	}

	target := f.now().Add(-lag)
	best := f.samples[0]
	bestDiff := absDuration(best.Timestamp.Sub(target))
	for _, s := range f.samples[1:] {
		if d := absDuration(s.Timestamp.Sub(target)); d < bestDiff {
			best = s
			bestDiff = d
		}
	}
	return best.Price
}

// Len returns the number of retained samples.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.samples)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
