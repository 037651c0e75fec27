package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbabilityNeutral(t *testing.T) {
	// Flat momentum and price at the strike: exactly the 50% base.
	assert.Equal(t, 50, Probability(100_000, 100_000, 0, 0, 100_000))
}

func TestProbabilityZeroPrices(t *testing.T) {
	assert.Equal(t, 50, Probability(0, 100_000, 0, 0, 100_000))
	assert.Equal(t, 50, Probability(100_000, 100_000, 0, 0, 0))
}

func TestProbabilityMomentumAndDistance(t *testing.T) {
	// current=101000, lagged=100000, strike=100000:
	// momentum term = 2 * (1000/100000*1000) = 20
	// distance term = 1000/100000*1000 = 10
	// p = 50 + 20 + 10 = 80
	assert.Equal(t, 80, Probability(101_000, 100_000, 0, 0, 100_000))
}

func TestProbabilityRoundsToNearest(t *testing.T) {
	// current=100550: momentum 11, distance 5.5, p = 66.5 rounds up to 67.
	assert.Equal(t, 67, Probability(100_550, 100_000, 0, 0, 100_000))
	// current=99830: momentum -3.4, distance -1.7, p = 44.9 rounds to 45.
	assert.Equal(t, 45, Probability(99_830, 100_000, 0, 0, 100_000))
}

func TestProbabilityIgnoresExpiryAndVolatility(t *testing.T) {
	base := Probability(101_000, 100_000, 0, 0, 100_000)
	assert.Equal(t, base, Probability(101_000, 100_000, 120, 8.5, 100_000))
}

func TestProbabilityClampsHigh(t *testing.T) {
	assert.Equal(t, 99, Probability(110_000, 100_000, 0, 0, 100_000))
}

func TestProbabilityClampsLow(t *testing.T) {
	assert.Equal(t, 1, Probability(90_000, 100_000, 0, 0, 100_000))
}

func TestParseStrike(t *testing.T) {
	cases := []struct {
		question string
		want     float64
	}{
		{"Will BTC be above $100,000 on March 1?", 100_000},
		{"Will ETH close above $3,250.50 today?", 3250.50},
		{"Will BTC hit $1000000?", 1_000_000},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseStrike(tc.question, 50_000), tc.question)
	}
}

func TestParseStrikeFallsBackToCurrent(t *testing.T) {
	assert.Equal(t, 97_500.0, ParseStrike("Will BTC go up today?", 97_500))
	assert.Equal(t, 97_500.0, ParseStrike("Will BTC be above $0?", 97_500))
}
