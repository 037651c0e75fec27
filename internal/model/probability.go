// Package model computes the fair probability estimate for a binary market
// from the reference price series.
package model

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// strikeRe matches the first dollar amount in a market question, e.g.
// "Will BTC be above $100,000 on ..." -> 100000.
var strikeRe = regexp.MustCompile(`\$([0-9][0-9,]*(?:\.[0-9]+)?)`)

// ParseStrike extracts the strike price from a market question. When the
// question carries no dollar amount the current reference price is used as
// the strike, which collapses the strike term of the model to zero.
func ParseStrike(question string, currentPrice float64) float64 {
	m := strikeRe.FindStringSubmatch(question)
	if m == nil {
		return currentPrice
	}
	raw := strings.ReplaceAll(m[1], ",", "")
	strike, err := strconv.ParseFloat(raw, 64)
	if err != nil || strike == 0 {
		return currentPrice
	}
	return strike
}

// Probability estimates the chance, in whole percent, that the reference
// price resolves above the strike. It combines short-term momentum (current
// vs lagged price) with distance to the strike, both scaled per-mille, on a
// 50% base, then rounds to the nearest percent. minutesToExpiry and
// volatility are part of the model's input contract but carry no weight in
// the current formula. The result is clamped to [1, 99] so an estimate never
// reads as certainty. Returns 50 when either price is zero, since the ratios
// below would be meaningless.
func Probability(current, strike, minutesToExpiry, volatility, lagged float64) int {
	if current == 0 || lagged == 0 {
		return 50
	}

	momentum := (current - lagged) / lagged * 1000
	distance := (current - strike) / strike * 1000

	p := 50 + 2*momentum + distance

	prob := int(math.Round(p))
	if prob < 1 {
		return 1
	}
	if prob > 99 {
		return 99
	}
	return prob
}
