package domain

import "time"

// Outcome identifies one side of a binary market.
type Outcome string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"
)

// Index returns the outcome-token slot for this outcome: 0 for YES, 1 for NO.
func (o Outcome) Index() int {
	if o == OutcomeNo {
		return 1
	}
	return 0
}

// Market is a binary prediction market the engine can trade. Exactly two
// outcome tokens: index 0 is YES, index 1 is NO. EndDate is fixed once
// assigned.
type Market struct {
	ID          string
	Question    string
	Slug        string
	Outcomes    [2]string // display labels, e.g. ["Yes","No"] or ["Up","Down"]
	TokenIDs    [2]string // ERC-1155 token IDs (76-digit decimal strings)
	ConditionID string
	EndDate     time.Time
	Volume      float64
	Active      bool
}

// YesToken returns the outcome token ID for the YES side.
func (m Market) YesToken() string { return m.TokenIDs[0] }

// NoToken returns the outcome token ID for the NO side.
func (m Market) NoToken() string { return m.TokenIDs[1] }

// Token returns the outcome token ID for the given side.
func (m Market) Token(o Outcome) string { return m.TokenIDs[o.Index()] }

// MinutesToExpiry returns the whole minutes remaining until the market's end
// date, floored at zero.
func (m Market) MinutesToExpiry(now time.Time) float64 {
	d := m.EndDate.Sub(now)
	if d < 0 {
		return 0
	}
	return d.Minutes()
}
