package polymarket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToDomainMarketParsesEncodedLists(t *testing.T) {
	api := APIMarket{
		ID:            "m1",
		Question:      "Will BTC be above $100,000?",
		Slug:          "btc-100k",
		ActiveFromAPI: true,
		Outcomes:      `["Yes","No"]`,
		ClobTokenIDs:  `["111","222"]`,
		Volume:        "1234.5",
		EndDateISO:    "2026-09-01T00:00:00Z",
	}

	m := api.ToDomainMarket()
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, [2]string{"Yes", "No"}, m.Outcomes)
	assert.Equal(t, "111", m.YesToken())
	assert.Equal(t, "222", m.NoToken())
	assert.Equal(t, 1234.5, m.Volume)
	assert.True(t, m.Active)
	assert.Equal(t, 2026, m.EndDate.Year())
}

func TestToDomainMarketClosedIsInactive(t *testing.T) {
	api := APIMarket{ID: "m1", ActiveFromAPI: true, Closed: true}
	assert.False(t, api.ToDomainMarket().Active)
}

func TestFlexBoolStringForms(t *testing.T) {
	for raw, want := range map[string]bool{
		`true`:    true,
		`"true"`:  true,
		`"TRUE"`:  true,
		`"1"`:     true,
		`false`:   false,
		`"false"`: false,
	} {
		var fb flexBool
		assert.NoError(t, fb.UnmarshalJSON([]byte(raw)))
		assert.Equal(t, want, bool(fb), raw)
	}
}

func TestToDomainSnapshotSortsSides(t *testing.T) {
	api := APIBook{
		AssetID: "tok",
		Bids: []APIPriceLevel{
			{Price: "0.40", Size: "10"},
			{Price: "0.45", Size: "5"},
			{Price: "bad", Size: "1"},
		},
		Asks: []APIPriceLevel{
			{Price: "0.55", Size: "7"},
			{Price: "0.50", Size: "3"},
		},
	}

	snap := api.ToDomainSnapshot(time.Now())
	assert.Equal(t, 0.45, snap.BestBid())
	assert.Equal(t, 0.50, snap.BestAsk())
	assert.Len(t, snap.Bids, 2, "unparseable levels are dropped")
}
