package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValuationStatus_Valid(t *testing.T) {
	for _, s := range []ValuationStatus{StatusPending, StatusMatched, StatusNeedsReview, StatusConfirmed, StatusNoMatch, StatusManual} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, ValuationStatus("bogus").Valid())
	assert.False(t, ValuationStatus("").Valid())
}

func TestValuationStatus_Automatic(t *testing.T) {
	assert.True(t, StatusPending.Automatic())
	assert.True(t, StatusMatched.Automatic())
	assert.True(t, StatusNeedsReview.Automatic())
	assert.True(t, StatusNoMatch.Automatic())
	assert.False(t, StatusConfirmed.Automatic())
	assert.False(t, StatusManual.Automatic())
}

func TestCritic_Valid(t *testing.T) {
	assert.Len(t, Critics, 9)
	assert.True(t, CriticVinous.Valid())
	assert.True(t, CriticOther.Valid())
	assert.False(t, Critic("parker").Valid())
}

func TestWine_Query(t *testing.T) {
	w := Wine{Name: "Pauillac", ProducerName: "Château Latour"}
	assert.Equal(t, "Château Latour Pauillac", w.Query())

	assert.Equal(t, "Solo", Wine{Name: "Solo"}.Query())
}

func TestPair_Vintage(t *testing.T) {
	nv := Pair{WineID: 3}
	assert.Equal(t, 0, nv.VintageValue())
	assert.Equal(t, "3/NV", nv.String())

	p := Pair{WineID: 3, Vintage: IntPtr(2015)}
	assert.Equal(t, 2015, p.VintageValue())
	assert.Equal(t, "3/2015", p.String())

	assert.Nil(t, VintageFromValue(0))
	assert.Equal(t, 2010, *VintageFromValue(2010))
}

func TestCandidate_DisplayName(t *testing.T) {
	assert.Equal(t, "X Estate Chateau X", Candidate{SourceName: "Chateau X", SourceWinery: "X Estate"}.DisplayName())
	assert.Equal(t, "Chateau X", Candidate{SourceName: "Chateau X"}.DisplayName())
	assert.Equal(t, "X Estate", Candidate{SourceWinery: "X Estate"}.DisplayName())
}

func TestSummarize(t *testing.T) {
	rows := []ValuationRow{
		{Valuation: Valuation{Status: StatusMatched, PriceEstimate: Float64Ptr(40)}},
		{Valuation: Valuation{Status: StatusNeedsReview, PriceEstimate: Float64Ptr(10.5)}},
		{Valuation: Valuation{Status: StatusPending}},
		{Valuation: Valuation{Status: StatusMatched}},
	}
	sum := Summarize(rows)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 2, sum.WithEstimate)
	assert.InDelta(t, 50.5, sum.TotalEstimateValue, 0.0001)
	assert.Equal(t, 2, sum.ByStatus[StatusMatched])
	assert.Equal(t, 1, sum.ByStatus[StatusPending])
	assert.Equal(t, 0, sum.ByStatus[StatusManual])
}

func TestPortfolioTotals(t *testing.T) {
	p := PortfolioTotals{Bottles: 12, Cost: 400, Value: 550}
	assert.Equal(t, 150.0, p.GainLoss())
	assert.Equal(t, 37.5, p.GainLossPercent())

	p = PortfolioTotals{Bottles: 3, Cost: 300, Value: 200}
	assert.Equal(t, -33.3, p.GainLossPercent())

	assert.Zero(t, PortfolioTotals{Value: 100}.GainLossPercent())
}
