// Package model defines the records persisted by the reconciliation engine.
package model

import (
	"math"
	"time"
)

// ValuationStatus classifies how a valuation was obtained and validated.
type ValuationStatus string

const (
	StatusPending     ValuationStatus = "pending"
	StatusMatched     ValuationStatus = "matched"
	StatusNeedsReview ValuationStatus = "needs_review"
	StatusConfirmed   ValuationStatus = "confirmed"
	StatusNoMatch     ValuationStatus = "no_match"
	StatusManual      ValuationStatus = "manual"
)

// Valid reports whether s is one of the known statuses.
func (s ValuationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusMatched, StatusNeedsReview, StatusConfirmed, StatusNoMatch, StatusManual:
		return true
	}
	return false
}

// Automatic reports whether the status is assigned by the source pipeline
// rather than by a user action.
func (s ValuationStatus) Automatic() bool {
	switch s {
	case StatusPending, StatusMatched, StatusNeedsReview, StatusNoMatch:
		return true
	}
	return false
}

// Source identifiers stored on valuations and critic scores.
const (
	SourceVivino       = "vivino"
	SourceWineSearcher = "wine-searcher"
	SourceManual       = "manual"
)

// Valuation is the market price estimate for one (wine, vintage) pair.
type Valuation struct {
	ID            int64           `json:"id"`
	WineID        int64           `json:"wine_id"`
	Vintage       *int            `json:"vintage"`
	PriceEstimate *float64        `json:"price_estimate"`
	PriceLow      *float64        `json:"price_low"`
	PriceHigh     *float64        `json:"price_high"`
	Source        string          `json:"source"`
	SourceURL     string          `json:"source_url,omitempty"`
	SourceWineID  string          `json:"source_wine_id,omitempty"`
	SourceName    string          `json:"source_name,omitempty"`
	Status        ValuationStatus `json:"status"`
	Confidence    *float64        `json:"confidence"`
	FetchedAt     *time.Time      `json:"fetched_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Key returns the (wine, vintage) pair the valuation belongs to.
func (v Valuation) Key() Pair {
	return Pair{WineID: v.WineID, Vintage: v.Vintage}
}

// ValuationRow is a valuation joined with its catalog names for listing.
type ValuationRow struct {
	Valuation
	WineName     string `json:"wine_name"`
	ProducerName string `json:"producer_name"`
}

// ValuationSummary aggregates a user's valuations by outcome.
type ValuationSummary struct {
	Total              int                     `json:"total"`
	WithEstimate       int                     `json:"with_estimate"`
	TotalEstimateValue float64                 `json:"total_estimate_value"`
	ByStatus           map[ValuationStatus]int `json:"by_status"`
}

// Summarize computes a summary over the given valuations.
func Summarize(rows []ValuationRow) ValuationSummary {
	sum := ValuationSummary{ByStatus: make(map[ValuationStatus]int)}
	for _, r := range rows {
		sum.Total++
		sum.ByStatus[r.Status]++
		if r.PriceEstimate != nil {
			sum.WithEstimate++
			sum.TotalEstimateValue += *r.PriceEstimate
		}
	}
	return sum
}

// PortfolioTotals values a user's whole inventory, weighting each lot by its
// bottle count.
type PortfolioTotals struct {
	Bottles int64   `json:"total_bottles"`
	Cost    float64 `json:"total_cost"`
	Value   float64 `json:"total_value"`
}

// GainLoss returns Value minus Cost.
func (p PortfolioTotals) GainLoss() float64 {
	return p.Value - p.Cost
}

// GainLossPercent returns the gain relative to cost, to one decimal, or 0
// when nothing was paid.
func (p PortfolioTotals) GainLossPercent() float64 {
	if p.Cost <= 0 {
		return 0
	}
	return math.Round(p.GainLoss()/p.Cost*1000) / 10
}
