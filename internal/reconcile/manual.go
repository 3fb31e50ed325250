package reconcile

import (
	"context"
	"net/url"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cellar-valuation/internal/model"
	"github.com/sells-group/cellar-valuation/internal/store"
)

const (
	minVintage      = 1900
	maxVintage      = 2100
	maxNoteLen      = 2000
	maxSourceURLLen = 2048
)

// ManualPrices is a user-entered price estimate.
type ManualPrices struct {
	PriceEstimate float64  `json:"priceEstimate"`
	PriceLow      *float64 `json:"priceLow,omitempty"`
	PriceHigh     *float64 `json:"priceHigh,omitempty"`
}

func (p ManualPrices) validate() error {
	if p.PriceEstimate <= 0 {
		return invalid("priceEstimate", "must be positive")
	}
	if p.PriceLow != nil && *p.PriceLow <= 0 {
		return invalid("priceLow", "must be positive")
	}
	if p.PriceHigh != nil && *p.PriceHigh <= 0 {
		return invalid("priceHigh", "must be positive")
	}
	return nil
}

// ManualEntry is a user-entered valuation for a (wine, vintage) pair.
type ManualEntry struct {
	WineID  int64 `json:"wineId"`
	Vintage *int  `json:"vintage"`
	ManualPrices
}

// CriticEntry is a user-entered critic score.
type CriticEntry struct {
	Vintage   *int         `json:"vintage"`
	Critic    model.Critic `json:"critic"`
	Score     int          `json:"score"`
	Note      string       `json:"note,omitempty"`
	SourceURL string       `json:"sourceUrl,omitempty"`
}

func (e CriticEntry) validate() error {
	if err := validateVintage(e.Vintage); err != nil {
		return err
	}
	if !e.Critic.Valid() {
		return invalid("critic", "unknown critic "+string(e.Critic))
	}
	if e.Score < 0 || e.Score > 100 {
		return invalid("score", "must be between 0 and 100")
	}
	if utf8.RuneCountInString(e.Note) > maxNoteLen {
		return invalid("note", "too long")
	}
	if e.SourceURL != "" {
		if len(e.SourceURL) > maxSourceURLLen {
			return invalid("sourceUrl", "too long")
		}
		u, err := url.ParseRequestURI(e.SourceURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("sourceUrl", "must be an http(s) URL")
		}
	}
	return nil
}

func validateVintage(v *int) error {
	if v != nil && (*v < minVintage || *v > maxVintage) {
		return invalid("vintage", "must be between 1900 and 2100")
	}
	return nil
}

// ConfirmValuation accepts an automatic match. Confirming an already confirmed
// valuation is a no-op.
func (s *Service) ConfirmValuation(ctx context.Context, userID, valuationID int64) (*model.Valuation, error) {
	v, err := s.store.GetValuationByID(ctx, userID, valuationID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	switch v.Status {
	case model.StatusConfirmed:
		return v, nil
	case model.StatusMatched, model.StatusNeedsReview:
	default:
		return nil, eris.Wrapf(ErrInvalidTransition, "cannot confirm %s valuation", v.Status)
	}

	out, err := s.store.UpdateValuationStatus(ctx, valuationID, model.StatusConfirmed)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	zap.L().Info("reconcile: valuation confirmed", zap.Int64("valuation_id", valuationID))
	return out, nil
}

// SetManualValuation records a user-entered price for a pair, replacing any
// automatic result.
func (s *Service) SetManualValuation(ctx context.Context, userID int64, e ManualEntry) (*model.Valuation, error) {
	if err := validateVintage(e.Vintage); err != nil {
		return nil, err
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	if _, err := s.lookupWine(ctx, userID, e.WineID); err != nil {
		return nil, err
	}

	now := s.clock()
	est := e.PriceEstimate
	out, err := s.store.UpsertValuation(ctx, &model.Valuation{
		WineID:        e.WineID,
		Vintage:       e.Vintage,
		PriceEstimate: &est,
		PriceLow:      e.PriceLow,
		PriceHigh:     e.PriceHigh,
		Source:        model.SourceManual,
		Status:        model.StatusManual,
		FetchedAt:     &now,
	})
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: save manual valuation")
	}
	return out, nil
}

// UpdateManualValuation overrides the prices of an existing valuation. The
// source provenance of the replaced result is kept for reference.
func (s *Service) UpdateManualValuation(ctx context.Context, userID, valuationID int64, p ManualPrices) (*model.Valuation, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	v, err := s.store.GetValuationByID(ctx, userID, valuationID)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	now := s.clock()
	est := p.PriceEstimate
	v.PriceEstimate = &est
	v.PriceLow = p.PriceLow
	v.PriceHigh = p.PriceHigh
	v.Source = model.SourceManual
	v.Status = model.StatusManual
	v.Confidence = nil
	v.FetchedAt = &now

	out, err := s.store.UpsertValuation(ctx, v)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: save manual valuation")
	}
	return out, nil
}

// AddCriticScore records a user-entered critic score. It returns ErrConflict
// when the critic already scored the pair.
func (s *Service) AddCriticScore(ctx context.Context, userID, wineID int64, e CriticEntry) (*model.CriticScore, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	if _, err := s.lookupWine(ctx, userID, wineID); err != nil {
		return nil, err
	}
	out, err := s.store.InsertCriticScore(ctx, &model.CriticScore{
		WineID:    wineID,
		Vintage:   e.Vintage,
		Critic:    e.Critic,
		Score:     e.Score,
		Note:      e.Note,
		SourceURL: e.SourceURL,
		Source:    model.SourceManual,
	})
	if err != nil {
		if mapped := mapStoreErr(err); mapped == ErrConflict {
			return nil, mapped
		}
		return nil, eris.Wrap(err, "reconcile: save critic score")
	}
	return out, nil
}

// DeleteCriticScore removes a critic score owned by userID.
func (s *Service) DeleteCriticScore(ctx context.Context, userID, scoreID int64) error {
	if _, err := s.store.GetCriticScore(ctx, userID, scoreID); err != nil {
		return mapStoreErr(err)
	}
	return mapStoreErr(s.store.DeleteCriticScore(ctx, scoreID))
}

// ListValuations returns every valuation for the user's wines.
func (s *Service) ListValuations(ctx context.Context, userID int64) ([]model.ValuationRow, error) {
	rows, err := s.store.ListValuations(ctx, userID)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: list valuations")
	}
	return rows, nil
}

// ListCriticScores returns the scores for one wine, highest first. A nil
// vintage lists every vintage.
func (s *Service) ListCriticScores(ctx context.Context, userID, wineID int64, vintage *int) ([]model.CriticScoreRow, error) {
	if _, err := s.lookupWine(ctx, userID, wineID); err != nil {
		return nil, err
	}
	rows, err := s.store.ListCriticScores(ctx, userID, store.CriticFilter{WineID: &wineID, Vintage: vintage})
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: list critic scores")
	}
	return rows, nil
}

// Summary is the valuation overview for one user.
type Summary struct {
	model.ValuationSummary
	TotalBottles       int64   `json:"total_bottles"`
	TotalCost          float64 `json:"total_cost"`
	TotalValue         float64 `json:"total_value"`
	GainLoss           float64 `json:"gain_loss"`
	GainLossPercent    float64 `json:"gain_loss_percent"`
	WinesNeedingReview int     `json:"wines_needing_review"`
	WinesNoMatch       int     `json:"wines_no_match"`
}

// Summary aggregates the user's valuations and values the inventory.
func (s *Service) Summary(ctx context.Context, userID int64) (*Summary, error) {
	rows, err := s.ListValuations(ctx, userID)
	if err != nil {
		return nil, err
	}
	totals, err := s.store.PortfolioTotals(ctx, userID)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: portfolio totals")
	}
	sum := model.Summarize(rows)
	return &Summary{
		ValuationSummary:   sum,
		TotalBottles:       totals.Bottles,
		TotalCost:          totals.Cost,
		TotalValue:         totals.Value,
		GainLoss:           totals.GainLoss(),
		GainLossPercent:    totals.GainLossPercent(),
		WinesNeedingReview: sum.ByStatus[model.StatusNeedsReview],
		WinesNoMatch:       sum.ByStatus[model.StatusNoMatch] + sum.ByStatus[model.StatusPending],
	}, nil
}
