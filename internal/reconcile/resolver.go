package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/cellar-valuation/internal/match"
	"github.com/sells-group/cellar-valuation/internal/model"
	"github.com/sells-group/cellar-valuation/internal/source"
)

// CandidateSearcher returns search candidates for a free-text query. It
// returns nil on any failure.
type CandidateSearcher interface {
	Name() string
	SearchCandidates(ctx context.Context, query string, vintage *int) []model.Candidate
}

// PriceLookup returns a single market price for a query, or nil.
type PriceLookup interface {
	Name() string
	LookupPrice(ctx context.Context, query string, vintage *int) *source.PriceResult
}

// CriticLookup returns the critic score page for a query, or nil.
type CriticLookup interface {
	LookupCriticScores(ctx context.Context, query string, vintage *int) *source.CriticPage
}

// Outcome is an acceptable valuation proposed by a resolver.
type Outcome struct {
	Status        model.ValuationStatus
	Confidence    float64
	PriceEstimate *float64
	PriceLow      *float64
	PriceHigh     *float64
	Source        string
	SourceURL     string
	SourceWineID  string
	SourceName    string
}

// Resolver proposes a valuation for a wine. A nil Outcome means the next
// resolver should be tried.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, wine model.Wine, vintage *int) *Outcome
}

// CandidateResolver picks the best search candidate and accepts it when its
// confidence clears the review threshold.
type CandidateResolver struct {
	Searcher   CandidateSearcher
	Thresholds match.Thresholds
}

// NewCandidateResolver creates a resolver using the calibrated thresholds.
func NewCandidateResolver(s CandidateSearcher) *CandidateResolver {
	return &CandidateResolver{Searcher: s, Thresholds: match.DefaultThresholds()}
}

func (r *CandidateResolver) Name() string { return r.Searcher.Name() }

func (r *CandidateResolver) Resolve(ctx context.Context, wine model.Wine, vintage *int) *Outcome {
	candidates := r.Searcher.SearchCandidates(ctx, wine.Query(), vintage)
	best := match.BestMatch(wine, vintage, candidates)
	if best == nil {
		return nil
	}

	outcome := r.Thresholds.Classify(best.Confidence)
	zap.L().Debug("reconcile: best candidate",
		zap.String("source", r.Name()),
		zap.Int64("wine_id", wine.ID),
		zap.String("candidate", best.Candidate.DisplayName()),
		zap.Float64("confidence", best.Confidence),
		zap.String("outcome", outcome.String()),
	)
	if outcome == match.Reject {
		return nil
	}

	c := best.Candidate
	return &Outcome{
		Status:        outcome.Status(),
		Confidence:    best.Confidence,
		PriceEstimate: c.Price,
		PriceLow:      c.PriceLow,
		PriceHigh:     c.PriceHigh,
		Source:        r.Name(),
		SourceURL:     c.SourceURL,
		SourceWineID:  c.SourceID,
		SourceName:    c.DisplayName(),
	}
}

// PriceResolver accepts any positive price from a direct price lookup at a
// fixed confidence.
type PriceResolver struct {
	Lookup     PriceLookup
	Confidence float64
}

// NewPriceResolver creates a resolver with source.PriceConfidence.
func NewPriceResolver(l PriceLookup) *PriceResolver {
	return &PriceResolver{Lookup: l, Confidence: source.PriceConfidence}
}

func (r *PriceResolver) Name() string { return r.Lookup.Name() }

func (r *PriceResolver) Resolve(ctx context.Context, wine model.Wine, vintage *int) *Outcome {
	res := r.Lookup.LookupPrice(ctx, wine.Query(), vintage)
	if res == nil || res.Price <= 0 {
		return nil
	}
	price := res.Price
	return &Outcome{
		Status:        model.StatusMatched,
		Confidence:    r.Confidence,
		PriceEstimate: &price,
		Source:        r.Name(),
		SourceURL:     res.URL,
		SourceName:    res.Name,
	}
}
