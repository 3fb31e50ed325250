// Package reconcile turns external search results and critic pages into
// persisted valuations and critic scores, and drives batch refreshes.
package reconcile

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cellar-valuation/internal/critic"
	"github.com/sells-group/cellar-valuation/internal/match"
	"github.com/sells-group/cellar-valuation/internal/model"
	"github.com/sells-group/cellar-valuation/internal/source"
	"github.com/sells-group/cellar-valuation/internal/store"
)

// Default staleness windows.
const (
	DefaultValuationStaleAfter = 7 * 24 * time.Hour
	DefaultCriticStaleAfter    = 30 * 24 * time.Hour
)

// OverwritePolicy controls whether automatic fetches may replace
// user-established valuations. The zero value overwrites everything.
type OverwritePolicy struct {
	PreserveManual    bool `yaml:"preserve_manual" mapstructure:"preserve_manual"`
	PreserveConfirmed bool `yaml:"preserve_confirmed" mapstructure:"preserve_confirmed"`
}

// Protects reports whether a valuation in status s must not be overwritten
// by an automatic fetch.
func (p OverwritePolicy) Protects(s model.ValuationStatus) bool {
	switch s {
	case model.StatusManual:
		return p.PreserveManual
	case model.StatusConfirmed:
		return p.PreserveConfirmed
	}
	return false
}

// Service reconciles catalog wines against external sources.
type Service struct {
	store      store.Store
	resolvers  []Resolver
	critics    CriticLookup
	taxonomy   *critic.Taxonomy
	thresholds match.Thresholds
	policy     OverwritePolicy

	valuationStaleAfter time.Duration
	criticStaleAfter    time.Duration

	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy sets the overwrite policy.
func WithPolicy(p OverwritePolicy) Option {
	return func(s *Service) { s.policy = p }
}

// WithTaxonomy replaces the default critic taxonomy.
func WithTaxonomy(t *critic.Taxonomy) Option {
	return func(s *Service) {
		if t != nil {
			s.taxonomy = t
		}
	}
}

// WithThresholds overrides the review threshold used for critic pages.
func WithThresholds(t match.Thresholds) Option {
	return func(s *Service) { s.thresholds = t }
}

// WithStaleness overrides the staleness windows. Non-positive values keep
// the defaults.
func WithStaleness(valuations, critics time.Duration) Option {
	return func(s *Service) {
		if valuations > 0 {
			s.valuationStaleAfter = valuations
		}
		if critics > 0 {
			s.criticStaleAfter = critics
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service. Resolvers are tried in order and the first
// acceptable outcome wins.
func New(st store.Store, resolvers []Resolver, critics CriticLookup, opts ...Option) *Service {
	s := &Service{
		store:               st,
		resolvers:           resolvers,
		critics:             critics,
		taxonomy:            critic.Default(),
		thresholds:          match.DefaultThresholds(),
		valuationStaleAfter: DefaultValuationStaleAfter,
		criticStaleAfter:    DefaultCriticStaleAfter,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the configured overwrite policy.
func (s *Service) Policy() OverwritePolicy { return s.policy }

func (s *Service) clock() time.Time { return s.now().UTC() }

func (s *Service) lookupWine(ctx context.Context, userID, wineID int64) (*model.Wine, error) {
	w, err := s.store.LookupWine(ctx, userID, wineID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return w, nil
}

// FetchValuation refreshes the valuation of one (wine, vintage) pair owned by
// userID. Source failures never surface as errors; a pair with no acceptable
// source result is persisted as pending or no_match.
func (s *Service) FetchValuation(ctx context.Context, wineID int64, vintage *int, userID int64) (*model.Valuation, error) {
	if err := validateVintage(vintage); err != nil {
		return nil, err
	}
	wine, err := s.lookupWine(ctx, userID, wineID)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetValuation(ctx, wineID, vintage)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: load valuation")
	}
	if existing != nil && s.policy.Protects(existing.Status) {
		zap.L().Debug("reconcile: valuation protected, skipping fetch",
			zap.Int64("wine_id", wineID),
			zap.String("status", string(existing.Status)),
		)
		return existing, nil
	}

	var outcome *Outcome
	for _, r := range s.resolvers {
		if outcome = r.Resolve(ctx, *wine, vintage); outcome != nil {
			break
		}
		zap.L().Debug("reconcile: resolver found nothing, trying next",
			zap.String("source", r.Name()),
			zap.Int64("wine_id", wineID),
		)
	}

	now := s.clock()
	v := &model.Valuation{
		WineID:    wineID,
		Vintage:   vintage,
		FetchedAt: &now,
	}
	if outcome != nil {
		conf := outcome.Confidence
		v.Status = outcome.Status
		v.Confidence = &conf
		v.PriceEstimate = outcome.PriceEstimate
		v.PriceLow = outcome.PriceLow
		v.PriceHigh = outcome.PriceHigh
		v.Source = outcome.Source
		v.SourceURL = outcome.SourceURL
		v.SourceWineID = outcome.SourceWineID
		v.SourceName = outcome.SourceName
	} else {
		v.Status = model.StatusPending
		if existing != nil && (existing.Status == model.StatusPending || existing.Status == model.StatusNoMatch) {
			v.Status = model.StatusNoMatch
		}
	}

	saved, err := s.store.UpsertValuation(ctx, v)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: save valuation")
	}
	zap.L().Info("reconcile: valuation fetched",
		zap.Int64("wine_id", wineID),
		zap.Int("vintage", saved.Key().VintageValue()),
		zap.String("status", string(saved.Status)),
		zap.String("source", saved.Source),
	)
	return saved, nil
}

// FetchCriticScores refreshes the critic scores of one pair. It returns
// ErrNoCriticScores when the page has no scores and ErrLowConfidence when the
// page does not describe the requested wine; nothing is written in either
// case.
func (s *Service) FetchCriticScores(ctx context.Context, wineID int64, vintage *int, userID int64) ([]model.CriticScore, error) {
	if err := validateVintage(vintage); err != nil {
		return nil, err
	}
	wine, err := s.lookupWine(ctx, userID, wineID)
	if err != nil {
		return nil, err
	}

	query := wine.Query()
	page := s.critics.LookupCriticScores(ctx, query, vintage)
	if page == nil || len(page.Scores) == 0 {
		return nil, ErrNoCriticScores
	}

	conf := match.Confidence(*wine, vintage, pageCandidate(*wine, page.WineName, query, vintage))
	if conf < s.thresholds.Review {
		zap.L().Info("reconcile: critic page rejected",
			zap.Int64("wine_id", wineID),
			zap.String("page_wine", page.WineName),
			zap.Float64("confidence", conf),
		)
		return nil, eris.Wrapf(ErrLowConfidence, "confidence %.2f", conf)
	}

	best := s.bestPerCritic(page)
	out := make([]model.CriticScore, 0, len(best))
	for _, cs := range best {
		cs.WineID = wineID
		cs.Vintage = vintage
		saved, err := s.store.UpsertCriticScore(ctx, &cs)
		if err != nil {
			return nil, eris.Wrap(err, "reconcile: save critic score")
		}
		out = append(out, *saved)
	}
	zap.L().Info("reconcile: critic scores fetched",
		zap.Int64("wine_id", wineID),
		zap.Int("entries", len(page.Scores)),
		zap.Int("critics", len(out)),
	)
	return out, nil
}

// pageCandidate builds the candidate matched against a critic page. The page
// title carries producer and wine in one string, so a leading producer name
// is split off into SourceWinery.
func pageCandidate(wine model.Wine, pageName, query string, vintage *int) model.Candidate {
	c := model.Candidate{SourceName: pageName, SourceWinery: pageName, SourceVintage: vintage}
	if pageName == "" {
		c.SourceName = query
		return c
	}
	producer := match.Normalize(wine.ProducerName)
	title := match.Normalize(pageName)
	if producer != "" && strings.HasPrefix(title, producer+" ") {
		c.SourceWinery = wine.ProducerName
		c.SourceName = strings.TrimPrefix(title, producer+" ")
	}
	return c
}

// bestPerCritic maps entries onto the taxonomy and keeps the highest score
// per critic, in first-seen order. Ties keep the first entry.
func (s *Service) bestPerCritic(page *source.CriticPage) []model.CriticScore {
	index := make(map[model.Critic]int)
	var out []model.CriticScore
	for _, e := range page.Scores {
		c := s.taxonomy.MapName(e.CriticName)
		i, seen := index[c]
		if seen && out[i].Score >= e.Score {
			continue
		}
		cs := model.CriticScore{
			Critic:    c,
			Score:     e.Score,
			Note:      e.Note,
			SourceURL: e.SourceURL,
			Source:    model.SourceWineSearcher,
		}
		if seen {
			out[i] = cs
			continue
		}
		index[c] = len(out)
		out = append(out, cs)
	}
	return out
}
