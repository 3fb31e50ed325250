package reconcile

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cellar-valuation/internal/model"
	"github.com/sells-group/cellar-valuation/internal/store"
)

type pairKey struct {
	wineID  int64
	vintage int
}

func keyOf(p model.Pair) pairKey {
	return pairKey{wineID: p.WineID, vintage: p.VintageValue()}
}

// NeedsValuation lists inventory pairs with no valuation or one fetched at
// or before the staleness cutoff. Pairs protected by the overwrite policy are
// skipped.
func (s *Service) NeedsValuation(ctx context.Context, userID int64) ([]model.Pair, error) {
	pairs, err := s.store.InventoryPairs(ctx, userID)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: inventory pairs")
	}
	rows, err := s.store.ListValuations(ctx, userID)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: list valuations")
	}

	current := make(map[pairKey]model.Valuation, len(rows))
	for _, r := range rows {
		current[keyOf(r.Key())] = r.Valuation
	}

	cutoff := s.clock().Add(-s.valuationStaleAfter)
	var out []model.Pair
	for _, p := range pairs {
		v, ok := current[keyOf(p)]
		switch {
		case !ok:
			out = append(out, p)
		case s.policy.Protects(v.Status):
		case isStale(v.FetchedAt, cutoff):
			out = append(out, p)
		}
	}
	return out, nil
}

// NeedsCriticScores lists inventory pairs with no critic scores or whose
// newest score was updated at or before the staleness cutoff.
func (s *Service) NeedsCriticScores(ctx context.Context, userID int64) ([]model.Pair, error) {
	pairs, err := s.store.InventoryPairs(ctx, userID)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: inventory pairs")
	}
	rows, err := s.store.ListCriticScores(ctx, userID, store.CriticFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: list critic scores")
	}

	newest := make(map[pairKey]time.Time, len(rows))
	for _, r := range rows {
		k := keyOf(r.Key())
		if r.UpdatedAt.After(newest[k]) {
			newest[k] = r.UpdatedAt
		}
	}

	cutoff := s.clock().Add(-s.criticStaleAfter)
	var out []model.Pair
	for _, p := range pairs {
		t, ok := newest[keyOf(p)]
		if !ok || isStale(&t, cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}

// isStale reports whether t is unset or not after cutoff.
func isStale(t *time.Time, cutoff time.Time) bool {
	return t == nil || !t.After(cutoff)
}
