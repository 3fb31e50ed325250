package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sells-group/cellar-valuation/internal/model"
	"github.com/sells-group/cellar-valuation/internal/source"
	"github.com/sells-group/cellar-valuation/internal/store"
)

type fakeWine struct {
	userID int64
	wine   model.Wine
}

// fakeStore is an in-memory store.Store.
type fakeStore struct {
	mu         sync.Mutex
	wines      map[int64]fakeWine
	pairs      map[int64][]model.Pair
	valuations map[pairKey]*model.Valuation
	scores     map[int64]*model.CriticScore
	totals     model.PortfolioTotals
	nextID     int64
	upserts    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		wines:      make(map[int64]fakeWine),
		pairs:      make(map[int64][]model.Pair),
		valuations: make(map[pairKey]*model.Valuation),
		scores:     make(map[int64]*model.CriticScore),
	}
}

func (f *fakeStore) addWine(userID, wineID int64, producer, name string, vintages ...*int) {
	f.wines[wineID] = fakeWine{userID: userID, wine: model.Wine{ID: wineID, Name: name, ProducerName: producer}}
	for _, v := range vintages {
		f.pairs[userID] = append(f.pairs[userID], model.Pair{WineID: wineID, Vintage: v})
	}
}

func (f *fakeStore) putValuation(v model.Valuation) *model.Valuation {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	v.ID = f.nextID
	f.valuations[keyOf(v.Key())] = &v
	return &v
}

func (f *fakeStore) putScore(cs model.CriticScore) *model.CriticScore {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cs.ID = f.nextID
	f.scores[cs.ID] = &cs
	return &cs
}

func (f *fakeStore) owns(userID, wineID int64) bool {
	w, ok := f.wines[wineID]
	return ok && w.userID == userID
}

func (f *fakeStore) LookupWine(_ context.Context, userID, wineID int64) (*model.Wine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.owns(userID, wineID) {
		return nil, store.ErrNotFound
	}
	w := f.wines[wineID].wine
	return &w, nil
}

func (f *fakeStore) InventoryPairs(_ context.Context, userID int64) ([]model.Pair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Pair(nil), f.pairs[userID]...), nil
}

func (f *fakeStore) ListUserIDs(context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id := range f.pairs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeStore) PortfolioTotals(context.Context, int64) (*model.PortfolioTotals, error) {
	t := f.totals
	return &t, nil
}

func (f *fakeStore) GetValuation(_ context.Context, wineID int64, vintage *int) (*model.Valuation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.valuations[keyOf(model.Pair{WineID: wineID, Vintage: vintage})]
	if !ok {
		return nil, nil
	}
	out := *v
	return &out, nil
}

func (f *fakeStore) GetValuationByID(_ context.Context, userID, id int64) (*model.Valuation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.valuations {
		if v.ID == id && f.owns(userID, v.WineID) {
			out := *v
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) UpsertValuation(_ context.Context, v *model.Valuation) (*model.Valuation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	out := *v
	k := keyOf(out.Key())
	if cur, ok := f.valuations[k]; ok {
		out.ID = cur.ID
	} else {
		f.nextID++
		out.ID = f.nextID
	}
	out.UpdatedAt = time.Now().UTC()
	stored := out
	f.valuations[k] = &stored
	return &out, nil
}

func (f *fakeStore) UpdateValuationStatus(_ context.Context, id int64, status model.ValuationStatus) (*model.Valuation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.valuations {
		if v.ID == id {
			v.Status = status
			out := *v
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListValuations(_ context.Context, userID int64) ([]model.ValuationRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ValuationRow
	for _, v := range f.valuations {
		if w, ok := f.wines[v.WineID]; ok && w.userID == userID {
			out = append(out, model.ValuationRow{Valuation: *v, WineName: w.wine.Name, ProducerName: w.wine.ProducerName})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) findScore(wineID int64, vintage *int, c model.Critic) *model.CriticScore {
	k := keyOf(model.Pair{WineID: wineID, Vintage: vintage})
	for _, s := range f.scores {
		if keyOf(s.Key()) == k && s.Critic == c {
			return s
		}
	}
	return nil
}

func (f *fakeStore) UpsertCriticScore(_ context.Context, cs *model.CriticScore) (*model.CriticScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := *cs
	out.UpdatedAt = time.Now().UTC()
	if cur := f.findScore(cs.WineID, cs.Vintage, cs.Critic); cur != nil {
		out.ID = cur.ID
	} else {
		f.nextID++
		out.ID = f.nextID
	}
	stored := out
	f.scores[out.ID] = &stored
	return &out, nil
}

func (f *fakeStore) InsertCriticScore(_ context.Context, cs *model.CriticScore) (*model.CriticScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findScore(cs.WineID, cs.Vintage, cs.Critic) != nil {
		return nil, store.ErrConflict
	}
	out := *cs
	out.UpdatedAt = time.Now().UTC()
	f.nextID++
	out.ID = f.nextID
	stored := out
	f.scores[out.ID] = &stored
	return &out, nil
}

func (f *fakeStore) GetCriticScore(_ context.Context, userID, id int64) (*model.CriticScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scores[id]
	if !ok || !f.owns(userID, s.WineID) {
		return nil, store.ErrNotFound
	}
	out := *s
	return &out, nil
}

func (f *fakeStore) DeleteCriticScore(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.scores[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.scores, id)
	return nil
}

func (f *fakeStore) ListCriticScores(_ context.Context, userID int64, filter store.CriticFilter) ([]model.CriticScoreRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CriticScoreRow
	for _, s := range f.scores {
		if !f.owns(userID, s.WineID) {
			continue
		}
		if filter.WineID != nil && s.WineID != *filter.WineID {
			continue
		}
		if filter.Vintage != nil && s.Key().VintageValue() != *filter.Vintage {
			continue
		}
		w := f.wines[s.WineID].wine
		out = append(out, model.CriticScoreRow{CriticScore: *s, WineName: w.Name, ProducerName: w.ProducerName})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (f *fakeStore) Migrate(context.Context) error        { return nil }
func (f *fakeStore) MigrateCatalog(context.Context) error { return nil }
func (f *fakeStore) Ping(context.Context) error           { return nil }
func (f *fakeStore) Close() error                         { return nil }

// fakeSearcher returns fixed candidates and records queries.
type fakeSearcher struct {
	candidates []model.Candidate
	queries    []string
}

func (s *fakeSearcher) Name() string { return model.SourceVivino }

func (s *fakeSearcher) SearchCandidates(_ context.Context, query string, _ *int) []model.Candidate {
	s.queries = append(s.queries, query)
	return s.candidates
}

// fakePrice returns a fixed price result.
type fakePrice struct {
	result *source.PriceResult
	calls  int
}

func (p *fakePrice) Name() string { return model.SourceWineSearcher }

func (p *fakePrice) LookupPrice(context.Context, string, *int) *source.PriceResult {
	p.calls++
	return p.result
}

// fakeCritics returns a fixed critic page.
type fakeCritics struct {
	page *source.CriticPage
}

func (c *fakeCritics) LookupCriticScores(context.Context, string, *int) *source.CriticPage {
	return c.page
}

// resolverFunc adapts a function to Resolver.
type resolverFunc func(ctx context.Context, wine model.Wine, vintage *int) *Outcome

func (f resolverFunc) Name() string { return "func" }

func (f resolverFunc) Resolve(ctx context.Context, wine model.Wine, vintage *int) *Outcome {
	return f(ctx, wine, vintage)
}
