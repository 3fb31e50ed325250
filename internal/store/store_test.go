package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cellar-valuation/internal/model"
)

// Seeded catalog shared by store implementations under test:
//
//	user 1 owns wines 1 and 2 (producer "Château Margaux")
//	user 2 owns wine 3 (producer "Ridge")
//	lots: user 1 wine 1/2015 x6 @400 and x2 @450, wine 2/NV x12 @50;
//	      user 2 wine 3/2019 x3 @200
const catalogSeed = `
INSERT INTO users (id, email) VALUES (1, 'a@example.com'), (2, 'b@example.com');
INSERT INTO producers (id, user_id, name) VALUES (1, 1, 'Château Margaux'), (2, 2, 'Ridge');
INSERT INTO wines (id, user_id, producer_id, name) VALUES
	(1, 1, 1, 'Grand Vin'),
	(2, 1, 1, 'Pavillon Rouge'),
	(3, 2, 2, 'Monte Bello');
INSERT INTO inventory_lots (user_id, wine_id, vintage, quantity, purchase_price_per_bottle) VALUES
	(1, 1, 2015, 6, 400),
	(1, 1, 2015, 2, 450),
	(1, 2, NULL, 12, 50),
	(2, 3, 2019, 3, 200);
`

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	v2015 := model.IntPtr(2015)

	t.Run("LookupWine", func(t *testing.T) {
		s := newStore(t)

		w, err := s.LookupWine(ctx, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, "Grand Vin", w.Name)
		assert.Equal(t, "Château Margaux", w.ProducerName)

		_, err = s.LookupWine(ctx, 2, 1)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.LookupWine(ctx, 1, 999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("InventoryPairs", func(t *testing.T) {
		s := newStore(t)

		pairs, err := s.InventoryPairs(ctx, 1)
		require.NoError(t, err)
		require.Len(t, pairs, 2)
		assert.Equal(t, "1/2015", pairs[0].String())
		assert.Equal(t, "2/NV", pairs[1].String())

		ids, err := s.ListUserIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, ids)
	})

	t.Run("UpsertValuationIsIdempotent", func(t *testing.T) {
		s := newStore(t)

		missing, err := s.GetValuation(ctx, 1, v2015)
		require.NoError(t, err)
		assert.Nil(t, missing)

		fetched := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
		first, err := s.UpsertValuation(ctx, &model.Valuation{
			WineID:        1,
			Vintage:       v2015,
			PriceEstimate: model.Float64Ptr(480),
			Source:        model.SourceVivino,
			SourceWineID:  "v-1",
			Status:        model.StatusNeedsReview,
			Confidence:    model.Float64Ptr(0.7),
			FetchedAt:     &fetched,
		})
		require.NoError(t, err)
		require.NotZero(t, first.ID)

		second, err := s.UpsertValuation(ctx, &model.Valuation{
			WineID:        1,
			Vintage:       v2015,
			PriceEstimate: model.Float64Ptr(500),
			PriceLow:      model.Float64Ptr(450),
			Source:        model.SourceWineSearcher,
			SourceURL:     "https://www.wine-searcher.com/find/x",
			Status:        model.StatusMatched,
			Confidence:    model.Float64Ptr(0.9),
			FetchedAt:     &fetched,
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		got, err := s.GetValuation(ctx, 1, v2015)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, model.StatusMatched, got.Status)
		assert.Equal(t, model.SourceWineSearcher, got.Source)
		assert.Equal(t, 500.0, *got.PriceEstimate)
		assert.Equal(t, 450.0, *got.PriceLow)
		assert.Nil(t, got.PriceHigh)
		assert.Empty(t, got.SourceWineID)
		assert.InDelta(t, 0.9, *got.Confidence, 0.001)
		require.NotNil(t, got.FetchedAt)
		assert.True(t, fetched.Equal(*got.FetchedAt))
		assert.Equal(t, 2015, *got.Vintage)

		rows, err := s.ListValuations(ctx, 1)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Grand Vin", rows[0].WineName)
		assert.Equal(t, "Château Margaux", rows[0].ProducerName)
	})

	t.Run("NonVintageValuation", func(t *testing.T) {
		s := newStore(t)

		_, err := s.UpsertValuation(ctx, &model.Valuation{WineID: 2, Status: model.StatusPending})
		require.NoError(t, err)

		got, err := s.GetValuation(ctx, 2, nil)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Nil(t, got.Vintage)
		assert.Nil(t, got.PriceEstimate)
		assert.Nil(t, got.Confidence)
		assert.Nil(t, got.FetchedAt)

		other, err := s.GetValuation(ctx, 2, model.IntPtr(2016))
		require.NoError(t, err)
		assert.Nil(t, other)
	})

	t.Run("ValuationByIDAndStatus", func(t *testing.T) {
		s := newStore(t)

		v, err := s.UpsertValuation(ctx, &model.Valuation{
			WineID: 1, Vintage: v2015, Status: model.StatusNeedsReview,
			PriceEstimate: model.Float64Ptr(480),
		})
		require.NoError(t, err)

		got, err := s.GetValuationByID(ctx, 1, v.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusNeedsReview, got.Status)

		_, err = s.GetValuationByID(ctx, 2, v.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		updated, err := s.UpdateValuationStatus(ctx, v.ID, model.StatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, updated.Status)
		assert.Equal(t, 480.0, *updated.PriceEstimate)

		_, err = s.UpdateValuationStatus(ctx, 9999, model.StatusConfirmed)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("PortfolioTotals", func(t *testing.T) {
		s := newStore(t)

		_, err := s.UpsertValuation(ctx, &model.Valuation{
			WineID: 1, Vintage: v2015, Status: model.StatusMatched,
			PriceEstimate: model.Float64Ptr(500),
		})
		require.NoError(t, err)

		totals, err := s.PortfolioTotals(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(20), totals.Bottles)
		assert.InDelta(t, 3900, totals.Cost, 0.001)
		assert.InDelta(t, 4000, totals.Value, 0.001)

		empty, err := s.PortfolioTotals(ctx, 42)
		require.NoError(t, err)
		assert.Zero(t, empty.Bottles)
		assert.Zero(t, empty.Value)
	})

	t.Run("CriticScores", func(t *testing.T) {
		s := newStore(t)

		_, err := s.UpsertCriticScore(ctx, &model.CriticScore{
			WineID: 1, Vintage: v2015, Critic: model.CriticRobertParker, Score: 96, Source: model.SourceWineSearcher,
		})
		require.NoError(t, err)
		_, err = s.UpsertCriticScore(ctx, &model.CriticScore{
			WineID: 1, Vintage: v2015, Critic: model.CriticRobertParker, Score: 98, Source: model.SourceWineSearcher,
		})
		require.NoError(t, err)

		manual, err := s.InsertCriticScore(ctx, &model.CriticScore{
			WineID: 1, Vintage: v2015, Critic: model.CriticDecanter, Score: 93,
			Note: "Cassis and graphite", SourceURL: "https://decanter.example/review", Source: model.SourceManual,
		})
		require.NoError(t, err)
		require.NotZero(t, manual.ID)

		_, err = s.InsertCriticScore(ctx, &model.CriticScore{
			WineID: 1, Vintage: v2015, Critic: model.CriticDecanter, Score: 90, Source: model.SourceManual,
		})
		assert.ErrorIs(t, err, ErrConflict)

		_, err = s.UpsertCriticScore(ctx, &model.CriticScore{
			WineID: 1, Critic: model.CriticVinous, Score: 91, Source: model.SourceWineSearcher,
		})
		require.NoError(t, err)

		wineID := int64(1)
		rows, err := s.ListCriticScores(ctx, 1, CriticFilter{WineID: &wineID, Vintage: v2015})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, model.CriticRobertParker, rows[0].Critic)
		assert.Equal(t, 98, rows[0].Score)
		assert.Equal(t, model.CriticDecanter, rows[1].Critic)
		assert.Equal(t, "Cassis and graphite", rows[1].Note)
		all, err := s.ListCriticScores(ctx, 1, CriticFilter{WineID: &wineID})
		require.NoError(t, err)
		assert.Len(t, all, 3)
		assert.Nil(t, all[2].Vintage)
		assert.Equal(t, model.CriticVinous, all[2].Critic)

		none, err := s.ListCriticScores(ctx, 2, CriticFilter{WineID: &wineID})
		require.NoError(t, err)
		assert.Empty(t, none)

		got, err := s.GetCriticScore(ctx, 1, manual.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SourceManual, got.Source)
		_, err = s.GetCriticScore(ctx, 2, manual.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.DeleteCriticScore(ctx, manual.ID))
		assert.ErrorIs(t, s.DeleteCriticScore(ctx, manual.ID), ErrNotFound)
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(ctx))
	})
}
