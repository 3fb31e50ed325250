package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/cellar-valuation/internal/model"
	"github.com/sells-group/cellar-valuation/internal/reconcile"
)

type mockReconciler struct {
	mock.Mock
}

func (m *mockReconciler) FetchValuation(ctx context.Context, wineID int64, vintage *int, userID int64) (*model.Valuation, error) {
	args := m.Called(ctx, wineID, vintage, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Valuation), args.Error(1)
}

func (m *mockReconciler) FetchCriticScores(ctx context.Context, wineID int64, vintage *int, userID int64) ([]model.CriticScore, error) {
	args := m.Called(ctx, wineID, vintage, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CriticScore), args.Error(1)
}

func (m *mockReconciler) ListValuations(ctx context.Context, userID int64) ([]model.ValuationRow, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ValuationRow), args.Error(1)
}

func (m *mockReconciler) Summary(ctx context.Context, userID int64) (*reconcile.Summary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.Summary), args.Error(1)
}

func (m *mockReconciler) SetManualValuation(ctx context.Context, userID int64, e reconcile.ManualEntry) (*model.Valuation, error) {
	args := m.Called(ctx, userID, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Valuation), args.Error(1)
}

func (m *mockReconciler) UpdateManualValuation(ctx context.Context, userID, valuationID int64, p reconcile.ManualPrices) (*model.Valuation, error) {
	args := m.Called(ctx, userID, valuationID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Valuation), args.Error(1)
}

func (m *mockReconciler) ConfirmValuation(ctx context.Context, userID, valuationID int64) (*model.Valuation, error) {
	args := m.Called(ctx, userID, valuationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Valuation), args.Error(1)
}

func (m *mockReconciler) AddCriticScore(ctx context.Context, userID, wineID int64, e reconcile.CriticEntry) (*model.CriticScore, error) {
	args := m.Called(ctx, userID, wineID, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CriticScore), args.Error(1)
}

func (m *mockReconciler) DeleteCriticScore(ctx context.Context, userID, scoreID int64) error {
	return m.Called(ctx, userID, scoreID).Error(0)
}

func (m *mockReconciler) ListCriticScores(ctx context.Context, userID, wineID int64, vintage *int) ([]model.CriticScoreRow, error) {
	args := m.Called(ctx, userID, wineID, vintage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CriticScoreRow), args.Error(1)
}

type mockBatch struct {
	mock.Mock
}

func (m *mockBatch) Run(ctx context.Context, job reconcile.Job, userID int64) (reconcile.BatchResult, error) {
	args := m.Called(ctx, job, userID)
	return args.Get(0).(reconcile.BatchResult), args.Error(1)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
