// Package store persists valuations and critic scores and reads the
// inventory catalog they refer to.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cellar-valuation/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist or is not owned
	// by the requesting user.
	ErrNotFound = eris.New("store: not found")
	// ErrConflict is returned when an insert violates a unique key.
	ErrConflict = eris.New("store: conflict")
)

// CriticFilter narrows ListCriticScores. A nil WineID lists every score the
// user owns; a nil Vintage matches all vintages.
type CriticFilter struct {
	WineID  *int64
	Vintage *int
}

// Catalog is read-only access to the inventory tables owned by the CRUD
// layer.
type Catalog interface {
	LookupWine(ctx context.Context, userID, wineID int64) (*model.Wine, error)
	InventoryPairs(ctx context.Context, userID int64) ([]model.Pair, error)
	ListUserIDs(ctx context.Context) ([]int64, error)
	PortfolioTotals(ctx context.Context, userID int64) (*model.PortfolioTotals, error)
}

// Store defines the persistence interface for the reconciliation engine.
type Store interface {
	Catalog

	// Valuations
	GetValuation(ctx context.Context, wineID int64, vintage *int) (*model.Valuation, error)
	GetValuationByID(ctx context.Context, userID, id int64) (*model.Valuation, error)
	UpsertValuation(ctx context.Context, v *model.Valuation) (*model.Valuation, error)
	UpdateValuationStatus(ctx context.Context, id int64, status model.ValuationStatus) (*model.Valuation, error)
	ListValuations(ctx context.Context, userID int64) ([]model.ValuationRow, error)

	// Critic scores
	UpsertCriticScore(ctx context.Context, s *model.CriticScore) (*model.CriticScore, error)
	InsertCriticScore(ctx context.Context, s *model.CriticScore) (*model.CriticScore, error)
	GetCriticScore(ctx context.Context, userID, id int64) (*model.CriticScore, error)
	DeleteCriticScore(ctx context.Context, id int64) error
	ListCriticScores(ctx context.Context, userID int64, filter CriticFilter) ([]model.CriticScoreRow, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	MigrateCatalog(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
