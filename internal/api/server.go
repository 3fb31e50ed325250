// Package api exposes valuation and critic-score operations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/cellar-valuation/internal/model"
	"github.com/sells-group/cellar-valuation/internal/reconcile"
)

// Reconciler is the subset of reconcile.Service the handlers call.
type Reconciler interface {
	FetchValuation(ctx context.Context, wineID int64, vintage *int, userID int64) (*model.Valuation, error)
	FetchCriticScores(ctx context.Context, wineID int64, vintage *int, userID int64) ([]model.CriticScore, error)
	ListValuations(ctx context.Context, userID int64) ([]model.ValuationRow, error)
	Summary(ctx context.Context, userID int64) (*reconcile.Summary, error)
	SetManualValuation(ctx context.Context, userID int64, e reconcile.ManualEntry) (*model.Valuation, error)
	UpdateManualValuation(ctx context.Context, userID, valuationID int64, p reconcile.ManualPrices) (*model.Valuation, error)
	ConfirmValuation(ctx context.Context, userID, valuationID int64) (*model.Valuation, error)
	AddCriticScore(ctx context.Context, userID, wineID int64, e reconcile.CriticEntry) (*model.CriticScore, error)
	DeleteCriticScore(ctx context.Context, userID, scoreID int64) error
	ListCriticScores(ctx context.Context, userID, wineID int64, vintage *int) ([]model.CriticScoreRow, error)
}

// BatchRunner runs a per-user refresh batch.
type BatchRunner interface {
	Run(ctx context.Context, job reconcile.Job, userID int64) (reconcile.BatchResult, error)
}

// Pinger reports backing store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	// RequestTimeout bounds single-item requests. Batch routes are exempt.
	RequestTimeout time.Duration
}

// Server holds the handler dependencies.
type Server struct {
	svc    Reconciler
	batch  BatchRunner
	health Pinger
}

// NewServer creates a Server. health may be nil.
func NewServer(svc Reconciler, batch BatchRunner, health Pinger) *Server {
	return &Server{svc: svc, batch: batch, health: health}
}

// Router builds the chi router for all routes.
func (s *Server) Router(opts Options) http.Handler {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", userHeader, requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(requireUser)

		bounded := func(r chi.Router) chi.Router {
			if opts.RequestTimeout > 0 {
				return r.With(middleware.Timeout(opts.RequestTimeout))
			}
			return r
		}

		r.Route("/valuations", func(r chi.Router) {
			r.Post("/fetch-all", s.handleBatch(reconcile.JobValuations))

			b := bounded(r)
			b.Get("/", s.handleListValuations)
			b.Get("/summary", s.handleSummary)
			b.Post("/fetch", s.handleFetchValuation)
			b.Post("/manual", s.handleSetManual)
			b.Post("/{id}/manual", s.handleUpdateManual)
			b.Post("/{id}/confirm", s.handleConfirm)
		})

		r.Route("/critic-scores", func(r chi.Router) {
			r.Post("/fetch-all", s.handleBatch(reconcile.JobCriticScores))

			b := bounded(r)
			b.Post("/fetch", s.handleFetchCriticScores)
			b.Delete("/{id}", s.handleDeleteCriticScore)
		})

		b := bounded(r)
		b.Get("/wines/{wineId}/critic-scores", s.handleListCriticScores)
		b.Post("/wines/{wineId}/critic-scores", s.handleAddCriticScore)
	})

	return r
}
