package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cellar-valuation/internal/config"
	"github.com/sells-group/cellar-valuation/internal/critic"
	"github.com/sells-group/cellar-valuation/internal/match"
	"github.com/sells-group/cellar-valuation/internal/reconcile"
	"github.com/sells-group/cellar-valuation/internal/resilience"
	"github.com/sells-group/cellar-valuation/internal/source"
	"github.com/sells-group/cellar-valuation/internal/store"
)

// env holds the wired components shared by commands.
type env struct {
	Store   store.Store
	Service *reconcile.Service
	Runner  *reconcile.Runner
	Session *source.Session
}

// Close releases the store.
func (e *env) Close() {
	if e.Store != nil {
		e.Store.Close()
	}
}

func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.Store.Driver {
	case "sqlite":
		return store.NewSQLite(c.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, c.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
}

func newSession(c *config.Config) *source.Session {
	breakers := resilience.NewBreakers(resilience.CircuitBreakerConfig{
		FailureThreshold: c.Sources.BreakerThreshold,
		ResetTimeout:     time.Duration(c.Sources.BreakerResetSecs) * time.Second,
	})
	return source.NewSession(
		source.WithTimeout(time.Duration(c.Sources.TimeoutSecs)*time.Second),
		source.WithUserAgent(c.Sources.UserAgent),
		source.WithRateLimit(c.Sources.RequestsPerSecond),
		source.WithRetry(resilience.DefaultRetryConfig().WithMaxAttempts(c.Sources.MaxRetries)),
		source.WithBreakers(breakers),
	)
}

func thresholds(c *config.Config) match.Thresholds {
	return match.Thresholds{
		Review: c.Match.ReviewThreshold,
		Accept: c.Match.ConfidenceThreshold,
	}
}

func serviceOptions(c *config.Config) ([]reconcile.Option, error) {
	opts := []reconcile.Option{
		reconcile.WithPolicy(reconcile.OverwritePolicy{
			PreserveManual:    c.Reconcile.PreserveManual,
			PreserveConfirmed: c.Reconcile.PreserveConfirmed,
		}),
		reconcile.WithThresholds(thresholds(c)),
		reconcile.WithStaleness(
			time.Duration(c.Reconcile.ValuationStaleDays)*24*time.Hour,
			time.Duration(c.Reconcile.CriticStaleDays)*24*time.Hour,
		),
	}
	if c.Critic.AliasesFile != "" {
		tax, err := critic.LoadAliases(c.Critic.AliasesFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, reconcile.WithTaxonomy(tax))
	}
	return opts, nil
}

func batchDelay(c *config.Config) time.Duration {
	return time.Duration(c.Batch.DelaySecs * float64(time.Second))
}

// buildEnv wires the engine around st.
func buildEnv(c *config.Config, st store.Store) (*env, error) {
	opts, err := serviceOptions(c)
	if err != nil {
		return nil, err
	}

	sess := newSession(c)
	vivino := source.NewVivino(sess, c.Sources.VivinoBaseURL)
	ws := source.NewWineSearcher(sess, c.Sources.WineSearcherBaseURL)

	candidates := reconcile.NewCandidateResolver(vivino)
	candidates.Thresholds = thresholds(c)
	resolvers := []reconcile.Resolver{candidates, reconcile.NewPriceResolver(ws)}
	svc := reconcile.New(st, resolvers, ws, opts...)

	return &env{
		Store:   st,
		Service: svc,
		Runner:  reconcile.NewRunner(svc, batchDelay(c)),
		Session: sess,
	}, nil
}

// initEnv validates the config for mode, opens the store and wires the engine.
func initEnv(ctx context.Context, mode string) (*env, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	st, err := initStore(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	e, err := buildEnv(cfg, st)
	if err != nil {
		st.Close()
		return nil, eris.Wrap(err, "build engine")
	}
	zap.L().Debug("engine ready", zap.String("driver", cfg.Store.Driver), zap.String("mode", mode))
	return e, nil
}
