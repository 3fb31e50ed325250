package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/cellar-valuation/internal/api"
	"github.com/sells-group/cellar-valuation/internal/reconcile"
	"github.com/sells-group/cellar-valuation/internal/schedule"
)

var servePort int

const (
	requestTimeout  = 2 * time.Minute
	shutdownTimeout = 15 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the weekly refresh scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		e, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer e.Close()

		handler := api.NewServer(e.Service, e.Runner, e.Store).Router(api.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			RequestTimeout: requestTimeout,
		})
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})

		if cfg.Schedule.Enabled {
			sched, err := newScheduler(e.Runner)
			if err != nil {
				return err
			}
			g.Go(func() error { return sched.Run(gctx) })
		}

		return g.Wait()
	},
}

func newScheduler(r schedule.Runner) (*schedule.Scheduler, error) {
	sched := schedule.New(r)
	if err := sched.Add(cfg.Schedule.ValuationsSpec, reconcile.JobValuations); err != nil {
		return nil, err
	}
	if err := sched.Add(cfg.Schedule.CriticScoresSpec, reconcile.JobCriticScores); err != nil {
		return nil, err
	}
	return sched, nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
