package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cellar-valuation/internal/reconcile"
)

var batchUser int64

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Refresh stale valuations or critic scores",
}

func batchRunE(job reconcile.Job) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx, "batch")
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := runBatch(ctx, e.Runner, job, batchUser)
		if err != nil {
			return err
		}
		zap.L().Info("batch complete",
			zap.String("job", string(res.Job)),
			zap.Int("total", res.Total),
			zap.Int("processed", res.Processed),
			zap.Int("errors", res.Errors),
		)
		return printJSON(res)
	}
}

// batchRunner is the part of reconcile.Runner the batch command drives.
type batchRunner interface {
	Run(ctx context.Context, job reconcile.Job, userID int64) (reconcile.BatchResult, error)
	RunAll(ctx context.Context, job reconcile.Job) (reconcile.BatchResult, error)
}

// runBatch runs job for userID, or for every user when userID is 0.
func runBatch(ctx context.Context, r batchRunner, job reconcile.Job, userID int64) (reconcile.BatchResult, error) {
	if userID > 0 {
		return r.Run(ctx, job, userID)
	}
	return r.RunAll(ctx, job)
}

var batchValuationsCmd = &cobra.Command{
	Use:   "valuations",
	Short: "Refresh valuations missing or older than the staleness window",
	RunE:  batchRunE(reconcile.JobValuations),
}

var batchCriticsCmd = &cobra.Command{
	Use:   "critics",
	Short: "Refresh critic scores missing or older than the staleness window",
	RunE:  batchRunE(reconcile.JobCriticScores),
}

func init() {
	batchCmd.PersistentFlags().Int64Var(&batchUser, "user", 0, "limit to one user ID (default all users)")
	batchCmd.AddCommand(batchValuationsCmd, batchCriticsCmd)
	rootCmd.AddCommand(batchCmd)
}
