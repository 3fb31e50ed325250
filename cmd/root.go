package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cellar-valuation/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "cellar-valuation",
	Short: "Wine inventory valuation and critic-score reconciliation",
	Long:  "Looks up market prices and critic scores for cellar wines, matches them to catalog entries with a confidence score, and keeps valuations fresh on a schedule.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
