package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateWithCatalog bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the valuation tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		if migrateWithCatalog {
			if err := st.MigrateCatalog(ctx); err != nil {
				return eris.Wrap(err, "migrate catalog")
			}
		}
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate")
		}

		zap.L().Info("migration complete",
			zap.String("driver", cfg.Store.Driver),
			zap.Bool("catalog", migrateWithCatalog),
		)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateWithCatalog, "with-catalog", false, "also create the users, producers, wines and inventory tables")
	rootCmd.AddCommand(migrateCmd)
}
