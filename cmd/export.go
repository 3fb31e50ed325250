package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cellar-valuation/internal/export"
)

var (
	exportUser int64
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a user's valuations to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := initEnv(ctx, "export")
		if err != nil {
			return err
		}
		defer e.Close()

		rows, err := e.Service.ListValuations(ctx, exportUser)
		if err != nil {
			return eris.Wrap(err, "list valuations")
		}
		sum, err := e.Service.Summary(ctx, exportUser)
		if err != nil {
			return eris.Wrap(err, "summary")
		}

		out := exportOut
		if out == "" {
			out = export.Filename(exportUser, time.Now())
		}
		f, err := os.Create(out)
		if err != nil {
			return eris.Wrap(err, "create export file")
		}
		if err := export.WriteValuations(f, rows, sum); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrap(err, "close export file")
		}

		zap.L().Info("export written", zap.String("path", out), zap.Int("valuations", len(rows)))
		return nil
	},
}

func init() {
	exportCmd.Flags().Int64Var(&exportUser, "user", 0, "owning user ID")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default valuations-<user>-<date>.xlsx)")
	_ = exportCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(exportCmd)
}
