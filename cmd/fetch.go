package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cellar-valuation/internal/model"
)

var (
	fetchUser    int64
	fetchWine    int64
	fetchVintage int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch data for a single wine",
}

var fetchValuationCmd = &cobra.Command{
	Use:   "valuation",
	Short: "Fetch and store a market valuation for one wine and vintage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := initEnv(ctx, "fetch")
		if err != nil {
			return err
		}
		defer e.Close()

		v, err := e.Service.FetchValuation(ctx, fetchWine, vintageFlag(), fetchUser)
		if err != nil {
			return eris.Wrap(err, "fetch valuation")
		}
		zap.L().Info("valuation stored",
			zap.Int64("wine_id", v.WineID),
			zap.String("status", string(v.Status)),
		)
		return printJSON(v)
	},
}

var fetchCriticsCmd = &cobra.Command{
	Use:   "critics",
	Short: "Fetch and store critic scores for one wine and vintage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := initEnv(ctx, "fetch")
		if err != nil {
			return err
		}
		defer e.Close()

		scores, err := e.Service.FetchCriticScores(ctx, fetchWine, vintageFlag(), fetchUser)
		if err != nil {
			return eris.Wrap(err, "fetch critic scores")
		}
		zap.L().Info("critic scores stored", zap.Int64("wine_id", fetchWine), zap.Int("scores", len(scores)))
		return printJSON(scores)
	},
}

// vintageFlag maps the --vintage flag to a vintage; 0 means non-vintage.
func vintageFlag() *int {
	return model.VintageFromValue(fetchVintage)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	for _, c := range []*cobra.Command{fetchValuationCmd, fetchCriticsCmd} {
		c.Flags().Int64Var(&fetchUser, "user", 0, "owning user ID")
		c.Flags().Int64Var(&fetchWine, "wine", 0, "wine ID")
		c.Flags().IntVar(&fetchVintage, "vintage", 0, "vintage year (0 for non-vintage)")
		_ = c.MarkFlagRequired("user")
		_ = c.MarkFlagRequired("wine")
		fetchCmd.AddCommand(c)
	}
	rootCmd.AddCommand(fetchCmd)
}
