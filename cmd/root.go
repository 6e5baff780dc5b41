package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/jurisdiction-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "jurisdiction-cli",
	Short: "US state adjacency, border and tax jurisdiction metrics",
	Long: `Derives which US states border each other, measures shared border length and
boundary complexity, aggregates land area by Census region and joins sales/use
tax rates. Geometry comes from the Census TIGER/Line state shapefile, either
evaluated in-process with GEOS or loaded into PostGIS.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
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
