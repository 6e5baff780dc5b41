package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/jurisdiction-cli/internal/tiger"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the Census TIGER/Line state shapefile",
	Long: `Downloads tl_<year>_us_state.zip from www2.census.gov into tiger.temp_dir and
extracts it. An archive already on disk is reused. Prints the .shp path.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if year, _ := cmd.Flags().GetInt("year"); year != 0 {
			cfg.Tiger.Year = year
		}
		if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
			cfg.Tiger.TempDir = dir
		}
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		url := tiger.DownloadURL(cfg.Tiger.Year)
		zap.L().With(zap.String("command", "fetch")).Info("fetching TIGER state shapefile",
			zap.Int("year", cfg.Tiger.Year),
			zap.String("url", url),
		)

		shp, err := tiger.NewDownloader(cfg.Tiger.TempDir).Fetch(ctx, url)
		if err != nil {
			return eris.Wrap(err, "fetch")
		}

		fmt.Println(shp)
		return nil
	},
}

func init() {
	fetchCmd.Flags().Int("year", 0, "TIGER/Line year (default: tiger.year)")
	fetchCmd.Flags().String("dir", "", "download directory (default: tiger.temp_dir)")
	rootCmd.AddCommand(fetchCmd)
}
