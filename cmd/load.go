package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/jurisdiction-cli/internal/db"
	"github.com/sells-group/jurisdiction-cli/internal/geometry/postgis"
	"github.com/sells-group/jurisdiction-cli/internal/tiger"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the TIGER/Line state shapefile into PostGIS",
	Long: `Applies the geo schema migrations, then downloads (or reads --shapefile),
parses and upserts every state into geo.jurisdictions. Afterwards analyze can
run with source.kind=postgis and geometry.provider=postgis.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("load"); err != nil {
			return err
		}

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if showStatus, _ := cmd.Flags().GetBool("status"); showStatus {
			return printLoadStatus(ctx, pool)
		}

		if err := postgis.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "load: migrate")
		}

		year, _ := cmd.Flags().GetInt("year")
		shp, _ := cmd.Flags().GetString("shapefile")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		opts := tiger.LoadOptions{
			Year:    year,
			TempDir: cfg.Tiger.TempDir,
			ShpPath: shp,
			DryRun:  dryRun,
		}
		if opts.Year == 0 {
			opts.Year = cfg.Tiger.Year
		}

		zap.L().With(zap.String("command", "load")).Info("starting jurisdiction load",
			zap.Int("year", opts.Year),
			zap.String("shapefile", opts.ShpPath),
			zap.Bool("dry_run", opts.DryRun),
		)

		res, err := tiger.Load(ctx, pool, nil, opts)
		if err != nil {
			return eris.Wrap(err, "load")
		}

		fmt.Printf("Parsed %d jurisdictions from %s, loaded %d in %s\n",
			res.Parsed, res.ShpPath, res.Loaded, res.Duration.Round(time.Millisecond))
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the geo schema migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("load"); err != nil {
			return err
		}
		pool, err := storePool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := postgis.Migrate(cmd.Context(), pool); err != nil {
			return eris.Wrap(err, "migrate")
		}
		fmt.Println("Migrations complete")
		return nil
	},
}

func init() {
	loadCmd.Flags().Int("year", 0, "TIGER/Line year (default: tiger.year)")
	loadCmd.Flags().String("shapefile", "", "load this local shapefile instead of downloading")
	loadCmd.Flags().Bool("dry-run", false, "download and parse without loading")
	loadCmd.Flags().Bool("status", false, "show load history and exit")
	rootCmd.AddCommand(loadCmd, migrateCmd)
}

// printLoadStatus displays geo.load_status.
func printLoadStatus(ctx context.Context, pool db.Pool) error {
	rows, err := pool.Query(ctx,
		`SELECT product, year, row_count, COALESCE(duration_ms, 0), loaded_at FROM geo.load_status ORDER BY loaded_at DESC`)
	if err != nil {
		return eris.Wrap(err, "load: query status")
	}
	defer rows.Close()

	var printed bool
	for rows.Next() {
		var (
			product          string
			year, count, dur int
			loadedAt         time.Time
		)
		if err := rows.Scan(&product, &year, &count, &dur, &loadedAt); err != nil {
			return eris.Wrap(err, "load: scan status")
		}
		if !printed {
			fmt.Printf("%-8s %-6s %8s %12s %s\n", "Product", "Year", "Rows", "Duration", "Loaded At")
			fmt.Println(strings.Repeat("-", 56))
			printed = true
		}
		fmt.Printf("%-8s %-6d %8d %10dms %s\n", product, year, count, dur, loadedAt.Format("2006-01-02 15:04"))
	}
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "load: read status")
	}
	if !printed {
		fmt.Println("No jurisdictions loaded yet")
	}
	return nil
}
