package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/jurisdiction-cli/internal/analysis"
	"github.com/sells-group/jurisdiction-cli/internal/config"
	"github.com/sells-group/jurisdiction-cli/internal/report"
	"github.com/sells-group/jurisdiction-cli/internal/taxrate"
	"github.com/sells-group/jurisdiction-cli/internal/telemetry"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the adjacency, border, complexity and tax analysis",
	Long: `Loads every jurisdiction, finds bordering pairs, measures shared border length
and boundary complexity, aggregates by region and joins tax rates. Prints the
text report and writes borders.csv, complexity.csv, regions.csv, tax_rates.csv,
state_statistics.csv and tax_rates_summary.xlsx to the export directory.`,
	Example: `  jurisdiction-cli analyze --shapefile data/tl_2023_us_state.shp --rates rates.yaml
  jurisdiction-cli analyze --default-rate 6 --sqlite output/results.db
  JURIS_SOURCE_KIND=postgis JURIS_GEOMETRY_PROVIDER=postgis jurisdiction-cli analyze --postgres`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := applyAnalyzeFlags(cmd, cfg); err != nil {
			return err
		}
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		opts, err := analysisOptions(cfg)
		if err != nil {
			return err
		}

		ws, err := openWorkspace(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}
		defer ws.close()

		var sink *report.PostgresSink
		if cfg.Export.Postgres {
			pool := ws.pool
			if pool == nil {
				p, err := storePool(ctx)
				if err != nil {
					return err
				}
				defer p.Close()
				pool = p
			}
			sink = &report.PostgresSink{Pool: pool}
		}

		reportPath, _ := cmd.Flags().GetString("report")
		out := io.Writer(os.Stdout)
		if reportPath != "" {
			f, err := os.Create(reportPath)
			if err != nil {
				return eris.Wrapf(err, "analyze: create report %s", reportPath)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		return runAnalyze(ctx, ws, sink, opts, cfg, out)
	},
}

func init() {
	addAnalyzeFlags(analyzeCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func addAnalyzeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("shapefile", "", "TIGER state shapefile (sets source.kind=shapefile)")
	f.String("rates", "", "tax rate table (.yaml, .csv or .xlsx)")
	f.Float64("default-rate", 0, "sales and use rate for jurisdictions missing from --rates")
	f.String("out", "", "export directory (default: export.dir)")
	f.String("sqlite", "", "also write results to this SQLite file")
	f.Bool("postgres", false, "also persist results to PostgreSQL")
	f.Int("top", 0, "complexity ranking size (default: metrics.top_n_complexity)")
	f.String("report", "", "write the text report to this file instead of stdout")
	f.String("textfile", "", "write run metrics in Prometheus textfile format")
}

// applyAnalyzeFlags lets explicitly set flags override config values.
func applyAnalyzeFlags(cmd *cobra.Command, c *config.Config) error {
	f := cmd.Flags()
	if f.Changed("shapefile") {
		c.Source.Kind = config.SourceShapefile
		c.Source.Path, _ = f.GetString("shapefile")
		c.Geometry.Provider = config.ProviderGEOS
	}
	if f.Changed("rates") {
		c.Tax.RatesFile, _ = f.GetString("rates")
	}
	if f.Changed("default-rate") {
		rate, err := f.GetFloat64("default-rate")
		if err != nil {
			return eris.Wrap(err, "analyze: --default-rate")
		}
		c.Tax.DefaultRate = &rate
	}
	if f.Changed("out") {
		c.Export.Dir, _ = f.GetString("out")
	}
	if f.Changed("sqlite") {
		c.Export.SQLite, _ = f.GetString("sqlite")
	}
	if f.Changed("postgres") {
		c.Export.Postgres, _ = f.GetBool("postgres")
	}
	if f.Changed("top") {
		c.Metrics.TopNComplexity, _ = f.GetInt("top")
	}
	if f.Changed("textfile") {
		c.Export.Textfile, _ = f.GetString("textfile")
	}
	return nil
}

// analysisOptions translates config into engine options, reading the rate
// table when one is configured.
func analysisOptions(c *config.Config) (analysis.Options, error) {
	opts := analysis.Options{
		Thresholds:  c.Metrics.Thresholds,
		TopN:        c.Metrics.TopNComplexity,
		Concurrency: c.Analysis.Concurrency,
	}
	if c.Tax.RatesFile != "" {
		table, err := taxrate.LoadFile(c.Tax.RatesFile)
		if err != nil {
			return opts, err
		}
		opts.TaxTable = table
	}
	if c.Tax.DefaultRate != nil {
		def := taxrate.Uniform(*c.Tax.DefaultRate)
		opts.DefaultRate = &def
	}
	return opts, nil
}

func runAnalyze(ctx context.Context, ws *workspace, sink *report.PostgresSink, opts analysis.Options, c *config.Config, out io.Writer) error {
	log := zap.L().With(zap.String("command", "analyze"))
	rec := telemetry.New()
	rec.StageDuration(telemetry.StageLoad, ws.loadTime)

	engine, err := analysis.NewEngine(ws.provider, opts, rec)
	if err != nil {
		return err
	}
	res, err := engine.Run(ctx, ws.repo)
	if err != nil {
		return eris.Wrap(err, "analyze")
	}

	if err := report.WriteText(out, res); err != nil {
		return err
	}

	start := time.Now()
	m, err := report.Export(ctx, res, report.ExportOptions{
		Dir:      c.Export.Dir,
		SQLite:   c.Export.SQLite,
		Postgres: sink,
	})
	if err != nil {
		return eris.Wrap(err, "analyze: export")
	}
	rec.Stage(telemetry.StageExport, start)
	rec.Succeeded(time.Now())

	if err := rec.WriteTextfile(c.Export.Textfile); err != nil {
		log.Warn("failed to write metrics textfile", zap.Error(err))
	}

	fmt.Fprintf(os.Stderr, "\nRun %s: %d files written\n", m.RunID, len(m.Files))
	for _, f := range m.Files {
		fmt.Fprintf(os.Stderr, "  %s\n", f)
	}
	return nil
}
