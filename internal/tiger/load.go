package tiger

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/jurisdiction-cli/internal/db"
)

// jurisdictionColumns are the geo.jurisdictions columns written by BulkLoad.
var jurisdictionColumns = []string{
	"geoid", "name", "stusps", "statefp", "region", "division", "aland", "awater", "geom",
}

// LoadOptions configures a fetch-and-load run.
type LoadOptions struct {
	Year    int    // TIGER/Line vintage (default DefaultYear)
	TempDir string // download directory
	ShpPath string // when set, skip the download and load this file
	DryRun  bool   // parse only
}

// LoadResult summarizes a load.
type LoadResult struct {
	ShpPath  string
	Parsed   int
	Loaded   int64
	Duration time.Duration
}

// Rows converts parsed records into COPY rows matching jurisdictionColumns.
func Rows(records []Record) ([][]any, error) {
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		j := rec.Jurisdiction
		g, err := EncodeEWKB(rec.Shape)
		if err != nil {
			return nil, eris.Wrapf(err, "tiger: encode %s", j.Name)
		}
		rows = append(rows, []any{
			string(j.Geometry), j.Name, j.PostalCode, j.FIPS, j.Region, j.Division, j.LandArea, j.WaterArea, g,
		})
	}
	return rows, nil
}

// BulkLoad upserts records into geo.jurisdictions keyed by GEOID.
func BulkLoad(ctx context.Context, pool db.Pool, records []Record) (int64, error) {
	rows, err := Rows(records)
	if err != nil {
		return 0, err
	}
	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        StateProduct.Table,
		Columns:      jurisdictionColumns,
		ConflictKeys: []string{"geoid"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "tiger: load jurisdictions")
	}
	return n, nil
}

// Load fetches (unless opts.ShpPath is set), parses and loads the state
// shapefile, then records the run in geo.load_status.
func Load(ctx context.Context, pool db.Pool, d *Downloader, opts LoadOptions) (LoadResult, error) {
	if opts.Year == 0 {
		opts.Year = DefaultYear
	}
	log := zap.L().With(
		zap.String("component", "tiger.loader"),
		zap.Int("year", opts.Year),
	)

	start := time.Now()
	res := LoadResult{ShpPath: opts.ShpPath}

	if res.ShpPath == "" {
		if d == nil {
			d = NewDownloader(opts.TempDir)
		}
		p, err := d.Fetch(ctx, DownloadURL(opts.Year))
		if err != nil {
			return res, err
		}
		res.ShpPath = p
	}

	records, err := ParseShapefile(res.ShpPath)
	if err != nil {
		return res, err
	}
	res.Parsed = len(records)
	log.Info("shapefile parsed", zap.Int("records", res.Parsed))

	if opts.DryRun {
		log.Info("dry run, skipping load")
		res.Duration = time.Since(start)
		return res, nil
	}

	res.Loaded, err = BulkLoad(ctx, pool, records)
	if err != nil {
		return res, err
	}
	res.Duration = time.Since(start)

	if err := recordLoad(ctx, pool, opts.Year, int(res.Loaded), int(res.Duration.Milliseconds())); err != nil {
		log.Warn("failed to record load status", zap.Error(err))
	}

	log.Info("jurisdictions loaded",
		zap.Int64("rows", res.Loaded),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func recordLoad(ctx context.Context, pool db.Pool, year, rowCount, durationMs int) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO geo.load_status (product, year, row_count, duration_ms)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product, year) DO UPDATE SET
			row_count = EXCLUDED.row_count,
			loaded_at = now(),
			duration_ms = EXCLUDED.duration_ms`,
		StateProduct.Name, year, rowCount, durationMs,
	)
	if err != nil {
		return eris.Wrap(err, "tiger: record load status")
	}
	return nil
}
