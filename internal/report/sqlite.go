package report

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/jurisdiction-cli/internal/analysis"
)

// SQLiteStore is a portable result database holding one or more runs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	started_at    DATETIME NOT NULL,
	finished_at   DATETIME NOT NULL,
	jurisdictions INTEGER NOT NULL,
	pairs         INTEGER NOT NULL,
	skipped_pairs INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS jurisdictions (
	run_id         TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	name           TEXT NOT NULL,
	stusps         TEXT NOT NULL,
	region         TEXT NOT NULL,
	division       TEXT NOT NULL,
	land_area_km2  REAL NOT NULL,
	sales_tax_rate REAL,
	use_tax_rate   REAL,
	PRIMARY KEY (run_id, name)
);

CREATE TABLE IF NOT EXISTS border_pairs (
	run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	state_a   TEXT NOT NULL,
	state_b   TEXT NOT NULL,
	length_km REAL NOT NULL,
	tier      TEXT NOT NULL,
	PRIMARY KEY (run_id, state_a, state_b)
);

CREATE TABLE IF NOT EXISTS complexity (
	run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	stusps          TEXT NOT NULL,
	perimeter_km    REAL NOT NULL,
	area_km2        REAL NOT NULL,
	boundary_points INTEGER NOT NULL,
	complexity      REAL,
	PRIMARY KEY (run_id, name)
);

CREATE TABLE IF NOT EXISTS regions (
	run_id         TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	region         TEXT NOT NULL,
	state_count    INTEGER NOT NULL,
	total_area_km2 REAL NOT NULL,
	avg_area_km2   REAL NOT NULL,
	PRIMARY KEY (run_id, region)
);
`

// Migrate creates the result tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun writes one run in a single transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, runID string, res *analysis.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, jurisdictions, pairs, skipped_pairs) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, res.StartedAt, res.FinishedAt, len(res.Jurisdictions), len(res.Pairs), res.Skipped,
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", runID)
	}

	for _, j := range res.Jurisdictions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO jurisdictions (run_id, name, stusps, region, division, land_area_km2, sales_tax_rate, use_tax_rate) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, j.Name, j.PostalCode, j.Region, j.Division, j.LandAreaKM2(), j.SalesTaxRate, j.UseTaxRate,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert jurisdiction %s", j.Name)
		}
	}

	for _, p := range res.Pairs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO border_pairs (run_id, state_a, state_b, length_km, tier) VALUES (?, ?, ?, ?, ?)`,
			runID, p.A, p.B, p.LengthKM, p.Tier.String(),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert border %s-%s", p.A, p.B)
		}
	}

	for _, r := range res.Complexity {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO complexity (run_id, name, stusps, perimeter_km, area_km2, boundary_points, complexity) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, r.Name, r.PostalCode, r.PerimeterKM, r.AreaKM2, r.BoundaryPoints, r.Index,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert complexity %s", r.Name)
		}
	}

	for _, r := range res.RegionOrder {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO regions (run_id, region, state_count, total_area_km2, avg_area_km2) VALUES (?, ?, ?, ?, ?)`,
			runID, r.Region, r.Count, r.TotalAreaKM2, r.AvgAreaKM2,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert region %s", r.Region)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID            string
	StartedAt     time.Time
	Jurisdictions int
	Pairs         int
	Skipped       int
}

// ListRuns returns stored runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, jurisdictions, pairs, skipped_pairs FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Jurisdictions, &r.Pairs, &r.Skipped); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// CountRows returns the number of rows a run stored in table. table must be
// one of the result tables.
func (s *SQLiteStore) CountRows(ctx context.Context, table, runID string) (int, error) {
	switch table {
	case "jurisdictions", "border_pairs", "complexity", "regions":
	default:
		return 0, eris.Errorf("sqlite: unknown table %q", table)
	}
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE run_id = ?", runID).Scan(&n)
	return n, eris.Wrapf(err, "sqlite: count %s", table)
}
