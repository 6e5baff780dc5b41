package report

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/jurisdiction-cli/internal/analysis"
)

// ExportOptions selects the outputs of Export. Empty fields are skipped.
type ExportOptions struct {
	Dir      string
	SQLite   string
	Postgres *PostgresSink
}

// Manifest lists what Export produced.
type Manifest struct {
	RunID uuid.UUID
	Files []string
}

// Export writes the CSV files and workbook into opts.Dir and stores the run
// in the configured databases. All outputs share one run ID.
func Export(ctx context.Context, res *analysis.Result, opts ExportOptions) (Manifest, error) {
	log := zap.L().With(zap.String("component", "report.export"))
	m := Manifest{RunID: uuid.New()}

	if opts.Dir != "" {
		files, err := WriteCSV(opts.Dir, res)
		m.Files = append(m.Files, files...)
		if err != nil {
			return m, err
		}

		path := filepath.Join(opts.Dir, SummaryXLSX)
		if err := WriteXLSX(path, res); err != nil {
			return m, err
		}
		m.Files = append(m.Files, path)
	}

	if opts.SQLite != "" {
		if dir := filepath.Dir(opts.SQLite); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return m, eris.Wrapf(err, "report: create dir %s", dir)
			}
		}
		st, err := NewSQLite(opts.SQLite)
		if err != nil {
			return m, err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return m, err
		}
		if err := st.SaveRun(ctx, m.RunID.String(), res); err != nil {
			return m, err
		}
		m.Files = append(m.Files, opts.SQLite)
	}

	if opts.Postgres != nil {
		if err := opts.Postgres.Save(ctx, m.RunID, res); err != nil {
			return m, err
		}
	}

	log.Info("report exported", zap.String("run_id", m.RunID.String()), zap.Int("files", len(m.Files)))
	return m, nil
}
