package report

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/jurisdiction-cli/internal/analysis"
	"github.com/sells-group/jurisdiction-cli/internal/db"
)

const sqlInsertRun = `INSERT INTO geo.analysis_runs (id, started_at, finished_at, jurisdictions, pairs, skipped_pairs)
	VALUES ($1, $2, $3, $4, $5, $6)`

var (
	pgBorderColumns     = []string{"run_id", "state_a", "state_b", "length_km", "tier"}
	pgComplexityColumns = []string{"run_id", "name", "stusps", "perimeter_km", "area_km2", "boundary_points", "complexity"}
)

// PostgresSink persists runs into the geo.analysis_runs, geo.border_pairs
// and geo.complexity tables.
type PostgresSink struct {
	Pool db.Pool
}

// Save writes res under runID in one transaction.
func (s *PostgresSink) Save(ctx context.Context, runID uuid.UUID, res *analysis.Result) error {
	log := zap.L().With(zap.String("component", "report.postgres"))

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "report: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	id := runID.String()
	if _, err := tx.Exec(ctx, sqlInsertRun,
		id, res.StartedAt, res.FinishedAt, len(res.Jurisdictions), len(res.Pairs), res.Skipped,
	); err != nil {
		return eris.Wrapf(err, "report: insert run %s", id)
	}

	borders := make([][]any, 0, len(res.Pairs))
	for _, p := range res.Pairs {
		borders = append(borders, []any{id, p.A, p.B, p.LengthKM, p.Tier.String()})
	}
	if _, err := db.CopyFrom(ctx, tx, "geo.border_pairs", pgBorderColumns, borders); err != nil {
		return eris.Wrap(err, "report: copy border pairs")
	}

	complexity := make([][]any, 0, len(res.Complexity))
	for _, r := range res.Complexity {
		var index any
		if r.Index != nil {
			index = *r.Index
		}
		complexity = append(complexity, []any{id, r.Name, r.PostalCode, r.PerimeterKM, r.AreaKM2, int32(r.BoundaryPoints), index})
	}
	if _, err := db.CopyFrom(ctx, tx, "geo.complexity", pgComplexityColumns, complexity); err != nil {
		return eris.Wrap(err, "report: copy complexity")
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "report: commit")
	}
	log.Info("analysis run saved",
		zap.String("run_id", id),
		zap.Int("pairs", len(borders)),
		zap.Int("complexity", len(complexity)),
	)
	return nil
}
