// Package analysis runs the jurisdiction relationship pipeline: tax join,
// adjacency, border metrics, boundary complexity and regional aggregation.
package analysis

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/jurisdiction-cli/internal/adjacency"
	"github.com/sells-group/jurisdiction-cli/internal/geometry"
	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
	"github.com/sells-group/jurisdiction-cli/internal/metrics"
	"github.com/sells-group/jurisdiction-cli/internal/region"
	"github.com/sells-group/jurisdiction-cli/internal/taxrate"
	"github.com/sells-group/jurisdiction-cli/internal/telemetry"
)

// LargestCount is how many jurisdictions Result.Largest holds.
const LargestCount = 5

// Options configures a run.
type Options struct {
	Thresholds  metrics.Thresholds
	TopN        int
	Concurrency int

	// TaxTable and DefaultRate feed taxrate.Assign. The join is skipped when
	// both are empty.
	TaxTable    taxrate.Table
	DefaultRate *taxrate.Rates
}

// Result is everything a report needs from one run.
type Result struct {
	StartedAt  time.Time
	FinishedAt time.Time

	// Jurisdictions is a snapshot taken after the tax join, in source order.
	Jurisdictions []jurisdiction.Jurisdiction

	// Pairs is sorted by (A, B); PairsByLength by descending length.
	Pairs         []jurisdiction.BorderPair
	PairsByLength []jurisdiction.BorderPair
	Neighbors     map[string][]string

	Complexity    []jurisdiction.ComplexityRecord
	TopComplexity []jurisdiction.ComplexityRecord
	Largest       []jurisdiction.Jurisdiction

	Regions     map[string]jurisdiction.RegionSummary
	RegionOrder []jurisdiction.RegionSummary
	Statistics  region.Statistics

	Evaluated         int
	Skipped           int
	SkippedComplexity int
}

// TierCounts returns the number of pairs per tier label.
func (r *Result) TierCounts() map[string]int {
	out := make(map[string]int, 3)
	for _, p := range r.Pairs {
		out[p.Tier.String()]++
	}
	return out
}

// Engine runs the pipeline against one geometry provider.
type Engine struct {
	provider geometry.Provider
	opts     Options
	recorder *telemetry.Recorder
}

// NewEngine creates an Engine. rec may be nil.
func NewEngine(p geometry.Provider, opts Options, rec *telemetry.Recorder) (*Engine, error) {
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, eris.Wrap(err, "analysis: thresholds")
	}
	return &Engine{provider: p, opts: opts, recorder: rec}, nil
}

// Run executes the pipeline over repo. A tax validation error or context
// cancellation aborts the run; geometry failures on individual pairs or
// jurisdictions are skipped and counted.
func (e *Engine) Run(ctx context.Context, repo *jurisdiction.Repository) (*Result, error) {
	log := zap.L().With(zap.String("component", "analysis.engine"))
	res := &Result{StartedAt: time.Now().UTC()}

	if len(e.opts.TaxTable) > 0 || e.opts.DefaultRate != nil {
		start := time.Now()
		if err := taxrate.Assign(repo, e.opts.TaxTable, e.opts.DefaultRate); err != nil {
			return nil, err
		}
		e.recorder.Stage(telemetry.StageTax, start)
	}

	js := repo.All()
	res.Jurisdictions = js
	e.recorder.Jurisdictions(len(js))
	log.Info("analysis started", zap.Int("jurisdictions", len(js)))

	start := time.Now()
	adj, err := adjacency.NewBuilder(e.provider, adjacency.WithConcurrency(e.opts.Concurrency)).Build(ctx, js)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: build adjacency")
	}
	e.recorder.Stage(telemetry.StageAdjacency, start)
	e.recorder.Skipped(telemetry.StageAdjacency, adj.Skipped)
	res.Evaluated = adj.Evaluated

	calc := metrics.NewCalculator(e.provider, e.opts.Thresholds)

	start = time.Now()
	pairs, skipped, err := calc.AnnotatePairs(ctx, adj.Pairs, repo)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: annotate borders")
	}
	e.recorder.Stage(telemetry.StageBorders, start)
	e.recorder.Skipped(telemetry.StageBorders, skipped)
	res.Pairs = pairs
	res.Skipped = adj.Skipped + skipped

	res.PairsByLength = make([]jurisdiction.BorderPair, len(pairs))
	copy(res.PairsByLength, pairs)
	metrics.SortPairsByLength(res.PairsByLength)
	res.Neighbors = adjacency.Neighbors(pairs)

	start = time.Now()
	records, skippedC, err := calc.AllJurisdictionMetrics(ctx, js)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: complexity")
	}
	e.recorder.Stage(telemetry.StageMetrics, start)
	e.recorder.Skipped(telemetry.StageMetrics, skippedC)
	res.Complexity = records
	res.SkippedComplexity = skippedC
	res.TopComplexity = metrics.TopNByComplexity(records, e.opts.TopN)

	res.Largest = metrics.LargestByArea(js, LargestCount)
	res.Regions = region.Aggregate(js)
	res.RegionOrder = region.Ordered(res.Regions)
	res.Statistics = region.Overall(js)

	counts := res.TierCounts()
	for _, tier := range []jurisdiction.Tier{jurisdiction.TierHigh, jurisdiction.TierMedium, jurisdiction.TierLow} {
		e.recorder.Pairs(tier.String(), counts[tier.String()])
	}

	res.FinishedAt = time.Now().UTC()
	log.Info("analysis finished",
		zap.Int("pairs", len(res.Pairs)),
		zap.Int("skipped", res.Skipped),
		zap.Int("skipped_complexity", res.SkippedComplexity),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)),
	)
	return res, nil
}
