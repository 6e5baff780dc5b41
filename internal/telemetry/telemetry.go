// Package telemetry records per-run analysis metrics on a private Prometheus
// registry and writes them as a node-exporter textfile.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
)

// Pipeline stages.
const (
	StageLoad      = "load"
	StageAdjacency = "adjacency"
	StageBorders   = "borders"
	StageMetrics   = "complexity"
	StageTax       = "tax"
	StageExport    = "export"
)

// Recorder collects the metrics of a single run. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	reg *prometheus.Registry

	jurisdictions prometheus.Gauge
	pairs         *prometheus.GaugeVec
	skipped       *prometheus.CounterVec
	stageSeconds  *prometheus.GaugeVec
	lastSuccess   prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		jurisdictions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jurisdiction_analysis_jurisdictions",
			Help: "Jurisdictions loaded by the last run",
		}),
		pairs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jurisdiction_analysis_border_pairs",
			Help: "Bordering pairs found by the last run, by tier",
		}, []string{"tier"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jurisdiction_analysis_skipped_total",
			Help: "Items skipped after a geometry failure, by stage",
		}, []string{"stage"}),
		stageSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jurisdiction_analysis_stage_duration_seconds",
			Help: "Wall time of each pipeline stage in the last run",
		}, []string{"stage"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jurisdiction_analysis_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
	}
	r.reg.MustRegister(r.jurisdictions, r.pairs, r.skipped, r.stageSeconds, r.lastSuccess)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Jurisdictions sets the loaded jurisdiction count.
func (r *Recorder) Jurisdictions(n int) {
	if r == nil {
		return
	}
	r.jurisdictions.Set(float64(n))
}

// Pairs sets the pair count for a tier label.
func (r *Recorder) Pairs(tier string, n int) {
	if r == nil {
		return
	}
	r.pairs.WithLabelValues(tier).Set(float64(n))
}

// Skipped adds n skipped items for a stage.
func (r *Recorder) Skipped(stage string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.skipped.WithLabelValues(stage).Add(float64(n))
}

// Stage records the duration of a stage started at start.
func (r *Recorder) Stage(stage string, start time.Time) {
	r.StageDuration(stage, time.Since(start))
}

// StageDuration records a stage timed elsewhere.
func (r *Recorder) StageDuration(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageSeconds.WithLabelValues(stage).Set(d.Seconds())
}

// Succeeded marks the run as successful at t.
func (r *Recorder) Succeeded(t time.Time) {
	if r == nil {
		return
	}
	r.lastSuccess.Set(float64(t.Unix()))
}

// WriteTextfile atomically writes the registry in text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return eris.Wrapf(err, "telemetry: write textfile %s", path)
	}
	return nil
}
