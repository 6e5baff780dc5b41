package metrics

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/jurisdiction-cli/internal/geometry"
	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
)

// Finder resolves jurisdictions by name.
type Finder interface {
	FindByName(name string) (jurisdiction.Jurisdiction, bool)
}

// Calculator derives complexity and border metrics from a geometry provider.
type Calculator struct {
	provider   geometry.Provider
	thresholds Thresholds
}

// NewCalculator creates a Calculator with the given tier thresholds.
func NewCalculator(p geometry.Provider, t Thresholds) *Calculator {
	return &Calculator{provider: p, thresholds: t}
}

// Thresholds returns the tier thresholds in use.
func (c *Calculator) Thresholds() Thresholds { return c.thresholds }

// ComplexityIndex returns perimeter / sqrt(area), or nil when the area is
// not positive.
func ComplexityIndex(perimeterKM, areaKM2 float64) *float64 {
	if areaKM2 <= 0 {
		return nil
	}
	idx := perimeterKM / math.Sqrt(areaKM2)
	return &idx
}

// JurisdictionMetrics measures the boundary complexity of j. Area comes from
// the land-area attribute; perimeter and vertex count come from the provider.
func (c *Calculator) JurisdictionMetrics(ctx context.Context, j jurisdiction.Jurisdiction) (jurisdiction.ComplexityRecord, error) {
	perimeter, err := c.provider.PerimeterKM(ctx, j.Geometry)
	if err != nil {
		return jurisdiction.ComplexityRecord{}, &jurisdiction.GeometryPredicateError{Op: "perimeter", A: j.Name, Err: err}
	}
	points, err := c.provider.VertexCount(ctx, j.Geometry)
	if err != nil {
		return jurisdiction.ComplexityRecord{}, &jurisdiction.GeometryPredicateError{Op: "vertex_count", A: j.Name, Err: err}
	}

	area := j.LandAreaKM2()
	return jurisdiction.ComplexityRecord{
		Name:           j.Name,
		PostalCode:     j.PostalCode,
		PerimeterKM:    perimeter,
		AreaKM2:        area,
		BoundaryPoints: points,
		Index:          ComplexityIndex(perimeter, area),
	}, nil
}

// AllJurisdictionMetrics measures every jurisdiction. A jurisdiction whose
// geometry cannot be measured is logged and counted as skipped.
func (c *Calculator) AllJurisdictionMetrics(ctx context.Context, js []jurisdiction.Jurisdiction) ([]jurisdiction.ComplexityRecord, int, error) {
	log := zap.L().With(zap.String("component", "metrics.calculator"))

	records := make([]jurisdiction.ComplexityRecord, 0, len(js))
	var skipped int
	for _, j := range js {
		if err := ctx.Err(); err != nil {
			return nil, skipped, err
		}
		rec, err := c.JurisdictionMetrics(ctx, j)
		if err != nil {
			skipped++
			log.Warn("skipping jurisdiction metrics", zap.String("name", j.Name), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// PairMetrics returns the shared border length of a pair in kilometers.
func (c *Calculator) PairMetrics(ctx context.Context, pair jurisdiction.BorderPair, geomA, geomB geometry.Handle) (float64, error) {
	length, err := c.provider.IntersectionLengthKM(ctx, geomA, geomB)
	if err != nil {
		return 0, &jurisdiction.GeometryPredicateError{Op: "intersection_length", A: pair.A, B: pair.B, Err: err}
	}
	return length, nil
}

// AnnotatePairs fills LengthKM and Tier for every pair. Pairs whose names
// cannot be resolved or whose length query fails are dropped and counted.
func (c *Calculator) AnnotatePairs(ctx context.Context, pairs []jurisdiction.BorderPair, finder Finder) ([]jurisdiction.BorderPair, int, error) {
	log := zap.L().With(zap.String("component", "metrics.calculator"))

	out := make([]jurisdiction.BorderPair, 0, len(pairs))
	var skipped int
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, skipped, err
		}
		a, okA := finder.FindByName(p.A)
		b, okB := finder.FindByName(p.B)
		if !okA || !okB {
			skipped++
			log.Warn("border pair references unknown jurisdiction", zap.String("a", p.A), zap.String("b", p.B))
			continue
		}
		length, err := c.PairMetrics(ctx, p, a.Geometry, b.Geometry)
		if err != nil {
			skipped++
			log.Warn("skipping border pair", zap.String("a", p.A), zap.String("b", p.B), zap.Error(err))
			continue
		}
		p.LengthKM = length
		p.Tier = c.thresholds.Classify(length)
		out = append(out, p)
	}
	return out, skipped, nil
}
