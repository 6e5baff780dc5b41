// Package adjacency derives the set of bordering jurisdiction pairs from
// geometry predicates.
package adjacency

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/jurisdiction-cli/internal/geometry"
	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
)

const defaultConcurrency = 4

// Result is the outcome of an adjacency build. Pairs are canonical and
// sorted by (A, B); length and tier are unset.
type Result struct {
	Pairs     []jurisdiction.BorderPair
	Evaluated int
	Skipped   int
}

// Option configures a Builder.
type Option func(*Builder)

// WithConcurrency bounds the number of pair evaluations in flight.
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// Builder evaluates every unordered jurisdiction pair against a geometry
// provider. Evaluation is O(n²) in predicate calls; no spatial index is used.
type Builder struct {
	provider    geometry.Provider
	concurrency int
}

// NewBuilder creates a Builder backed by p.
func NewBuilder(p geometry.Provider, opts ...Option) *Builder {
	b := &Builder{provider: p, concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type candidate struct {
	a, b jurisdiction.Jurisdiction
	pair jurisdiction.BorderPair
}

type outcome struct {
	adjacent bool
	err      error
}

// Build returns the bordering pairs among js. A predicate failure on one
// pair is logged and counted in Result.Skipped; only context cancellation
// aborts the build.
func (b *Builder) Build(ctx context.Context, js []jurisdiction.Jurisdiction) (Result, error) {
	log := zap.L().With(zap.String("component", "adjacency.builder"))

	var candidates []candidate
	for i := 0; i < len(js); i++ {
		for k := i + 1; k < len(js); k++ {
			pair, ok := jurisdiction.NewBorderPair(js[i].Name, js[k].Name)
			if !ok {
				continue
			}
			candidates = append(candidates, candidate{a: js[i], b: js[k], pair: pair})
		}
	}

	// Each goroutine owns one slot, so no locking is needed.
	outcomes := make([]outcome, len(candidates))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i := range candidates {
		if err := gCtx.Err(); err != nil {
			break
		}
		idx := i
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			c := candidates[idx]
			adjacent, err := b.adjacent(gCtx, c.a, c.b)
			outcomes[idx] = outcome{adjacent: adjacent, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{Evaluated: len(candidates)}
	seen := make(map[string]bool, len(candidates))
	for i, o := range outcomes {
		if o.err != nil {
			res.Skipped++
			log.Warn("skipping jurisdiction pair",
				zap.String("a", candidates[i].pair.A),
				zap.String("b", candidates[i].pair.B),
				zap.Error(o.err),
			)
			continue
		}
		if !o.adjacent {
			continue
		}
		key := candidates[i].pair.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		res.Pairs = append(res.Pairs, candidates[i].pair)
	}

	SortPairs(res.Pairs)

	log.Info("adjacency built",
		zap.Int("jurisdictions", len(js)),
		zap.Int("evaluated", res.Evaluated),
		zap.Int("pairs", len(res.Pairs)),
		zap.Int("skipped", res.Skipped),
	)

	return res, nil
}

// adjacent reports whether two geometries border each other: they touch or
// intersect, and neither contains the other.
func (b *Builder) adjacent(ctx context.Context, x, y jurisdiction.Jurisdiction) (bool, error) {
	hit, err := b.provider.TouchesOrIntersects(ctx, x.Geometry, y.Geometry)
	if err != nil {
		return false, &jurisdiction.GeometryPredicateError{Op: "touches_or_intersects", A: x.Name, B: y.Name, Err: err}
	}
	if !hit {
		return false, nil
	}

	xy, err := b.provider.Contains(ctx, x.Geometry, y.Geometry)
	if err != nil {
		return false, &jurisdiction.GeometryPredicateError{Op: "contains", A: x.Name, B: y.Name, Err: err}
	}
	if xy {
		return false, nil
	}

	yx, err := b.provider.Contains(ctx, y.Geometry, x.Geometry)
	if err != nil {
		return false, &jurisdiction.GeometryPredicateError{Op: "contains", A: y.Name, B: x.Name, Err: err}
	}
	return !yx, nil
}

// SortPairs orders pairs by (A, B).
func SortPairs(pairs []jurisdiction.BorderPair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
}

// Neighbors lists, for every jurisdiction appearing in pairs, the names it
// borders in ascending order.
func Neighbors(pairs []jurisdiction.BorderPair) map[string][]string {
	out := make(map[string][]string)
	for _, p := range pairs {
		out[p.A] = append(out[p.A], p.B)
		out[p.B] = append(out[p.B], p.A)
	}
	for name := range out {
		sort.Strings(out[name])
	}
	return out
}
