// Package geomtest provides an in-memory geometry.Provider whose answers are
// declared up front, for tests that exercise the metrics engine without GEOS
// or PostGIS.
package geomtest

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/jurisdiction-cli/internal/geometry"
)

// Shape holds the per-geometry answers of the fake.
type Shape struct {
	Area        float64
	PerimeterKM float64
	Vertices    int
}

type pairKey struct{ a, b geometry.Handle }

func unordered(a, b geometry.Handle) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a, b}
}

// Provider is a declarative fake geometry.Provider. It is safe for
// concurrent use.
type Provider struct {
	mu       sync.Mutex
	shapes   map[geometry.Handle]Shape
	borders  map[pairKey]float64
	contains map[pairKey]bool
	failures map[pairKey]error
	calls    int
}

// New returns an empty fake.
func New() *Provider {
	return &Provider{
		shapes:   make(map[geometry.Handle]Shape),
		borders:  make(map[pairKey]float64),
		contains: make(map[pairKey]bool),
		failures: make(map[pairKey]error),
	}
}

// WithShape registers a geometry.
func (p *Provider) WithShape(h geometry.Handle, s Shape) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shapes[h] = s
	return p
}

// WithBorder declares that a and b touch along lengthKM (0 for point contact).
func (p *Provider) WithBorder(a, b geometry.Handle, lengthKM float64) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.borders[unordered(a, b)] = lengthKM
	return p
}

// WithContainment declares that outer contains inner. Containment implies
// intersection.
func (p *Provider) WithContainment(outer, inner geometry.Handle) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.contains[pairKey{outer, inner}] = true
	if _, ok := p.borders[unordered(outer, inner)]; !ok {
		p.borders[unordered(outer, inner)] = 0
	}
	return p
}

// WithIdentical declares two handles as the same geometry.
func (p *Provider) WithIdentical(a, b geometry.Handle) *Provider {
	p.WithContainment(a, b)
	return p.WithContainment(b, a)
}

// WithFailure makes every pairwise operation on a and b return err.
func (p *Provider) WithFailure(a, b geometry.Handle, err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[unordered(a, b)] = err
	return p
}

// Calls returns the number of provider calls made so far.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *Provider) shape(h geometry.Handle) (Shape, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	s, ok := p.shapes[h]
	if !ok {
		return Shape{}, eris.Errorf("geomtest: unknown handle %q", h)
	}
	return s, nil
}

func (p *Provider) pair(a, b geometry.Handle) (pairKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	k := unordered(a, b)
	if err, ok := p.failures[k]; ok {
		return k, err
	}
	for _, h := range []geometry.Handle{a, b} {
		if _, ok := p.shapes[h]; !ok {
			return k, eris.Errorf("geomtest: unknown handle %q", h)
		}
	}
	return k, nil
}

// Area implements geometry.Provider.
func (p *Provider) Area(_ context.Context, h geometry.Handle) (float64, error) {
	s, err := p.shape(h)
	return s.Area, err
}

// PerimeterKM implements geometry.Provider.
func (p *Provider) PerimeterKM(_ context.Context, h geometry.Handle) (float64, error) {
	s, err := p.shape(h)
	return s.PerimeterKM, err
}

// VertexCount implements geometry.Provider.
func (p *Provider) VertexCount(_ context.Context, h geometry.Handle) (int, error) {
	s, err := p.shape(h)
	return s.Vertices, err
}

// TouchesOrIntersects implements geometry.Provider. A handle always
// intersects itself.
func (p *Provider) TouchesOrIntersects(_ context.Context, a, b geometry.Handle) (bool, error) {
	k, err := p.pair(a, b)
	if err != nil {
		return false, err
	}
	if a == b {
		return true, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.borders[k]
	return ok, nil
}

// Contains implements geometry.Provider.
func (p *Provider) Contains(_ context.Context, a, b geometry.Handle) (bool, error) {
	if _, err := p.pair(a, b); err != nil {
		return false, err
	}
	if a == b {
		return true, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.contains[pairKey{a, b}], nil
}

// IntersectionLengthKM implements geometry.Provider.
func (p *Provider) IntersectionLengthKM(_ context.Context, a, b geometry.Handle) (float64, error) {
	k, err := p.pair(a, b)
	if err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.borders[k], nil
}

var _ geometry.Provider = (*Provider)(nil)
