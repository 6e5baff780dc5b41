// Package geoslocal evaluates geometry predicates in-process with GEOS.
// Geometries are registered once from go-geom values and addressed by handle.
package geoslocal

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geos"

	"github.com/sells-group/jurisdiction-cli/internal/geometry"
	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
)

type entry struct {
	g     *geos.Geom
	shape geom.T
}

// Provider is a geometry.Provider backed by GEOS. Call Close to release the
// native geometries.
type Provider struct {
	mu      sync.RWMutex
	entries map[geometry.Handle]entry
}

// New returns an empty Provider.
func New() *Provider {
	return &Provider{entries: make(map[geometry.Handle]entry)}
}

// Add registers g under h, replacing any previous geometry.
func (p *Provider) Add(h geometry.Handle, g geom.T) error {
	if g == nil {
		return eris.Errorf("geoslocal: nil geometry for %q", h)
	}
	b, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return eris.Wrapf(err, "geoslocal: encode %q", h)
	}

	var gg *geos.Geom
	if err := guard("decode", func() error {
		var derr error
		gg, derr = geos.NewGeomFromWKB(b)
		return derr
	}); err != nil {
		return eris.Wrapf(err, "geoslocal: load %q", h)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if old, ok := p.entries[h]; ok {
		old.g.Destroy()
	}
	p.entries[h] = entry{g: gg, shape: g}
	return nil
}

// AddWKB decodes a WKB blob and registers it under h.
func (p *Provider) AddWKB(h geometry.Handle, b []byte) error {
	g, err := wkb.Unmarshal(b)
	if err != nil {
		return eris.Wrapf(err, "geoslocal: decode wkb %q", h)
	}
	return p.Add(h, g)
}

// Len returns the number of registered geometries.
func (p *Provider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Close destroys every registered geometry.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for h, e := range p.entries {
		e.g.Destroy()
		delete(p.entries, h)
	}
}

func (p *Provider) get(h geometry.Handle) (entry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[h]
	if !ok {
		return entry{}, eris.Wrapf(jurisdiction.ErrNotFound, "geoslocal: handle %q", h)
	}
	return e, nil
}

func (p *Provider) pair(a, b geometry.Handle) (entry, entry, error) {
	ea, err := p.get(a)
	if err != nil {
		return entry{}, entry{}, err
	}
	eb, err := p.get(b)
	if err != nil {
		return entry{}, entry{}, err
	}
	return ea, eb, nil
}

// guard converts a GEOS panic into an error.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("geoslocal: %s: %v", op, r)
		}
	}()
	return fn()
}

// Area implements geometry.Provider.
func (p *Provider) Area(ctx context.Context, h geometry.Handle) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e, err := p.get(h)
	if err != nil {
		return 0, err
	}
	var area float64
	err = guard("area", func() error {
		area = e.g.Area()
		return nil
	})
	return area, err
}

// PerimeterKM implements geometry.Provider.
func (p *Provider) PerimeterKM(ctx context.Context, h geometry.Handle) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e, err := p.get(h)
	if err != nil {
		return 0, err
	}
	return geometry.PerimeterKM(e.shape), nil
}

// VertexCount implements geometry.Provider.
func (p *Provider) VertexCount(ctx context.Context, h geometry.Handle) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e, err := p.get(h)
	if err != nil {
		return 0, err
	}
	return geometry.VertexCount(e.shape), nil
}

// TouchesOrIntersects implements geometry.Provider.
func (p *Provider) TouchesOrIntersects(ctx context.Context, a, b geometry.Handle) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ea, eb, err := p.pair(a, b)
	if err != nil {
		return false, err
	}
	var hit bool
	err = guard("intersects", func() error {
		hit = ea.g.Intersects(eb.g)
		return nil
	})
	return hit, err
}

// Contains implements geometry.Provider.
func (p *Provider) Contains(ctx context.Context, a, b geometry.Handle) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ea, eb, err := p.pair(a, b)
	if err != nil {
		return false, err
	}
	var in bool
	err = guard("contains", func() error {
		in = ea.g.Contains(eb.g)
		return nil
	})
	return in, err
}

// IntersectionLengthKM implements geometry.Provider. The GEOS intersection is
// measured geodesically after conversion back to go-geom.
func (p *Provider) IntersectionLengthKM(ctx context.Context, a, b geometry.Handle) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ea, eb, err := p.pair(a, b)
	if err != nil {
		return 0, err
	}

	var shared geom.T
	err = guard("intersection", func() error {
		inter := ea.g.Intersection(eb.g)
		if inter == nil {
			return eris.New("geoslocal: intersection returned nil")
		}
		defer inter.Destroy()
		if inter.IsEmpty() {
			return nil
		}
		var derr error
		shared, derr = wkb.Unmarshal(inter.ToWKB())
		return derr
	})
	if err != nil {
		return 0, err
	}
	if shared == nil {
		return 0, nil
	}
	return geometry.LengthKM(shared), nil
}

var _ geometry.Provider = (*Provider)(nil)
