// Package postgis delegates geometry predicates and measurements to a PostGIS
// database holding geo.jurisdictions. Handles are GEOIDs.
package postgis

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/jurisdiction-cli/internal/db"
	"github.com/sells-group/jurisdiction-cli/internal/geometry"
	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
)

const (
	sqlArea      = `SELECT ST_Area(geom) FROM geo.jurisdictions WHERE geoid = $1`
	sqlPerimeter = `SELECT ST_Perimeter(geom::geography) / 1000.0 FROM geo.jurisdictions WHERE geoid = $1`
	sqlNPoints   = `SELECT ST_NPoints(geom) FROM geo.jurisdictions WHERE geoid = $1`

	sqlIntersects = `SELECT ST_Intersects(a.geom, b.geom)
		FROM geo.jurisdictions a, geo.jurisdictions b
		WHERE a.geoid = $1 AND b.geoid = $2`
	sqlContains = `SELECT ST_Contains(a.geom, b.geom)
		FROM geo.jurisdictions a, geo.jurisdictions b
		WHERE a.geoid = $1 AND b.geoid = $2`
	sqlSharedLength = `SELECT COALESCE(ST_Length(ST_CollectionExtract(ST_Intersection(a.geom, b.geom), 2)::geography) / 1000.0, 0)
		FROM geo.jurisdictions a, geo.jurisdictions b
		WHERE a.geoid = $1 AND b.geoid = $2`
)

// Provider implements geometry.Provider with one query per call.
type Provider struct {
	pool db.Pool
}

// NewProvider creates a Provider.
func NewProvider(pool db.Pool) *Provider {
	return &Provider{pool: pool}
}

func scanOne[T any](ctx context.Context, pool db.Pool, op, sql string, args ...any) (T, error) {
	var v T
	err := pool.QueryRow(ctx, sql, args...).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return v, eris.Wrapf(jurisdiction.ErrNotFound, "postgis: %s %v", op, args)
	}
	if err != nil {
		return v, eris.Wrapf(err, "postgis: %s", op)
	}
	return v, nil
}

// Area implements geometry.Provider. Units are square degrees of the stored SRID.
func (p *Provider) Area(ctx context.Context, h geometry.Handle) (float64, error) {
	return scanOne[float64](ctx, p.pool, "area", sqlArea, string(h))
}

// PerimeterKM implements geometry.Provider.
func (p *Provider) PerimeterKM(ctx context.Context, h geometry.Handle) (float64, error) {
	return scanOne[float64](ctx, p.pool, "perimeter", sqlPerimeter, string(h))
}

// VertexCount implements geometry.Provider.
func (p *Provider) VertexCount(ctx context.Context, h geometry.Handle) (int, error) {
	n, err := scanOne[int32](ctx, p.pool, "npoints", sqlNPoints, string(h))
	return int(n), err
}

// TouchesOrIntersects implements geometry.Provider.
func (p *Provider) TouchesOrIntersects(ctx context.Context, a, b geometry.Handle) (bool, error) {
	return scanOne[bool](ctx, p.pool, "intersects", sqlIntersects, string(a), string(b))
}

// Contains implements geometry.Provider.
func (p *Provider) Contains(ctx context.Context, a, b geometry.Handle) (bool, error) {
	return scanOne[bool](ctx, p.pool, "contains", sqlContains, string(a), string(b))
}

// IntersectionLengthKM implements geometry.Provider.
func (p *Provider) IntersectionLengthKM(ctx context.Context, a, b geometry.Handle) (float64, error) {
	return scanOne[float64](ctx, p.pool, "shared length", sqlSharedLength, string(a), string(b))
}

var _ geometry.Provider = (*Provider)(nil)
