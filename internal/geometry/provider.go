// Package geometry defines the polygon geometry operations the jurisdiction
// engine consumes. Implementations live in subpackages: geoslocal evaluates
// predicates in-process with GEOS, postgis delegates them to a PostGIS database.
package geometry

import "context"

// Handle is an opaque reference to a geometry held by a Provider.
type Handle string

// Provider supplies geometry measurements and predicates for handles.
// Lengths are geodesic and reported in kilometers.
type Provider interface {
	// Area returns the planar area of the geometry in its native units.
	Area(ctx context.Context, h Handle) (float64, error)

	// PerimeterKM returns the geodesic length of every ring of the geometry.
	PerimeterKM(ctx context.Context, h Handle) (float64, error)

	// VertexCount returns the number of coordinates, ring closures included.
	VertexCount(ctx context.Context, h Handle) (int, error)

	// TouchesOrIntersects reports whether the two geometries share any point.
	TouchesOrIntersects(ctx context.Context, a, b Handle) (bool, error)

	// Contains reports whether a fully contains b.
	Contains(ctx context.Context, a, b Handle) (bool, error)

	// IntersectionLengthKM returns the geodesic length of the linear part of
	// the intersection of a and b. Point contact yields 0.
	IntersectionLengthKM(ctx context.Context, a, b Handle) (float64, error)
}
