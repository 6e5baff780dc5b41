package geometry

import (
	"math"

	"github.com/twpayne/go-geom"
)

// earthRadiusKM is the IUGG mean Earth radius.
const earthRadiusKM = 6371.0088

// HaversineKM returns the great-circle distance between two lon/lat points.
func HaversineKM(lon1, lat1, lon2, lat2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Min(1, math.Sqrt(a)))
}

// LengthKM returns the geodesic length of the linear components of g.
// Points and areal components contribute nothing, matching ST_Length on
// geography.
func LengthKM(g geom.T) float64 {
	switch t := g.(type) {
	case *geom.LineString:
		return pathKM(t.FlatCoords(), t.Stride())
	case *geom.MultiLineString:
		var total float64
		for i := 0; i < t.NumLineStrings(); i++ {
			total += LengthKM(t.LineString(i))
		}
		return total
	case *geom.GeometryCollection:
		var total float64
		for i := 0; i < t.NumGeoms(); i++ {
			total += LengthKM(t.Geom(i))
		}
		return total
	default:
		return 0
	}
}

// PerimeterKM returns the geodesic length of every ring of the areal
// components of g, interior rings included.
func PerimeterKM(g geom.T) float64 {
	switch t := g.(type) {
	case *geom.Polygon:
		var total float64
		for i := 0; i < t.NumLinearRings(); i++ {
			r := t.LinearRing(i)
			total += pathKM(r.FlatCoords(), r.Stride())
		}
		return total
	case *geom.MultiPolygon:
		var total float64
		for i := 0; i < t.NumPolygons(); i++ {
			total += PerimeterKM(t.Polygon(i))
		}
		return total
	case *geom.GeometryCollection:
		var total float64
		for i := 0; i < t.NumGeoms(); i++ {
			total += PerimeterKM(t.Geom(i))
		}
		return total
	default:
		return 0
	}
}

// VertexCount returns the number of coordinates in g.
func VertexCount(g geom.T) int {
	if g == nil {
		return 0
	}
	if gc, ok := g.(*geom.GeometryCollection); ok {
		var n int
		for i := 0; i < gc.NumGeoms(); i++ {
			n += VertexCount(gc.Geom(i))
		}
		return n
	}
	stride := g.Stride()
	if stride == 0 {
		return 0
	}
	return len(g.FlatCoords()) / stride
}

func pathKM(flat []float64, stride int) float64 {
	if stride < 2 || len(flat) < 2*stride {
		return 0
	}
	var total float64
	for i := stride; i+1 < len(flat); i += stride {
		total += HaversineKM(flat[i-stride], flat[i-stride+1], flat[i], flat[i+1])
	}
	return total
}
