package tiger

import (
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// Shapefile outer rings run clockwise, holes counter-clockwise.
var (
	outerCW  = []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}}
	holeCCW  = []shp.Point{{X: 0.2, Y: 0.2}, {X: 0.4, Y: 0.2}, {X: 0.4, Y: 0.4}, {X: 0.2, Y: 0.4}, {X: 0.2, Y: 0.2}}
	islandCW = []shp.Point{{X: 2, Y: 0}, {X: 2, Y: 1}, {X: 3, Y: 1}, {X: 3, Y: 0}, {X: 2, Y: 0}}
)

func polygon(rings ...[]shp.Point) *shp.Polygon {
	p := shp.Polygon(*shp.NewPolyLine(rings))
	return &p
}

func TestToMultiPolygon_SingleRing(t *testing.T) {
	mp := ToMultiPolygon(polygon(outerCW))
	require.NotNil(t, mp)
	assert.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, SRID, mp.SRID())
}

func TestToMultiPolygon_HoleStaysWithOuter(t *testing.T) {
	mp := ToMultiPolygon(polygon(outerCW, holeCCW))
	require.NotNil(t, mp)
	require.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, 2, mp.Polygon(0).NumLinearRings())
}

func TestToMultiPolygon_Islands(t *testing.T) {
	mp := ToMultiPolygon(polygon(outerCW, holeCCW, islandCW))
	require.NotNil(t, mp)
	require.Equal(t, 2, mp.NumPolygons())
	assert.Equal(t, 2, mp.Polygon(0).NumLinearRings())
	assert.Equal(t, 1, mp.Polygon(1).NumLinearRings())
}

func TestToMultiPolygon_DegenerateAndNil(t *testing.T) {
	assert.Nil(t, ToMultiPolygon(nil))
	assert.Nil(t, ToMultiPolygon(polygon([]shp.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}})))
}

func TestSignedArea(t *testing.T) {
	flat := func(pts []shp.Point) []float64 {
		out := make([]float64, 0, 2*len(pts))
		for _, p := range pts {
			out = append(out, p.X, p.Y)
		}
		return out
	}
	assert.InDelta(t, -1.0, signedArea(flat(outerCW)), 1e-12)
	assert.InDelta(t, 0.04, signedArea(flat(holeCCW)), 1e-12)
}

func TestEncodeEWKB_RoundTrip(t *testing.T) {
	mp := ToMultiPolygon(polygon(outerCW))
	data, err := EncodeEWKB(mp)
	require.NoError(t, err)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	decoded, ok := g.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, SRID, decoded.SRID())
	assert.Equal(t, mp.FlatCoords(), decoded.FlatCoords())
}

func TestEncodeEWKB_Nil(t *testing.T) {
	_, err := EncodeEWKB(nil)
	assert.Error(t, err)
}
