package tiger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/jurisdiction-cli/internal/geometry"
	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
)

type feature struct {
	shape *shp.Polygon
	attrs []string
}

var stateFields = []string{"NAME", "STUSPS", "STATEFP", "GEOID", "REGION", "DIVISION", "ALAND", "AWATER"}

func writeShapefile(t *testing.T, shapeType shp.ShapeType, fields []string, features []feature) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tl_2023_us_state.shp")

	w, err := shp.Create(path, shapeType)
	require.NoError(t, err)

	defs := make([]shp.Field, len(fields))
	for i, f := range fields {
		defs[i] = shp.StringField(f, 40)
	}
	require.NoError(t, w.SetFields(defs))

	for i, f := range features {
		w.Write(f.shape)
		for k, v := range f.attrs {
			require.NoError(t, w.WriteAttribute(i, k, v))
		}
	}
	w.Close()

	// go-shp v0.1.1 names the attribute table "<base>dbf" without a dot.
	base := strings.TrimSuffix(path, ".shp")
	if _, err := os.Stat(base + "dbf"); err == nil {
		require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	}
	require.FileExists(t, base+".dbf")
	return path
}

func stateFixture(t *testing.T) string {
	return writeShapefile(t, shp.POLYGON, stateFields, []feature{
		{polygon(outerCW, holeCCW), []string{"Colorado", "CO", "08", "08", "4", "8", "268418796417", "1185716938"}},
		{polygon(islandCW), []string{"Kansas", "KS", "20", "20", "2", "4", "211753717642", "1345707708"}},
	})
}

func TestParseShapefile(t *testing.T) {
	records, err := ParseShapefile(stateFixture(t))
	require.NoError(t, err)
	require.Len(t, records, 2)

	co := records[0].Jurisdiction
	assert.Equal(t, "Colorado", co.Name)
	assert.Equal(t, "CO", co.PostalCode)
	assert.Equal(t, "08", co.FIPS)
	assert.Equal(t, "West", co.Region)
	assert.Equal(t, "Mountain", co.Division)
	assert.Equal(t, int64(268418796417), co.LandArea)
	assert.Equal(t, int64(1185716938), co.WaterArea)
	assert.Equal(t, geometry.Handle("08"), co.Geometry)
	assert.Equal(t, 2, records[0].Shape.Polygon(0).NumLinearRings())

	assert.Equal(t, "Midwest", records[1].Jurisdiction.Region)
}

func TestParseShapefile_MissingRequiredColumn(t *testing.T) {
	path := writeShapefile(t, shp.POLYGON, []string{"NAME", "STUSPS", "ALAND"}, []feature{
		{polygon(outerCW), []string{"Colorado", "CO", "1"}},
	})

	_, err := ParseShapefile(path)
	var lerr *jurisdiction.LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Contains(t, lerr.Reason, `"REGION"`)
}

func TestParseShapefile_Unreadable(t *testing.T) {
	_, err := ParseShapefile(filepath.Join(t.TempDir(), "missing.shp"))
	var lerr *jurisdiction.LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "open shapefile", lerr.Reason)
}

func TestParseShapefile_BadArea(t *testing.T) {
	path := writeShapefile(t, shp.POLYGON, stateFields, []feature{
		{polygon(outerCW), []string{"Colorado", "CO", "08", "08", "4", "8", "lots", "0"}},
	})

	_, err := ParseShapefile(path)
	var lerr *jurisdiction.LoadError
	require.ErrorAs(t, err, &lerr)
}

type recordingRegistrar struct {
	shapes map[geometry.Handle]geom.T
}

func (r *recordingRegistrar) Add(h geometry.Handle, g geom.T) error {
	r.shapes[h] = g
	return nil
}

func TestShapefileSource_Load(t *testing.T) {
	reg := &recordingRegistrar{shapes: map[geometry.Handle]geom.T{}}
	src := &ShapefileSource{Path: stateFixture(t), Registrar: reg}

	repo, err := jurisdiction.Load(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, []string{"Colorado", "Kansas"}, repo.Names())
	assert.Len(t, reg.shapes, 2)
	assert.Contains(t, reg.shapes, geometry.Handle("20"))
}

func TestHandleFor(t *testing.T) {
	assert.Equal(t, geometry.Handle("48"), HandleFor("48", "Texas"))
	assert.Equal(t, geometry.Handle("Texas"), HandleFor("", "Texas"))
}

func TestRegionAndDivisionNames(t *testing.T) {
	assert.Equal(t, "South", RegionName("3"))
	assert.Equal(t, "West South Central", DivisionName("7"))
	assert.Equal(t, "X", RegionName("X"))
}

func TestDownloadURL(t *testing.T) {
	assert.Equal(t, "https://www2.census.gov/geo/tiger/TIGER2023/STATE/tl_2023_us_state.zip", DownloadURL(0))
	assert.Equal(t, "https://www2.census.gov/geo/tiger/TIGER2024/STATE/tl_2024_us_state.zip", DownloadURL(2024))
}
