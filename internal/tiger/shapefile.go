package tiger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/jurisdiction-cli/internal/geometry"
	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
)

// Record is one parsed shapefile feature.
type Record struct {
	Jurisdiction jurisdiction.Jurisdiction
	Attributes   map[string]string // raw DBF values keyed by lower-case column
	Shape        *geom.MultiPolygon
}

// HandleFor returns the geometry handle used for a record: its GEOID when
// present, otherwise its name.
func HandleFor(geoid, name string) geometry.Handle {
	if geoid != "" {
		return geometry.Handle(geoid)
	}
	return geometry.Handle(name)
}

// ParseShapefile reads a TIGER state shapefile. A missing file, a
// non-polygon file or an absent required column yields a
// *jurisdiction.LoadError. Features without a usable shape are skipped.
func ParseShapefile(shpPath string) ([]Record, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, &jurisdiction.LoadError{Source: shpPath, Reason: "open shapefile", Err: err}
	}
	defer func() { _ = reader.Close() }()

	if reader.GeometryType != shp.POLYGON {
		return nil, &jurisdiction.LoadError{
			Source: shpPath,
			Reason: fmt.Sprintf("geometry column is %v, want polygon", reader.GeometryType),
		}
	}

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}
	for _, col := range StateProduct.Required {
		if _, ok := fieldIdx[col]; !ok {
			return nil, &jurisdiction.LoadError{
				Source: shpPath,
				Reason: fmt.Sprintf("missing required column %q", strings.ToUpper(col)),
			}
		}
	}

	log := zap.L().With(zap.String("component", "tiger.shapefile"), zap.String("path", shpPath))

	var records []Record
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()

		attrs := make(map[string]string, len(StateProduct.Columns))
		for _, col := range StateProduct.Columns {
			idx, ok := fieldIdx[col]
			if !ok {
				continue
			}
			attrs[col] = strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
		}

		poly, _ := shape.(*shp.Polygon)
		mp := ToMultiPolygon(poly)
		if mp == nil {
			skipped++
			log.Warn("skipping feature without polygon geometry", zap.Int("record", n), zap.String("name", attrs["name"]))
			continue
		}

		j, err := toJurisdiction(attrs)
		if err != nil {
			return nil, &jurisdiction.LoadError{Source: shpPath, Reason: fmt.Sprintf("record %d", n), Err: err}
		}

		records = append(records, Record{Jurisdiction: j, Attributes: attrs, Shape: mp})
	}

	if skipped > 0 {
		log.Info("skipped shapefile features", zap.Int("skipped", skipped))
	}
	return records, nil
}

func toJurisdiction(attrs map[string]string) (jurisdiction.Jurisdiction, error) {
	land, err := parseArea(attrs["aland"])
	if err != nil {
		return jurisdiction.Jurisdiction{}, eris.Wrap(err, "tiger: parse ALAND")
	}
	water, err := parseArea(attrs["awater"])
	if err != nil {
		return jurisdiction.Jurisdiction{}, eris.Wrap(err, "tiger: parse AWATER")
	}

	return jurisdiction.Jurisdiction{
		Name:       attrs["name"],
		PostalCode: attrs["stusps"],
		FIPS:       attrs["statefp"],
		GEOID:      attrs["geoid"],
		Region:     RegionName(attrs["region"]),
		Division:   DivisionName(attrs["division"]),
		LandArea:   land,
		WaterArea:  water,
		Geometry:   HandleFor(attrs["geoid"], attrs["name"]),
	}, nil
}

// parseArea reads an integer square-meter area. DBF numeric fields may carry
// a decimal part; empty means zero.
func parseArea(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
