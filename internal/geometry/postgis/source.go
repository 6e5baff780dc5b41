package postgis

import (
	"context"

	"github.com/sells-group/jurisdiction-cli/internal/db"
	"github.com/sells-group/jurisdiction-cli/internal/geometry"
	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
)

const (
	sqlJurisdictions = `SELECT geoid, name, stusps, statefp, region, division, aland, awater
	FROM geo.jurisdictions
	ORDER BY name`

	sqlJurisdictionsWKB = `SELECT geoid, name, stusps, statefp, region, division, aland, awater, ST_AsBinary(geom)
	FROM geo.jurisdictions
	ORDER BY name`
)

// WKBRegistrar accepts geometries as WKB, e.g. geoslocal.Provider.
type WKBRegistrar interface {
	AddWKB(h geometry.Handle, b []byte) error
}

// Source reads jurisdictions from geo.jurisdictions. Geometry handles are
// GEOIDs, so it pairs with Provider. When Registrar is set the shapes are
// read too and registered with it, so an in-process provider can evaluate
// them instead.
type Source struct {
	Pool      db.Pool
	Registrar WKBRegistrar
}

// Describe implements jurisdiction.Source.
func (s *Source) Describe() string { return "postgis geo.jurisdictions" }

// Load implements jurisdiction.Source.
func (s *Source) Load(ctx context.Context) ([]jurisdiction.Jurisdiction, error) {
	query := sqlJurisdictions
	if s.Registrar != nil {
		query = sqlJurisdictionsWKB
	}

	rows, err := s.Pool.Query(ctx, query)
	if err != nil {
		return nil, &jurisdiction.LoadError{Source: s.Describe(), Reason: "query jurisdictions", Err: err}
	}
	defer rows.Close()

	var out []jurisdiction.Jurisdiction
	for rows.Next() {
		var j jurisdiction.Jurisdiction
		var geoid string
		dest := []any{&geoid, &j.Name, &j.PostalCode, &j.FIPS, &j.Region, &j.Division, &j.LandArea, &j.WaterArea}
		var shape []byte
		if s.Registrar != nil {
			dest = append(dest, &shape)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &jurisdiction.LoadError{Source: s.Describe(), Reason: "scan jurisdiction", Err: err}
		}
		j.GEOID = geoid
		j.Geometry = geometry.Handle(geoid)

		if s.Registrar != nil {
			if err := s.Registrar.AddWKB(j.Geometry, shape); err != nil {
				return nil, &jurisdiction.LoadError{Source: s.Describe(), Reason: "register geometry " + j.Name, Err: err}
			}
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, &jurisdiction.LoadError{Source: s.Describe(), Reason: "read jurisdictions", Err: err}
	}
	return out, nil
}

var _ jurisdiction.Source = (*Source)(nil)
