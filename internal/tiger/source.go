package tiger

import (
	"context"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/jurisdiction-cli/internal/geometry"
	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
)

// Registrar accepts the geometries behind jurisdiction handles.
type Registrar interface {
	Add(h geometry.Handle, g geom.T) error
}

// ShapefileSource loads jurisdictions from a local TIGER state shapefile and
// registers each shape with a geometry provider.
type ShapefileSource struct {
	Path      string
	Registrar Registrar
}

// Describe implements jurisdiction.Source.
func (s *ShapefileSource) Describe() string { return "shapefile " + s.Path }

// Load implements jurisdiction.Source.
func (s *ShapefileSource) Load(ctx context.Context) ([]jurisdiction.Jurisdiction, error) {
	records, err := ParseShapefile(s.Path)
	if err != nil {
		return nil, err
	}

	out := make([]jurisdiction.Jurisdiction, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.Registrar != nil {
			if err := s.Registrar.Add(rec.Jurisdiction.Geometry, rec.Shape); err != nil {
				return nil, &jurisdiction.LoadError{Source: s.Describe(), Reason: "register geometry " + rec.Jurisdiction.Name, Err: err}
			}
		}
		out = append(out, rec.Jurisdiction)
	}
	return out, nil
}

var _ jurisdiction.Source = (*ShapefileSource)(nil)
