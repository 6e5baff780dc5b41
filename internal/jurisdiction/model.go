// Package jurisdiction holds the jurisdiction records the metrics engine
// operates on, the derived record types it produces, and the in-memory
// repository that owns them for the duration of a run.
package jurisdiction

import (
	"github.com/sells-group/jurisdiction-cli/internal/geometry"
)

// SquareMetersPerKM2 converts raw TIGER land/water areas to square kilometers.
const SquareMetersPerKM2 = 1_000_000.0

// Jurisdiction is a named polygonal administrative region.
type Jurisdiction struct {
	Name       string          `json:"name"`
	PostalCode string          `json:"postal_code"`
	FIPS       string          `json:"fips,omitempty"`
	GEOID      string          `json:"geoid,omitempty"`
	Region     string          `json:"region"`
	Division   string          `json:"division"`
	LandArea   int64           `json:"land_area"`  // square meters
	WaterArea  int64           `json:"water_area"` // square meters
	Geometry   geometry.Handle `json:"-"`

	SalesTaxRate *float64 `json:"sales_tax_rate,omitempty"`
	UseTaxRate   *float64 `json:"use_tax_rate,omitempty"`
}

// LandAreaKM2 returns the land area in square kilometers.
func (j Jurisdiction) LandAreaKM2() float64 {
	return float64(j.LandArea) / SquareMetersPerKM2
}

// TaxRates is a sales/use rate pair, both percentages.
type TaxRates struct {
	Sales float64 `json:"sales" yaml:"sales"`
	Use   float64 `json:"use" yaml:"use"`
}

// Tier is the coarse border complexity classification.
type Tier int

// Border complexity tiers. TierUnset marks a pair not yet classified.
const (
	TierUnset Tier = iota
	TierLow
	TierMedium
	TierHigh
)

// String returns the tier label used in reports.
func (t Tier) String() string {
	switch t {
	case TierLow:
		return "Low"
	case TierMedium:
		return "Medium"
	case TierHigh:
		return "High"
	default:
		return ""
	}
}

// BorderPair is an unordered pair of bordering jurisdictions. A is always
// the lexicographically smaller name.
type BorderPair struct {
	A        string  `json:"a"`
	B        string  `json:"b"`
	LengthKM float64 `json:"length_km"`
	Tier     Tier    `json:"tier"`
}

// NewBorderPair canonicalizes two distinct names into a pair. It returns
// false when the names are equal.
func NewBorderPair(x, y string) (BorderPair, bool) {
	if x == y {
		return BorderPair{}, false
	}
	if y < x {
		x, y = y, x
	}
	return BorderPair{A: x, B: y}, true
}

// Key returns a stable map key for the pair.
func (p BorderPair) Key() string {
	return p.A + "\x00" + p.B
}

// ComplexityRecord is the per-jurisdiction boundary complexity measurement.
// Index is nil when the land area is zero.
type ComplexityRecord struct {
	Name           string   `json:"name"`
	PostalCode     string   `json:"postal_code"`
	PerimeterKM    float64  `json:"perimeter_km"`
	AreaKM2        float64  `json:"area_km2"`
	BoundaryPoints int      `json:"boundary_points"`
	Index          *float64 `json:"complexity_index"`
}

// RegionSummary aggregates jurisdictions sharing a region label.
type RegionSummary struct {
	Region       string  `json:"region"`
	Count        int     `json:"count"`
	TotalAreaKM2 float64 `json:"total_area_km2"`
	AvgAreaKM2   float64 `json:"avg_area_km2"`
}
