// Package tiger downloads the Census TIGER/Line state boundary shapefile,
// turns its records into jurisdictions and bulk-loads them into PostGIS.
package tiger

import "fmt"

// DefaultYear is the TIGER/Line vintage fetched when none is configured.
const DefaultYear = 2023

// SRID of TIGER/Line geometries (NAD83).
const SRID = 4269

// Product describes a TIGER/Line shapefile product.
type Product struct {
	Name     string   // e.g., "STATE"
	Table    string   // target table, schema-qualified
	Columns  []string // attribute columns copied from the DBF
	Required []string // attributes a usable file must carry
}

// StateProduct is the national state and equivalent-entity boundary file.
var StateProduct = Product{
	Name:  "STATE",
	Table: "geo.jurisdictions",
	Columns: []string{
		"region", "division", "statefp", "statens", "geoid", "stusps",
		"name", "lsad", "mtfcc", "funcstat", "aland", "awater",
		"intptlat", "intptlon",
	},
	Required: []string{"name", "region", "aland"},
}

// DownloadURL returns the Census URL of the state shapefile for a year.
func DownloadURL(year int) string {
	if year == 0 {
		year = DefaultYear
	}
	return fmt.Sprintf("https://www2.census.gov/geo/tiger/TIGER%d/STATE/tl_%d_us_state.zip", year, year)
}

// Census region and division codes as carried in the REGION and DIVISION
// attributes.
var (
	regionNames = map[string]string{
		"1": "Northeast",
		"2": "Midwest",
		"3": "South",
		"4": "West",
		"9": "Island Areas",
	}
	divisionNames = map[string]string{
		"0": "Island Areas",
		"1": "New England",
		"2": "Middle Atlantic",
		"3": "East North Central",
		"4": "West North Central",
		"5": "South Atlantic",
		"6": "East South Central",
		"7": "West South Central",
		"8": "Mountain",
		"9": "Pacific",
	}
)

// RegionName maps a Census region code to its name. Unknown codes pass through.
func RegionName(code string) string {
	if n, ok := regionNames[code]; ok {
		return n
	}
	return code
}

// DivisionName maps a Census division code to its name. Unknown codes pass through.
func DivisionName(code string) string {
	if n, ok := divisionNames[code]; ok {
		return n
	}
	return code
}
