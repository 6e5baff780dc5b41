// Package report renders an analysis.Result as text, CSV, XLSX and SQLite
// files, and persists it to PostgreSQL.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/jurisdiction-cli/internal/analysis"
	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
	"github.com/sells-group/jurisdiction-cli/internal/metrics"
)

// CSV file names written by WriteCSV.
const (
	BordersCSV    = "borders.csv"
	ComplexityCSV = "complexity.csv"
	RegionsCSV    = "regions.csv"
	TaxRatesCSV   = "tax_rates.csv"
	StatisticsCSV = "state_statistics.csv"
)

var (
	borderColumns     = []string{"state_a", "state_b", "border_length_km", "tax_complexity_level"}
	complexityColumns = []string{"name", "stusps", "perimeter_km", "area_km2", "boundary_points", "complexity_index"}
	regionColumns     = []string{"region", "state_count", "total_area_km2", "avg_area_km2"}
	taxRateColumns    = []string{"NAME", "STUSPS", "sales_tax_rate", "use_tax_rate"}
	statisticsColumns = []string{"Total_States", "Total_Land_Area_km2", "Average_State_Area_km2", "Largest_State", "Smallest_State"}
)

// WriteCSV writes every CSV export into dir and returns the paths written.
func WriteCSV(dir string, res *analysis.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create dir %s", dir)
	}

	files := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{BordersCSV, borderColumns, borderRows(res.PairsByLength)},
		{ComplexityCSV, complexityColumns, complexityRows(metrics.TopNByComplexity(res.Complexity, 0))},
		{RegionsCSV, regionColumns, regionRows(res.RegionOrder)},
		{TaxRatesCSV, taxRateColumns, taxRateRows(res.Jurisdictions)},
		{StatisticsCSV, statisticsColumns, statisticsRows(res)},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeCSVFile(path, f.header, f.rows); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeCSVFile(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrapf(err, "report: write header %s", path)
	}
	if err := w.WriteAll(rows); err != nil {
		return eris.Wrapf(err, "report: write rows %s", path)
	}
	return nil
}

func borderRows(pairs []jurisdiction.BorderPair) [][]string {
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{p.A, p.B, formatKM(p.LengthKM), p.Tier.String()})
	}
	return rows
}

func complexityRows(records []jurisdiction.ComplexityRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Name,
			r.PostalCode,
			formatKM(r.PerimeterKM),
			formatKM(r.AreaKM2),
			strconv.Itoa(r.BoundaryPoints),
			formatIndex(r.Index),
		})
	}
	return rows
}

func regionRows(regions []jurisdiction.RegionSummary) [][]string {
	rows := make([][]string, 0, len(regions))
	for _, r := range regions {
		rows = append(rows, []string{r.Region, strconv.Itoa(r.Count), formatKM(r.TotalAreaKM2), formatKM(r.AvgAreaKM2)})
	}
	return rows
}

func taxRateRows(js []jurisdiction.Jurisdiction) [][]string {
	rows := make([][]string, 0, len(js))
	for _, j := range js {
		rows = append(rows, []string{j.Name, j.PostalCode, formatRate(j.SalesTaxRate), formatRate(j.UseTaxRate)})
	}
	return rows
}

func statisticsRows(res *analysis.Result) [][]string {
	st := res.Statistics
	return [][]string{{
		strconv.Itoa(st.TotalJurisdictions),
		formatKM(st.TotalAreaKM2),
		formatKM(st.AvgAreaKM2),
		st.Largest,
		st.Smallest,
	}}
}

func formatKM(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// formatIndex leaves undefined indices empty.
func formatIndex(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}

func formatRate(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}
