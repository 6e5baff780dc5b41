package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/jurisdiction-cli/internal/analysis"
	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
	"github.com/sells-group/jurisdiction-cli/internal/metrics"
)

// SummaryXLSX is the workbook written by WriteXLSX.
const SummaryXLSX = "tax_rates_summary.xlsx"

// Workbook sheet names, in order.
const (
	SheetTaxRates   = "Tax Rates"
	SheetBorders    = "Borders"
	SheetComplexity = "Complexity"
	SheetRegions    = "Regions"
)

// WriteXLSX writes the tax-rate summary workbook to path. Numbers are stored
// as numeric cells; missing rates and indices are left blank.
func WriteXLSX(path string, res *analysis.Result) error {
	f := xlsx.NewFile()

	taxes, err := addSheet(f, SheetTaxRates, taxRateColumns)
	if err != nil {
		return err
	}
	for _, j := range res.Jurisdictions {
		row := taxes.AddRow()
		row.AddCell().SetString(j.Name)
		row.AddCell().SetString(j.PostalCode)
		setOptionalFloat(row.AddCell(), j.SalesTaxRate)
		setOptionalFloat(row.AddCell(), j.UseTaxRate)
	}

	borders, err := addSheet(f, SheetBorders, borderColumns)
	if err != nil {
		return err
	}
	for _, p := range res.PairsByLength {
		row := borders.AddRow()
		row.AddCell().SetString(p.A)
		row.AddCell().SetString(p.B)
		row.AddCell().SetFloat(p.LengthKM)
		row.AddCell().SetString(p.Tier.String())
	}

	complexity, err := addSheet(f, SheetComplexity, complexityColumns)
	if err != nil {
		return err
	}
	for _, r := range metrics.TopNByComplexity(res.Complexity, 0) {
		row := complexity.AddRow()
		row.AddCell().SetString(r.Name)
		row.AddCell().SetString(r.PostalCode)
		row.AddCell().SetFloat(r.PerimeterKM)
		row.AddCell().SetFloat(r.AreaKM2)
		row.AddCell().SetInt(r.BoundaryPoints)
		setOptionalFloat(row.AddCell(), r.Index)
	}

	regions, err := addSheet(f, SheetRegions, regionColumns)
	if err != nil {
		return err
	}
	for _, r := range res.RegionOrder {
		addRegionRow(regions, r)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func addSheet(f *xlsx.File, name string, header []string) (*xlsx.Sheet, error) {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return nil, eris.Wrapf(err, "report: add sheet %s", name)
	}
	row := sheet.AddRow()
	for _, h := range header {
		row.AddCell().SetString(h)
	}
	return sheet, nil
}

func addRegionRow(sheet *xlsx.Sheet, r jurisdiction.RegionSummary) {
	row := sheet.AddRow()
	row.AddCell().SetString(r.Region)
	row.AddCell().SetInt(r.Count)
	row.AddCell().SetFloat(r.TotalAreaKM2)
	row.AddCell().SetFloat(r.AvgAreaKM2)
}

func setOptionalFloat(c *xlsx.Cell, v *float64) {
	if v == nil {
		c.SetString("")
		return
	}
	c.SetFloat(*v)
}
