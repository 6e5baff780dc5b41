package taxrate

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
)

// Column names recognized in csv and xlsx rate tables. use_rate is optional
// and defaults to the sales rate.
const (
	colName  = "name"
	colSales = "sales_rate"
	colUse   = "use_rate"
)

// LoadFile reads a rate table from a .yaml/.yml, .csv or .xlsx file.
// Cells that do not parse as numbers yield a *jurisdiction.ValidationError.
func LoadFile(path string) (Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "taxrate: open yaml")
		}
		defer f.Close() //nolint:errcheck
		return ReadYAML(f)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "taxrate: open csv")
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(f)
	case ".xlsx":
		return ReadXLSX(path)
	default:
		return nil, eris.Errorf("taxrate: unsupported rate file %q", path)
	}
}

// rawRate keeps the scalar text so numeric parsing errors can name the
// jurisdiction.
type rawRate string

func (r *rawRate) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return eris.Errorf("taxrate: line %d: rate must be a scalar", n.Line)
	}
	*r = rawRate(n.Value)
	return nil
}

type yamlEntry struct {
	Sales *rawRate `yaml:"sales_rate"`
	Use   *rawRate `yaml:"use_rate"`
}

type yamlFile struct {
	Rates map[string]yamlEntry `yaml:"rates"`
}

// ReadYAML parses a document of the form
//
//	rates:
//	  California: {sales_rate: 7.25, use_rate: 7.25}
func ReadYAML(r io.Reader) (Table, error) {
	var doc yamlFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, eris.Wrap(err, "taxrate: decode yaml")
	}

	t := make(Table, len(doc.Rates))
	for name, e := range doc.Rates {
		if e.Sales == nil {
			return nil, &jurisdiction.ValidationError{Name: name, Field: "sales", Reason: "missing"}
		}
		use := e.Sales
		if e.Use != nil {
			use = e.Use
		}
		rates, err := parseRates(name, string(*e.Sales), string(*use))
		if err != nil {
			return nil, err
		}
		t[name] = rates
	}
	return t, nil
}

// ReadCSV parses a csv rate table with a header row.
func ReadCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "taxrate: read csv")
	}
	return fromRows(records)
}

// ReadXLSX parses the first sheet of an xlsx rate table.
func ReadXLSX(path string) (Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "taxrate: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("taxrate: xlsx has no sheets")
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		rows = append(rows, cells)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) (Table, error) {
	if len(rows) == 0 {
		return nil, eris.New("taxrate: rate table is empty")
	}

	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	nameCol, ok := idx[colName]
	if !ok {
		return nil, eris.Errorf("taxrate: missing %q column", colName)
	}
	salesCol, ok := idx[colSales]
	if !ok {
		return nil, eris.Errorf("taxrate: missing %q column", colSales)
	}
	useCol, hasUse := idx[colUse]

	t := make(Table, len(rows)-1)
	for i, row := range rows[1:] {
		name := cell(row, nameCol)
		if name == "" {
			if cell(row, salesCol) != "" || (hasUse && cell(row, useCol) != "") {
				return nil, &jurisdiction.ValidationError{
					Name:   fmt.Sprintf("row %d", i+2),
					Reason: "rates without a jurisdiction name",
				}
			}
			continue
		}
		if _, dup := t[name]; dup {
			return nil, &jurisdiction.ValidationError{Name: name, Reason: "duplicate entry"}
		}

		sales := cell(row, salesCol)
		use := sales
		if hasUse && cell(row, useCol) != "" {
			use = cell(row, useCol)
		}
		rates, err := parseRates(name, sales, use)
		if err != nil {
			return nil, err
		}
		t[name] = rates
	}
	return t, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseRates(name, sales, use string) (Rates, error) {
	s, err := parseRate(name, "sales", sales)
	if err != nil {
		return Rates{}, err
	}
	u, err := parseRate(name, "use", use)
	if err != nil {
		return Rates{}, err
	}
	return Rates{Sales: s, Use: u}, nil
}

// parseRate accepts "7.25" and "7.25%".
func parseRate(name, field, raw string) (float64, error) {
	v := strings.TrimSuffix(strings.TrimSpace(raw), "%")
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, &jurisdiction.ValidationError{Name: name, Field: field, Reason: "non-numeric"}
	}
	return f, nil
}
