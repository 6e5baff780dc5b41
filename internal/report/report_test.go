package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/jurisdiction-cli/internal/analysis"
	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
	"github.com/sells-group/jurisdiction-cli/internal/region"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func ptr(v float64) *float64 { return &v }

func sampleResult() *analysis.Result {
	js := []jurisdiction.Jurisdiction{
		{Name: "Alpha", PostalCode: "AL", Region: "South", LandArea: 1_234_567_890, SalesTaxRate: ptr(7.25), UseTaxRate: ptr(7.25)},
		{Name: "Beta", PostalCode: "BE", Region: "West", LandArea: 400_000_000},
		{Name: "Gamma", PostalCode: "GA", Region: "West"},
	}
	pairs := []jurisdiction.BorderPair{
		{A: "Alpha", B: "Beta", LengthKM: 600, Tier: jurisdiction.TierHigh},
		{A: "Beta", B: "Gamma", LengthKM: 150.456, Tier: jurisdiction.TierLow},
	}
	complexity := []jurisdiction.ComplexityRecord{
		{Name: "Alpha", PostalCode: "AL", PerimeterKM: 140.5, AreaKM2: 1234.56789, BoundaryPoints: 12034, Index: ptr(4)},
		{Name: "Beta", PostalCode: "BE", PerimeterKM: 80, AreaKM2: 400, BoundaryPoints: 12, Index: ptr(4)},
		{Name: "Gamma", PostalCode: "GA", PerimeterKM: 10, AreaKM2: 0, BoundaryPoints: 4},
	}
	regions := map[string]jurisdiction.RegionSummary{
		"South": {Region: "South", Count: 1, TotalAreaKM2: 1234.56789, AvgAreaKM2: 1234.56789},
		"West":  {Region: "West", Count: 2, TotalAreaKM2: 400, AvgAreaKM2: 200},
	}
	return &analysis.Result{
		StartedAt:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt:    time.Date(2024, 3, 1, 12, 0, 5, 0, time.UTC),
		Jurisdictions: js,
		Pairs:         pairs,
		PairsByLength: pairs,
		Neighbors: map[string][]string{
			"Alpha": {"Beta"},
			"Beta":  {"Alpha", "Gamma"},
			"Gamma": {"Beta"},
		},
		Complexity:    complexity,
		TopComplexity: complexity,
		Largest:       js,
		Regions:       regions,
		RegionOrder:   region.Ordered(regions),
		Statistics:    region.Overall(js),
		Evaluated:     3,
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteCSV(dir, sampleResult())
	require.NoError(t, err)
	require.Len(t, paths, 5)

	borders := readCSV(t, filepath.Join(dir, BordersCSV))
	assert.Equal(t, borderColumns, borders[0])
	assert.Equal(t, []string{"Alpha", "Beta", "600.00", "High"}, borders[1])
	assert.Equal(t, []string{"Beta", "Gamma", "150.46", "Low"}, borders[2])

	complexity := readCSV(t, filepath.Join(dir, ComplexityCSV))
	require.Len(t, complexity, 4)
	assert.Equal(t, "4.0000", complexity[1][5])
	assert.Equal(t, "Gamma", complexity[3][0])
	assert.Empty(t, complexity[3][5])

	regions := readCSV(t, filepath.Join(dir, RegionsCSV))
	assert.Equal(t, []string{"South", "1", "1234.57", "1234.57"}, regions[1])

	taxes := readCSV(t, filepath.Join(dir, TaxRatesCSV))
	assert.Equal(t, []string{"Alpha", "AL", "7.25", "7.25"}, taxes[1])
	assert.Equal(t, []string{"Beta", "BE", "", ""}, taxes[2])

	stats := readCSV(t, filepath.Join(dir, StatisticsCSV))
	require.Len(t, stats, 2)
	assert.Equal(t, []string{"3", "1634.57", "544.86", "Alpha", "Gamma"}, stats[1])
}

func TestWriteCSV_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := WriteCSV(filepath.Join(file, "sub"), sampleResult())
	assert.Error(t, err)
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), SummaryXLSX)
	require.NoError(t, WriteXLSX(path, sampleResult()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 4)
	assert.Equal(t, SheetTaxRates, f.Sheets[0].Name)
	assert.Equal(t, SheetBorders, f.Sheets[1].Name)

	taxes := f.Sheet[SheetTaxRates]
	assert.Equal(t, "NAME", taxes.Rows[0].Cells[0].String())
	rate, err := taxes.Rows[1].Cells[2].Float()
	require.NoError(t, err)
	assert.InDelta(t, 7.25, rate, 1e-9)
	assert.Equal(t, "", taxes.Rows[2].Cells[2].String())

	borders := f.Sheet[SheetBorders]
	length, err := borders.Rows[1].Cells[2].Float()
	require.NoError(t, err)
	assert.InDelta(t, 600, length, 1e-9)
	assert.Equal(t, "High", borders.Rows[1].Cells[3].String())

	regions := f.Sheet[SheetRegions]
	assert.Equal(t, "South", regions.Rows[1].Cells[0].String())
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "Beta borders with:\n  - Alpha\n  - Gamma\n")
	assert.Contains(t, out, "Alpha (AL): 1,234.57 km²")
	assert.Contains(t, out, "Region: West\nNumber of States: 2\n")
	assert.Contains(t, out, "Boundary Points: 12,034")
	assert.Contains(t, out, "Complexity Index: 4.00")
	assert.Contains(t, out, "Complexity Index: n/a")
	assert.Contains(t, out, "Border Zone: Alpha - Beta\nLength: 600.00 km\nTax Complexity: High\n---")
	assert.Contains(t, out, "State: Alpha, Sales Tax: 7.25, Use Tax: 7.25")
	assert.NotContains(t, out, "State: Beta, Sales Tax")
	assert.Contains(t, out, "Pairs evaluated: 3, bordering: 2, skipped: 0")
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, assert.AnError }

func TestWriteText_WriterError(t *testing.T) {
	err := WriteText(failWriter{}, sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report: write text")
}

func TestExport_FilesAndSQLite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "db", "results.db")
	res := sampleResult()

	m, err := Export(context.Background(), res, ExportOptions{Dir: filepath.Join(dir, "out"), SQLite: dbPath})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, m.RunID)
	assert.Len(t, m.Files, 7)
	assert.FileExists(t, filepath.Join(dir, "out", SummaryXLSX))

	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	runs, err := st.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, m.RunID.String(), runs[0].ID)
	assert.Equal(t, 3, runs[0].Jurisdictions)
	assert.Equal(t, 2, runs[0].Pairs)

	ctx := context.Background()
	for table, want := range map[string]int{"jurisdictions": 3, "border_pairs": 2, "complexity": 3, "regions": 2} {
		n, err := st.CountRows(ctx, table, m.RunID.String())
		require.NoError(t, err)
		assert.Equal(t, want, n, table)
	}

	_, err = st.CountRows(ctx, "runs; DROP TABLE runs", m.RunID.String())
	assert.Error(t, err)
}

func TestSQLite_DuplicateRunRollsBack(t *testing.T) {
	st, err := NewSQLite(filepath.Join(t.TempDir(), "r.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	res := sampleResult()
	require.NoError(t, st.SaveRun(ctx, "run-1", res))

	res.Pairs = append(res.Pairs, res.Pairs[0])
	require.Error(t, st.SaveRun(ctx, "run-2", res))

	n, err := st.CountRows(ctx, "jurisdictions", "run-2")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostgresSink_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	res := sampleResult()
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO geo.analysis_runs").
		WithArgs(id.String(), res.StartedAt, res.FinishedAt, 3, 2, 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"geo", "border_pairs"}, pgBorderColumns).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"geo", "complexity"}, pgComplexityColumns).WillReturnResult(3)
	mock.ExpectCommit()

	sink := &PostgresSink{Pool: mock}
	require.NoError(t, sink.Save(context.Background(), id, res))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSink_CopyFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO geo.analysis_runs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), 3, 2, 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"geo", "border_pairs"}, pgBorderColumns).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	sink := &PostgresSink{Pool: mock}
	err = sink.Save(context.Background(), uuid.New(), sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report: copy border pairs")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExport_Postgres(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO geo.analysis_runs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), 3, 2, 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"geo", "border_pairs"}, pgBorderColumns).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"geo", "complexity"}, pgComplexityColumns).WillReturnResult(3)
	mock.ExpectCommit()

	m, err := Export(context.Background(), sampleResult(), ExportOptions{Postgres: &PostgresSink{Pool: mock}})
	require.NoError(t, err)
	assert.Empty(t, m.Files)
	assert.NoError(t, mock.ExpectationsWereMet())
}
