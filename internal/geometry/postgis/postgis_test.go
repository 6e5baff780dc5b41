package postgis

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/jurisdiction-cli/internal/geometry"
	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestProvider_Measurements(t *testing.T) {
	mock := newMock(t)
	ctx := context.Background()
	p := NewProvider(mock)

	mock.ExpectQuery(sqlArea).WithArgs("48").
		WillReturnRows(pgxmock.NewRows([]string{"st_area"}).AddRow(65.9))
	mock.ExpectQuery(sqlPerimeter).WithArgs("48").
		WillReturnRows(pgxmock.NewRows([]string{"perimeter"}).AddRow(5020.4))
	mock.ExpectQuery(sqlNPoints).WithArgs("48").
		WillReturnRows(pgxmock.NewRows([]string{"st_npoints"}).AddRow(int32(12034)))

	area, err := p.Area(ctx, "48")
	require.NoError(t, err)
	assert.Equal(t, 65.9, area)

	perim, err := p.PerimeterKM(ctx, "48")
	require.NoError(t, err)
	assert.Equal(t, 5020.4, perim)

	n, err := p.VertexCount(ctx, "48")
	require.NoError(t, err)
	assert.Equal(t, 12034, n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProvider_Predicates(t *testing.T) {
	mock := newMock(t)
	ctx := context.Background()
	p := NewProvider(mock)

	mock.ExpectQuery(sqlIntersects).WithArgs("40", "48").
		WillReturnRows(pgxmock.NewRows([]string{"st_intersects"}).AddRow(true))
	mock.ExpectQuery(sqlContains).WithArgs("40", "48").
		WillReturnRows(pgxmock.NewRows([]string{"st_contains"}).AddRow(false))
	mock.ExpectQuery(sqlSharedLength).WithArgs("40", "48").
		WillReturnRows(pgxmock.NewRows([]string{"length"}).AddRow(1158.3))

	hit, err := p.TouchesOrIntersects(ctx, "40", "48")
	require.NoError(t, err)
	assert.True(t, hit)

	in, err := p.Contains(ctx, "40", "48")
	require.NoError(t, err)
	assert.False(t, in)

	length, err := p.IntersectionLengthKM(ctx, "40", "48")
	require.NoError(t, err)
	assert.Equal(t, 1158.3, length)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProvider_UnknownHandle(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(sqlArea).WithArgs("99").WillReturnError(pgx.ErrNoRows)

	_, err := NewProvider(mock).Area(context.Background(), "99")
	assert.ErrorIs(t, err, jurisdiction.ErrNotFound)
}

func TestProvider_QueryError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(sqlContains).WithArgs("a", "b").WillReturnError(assert.AnError)

	_, err := NewProvider(mock).Contains(context.Background(), "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgis: contains")
	assert.NotErrorIs(t, err, jurisdiction.ErrNotFound)
}

func TestSource_Load(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(sqlJurisdictions).WillReturnRows(
		pgxmock.NewRows([]string{"geoid", "name", "stusps", "statefp", "region", "division", "aland", "awater"}).
			AddRow("08", "Colorado", "CO", "08", "West", "Mountain", int64(268418796417), int64(1185716938)).
			AddRow("20", "Kansas", "KS", "20", "Midwest", "West North Central", int64(211753717642), int64(1345707708)),
	)

	repo, err := jurisdiction.Load(context.Background(), &Source{Pool: mock})
	require.NoError(t, err)
	assert.Equal(t, []string{"Colorado", "Kansas"}, repo.Names())

	co, ok := repo.FindByName("Colorado")
	require.True(t, ok)
	assert.Equal(t, geometry.Handle("08"), co.Geometry)
	assert.Equal(t, "Mountain", co.Division)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSource_QueryFails(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(sqlJurisdictions).WillReturnError(assert.AnError)

	_, err := jurisdiction.Load(context.Background(), &Source{Pool: mock})
	var lerr *jurisdiction.LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "query jurisdictions", lerr.Reason)
}

type recordingRegistrar struct {
	shapes map[geometry.Handle][]byte
	err    error
}

func (r *recordingRegistrar) AddWKB(h geometry.Handle, b []byte) error {
	if r.err != nil {
		return r.err
	}
	if r.shapes == nil {
		r.shapes = make(map[geometry.Handle][]byte)
	}
	r.shapes[h] = b
	return nil
}

func wkbRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"geoid", "name", "stusps", "statefp", "region", "division", "aland", "awater", "st_asbinary"}).
		AddRow("08", "Colorado", "CO", "08", "West", "Mountain", int64(268418796417), int64(1185716938), []byte{0x01, 0x06}).
		AddRow("20", "Kansas", "KS", "20", "Midwest", "West North Central", int64(211753717642), int64(1345707708), []byte{0x01, 0x03})
}

func TestSource_LoadRegistersShapes(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(sqlJurisdictionsWKB).WillReturnRows(wkbRows())

	reg := &recordingRegistrar{}
	repo, err := jurisdiction.Load(context.Background(), &Source{Pool: mock, Registrar: reg})
	require.NoError(t, err)
	assert.Equal(t, []string{"Colorado", "Kansas"}, repo.Names())
	assert.Equal(t, []byte{0x01, 0x06}, reg.shapes["08"])
	assert.Equal(t, []byte{0x01, 0x03}, reg.shapes["20"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSource_RegisterFails(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(sqlJurisdictionsWKB).WillReturnRows(wkbRows())

	_, err := jurisdiction.Load(context.Background(), &Source{Pool: mock, Registrar: &recordingRegistrar{err: assert.AnError}})
	var lerr *jurisdiction.LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "register geometry Colorado", lerr.Reason)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestMigrate_FreshDB(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	names, err := migrationNames()
	require.NoError(t, err)
	require.Equal(t, []string{"001_jurisdictions.sql", "002_load_status.sql", "003_analysis_results.sql"}, names)

	mock.ExpectExec("SELECT pg_advisory_lock").WithArgs(migrationLockID).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS geo").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT filename FROM geo.schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"filename"}))
	for _, name := range names {
		mock.ExpectExec(".*").WillReturnResult(pgxmock.NewResult("EXEC", 0))
		mock.ExpectExec("INSERT INTO geo.schema_migrations").WithArgs(name).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectExec("SELECT pg_advisory_unlock").WithArgs(migrationLockID).WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_SkipsApplied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("SELECT pg_advisory_lock").WithArgs(migrationLockID).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS geo").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT filename FROM geo.schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"filename"}).
			AddRow("001_jurisdictions.sql").
			AddRow("002_load_status.sql"))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS geo.analysis_runs").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO geo.schema_migrations").WithArgs("003_analysis_results.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("SELECT pg_advisory_unlock").WithArgs(migrationLockID).WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_LockFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("SELECT pg_advisory_lock").WithArgs(migrationLockID).WillReturnError(assert.AnError)

	err = Migrate(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire migration lock")
}
