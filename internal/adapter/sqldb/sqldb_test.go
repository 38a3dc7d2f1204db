package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragsearch/internal/domain"
)

// mockOpener hands out fresh sqlmock handles and counts open calls.
type mockOpener struct {
	t      *testing.T
	calls  int
	mocks  []sqlmock.Sqlmock
	dsns   []string
	setup  func(sqlmock.Sqlmock)
	failOn error
}

func (m *mockOpener) open(driver, dsn string) (*sql.DB, error) {
	m.calls++
	m.dsns = append(m.dsns, dsn)
	if m.failOn != nil {
		return nil, m.failOn
	}
	db, mock, err := sqlmock.New()
	require.NoError(m.t, err)
	if m.setup != nil {
		m.setup(mock)
	}
	m.mocks = append(m.mocks, mock)
	return db, nil
}

func TestConnectIsIdempotent(t *testing.T) {
	opener := &mockOpener{t: t}
	r := NewSQLite(Options{Path: "test.db"}, WithOpener(opener.open))

	ctx := context.Background()
	require.NoError(t, r.Connect(ctx))
	require.NoError(t, r.Connect(ctx))

	assert.Equal(t, 1, opener.calls)
	assert.Equal(t, []string{"test.db"}, opener.dsns)
}

func TestQueryConnectsLazily(t *testing.T) {
	opener := &mockOpener{t: t, setup: func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery("SELECT \\* FROM test").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "John"))
	}}
	r := NewDuckDB(Options{Path: "analytics.duckdb"}, WithOpener(opener.open))

	records, err := r.Query(context.Background(), domain.Request{Text: "SELECT * FROM test"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, 1, opener.calls)
	assert.Equal(t, []string{"id", "name"}, records[0].Columns)
	assert.EqualValues(t, 1, records[0].Values[0])
	assert.Equal(t, "John", records[0].Values[1])
	assert.Equal(t, "analytics.duckdb", records[0].Source)
	assert.NoError(t, opener.mocks[0].ExpectationsWereMet())
}

func TestQueryPassesArgs(t *testing.T) {
	opener := &mockOpener{t: t, setup: func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery("SELECT name FROM test WHERE id = \\?").
			WithArgs(2).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Jane"))
	}}
	r := NewSQLite(Options{Path: "test.db"}, WithOpener(opener.open))

	records, err := r.Query(context.Background(), domain.Request{
		Text: "SELECT name FROM test WHERE id = ?",
		Args: []any{2},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"Jane"}}, domain.Rows(records))
}

func TestCloseThenQueryReconnects(t *testing.T) {
	opener := &mockOpener{t: t, setup: func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
		mock.ExpectClose()
	}}
	r := NewSQLite(Options{Path: "test.db"}, WithOpener(opener.open))
	ctx := context.Background()

	_, err := r.Query(ctx, domain.Request{Text: "SELECT 1"})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = r.Query(ctx, domain.Request{Text: "SELECT 1"})
	require.NoError(t, err)

	assert.Equal(t, 2, opener.calls)
	assert.NoError(t, opener.mocks[0].ExpectationsWereMet())
}

func TestCloseWithoutConnect(t *testing.T) {
	opener := &mockOpener{t: t}
	r := NewSQLite(Options{Path: "test.db"}, WithOpener(opener.open))

	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
	assert.Zero(t, opener.calls)
}

func TestQueryErrorIsRequestError(t *testing.T) {
	backendErr := errors.New(`near "SELEC": syntax error`)
	opener := &mockOpener{t: t, setup: func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery("SELEC").WillReturnError(backendErr)
	}}
	r := NewSQLite(Options{Path: "test.db"}, WithOpener(opener.open))

	_, err := r.Query(context.Background(), domain.Request{Text: "SELEC"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRequest)
	assert.NotErrorIs(t, err, domain.ErrResource)
	assert.ErrorIs(t, err, backendErr)
	assert.Contains(t, err.Error(), "syntax error")
}

func TestOpenFailureIsResourceError(t *testing.T) {
	opener := &mockOpener{t: t, failOn: errors.New("unable to open database file")}
	r := NewDuckDB(Options{Path: "/nope/db.duckdb"}, WithOpener(opener.open))

	err := r.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrResource)

	// The failed attempt leaves no handle behind.
	assert.NoError(t, r.Close())
}

func TestDuckDBMemoryDSN(t *testing.T) {
	opener := &mockOpener{t: t}
	duck := NewDuckDB(Options{Path: domain.MemoryPath}, WithOpener(opener.open))
	lite := NewSQLite(Options{Path: domain.MemoryPath}, WithOpener(opener.open))

	require.NoError(t, duck.Connect(context.Background()))
	require.NoError(t, lite.Connect(context.Background()))
	assert.Equal(t, []string{"", domain.MemoryPath}, opener.dsns)
}
