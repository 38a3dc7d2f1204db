package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"ragsearch/internal/domain"
)

const (
	driverDuckDB = "duckdb"
	driverSQLite = "sqlite3"
)

// Options configures a SQL-backed retriever.
type Options struct {
	Path string `key:"db_path" validate:"required"`
}

// Opener opens a database handle for a driver and DSN.
type Opener func(driver, dsn string) (*sql.DB, error)

// Option customizes a Retriever.
type Option func(*Retriever)

// WithOpener replaces sql.Open.
func WithOpener(open Opener) Option {
	return func(r *Retriever) {
		r.open = open
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Retriever forwards SQL text to a database/sql handle opened on first use.
type Retriever struct {
	kind   domain.Kind
	driver string
	path   string
	open   Opener
	logger *zap.Logger
	db     *sql.DB
}

// NewDuckDB creates an analytical retriever backed by DuckDB.
func NewDuckDB(opts Options, options ...Option) *Retriever {
	return newRetriever(domain.KindAnalytical, driverDuckDB, opts, options)
}

// NewSQLite creates a relational retriever backed by SQLite.
func NewSQLite(opts Options, options ...Option) *Retriever {
	return newRetriever(domain.KindRelational, driverSQLite, opts, options)
}

func newRetriever(kind domain.Kind, driver string, opts Options, options []Option) *Retriever {
	r := &Retriever{
		kind:   kind,
		driver: driver,
		path:   opts.Path,
		open:   sql.Open,
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// dsn maps the in-memory sentinel to what each driver expects.
func (r *Retriever) dsn() string {
	if r.driver == driverDuckDB && r.path == domain.MemoryPath {
		return ""
	}
	return r.path
}

func (r *Retriever) Connect(ctx context.Context) error {
	if r.db != nil {
		return nil
	}

	db, err := r.open(r.driver, r.dsn())
	if err != nil {
		return domain.NewResourceError(r.kind, fmt.Sprintf("open %s", r.path), err)
	}

	// One connection keeps an in-memory database visible across calls.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return domain.NewResourceError(r.kind, fmt.Sprintf("connect %s", r.path), err)
	}

	r.db = db
	r.logger.Debug("database connected",
		zap.String("kind", r.kind.String()),
		zap.String("path", r.path))
	return nil
}

// Query executes req.Text with req.Args and returns every row.
func (r *Retriever) Query(ctx context.Context, req domain.Request) ([]domain.Record, error) {
	if err := r.Connect(ctx); err != nil {
		return nil, err
	}

	// The handle was pinged on connect, so a failure here is the engine
	// rejecting the statement. Its parse error is kept as the cause.
	rows, err := r.db.QueryContext(ctx, req.Text, req.Args...)
	if err != nil {
		return nil, domain.NewRequestError(r.kind, "execute query", err)
	}
	defer rows.Close()

	records, err := scanRows(rows, r.path)
	if err != nil {
		return nil, domain.NewRequestError(r.kind, "read rows", err)
	}
	return records, nil
}

func (r *Retriever) Close() error {
	if r.db == nil {
		return nil
	}
	db := r.db
	r.db = nil

	r.logger.Debug("database closed", zap.String("kind", r.kind.String()))
	if err := db.Close(); err != nil {
		return domain.NewResourceError(r.kind, "close database", err)
	}
	return nil
}

func scanRows(rows *sql.Rows, source string) ([]domain.Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []domain.Record
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		records = append(records, domain.Record{
			Columns: columns,
			Values:  values,
			Source:  source,
		})
	}
	return records, rows.Err()
}
