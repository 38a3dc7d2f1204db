package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"ragsearch/internal/domain"
)

var columns = []string{"key", "value"}

// Options configures the bucket retriever.
type Options struct {
	Path   string `key:"db_path" validate:"required"`
	Bucket string `key:"bucket" validate:"required"`
}

// Opener opens a bbolt file.
type Opener func(path string, mode os.FileMode, options *bbolt.Options) (*bbolt.DB, error)

// Option customizes a BoltRetriever.
type Option func(*BoltRetriever)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *BoltRetriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithOpener replaces bbolt.Open.
func WithOpener(open Opener) Option {
	return func(r *BoltRetriever) {
		r.open = open
	}
}

// WithOpenTimeout bounds how long Connect waits for the file lock.
func WithOpenTimeout(d time.Duration) Option {
	return func(r *BoltRetriever) {
		r.timeout = d
	}
}

// BoltRetriever scans one bucket of a bbolt file by key prefix.
type BoltRetriever struct {
	path    string
	bucket  []byte
	timeout time.Duration
	open    Opener
	logger  *zap.Logger
	db      *bbolt.DB
}

func NewBoltRetriever(opts Options, options ...Option) *BoltRetriever {
	r := &BoltRetriever{
		path:    opts.Path,
		bucket:  []byte(opts.Bucket),
		timeout: time.Second,
		open:    bbolt.Open,
		logger:  zap.NewNop(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *BoltRetriever) Connect(ctx context.Context) error {
	if r.db != nil {
		return nil
	}

	// Read-only: a wrong path fails instead of creating an empty file.
	db, err := r.open(r.path, 0600, &bbolt.Options{Timeout: r.timeout, ReadOnly: true})
	if err != nil {
		return domain.NewResourceError(domain.KindKeyValue, fmt.Sprintf("open bolt db %s", r.path), err)
	}

	r.db = db
	r.logger.Debug("bolt db opened", zap.String("path", r.path))
	return nil
}

// Query returns every key/value pair whose key starts with req.Text,
// in key order. An empty prefix scans the whole bucket.
func (r *BoltRetriever) Query(ctx context.Context, req domain.Request) ([]domain.Record, error) {
	if err := r.Connect(ctx); err != nil {
		return nil, err
	}

	prefix := []byte(req.Text)
	source := r.path + ":" + string(r.bucket)

	var records []domain.Record
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.bucket)
		if b == nil {
			return fmt.Errorf("bucket not found: %s", r.bucket)
		}
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if v == nil {
				continue // nested bucket
			}
			records = append(records, domain.Record{
				Columns: columns,
				Values:  []any{string(k), string(v)},
				Source:  source,
			})
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewResourceError(domain.KindKeyValue, "scan bucket", err)
	}
	return records, nil
}

func (r *BoltRetriever) Close() error {
	if r.db == nil {
		return nil
	}
	db := r.db
	r.db = nil

	r.logger.Debug("bolt db closed", zap.String("path", r.path))
	if err := db.Close(); err != nil {
		return domain.NewResourceError(domain.KindKeyValue, "close bolt db", err)
	}
	return nil
}
