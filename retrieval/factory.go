// Package retrieval builds retrievers from flat configuration mappings.
//
// A Configuration names an adapter kind under the "kind" key plus the keys
// that kind requires:
//
//	cfg := retrieval.Configuration{"kind": "analytical", "db_path": ":memory:"}
//	r, err := retrieval.New(cfg)
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//	records, err := r.Query(ctx, retrieval.Request{Text: "SELECT * FROM test"})
//
// Every retriever connects lazily on its first Query.
package retrieval

import (
	"net/http"

	"go.uber.org/zap"

	"ragsearch/internal/adapter/extract"
	"ragsearch/internal/adapter/loader"
	"ragsearch/internal/adapter/mongodb"
	"ragsearch/internal/adapter/sqldb"
	"ragsearch/internal/adapter/store"
	"ragsearch/internal/domain"
	"ragsearch/internal/port"
)

type (
	Retriever     = port.Retriever
	Configuration = domain.Configuration
	Request       = domain.Request
	Record        = domain.Record
	Kind          = domain.Kind
)

// Error sentinels for errors.Is.
var (
	ErrConfiguration = domain.ErrConfiguration
	ErrResource      = domain.ErrResource
	ErrRequest       = domain.ErrRequest
)

// Option configures a Factory.
type Option func(*Factory)

// WithLogger passes logger to the factory and every retriever it builds.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithHTTPClient sets the client used by the extraction kind.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Factory) {
		f.httpClient = client
	}
}

// Factory dispatches a Configuration to one adapter constructor. It keeps
// no state between calls.
type Factory struct {
	logger     *zap.Logger
	httpClient *http.Client
}

func NewFactory(opts ...Option) *Factory {
	f := &Factory{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// New builds a retriever with a default Factory.
func New(cfg Configuration, opts ...Option) (Retriever, error) {
	return NewFactory(opts...).Create(cfg)
}

// Create validates cfg and constructs the retriever for its kind. No
// resource is opened.
func (f *Factory) Create(cfg Configuration) (Retriever, error) {
	kind, err := cfg.Kind()
	if err != nil {
		return nil, err
	}

	r, err := f.build(kind, cfg)
	if err != nil {
		return nil, err
	}

	f.logger.Info("retriever created", zap.String("kind", kind.String()))
	return r, nil
}

func (f *Factory) build(kind domain.Kind, cfg Configuration) (Retriever, error) {
	switch kind {
	case domain.KindAnalytical, domain.KindRelational:
		opts := sqldb.Options{Path: cfg.Get(domain.KeyDBPath)}
		if err := validateOptions(kind, opts); err != nil {
			return nil, err
		}
		if kind == domain.KindAnalytical {
			return sqldb.NewDuckDB(opts, sqldb.WithLogger(f.logger)), nil
		}
		return sqldb.NewSQLite(opts, sqldb.WithLogger(f.logger)), nil

	case domain.KindDocument:
		opts := mongodb.Options{
			URI:        cfg.Get(domain.KeyURI),
			Database:   cfg.Get(domain.KeyDatabase),
			Collection: cfg.Get(domain.KeyCollection),
		}
		if err := validateOptions(kind, opts); err != nil {
			return nil, err
		}
		return mongodb.New(opts, mongodb.WithLogger(f.logger)), nil

	case domain.KindText, domain.KindPDF:
		opts := loader.Options{FilePath: cfg.Get(domain.KeyFilePath)}
		if err := validateOptions(kind, opts); err != nil {
			return nil, err
		}
		if kind == domain.KindText {
			return loader.NewText(opts, loader.WithLogger(f.logger)), nil
		}
		return loader.NewPDF(opts, loader.WithLogger(f.logger)), nil

	case domain.KindExtraction:
		opts := extract.Options{
			FilePath: cfg.Get(domain.KeyFilePath),
			APIKey:   cfg.Get(domain.KeyAPIKey),
			APIURL:   cfg.Get(domain.KeyAPIURL),
		}
		if err := validateOptions(kind, opts); err != nil {
			return nil, err
		}
		return extract.New(opts,
			extract.WithLogger(f.logger),
			extract.WithHTTPClient(f.httpClient),
		), nil

	case domain.KindKeyValue:
		opts := store.Options{
			Path:   cfg.Get(domain.KeyDBPath),
			Bucket: cfg.Get(domain.KeyBucket),
		}
		if err := validateOptions(kind, opts); err != nil {
			return nil, err
		}
		return store.NewBoltRetriever(opts, store.WithLogger(f.logger)), nil
	}

	return nil, domain.NewConfigError(kind, "no adapter registered")
}

// Kinds lists every kind the factory accepts.
func Kinds() []Kind {
	return domain.Kinds()
}
