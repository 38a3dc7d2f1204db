package loader

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"ragsearch/internal/adapter/fs"
	"ragsearch/internal/domain"
)

// Options configures a file-backed retriever.
type Options struct {
	FilePath string `key:"file_path" validate:"required"`
}

// Source is one opened file.
type Source struct {
	Path string
	File *os.File
	Size int64
}

// LoadFunc extracts text fragments from an opened source.
type LoadFunc func(ctx context.Context, src Source) ([]string, error)

// Option customizes a Retriever.
type Option func(*Retriever)

// WithOpenFile replaces os.Open.
func WithOpenFile(open func(path string) (*os.File, error)) Option {
	return func(r *Retriever) {
		r.openFile = open
	}
}

// WithLoadFunc replaces the document loader.
func WithLoadFunc(load LoadFunc) Option {
	return func(r *Retriever) {
		r.load = load
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

// Retriever loads the text content of one or more files. The open file
// set is its handle.
type Retriever struct {
	kind     domain.Kind
	pattern  string
	load     LoadFunc
	openFile func(path string) (*os.File, error)
	logger   *zap.Logger
	sources  []Source
}

// NewText creates a retriever that loads each file as a single fragment.
func NewText(opts Options, options ...Option) *Retriever {
	return newRetriever(domain.KindText, LoadText, opts, options)
}

// NewPDF creates a retriever that loads each PDF page as a fragment.
func NewPDF(opts Options, options ...Option) *Retriever {
	return newRetriever(domain.KindPDF, LoadPDF, opts, options)
}

func newRetriever(kind domain.Kind, load LoadFunc, opts Options, options []Option) *Retriever {
	r := &Retriever{
		kind:     kind,
		pattern:  opts.FilePath,
		load:     load,
		openFile: os.Open,
		logger:   zap.NewNop(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *Retriever) Connect(ctx context.Context) error {
	if r.sources != nil {
		return nil
	}

	paths, err := fs.Expand(r.pattern)
	if err != nil {
		return domain.NewResourceError(r.kind, "resolve file path", err)
	}

	sources := make([]Source, 0, len(paths))
	for _, path := range paths {
		src, err := r.openSource(path)
		if err != nil {
			closeSources(sources)
			return domain.NewResourceError(r.kind, fmt.Sprintf("open %s", path), err)
		}
		sources = append(sources, src)
	}

	r.sources = sources
	r.logger.Debug("files opened",
		zap.String("kind", r.kind.String()),
		zap.String("pattern", r.pattern),
		zap.Int("files", len(sources)))
	return nil
}

func (r *Retriever) openSource(path string) (Source, error) {
	f, err := r.openFile(path)
	if err != nil {
		return Source{}, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return Source{}, err
	}
	if info.IsDir() {
		f.Close()
		return Source{}, fmt.Errorf("%s is a directory", path)
	}
	return Source{Path: path, File: f, Size: info.Size()}, nil
}

// Query returns the content of every file. A non-empty req.Text keeps only
// the lines that contain it, ignoring case.
func (r *Retriever) Query(ctx context.Context, req domain.Request) ([]domain.Record, error) {
	if err := r.Connect(ctx); err != nil {
		return nil, err
	}

	var records []domain.Record
	for _, src := range r.sources {
		fragments, err := r.load(ctx, src)
		if err != nil {
			return nil, domain.NewResourceError(r.kind, fmt.Sprintf("load %s", src.Path), err)
		}
		for _, text := range fragments {
			records = append(records, domain.Record{Text: text, Source: src.Path})
		}
	}

	return domain.FilterLines(records, req.Text), nil
}

func (r *Retriever) Close() error {
	if r.sources == nil {
		return nil
	}
	sources := r.sources
	r.sources = nil

	r.logger.Debug("files closed", zap.String("kind", r.kind.String()))
	if err := closeSources(sources); err != nil {
		return domain.NewResourceError(r.kind, "close files", err)
	}
	return nil
}

func closeSources(sources []Source) error {
	var first error
	for _, src := range sources {
		if err := src.File.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// LoadText reads the whole file as one fragment.
func LoadText(ctx context.Context, src Source) ([]string, error) {
	docs, err := documentloaders.NewText(io.NewSectionReader(src.File, 0, src.Size)).Load(ctx)
	if err != nil {
		return nil, err
	}
	return pageContents(docs), nil
}

// LoadPDF reads one fragment per page.
func LoadPDF(ctx context.Context, src Source) ([]string, error) {
	docs, err := documentloaders.NewPDF(src.File, src.Size).Load(ctx)
	if err != nil {
		return nil, err
	}
	return pageContents(docs), nil
}

func pageContents(docs []schema.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.PageContent)
	}
	return out
}
