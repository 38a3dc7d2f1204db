package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"ragsearch/internal/domain"
	"ragsearch/internal/port"
)

// RetrieverFactory builds a retriever from configuration.
type RetrieverFactory interface {
	Create(cfg domain.Configuration) (port.Retriever, error)
}

// RetrieveUseCase runs one query against a freshly built retriever.
type RetrieveUseCase struct {
	factory RetrieverFactory
	logger  *zap.Logger
}

// NewRetrieveUseCase creates a new retrieve use case.
func NewRetrieveUseCase(factory RetrieverFactory, logger *zap.Logger) *RetrieveUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrieveUseCase{
		factory: factory,
		logger:  logger,
	}
}

// Retrieve builds the retriever for cfg, runs req and always closes it.
// A close failure is joined to the returned error.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, cfg domain.Configuration, req domain.Request) (result *Result, err error) {
	r, err := u.factory.Create(cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	kind, _ := cfg.Kind()
	start := time.Now()

	records, err := r.Query(ctx, req)
	if err != nil {
		u.logger.Warn("query failed", zap.String("kind", kind.String()), zap.Error(err))
		return nil, err
	}

	u.logger.Debug("query finished",
		zap.String("kind", kind.String()),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{Kind: kind, Count: len(records), Records: records}, nil
}

// Result is the CLI-facing query outcome.
type Result struct {
	Kind    domain.Kind     `json:"kind"`
	Count   int             `json:"count"`
	Records []domain.Record `json:"records"`
}
