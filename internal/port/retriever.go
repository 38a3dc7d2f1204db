package port

import (
	"context"

	"ragsearch/internal/domain"
)

// Retriever is the capability every adapter kind implements.
type Retriever interface {
	// Connect opens the underlying handle. Calling it while connected is a no-op.
	Connect(ctx context.Context) error

	// Query runs req against the backend, connecting first if needed.
	Query(ctx context.Context, req domain.Request) ([]domain.Record, error)

	// Close releases the handle. A later Query reconnects.
	Close() error
}
