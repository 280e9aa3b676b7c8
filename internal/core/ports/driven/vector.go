package driven

import (
	"context"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

// VectorIndex stores chunk embeddings and answers top-k similarity queries.
// Failures are reported as domain.ErrVectorIndexUnavailable.
type VectorIndex interface {
	// Upsert inserts or replaces records by ID.
	Upsert(ctx context.Context, records []domain.EmbeddingRecord) error

	// Query returns at most topK records matching filter, ordered by
	// descending cosine similarity.
	Query(ctx context.Context, vector []float32, topK int, filter domain.VectorFilter) ([]domain.VectorMatch, error)

	// DeleteAll removes every record.
	DeleteAll(ctx context.Context) error

	// Stats reports the size of the index.
	Stats(ctx context.Context) (domain.IndexStats, error)

	// Close releases resources.
	Close() error
}
