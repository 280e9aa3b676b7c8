package driven

import (
	"context"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

// PostProcessor turns a cleaned document into chunks.
// Chunking strategies are PostProcessors selected by name.
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and returns chunks.
	// A chunker receives nil chunks and returns new ones.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline cleans a document and runs it through the chunkers.
type PostProcessorPipeline interface {
	// Clean returns a copy of doc with the body cleaned for its kind.
	Clean(doc domain.Document) domain.Document

	// Process returns the final chunks for an already cleaned doc.
	// Empty or whitespace-only bodies yield no chunks and no error.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
