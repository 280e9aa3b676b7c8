package driving

import (
	"context"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

// IngestService drives documents through cleaning, chunking, embedding and persistence.
type IngestService interface {
	// IngestNote stores a note, indexes it and creates the artifacts extraction asks for.
	IngestNote(ctx context.Context, ownerID, text string) (*domain.NoteIngestResult, error)

	// IngestEmailBatch deduplicates, indexes and stores emails batch by batch.
	// Per-email and per-batch failures are reported in the result, not as an error.
	IngestEmailBatch(ctx context.Context, ownerID string, emails []domain.Email) (*domain.EmailBatchResult, error)
}
