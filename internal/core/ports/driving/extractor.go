package driving

import (
	"context"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

// ExtractorService derives structured data from note text.
// Neither method fails: model errors yield the default result.
type ExtractorService interface {
	// ExtractTasks returns the diary/calendar/reminder plan for a note.
	ExtractTasks(ctx context.Context, noteText string, similar []domain.SimilarNote) domain.TaskExtractionResult

	// FindIdeaRelationships scores a new idea against existing ones.
	FindIdeaRelationships(ctx context.Context, idea domain.Idea, existing []domain.Idea) []domain.IdeaRelationship
}
