package driving

import (
	"context"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

// QAService answers questions over the indexed corpus.
type QAService interface {
	// Ask retrieves context for the question and composes a grounded answer.
	// The returned Answer is always well-formed. An error is returned only
	// for invalid input.
	Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error)

	// SearchEmails returns the owner's email chunks most similar to query.
	SearchEmails(ctx context.Context, ownerID, query string, limit int) ([]domain.ContextItem, error)
}
