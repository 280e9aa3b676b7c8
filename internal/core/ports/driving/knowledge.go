package driving

import (
	"context"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

// UserService manages users.
type UserService interface {
	// EnsureUser returns the user with email, creating it if needed.
	EnsureUser(ctx context.Context, email, name string) (*domain.User, error)
}

// TaskService manages extracted calendar and reminder tasks.
type TaskService interface {
	// ListTasks returns the owner's tasks.
	ListTasks(ctx context.Context, ownerID string, includeCompleted bool) ([]domain.Task, error)

	// CompleteTask marks a task done. Returns domain.ErrNotFound for
	// tasks the owner does not have.
	CompleteTask(ctx context.Context, ownerID, taskID string) error
}

// IdeaService exposes the idea graph.
type IdeaService interface {
	// IdeaGraph returns the owner's diary entries and relationships.
	IdeaGraph(ctx context.Context, ownerID string) (*domain.IdeaGraph, error)
}

// NoteService exposes note lookups.
type NoteService interface {
	// SimilarNotes returns up to limit notes similar to noteID, excluding itself.
	SimilarNotes(ctx context.Context, ownerID, noteID string, limit int) ([]domain.SimilarNote, error)
}

// AccountService connects external accounts to users.
type AccountService interface {
	// ConnectGmail exchanges an authorization code, creates the user for the
	// mailbox address and stores the tokens for it.
	ConnectGmail(ctx context.Context, code string, req domain.AuthorizationRequest) (*domain.User, error)
}

// IndexService inspects and clears the vector index.
type IndexService interface {
	// Stats reports the number of stored vectors and their dimensions.
	Stats(ctx context.Context) (domain.IndexStats, error)

	// Reset removes every vector. Stored notes and emails are kept.
	Reset(ctx context.Context) error
}
