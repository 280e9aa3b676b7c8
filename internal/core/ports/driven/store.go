package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

// UserStore persists users.
type UserStore interface {
	// EnsureUser returns the user with the given email, creating it if needed.
	EnsureUser(ctx context.Context, email, name string) (*domain.User, error)

	// GetUser retrieves a user by ID.
	// Returns domain.ErrNotFound if absent.
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// NoteStore persists notes. All reads are owner-scoped.
type NoteStore interface {
	// SaveNote stores or updates a note.
	SaveNote(ctx context.Context, note *domain.Note) error

	// GetNote retrieves one of the owner's notes.
	// Returns domain.ErrNotFound if absent or owned by someone else.
	GetNote(ctx context.Context, ownerID, id string) (*domain.Note, error)

	// ListNotes returns the owner's notes, newest first.
	ListNotes(ctx context.Context, ownerID string) ([]domain.Note, error)
}

// TaskStore persists calendar and reminder tasks.
type TaskStore interface {
	// SaveTask stores a task.
	SaveTask(ctx context.Context, task *domain.Task) error

	// ListTasks returns the owner's tasks ordered by due date.
	ListTasks(ctx context.Context, ownerID string, includeCompleted bool) ([]domain.Task, error)

	// CompleteTask marks one of the owner's tasks as completed.
	// Returns domain.ErrNotFound if absent or owned by someone else.
	CompleteTask(ctx context.Context, ownerID, id string, at time.Time) error
}

// IdeaStore persists diary entries and the relationships between them.
type IdeaStore interface {
	// SaveDiaryEntry stores a diary entry.
	SaveDiaryEntry(ctx context.Context, entry *domain.DiaryEntry) error

	// ListDiaryEntries returns the owner's entries, newest first.
	// A limit of zero returns all entries.
	ListDiaryEntries(ctx context.Context, ownerID string, limit int) ([]domain.DiaryEntry, error)

	// SaveRelationships stores relationship edges.
	SaveRelationships(ctx context.Context, rels []domain.IdeaRelationship) error

	// ListRelationships returns the owner's relationship edges.
	ListRelationships(ctx context.Context, ownerID string) ([]domain.IdeaRelationship, error)
}

// EmailStore persists synced emails. All operations are owner-scoped.
type EmailStore interface {
	// ExistingEmailIDs returns the subset of ids already stored for the owner.
	ExistingEmailIDs(ctx context.Context, ownerID string, ids []string) (map[string]bool, error)

	// InsertEmails stores a batch of emails in one transaction.
	// Returns an error wrapping domain.ErrDuplicate if any id is already stored.
	InsertEmails(ctx context.Context, emails []domain.Email) error

	// GetEmail retrieves one of the owner's emails.
	GetEmail(ctx context.Context, ownerID, id string) (*domain.Email, error)

	// EmailStats summarises the owner's mailbox.
	EmailStats(ctx context.Context, ownerID string) (*domain.EmailStats, error)
}
