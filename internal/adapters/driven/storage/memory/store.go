package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
)

// Ensure Store implements the relational store interfaces.
var (
	_ driven.UserStore  = (*Store)(nil)
	_ driven.NoteStore  = (*Store)(nil)
	_ driven.TaskStore  = (*Store)(nil)
	_ driven.IdeaStore  = (*Store)(nil)
	_ driven.EmailStore = (*Store)(nil)
)

// Store is an in-memory implementation of the relational stores.
// Used in tests and when running without a database file.
type Store struct {
	mu            sync.RWMutex
	users         map[string]domain.User
	notes         map[string]domain.Note
	tasks         map[string]domain.Task
	diary         map[string]domain.DiaryEntry
	relationships []domain.IdeaRelationship
	// emails is keyed by owner then provider message ID.
	emails map[string]map[string]domain.Email
}

// NewStore creates a new in-memory relational store.
func NewStore() *Store {
	return &Store{
		users:  make(map[string]domain.User),
		notes:  make(map[string]domain.Note),
		tasks:  make(map[string]domain.Task),
		diary:  make(map[string]domain.DiaryEntry),
		emails: make(map[string]map[string]domain.Email),
	}
}

// EnsureUser returns the user with the given email, creating it if needed.
func (s *Store) EnsureUser(_ context.Context, email, name string) (*domain.User, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	u := domain.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		CreatedAt: time.Now(),
	}
	s.users[u.ID] = u
	return &u, nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

// SaveNote stores or updates a note.
func (s *Store) SaveNote(_ context.Context, note *domain.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[note.ID] = *note
	return nil
}

// GetNote retrieves one of the owner's notes.
func (s *Store) GetNote(_ context.Context, ownerID, id string) (*domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok || n.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return &n, nil
}

// ListNotes returns the owner's notes, newest first.
func (s *Store) ListNotes(_ context.Context, ownerID string) ([]domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Note, 0)
	for _, n := range s.notes {
		if n.OwnerID == ownerID {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// SaveTask stores a task.
func (s *Store) SaveTask(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = *task
	return nil
}

// ListTasks returns the owner's tasks ordered by due date.
// Tasks without a due date come last, oldest first.
func (s *Store) ListTasks(_ context.Context, ownerID string, includeCompleted bool) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Task, 0)
	for _, t := range s.tasks {
		if t.OwnerID != ownerID {
			continue
		}
		if t.Completed && !includeCompleted {
			continue
		}
		result = append(result, t)
	}
	SortTasks(result)
	return result, nil
}

// SortTasks orders tasks by due date with undated tasks last.
func SortTasks(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch {
		case a.DueDate == "" && b.DueDate != "":
			return false
		case a.DueDate != "" && b.DueDate == "":
			return true
		case a.DueDate != b.DueDate:
			return a.DueDate < b.DueDate
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}

// CompleteTask marks one of the owner's tasks as completed.
func (s *Store) CompleteTask(_ context.Context, ownerID, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	t.Completed = true
	t.CompletedAt = &at
	s.tasks[id] = t
	return nil
}

// SaveDiaryEntry stores a diary entry.
func (s *Store) SaveDiaryEntry(_ context.Context, entry *domain.DiaryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diary[entry.ID] = *entry
	return nil
}

// ListDiaryEntries returns the owner's entries, newest first.
func (s *Store) ListDiaryEntries(_ context.Context, ownerID string, limit int) ([]domain.DiaryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.DiaryEntry, 0)
	for _, e := range s.diary {
		if e.OwnerID == ownerID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// SaveRelationships stores relationship edges.
func (s *Store) SaveRelationships(_ context.Context, rels []domain.IdeaRelationship) error {
	for _, r := range rels {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relationships = append(s.relationships, rels...)
	return nil
}

// ListRelationships returns the owner's relationship edges.
func (s *Store) ListRelationships(_ context.Context, ownerID string) ([]domain.IdeaRelationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.IdeaRelationship, 0)
	for _, r := range s.relationships {
		if r.OwnerID == ownerID {
			result = append(result, r)
		}
	}
	return result, nil
}

// ExistingEmailIDs returns the subset of ids already stored for the owner.
func (s *Store) ExistingEmailIDs(_ context.Context, ownerID string, ids []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	existing := make(map[string]bool)
	mailbox := s.emails[ownerID]
	for _, id := range ids {
		if _, ok := mailbox[id]; ok {
			existing[id] = true
		}
	}
	return existing, nil
}

// InsertEmails stores a batch of emails atomically.
func (s *Store) InsertEmails(_ context.Context, emails []domain.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(emails))
	for _, e := range emails {
		key := e.OwnerID + "/" + e.ID
		if _, ok := s.emails[e.OwnerID][e.ID]; ok || seen[key] {
			return fmt.Errorf("%w: email %s", domain.ErrDuplicate, e.ID)
		}
		seen[key] = true
	}

	for _, e := range emails {
		mailbox, ok := s.emails[e.OwnerID]
		if !ok {
			mailbox = make(map[string]domain.Email)
			s.emails[e.OwnerID] = mailbox
		}
		mailbox[e.ID] = e
	}
	return nil
}

// GetEmail retrieves one of the owner's emails.
func (s *Store) GetEmail(_ context.Context, ownerID, id string) (*domain.Email, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.emails[ownerID][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

// EmailStats summarises the owner's mailbox.
func (s *Store) EmailStats(_ context.Context, ownerID string) (*domain.EmailStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &domain.EmailStats{}
	for _, e := range s.emails[ownerID] {
		stats.Total++
		if e.Processed {
			stats.Processed++
		}
		if stats.LastSync == nil || e.SyncedAt.After(*stats.LastSync) {
			synced := e.SyncedAt
			stats.LastSync = &synced
		}
	}
	stats.Unprocessed = stats.Total - stats.Processed
	return stats, nil
}
