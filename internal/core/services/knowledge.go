package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driving"
	"github.com/custodia-labs/mindkeep/internal/logger"
)

// Ensure the knowledge services implement their interfaces.
var (
	_ driving.UserService  = (*UserService)(nil)
	_ driving.TaskService  = (*TaskService)(nil)
	_ driving.IdeaService  = (*IdeaService)(nil)
	_ driving.NoteService  = (*NoteService)(nil)
	_ driving.IndexService = (*IndexService)(nil)
)

// UserService resolves users by email.
type UserService struct {
	store driven.UserStore
}

// NewUserService creates a user service.
func NewUserService(store driven.UserStore) *UserService {
	return &UserService{store: store}
}

// EnsureUser returns the user with email, creating it if needed.
func (s *UserService) EnsureUser(ctx context.Context, email, name string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	return s.store.EnsureUser(ctx, email, strings.TrimSpace(name))
}

// TaskService lists and completes calendar and reminder tasks.
type TaskService struct {
	store driven.TaskStore
	now   func() time.Time
}

// NewTaskService creates a task service.
func NewTaskService(store driven.TaskStore) *TaskService {
	return &TaskService{store: store, now: time.Now}
}

// ListTasks returns the owner's tasks.
func (s *TaskService) ListTasks(ctx context.Context, ownerID string, includeCompleted bool) ([]domain.Task, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	return s.store.ListTasks(ctx, ownerID, includeCompleted)
}

// CompleteTask marks one of the owner's tasks as done.
func (s *TaskService) CompleteTask(ctx context.Context, ownerID, taskID string) error {
	if ownerID == "" || taskID == "" {
		return fmt.Errorf("%w: owner and task id are required", domain.ErrInvalidInput)
	}
	return s.store.CompleteTask(ctx, ownerID, taskID, s.now())
}

// IdeaService exposes the idea graph.
type IdeaService struct {
	store driven.IdeaStore
}

// NewIdeaService creates an idea service.
func NewIdeaService(store driven.IdeaStore) *IdeaService {
	return &IdeaService{store: store}
}

// IdeaGraph returns the owner's diary entries as nodes and their relationships as edges.
// Edges whose endpoints are not both present are left out.
func (s *IdeaService) IdeaGraph(ctx context.Context, ownerID string) (*domain.IdeaGraph, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	nodes, err := s.store.ListDiaryEntries(ctx, ownerID, 0)
	if err != nil {
		return nil, fmt.Errorf("list diary entries: %w", err)
	}
	rels, err := s.store.ListRelationships(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}

	ids := lo.SliceToMap(nodes, func(n domain.DiaryEntry) (string, bool) {
		return n.ID, true
	})
	edges := lo.Filter(rels, func(r domain.IdeaRelationship, _ int) bool {
		return ids[r.SourceID] && ids[r.TargetID]
	})
	return &domain.IdeaGraph{Nodes: nodes, Edges: edges}, nil
}

// IndexService exposes maintenance of the vector index.
type IndexService struct {
	index driven.VectorIndex
}

// NewIndexService creates an index service.
func NewIndexService(index driven.VectorIndex) *IndexService {
	return &IndexService{index: index}
}

// Stats reports the size of the index.
func (s *IndexService) Stats(ctx context.Context) (domain.IndexStats, error) {
	if s.index == nil {
		return domain.IndexStats{}, domain.ErrVectorIndexUnavailable
	}
	return s.index.Stats(ctx)
}

// Reset removes every vector from the index.
func (s *IndexService) Reset(ctx context.Context) error {
	if s.index == nil {
		return domain.ErrVectorIndexUnavailable
	}
	if err := s.index.DeleteAll(ctx); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	logger.Info("Vector index cleared")
	return nil
}

// NoteService finds notes related by embedding similarity.
type NoteService struct {
	notes    driven.NoteStore
	embedder driven.EmbeddingService
	index    driven.VectorIndex
}

// NewNoteService creates a note service.
func NewNoteService(notes driven.NoteStore, embedder driven.EmbeddingService, index driven.VectorIndex) *NoteService {
	return &NoteService{notes: notes, embedder: embedder, index: index}
}

// SimilarNotes returns up to limit notes similar to noteID, excluding the note itself.
func (s *NoteService) SimilarNotes(ctx context.Context, ownerID, noteID string, limit int) ([]domain.SimilarNote, error) {
	if ownerID == "" || noteID == "" {
		return nil, fmt.Errorf("%w: owner and note id are required", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = MaxSimilarNotes
	}
	note, err := s.notes.GetNote(ctx, ownerID, noteID)
	if err != nil {
		return nil, err
	}
	return findSimilarNotes(ctx, s.embedder, s.index, s.notes, ownerID, note.Text, noteID, limit)
}

// similarNotesOversample widens the vector query since one note may own several chunks.
const similarNotesOversample = 4

// findSimilarNotes embeds text and returns the owner's closest notes, one entry per note.
func findSimilarNotes(
	ctx context.Context,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	notes driven.NoteStore,
	ownerID, text, excludeID string,
	limit int,
) ([]domain.SimilarNote, error) {
	if embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}

	vector, err := embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed note: %w", err)
	}
	matches, err := index.Query(ctx, vector, limit*similarNotesOversample, domain.VectorFilter{
		OwnerID: ownerID,
		Type:    domain.RecordTypeNoteChunk,
	})
	if err != nil {
		return nil, fmt.Errorf("query similar notes: %w", err)
	}

	matches = lo.Filter(matches, func(m domain.VectorMatch, _ int) bool {
		id := domain.MetaString(m.Metadata, domain.MetaDocumentID)
		return id != "" && id != excludeID
	})
	// Matches arrive best first, so the first chunk seen per note carries its best score.
	matches = lo.UniqBy(matches, func(m domain.VectorMatch) string {
		return domain.MetaString(m.Metadata, domain.MetaDocumentID)
	})
	matches = lo.Slice(matches, 0, limit)

	result := make([]domain.SimilarNote, 0, len(matches))
	for _, m := range matches {
		id := domain.MetaString(m.Metadata, domain.MetaDocumentID)
		similar := domain.SimilarNote{NoteID: id, Score: m.Score, Text: domain.MetaString(m.Metadata, domain.MetaText)}
		if notes != nil {
			if n, err := notes.GetNote(ctx, ownerID, id); err == nil {
				similar.Text = n.Text
			} else {
				logger.Debug("similar note %s for user %s not loaded: %v", id, ownerID, err)
			}
		}
		result = append(result, similar)
	}
	return result, nil
}
