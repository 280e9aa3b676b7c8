package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

func TestStore_EnsureUser_Idempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first, err := store.EnsureUser(ctx, "ana@example.com", "Ana")
	require.NoError(t, err)
	second, err := store.EnsureUser(ctx, "ana@example.com", "Someone Else")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ana", second.Name)

	got, err := store.GetUser(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got.Email)
}

func TestStore_EnsureUser_RequiresEmail(t *testing.T) {
	_, err := NewStore().EnsureUser(context.Background(), "", "x")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestStore_GetUser_NotFound(t *testing.T) {
	_, err := NewStore().GetUser(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Notes_OwnerScoped(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.SaveNote(ctx, &domain.Note{ID: "n1", OwnerID: "u1", Text: "old", CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, store.SaveNote(ctx, &domain.Note{ID: "n2", OwnerID: "u1", Text: "new", CreatedAt: now}))
	require.NoError(t, store.SaveNote(ctx, &domain.Note{ID: "n3", OwnerID: "u2", Text: "other", CreatedAt: now}))

	notes, err := store.ListNotes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "n2", notes[0].ID)

	_, err = store.GetNote(ctx, "u1", "n3")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	note, err := store.GetNote(ctx, "u2", "n3")
	require.NoError(t, err)
	assert.Equal(t, "other", note.Text)
}

func TestStore_Tasks_OrderAndCompletion(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now()

	for _, task := range []domain.Task{
		{ID: "t1", OwnerID: "u1", Type: domain.TaskTypeReminder, Title: "undated", CreatedAt: now},
		{ID: "t2", OwnerID: "u1", Type: domain.TaskTypeCalendar, Title: "later", DueDate: "2025-06-03 09:00", CreatedAt: now},
		{ID: "t3", OwnerID: "u1", Type: domain.TaskTypeCalendar, Title: "sooner", DueDate: "2025-06-02 15:00", CreatedAt: now},
		{ID: "t4", OwnerID: "u2", Type: domain.TaskTypeReminder, Title: "foreign", CreatedAt: now},
	} {
		require.NoError(t, store.SaveTask(ctx, &task))
	}

	tasks, err := store.ListTasks(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{"t3", "t2", "t1"}, []string{tasks[0].ID, tasks[1].ID, tasks[2].ID})

	assert.ErrorIs(t, store.CompleteTask(ctx, "u1", "t4", now), domain.ErrNotFound)
	require.NoError(t, store.CompleteTask(ctx, "u1", "t3", now))

	open, err := store.ListTasks(ctx, "u1", false)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	all, err := store.ListTasks(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].Completed)
	require.NotNil(t, all[0].CompletedAt)
	assert.Equal(t, now, *all[0].CompletedAt)
}

func TestStore_DiaryAndRelationships(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now()

	for i, id := range []string{"d1", "d2", "d3"} {
		entry := &domain.DiaryEntry{ID: id, OwnerID: "u1", Content: id, CreatedAt: now.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, store.SaveDiaryEntry(ctx, entry))
	}

	entries, err := store.ListDiaryEntries(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "d3", entries[0].ID)

	all, err := store.ListDiaryEntries(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	rel := domain.IdeaRelationship{ID: "r1", OwnerID: "u1", SourceID: "d3", TargetID: "d1", Type: domain.RelationshipBuildsOn, Strength: 0.8}
	require.NoError(t, store.SaveRelationships(ctx, []domain.IdeaRelationship{rel}))

	bad := rel
	bad.TargetID = bad.SourceID
	assert.ErrorIs(t, store.SaveRelationships(ctx, []domain.IdeaRelationship{bad}), domain.ErrInvalidInput)

	rels, err := store.ListRelationships(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []domain.IdeaRelationship{rel}, rels)

	rels, err = store.ListRelationships(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestStore_InsertEmails_Duplicate(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.InsertEmails(ctx, []domain.Email{{ID: "m1", OwnerID: "u1"}}))

	err := store.InsertEmails(ctx, []domain.Email{{ID: "m2", OwnerID: "u1"}, {ID: "m1", OwnerID: "u1"}})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	// Nothing from the failed batch was stored.
	_, err = store.GetEmail(ctx, "u1", "m2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The same provider ID under another owner is not a duplicate.
	require.NoError(t, store.InsertEmails(ctx, []domain.Email{{ID: "m1", OwnerID: "u2"}}))
}

func TestStore_ExistingEmailIDs(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.InsertEmails(ctx, []domain.Email{{ID: "m1", OwnerID: "u1"}, {ID: "m2", OwnerID: "u2"}}))

	existing, err := store.ExistingEmailIDs(ctx, "u1", []string{"m1", "m2", "m3"})

	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"m1": true}, existing)
}

func TestStore_EmailStats(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now()

	stats, err := store.EmailStats(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Nil(t, stats.LastSync)

	require.NoError(t, store.InsertEmails(ctx, []domain.Email{
		{ID: "m1", OwnerID: "u1", Processed: true, SyncedAt: now.Add(-time.Hour)},
		{ID: "m2", OwnerID: "u1", Processed: false, SyncedAt: now},
	}))

	stats, err = store.EmailStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Unprocessed)
	require.NotNil(t, stats.LastSync)
	assert.Equal(t, now, *stats.LastSync)
}
