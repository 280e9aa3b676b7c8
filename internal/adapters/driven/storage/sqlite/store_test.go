package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func testEmail(owner, id string) domain.Email {
	return domain.Email{
		ID:         id,
		OwnerID:    owner,
		ThreadID:   "t-" + id,
		Subject:    "Subject " + id,
		Sender:     "alice@example.com",
		Content:    "Body of " + id,
		ReceivedAt: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		SyncedAt:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

// ==================== Store Creation ====================

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "mindkeep.db"), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestStore_TimeoutIsUpstreamTimeout(t *testing.T) {
	store := setupTestStore(t)
	store.SetTimeout(time.Nanosecond)

	_, err := store.EnsureUser(context.Background(), "slow@example.com", "")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
}

func TestStore_NoTimeoutByDefault(t *testing.T) {
	store := setupTestStore(t)

	user, err := store.EnsureUser(context.Background(), "fast@example.com", "")

	require.NoError(t, err)
	assert.Equal(t, "fast@example.com", user.Email)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	user, err := store.EnsureUser(ctx, "me@example.com", "Me")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", got.Email)

	var versions int
	require.NoError(t, reopened.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 1, versions)
}

// ==================== Users ====================

func TestEnsureUser_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first, err := store.EnsureUser(ctx, "me@example.com", "Me")
	require.NoError(t, err)
	second, err := store.EnsureUser(ctx, "me@example.com", "Other Name")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Me", second.Name)
}

func TestEnsureUser_RequiresEmail(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.EnsureUser(context.Background(), "", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetUser_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ==================== Notes ====================

func TestNotes_OwnerScoped(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveNote(ctx, &domain.Note{ID: "n1", OwnerID: "u1", Text: "first", CreatedAt: base}))
	require.NoError(t, store.SaveNote(ctx, &domain.Note{ID: "n2", OwnerID: "u1", Text: "second", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, store.SaveNote(ctx, &domain.Note{ID: "n3", OwnerID: "u2", Text: "other", CreatedAt: base}))

	notes, err := store.ListNotes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "n2", notes[0].ID)
	assert.Equal(t, "n1", notes[1].ID)

	note, err := store.GetNote(ctx, "u1", "n1")
	require.NoError(t, err)
	assert.Equal(t, "first", note.Text)
	assert.True(t, base.Equal(note.CreatedAt))

	_, err = store.GetNote(ctx, "u2", "n1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ==================== Tasks ====================

func TestTasks_OrderAndCompletion(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	tasks := []domain.Task{
		{ID: "undated", OwnerID: "u1", Type: domain.TaskTypeReminder, Title: "Reminder", CreatedAt: created},
		{ID: "late", OwnerID: "u1", Type: domain.TaskTypeCalendar, Title: "Late", DueDate: "2025-06-10 09:00", CreatedAt: created},
		{ID: "early", OwnerID: "u1", Type: domain.TaskTypeCalendar, Title: "Early", DueDate: "2025-06-02 09:00", CreatedAt: created},
		{ID: "other", OwnerID: "u2", Type: domain.TaskTypeReminder, Title: "Other", CreatedAt: created},
	}
	for i := range tasks {
		require.NoError(t, store.SaveTask(ctx, &tasks[i]))
	}

	listed, err := store.ListTasks(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "early", listed[0].ID)
	assert.Equal(t, "late", listed[1].ID)
	assert.Equal(t, "undated", listed[2].ID)

	at := created.Add(2 * time.Hour)
	require.NoError(t, store.CompleteTask(ctx, "u1", "early", at))

	open, err := store.ListTasks(ctx, "u1", false)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	all, err := store.ListTasks(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].Completed)
	require.NotNil(t, all[0].CompletedAt)
	assert.True(t, at.Equal(*all[0].CompletedAt))
}

func TestCompleteTask_OtherOwnerIsNotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveTask(ctx, &domain.Task{
		ID: "t1", OwnerID: "u1", Type: domain.TaskTypeReminder, Title: "x", CreatedAt: time.Now(),
	}))

	err := store.CompleteTask(ctx, "u2", "t1", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.CompleteTask(ctx, "u1", "missing", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ==================== Ideas ====================

func TestDiaryEntries_NewestFirstWithLimit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"d1", "d2", "d3"} {
		require.NoError(t, store.SaveDiaryEntry(ctx, &domain.DiaryEntry{
			ID: id, OwnerID: "u1", Content: "entry " + id, Mood: "calm",
			Tags: []string{"tag-" + id}, CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	entries, err := store.ListDiaryEntries(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "d3", entries[0].ID)
	assert.Equal(t, []string{"tag-d3"}, entries[0].Tags)

	all, err := store.ListDiaryEntries(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRelationships_ValidatedAndOwnerScoped(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.SaveRelationships(ctx, []domain.IdeaRelationship{
		{OwnerID: "u1", SourceID: "a", TargetID: "b", Type: domain.RelationshipBuildsOn, Strength: 0.8, Reasoning: "extends"},
		{OwnerID: "u2", SourceID: "c", TargetID: "d", Type: domain.RelationshipSimilar, Strength: 0.5},
	})
	require.NoError(t, err)

	rels, err := store.ListRelationships(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.NotEmpty(t, rels[0].ID)
	assert.Equal(t, domain.RelationshipBuildsOn, rels[0].Type)
	assert.InDelta(t, 0.8, rels[0].Strength, 1e-9)

	err = store.SaveRelationships(ctx, []domain.IdeaRelationship{
		{OwnerID: "u1", SourceID: "a", TargetID: "a", Type: domain.RelationshipSimilar, Strength: 0.5},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ==================== Emails ====================

func TestInsertEmails_AndExistingIDs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertEmails(ctx, []domain.Email{testEmail("u1", "m1"), testEmail("u1", "m2")}))

	existing, err := store.ExistingEmailIDs(ctx, "u1", []string{"m1", "m2", "m3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"m1": true, "m2": true}, existing)

	other, err := store.ExistingEmailIDs(ctx, "u2", []string{"m1"})
	require.NoError(t, err)
	assert.Empty(t, other)

	email, err := store.GetEmail(ctx, "u1", "m1")
	require.NoError(t, err)
	assert.Equal(t, "Subject m1", email.Subject)
	assert.Equal(t, "t-m1", email.ThreadID)
	assert.False(t, email.Processed)
}

func TestInsertEmails_DuplicateRollsBackBatch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.InsertEmails(ctx, []domain.Email{testEmail("u1", "m1")}))

	err := store.InsertEmails(ctx, []domain.Email{testEmail("u1", "m2"), testEmail("u1", "m1")})
	require.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = store.GetEmail(ctx, "u1", "m2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The same provider id under another owner is not a duplicate.
	require.NoError(t, store.InsertEmails(ctx, []domain.Email{testEmail("u2", "m1")}))
}

func TestEmailStats(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	stats, err := store.EmailStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.Nil(t, stats.LastSync)

	processed := testEmail("u1", "m1")
	processed.Processed = true
	later := testEmail("u1", "m2")
	later.SyncedAt = later.SyncedAt.Add(time.Hour)
	require.NoError(t, store.InsertEmails(ctx, []domain.Email{processed, later}))

	stats, err = store.EmailStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Unprocessed)
	require.NotNil(t, stats.LastSync)
	assert.True(t, later.SyncedAt.Equal(*stats.LastSync))
}

// ==================== Credentials ====================

func TestCredentialsStore_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	creds := store.CredentialsStore()
	ctx := context.Background()
	key := domain.CredentialKey{UserID: "u1", Provider: domain.CredentialProviderGmail}
	expiry := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)

	_, err := creds.Get(ctx, key)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, creds.Save(ctx, domain.Credentials{
		UserID: "u1", Provider: domain.CredentialProviderGmail, AccountIdentifier: "me@gmail.com",
		OAuth:     &domain.OAuthCredentials{AccessToken: "a1", RefreshToken: "r1", TokenType: "Bearer", Expiry: expiry},
		CreatedAt: expiry, UpdatedAt: expiry,
	}))
	require.NoError(t, creds.Save(ctx, domain.Credentials{
		UserID: "u1", Provider: domain.CredentialProviderGmail, AccountIdentifier: "me@gmail.com",
		OAuth:     &domain.OAuthCredentials{AccessToken: "a2", RefreshToken: "r1", TokenType: "Bearer", Expiry: expiry},
		CreatedAt: expiry, UpdatedAt: expiry.Add(time.Minute),
	}))

	got, err := creds.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got.OAuth)
	assert.Equal(t, "a2", got.OAuth.AccessToken)
	assert.Equal(t, "r1", got.OAuth.RefreshToken)
	assert.True(t, expiry.Equal(got.OAuth.Expiry))
	assert.Equal(t, "me@gmail.com", got.AccountIdentifier)

	require.NoError(t, creds.Delete(ctx, key))
	_, err = creds.Get(ctx, key)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCredentialsStore_RequiresKey(t *testing.T) {
	store := setupTestStore(t)

	err := store.CredentialsStore().Save(context.Background(), domain.Credentials{UserID: "u1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_ConcurrentInserts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 5 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			assert.NoError(t, store.InsertEmails(ctx, []domain.Email{testEmail("u1", id)}))
		}(i)
	}
	wg.Wait()

	stats, err := store.EmailStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
}
