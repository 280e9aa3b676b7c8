package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/mindkeep/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// Ensure Store implements the relational store interfaces.
var (
	_ driven.UserStore  = (*Store)(nil)
	_ driven.NoteStore  = (*Store)(nil)
	_ driven.TaskStore  = (*Store)(nil)
	_ driven.IdeaStore  = (*Store)(nil)
	_ driven.EmailStore = (*Store)(nil)
)

// Store is a unified SQLite-based storage for users, notes, tasks, ideas and emails.
// The credentials store and vector index share its connection.
type Store struct {
	db   *sql.DB
	path string

	// timeout bounds each store call. Zero means no bound.
	timeout time.Duration
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.mindkeep/data/mindkeep.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".mindkeep", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "mindkeep.db")

	// WAL mode lets readers proceed while a batch transaction is open.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", domain.ErrStoreUnavailable, err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: running migrations: %w", domain.ErrStoreUnavailable, err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CredentialsStore returns a CredentialsStore backed by this store.
func (s *Store) CredentialsStore() driven.CredentialsStore {
	return &credentialsStore{store: s}
}

// migrate runs all pending migrations, recording each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// unavailable marks a database failure as a store outage.
func unavailable(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %s: %w", domain.ErrUpstreamTimeout, domain.ErrStoreUnavailable, op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}

// SetTimeout bounds every subsequent store call by d.
func (s *Store) SetTimeout(d time.Duration) {
	s.timeout = d
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ==================== User Store ====================

// EnsureUser returns the user with the given email, creating it if needed.
func (s *Store) EnsureUser(ctx context.Context, email, name string) (*domain.User, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if email == "" {
		return nil, fmt.Errorf("%w: email required", domain.ErrInvalidInput)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO NOTHING
	`, uuid.New().String(), email, name, time.Now().UTC())
	if err != nil {
		return nil, unavailable("ensuring user", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, created_at FROM users WHERE email = ?
	`, email)
	return scanUser(row)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, created_at FROM users WHERE id = ?
	`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, unavailable("scanning user", err)
	}
	return &u, nil
}

// ==================== Note Store ====================

// SaveNote stores or updates a note.
func (s *Store) SaveNote(ctx context.Context, note *domain.Note) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if note == nil || note.ID == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, owner_id, text, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text
	`, note.ID, note.OwnerID, note.Text, note.CreatedAt.UTC())
	if err != nil {
		return unavailable("saving note", err)
	}
	return nil
}

// GetNote retrieves one of the owner's notes.
func (s *Store) GetNote(ctx context.Context, ownerID, id string) (*domain.Note, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, text, created_at FROM notes WHERE id = ? AND owner_id = ?
	`, id, ownerID)

	var n domain.Note
	if err := row.Scan(&n.ID, &n.OwnerID, &n.Text, &n.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, unavailable("scanning note", err)
	}
	return &n, nil
}

// ListNotes returns the owner's notes, newest first.
func (s *Store) ListNotes(ctx context.Context, ownerID string) ([]domain.Note, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, text, created_at FROM notes
		WHERE owner_id = ?
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, unavailable("querying notes", err)
	}
	defer rows.Close()

	notes := make([]domain.Note, 0)
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Text, &n.CreatedAt); err != nil {
			return nil, unavailable("scanning note", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating notes", err)
	}
	return notes, nil
}

// ==================== Task Store ====================

// SaveTask stores a task.
func (s *Store) SaveTask(ctx context.Context, task *domain.Task) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if task == nil || task.ID == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, owner_id, note_id, type, title, description, due_date, completed, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			due_date = excluded.due_date,
			completed = excluded.completed,
			completed_at = excluded.completed_at
	`, task.ID, task.OwnerID, task.NoteID, string(task.Type), task.Title, task.Description,
		task.DueDate, boolToInt(task.Completed), nullTime(task.CompletedAt), task.CreatedAt.UTC())
	if err != nil {
		return unavailable("saving task", err)
	}
	return nil
}

// ListTasks returns the owner's tasks ordered by due date.
// Tasks without a due date come last, oldest first.
func (s *Store) ListTasks(ctx context.Context, ownerID string, includeCompleted bool) ([]domain.Task, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	query := `
		SELECT id, owner_id, note_id, type, title, description, due_date, completed, completed_at, created_at
		FROM tasks WHERE owner_id = ?`
	if !includeCompleted {
		query += " AND completed = 0"
	}
	query += " ORDER BY due_date = '', due_date, created_at"

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, unavailable("querying tasks", err)
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		var t domain.Task
		var taskType string
		var completed int
		var completedAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.NoteID, &taskType, &t.Title, &t.Description,
			&t.DueDate, &completed, &completedAt, &t.CreatedAt); err != nil {
			return nil, unavailable("scanning task", err)
		}
		t.Type = domain.TaskType(taskType)
		t.Completed = completed != 0
		if completedAt.Valid {
			at := completedAt.Time
			t.CompletedAt = &at
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating tasks", err)
	}
	return tasks, nil
}

// CompleteTask marks one of the owner's tasks as completed.
func (s *Store) CompleteTask(ctx context.Context, ownerID, id string, at time.Time) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET completed = 1, completed_at = ?
		WHERE id = ? AND owner_id = ?
	`, at.UTC(), id, ownerID)
	if err != nil {
		return unavailable("completing task", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("completing task", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Idea Store ====================

// SaveDiaryEntry stores a diary entry.
func (s *Store) SaveDiaryEntry(ctx context.Context, entry *domain.DiaryEntry) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if entry == nil || entry.ID == "" {
		return domain.ErrInvalidInput
	}
	tags := entry.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshalling tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO diary_entries (id, owner_id, note_id, content, mood, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			mood = excluded.mood,
			tags = excluded.tags
	`, entry.ID, entry.OwnerID, entry.NoteID, entry.Content, entry.Mood, string(tagsJSON), entry.CreatedAt.UTC())
	if err != nil {
		return unavailable("saving diary entry", err)
	}
	return nil
}

// ListDiaryEntries returns the owner's entries, newest first.
func (s *Store) ListDiaryEntries(ctx context.Context, ownerID string, limit int) ([]domain.DiaryEntry, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	query := `
		SELECT id, owner_id, note_id, content, mood, tags, created_at
		FROM diary_entries WHERE owner_id = ?
		ORDER BY created_at DESC`
	args := []any{ownerID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("querying diary entries", err)
	}
	defer rows.Close()

	entries := make([]domain.DiaryEntry, 0)
	for rows.Next() {
		var e domain.DiaryEntry
		var tagsJSON string
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.NoteID, &e.Content, &e.Mood, &tagsJSON, &e.CreatedAt); err != nil {
			return nil, unavailable("scanning diary entry", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &e.Tags); err != nil {
			return nil, fmt.Errorf("unmarshalling tags: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating diary entries", err)
	}
	return entries, nil
}

// SaveRelationships stores relationship edges in one transaction.
func (s *Store) SaveRelationships(ctx context.Context, rels []domain.IdeaRelationship) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	for _, r := range rels {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	if len(rels) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO idea_relationships (id, owner_id, source_id, target_id, type, strength, reasoning, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return unavailable("preparing statement", err)
	}
	defer stmt.Close()

	for _, r := range rels {
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx, id, r.OwnerID, r.SourceID, r.TargetID, string(r.Type),
			r.Strength, r.Reasoning, r.CreatedAt.UTC()); err != nil {
			return unavailable("saving relationship", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("committing transaction", err)
	}
	return nil
}

// ListRelationships returns the owner's relationship edges.
func (s *Store) ListRelationships(ctx context.Context, ownerID string) ([]domain.IdeaRelationship, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, source_id, target_id, type, strength, reasoning, created_at
		FROM idea_relationships WHERE owner_id = ?
		ORDER BY created_at
	`, ownerID)
	if err != nil {
		return nil, unavailable("querying relationships", err)
	}
	defer rows.Close()

	rels := make([]domain.IdeaRelationship, 0)
	for rows.Next() {
		var r domain.IdeaRelationship
		var relType string
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.SourceID, &r.TargetID, &relType,
			&r.Strength, &r.Reasoning, &r.CreatedAt); err != nil {
			return nil, unavailable("scanning relationship", err)
		}
		r.Type = domain.RelationshipType(relType)
		rels = append(rels, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating relationships", err)
	}
	return rels, nil
}

// ==================== Email Store ====================

// ExistingEmailIDs returns the subset of ids already stored for the owner.
func (s *Store) ExistingEmailIDs(ctx context.Context, ownerID string, ids []string) (map[string]bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	existing := make(map[string]bool)
	if len(ids) == 0 {
		return existing, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, ownerID)
	for _, id := range ids {
		args = append(args, id)
	}

	//nolint:gosec // G202: placeholders only, values are bound.
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM emails WHERE owner_id = ? AND id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, unavailable("querying email ids", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("scanning email id", err)
		}
		existing[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating email ids", err)
	}
	return existing, nil
}

// InsertEmails stores a batch of emails in one transaction.
// Nothing is written if any id is already stored for its owner.
func (s *Store) InsertEmails(ctx context.Context, emails []domain.Email) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if len(emails) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	seen := make(map[string]bool, len(emails))
	for _, e := range emails {
		key := e.OwnerID + "/" + e.ID
		if seen[key] {
			return fmt.Errorf("%w: email %s", domain.ErrDuplicate, e.ID)
		}
		seen[key] = true

		var exists int
		err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM emails WHERE owner_id = ? AND id = ?", e.OwnerID, e.ID).Scan(&exists)
		if err != nil {
			return unavailable("checking email", err)
		}
		if exists > 0 {
			return fmt.Errorf("%w: email %s", domain.ErrDuplicate, e.ID)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO emails (owner_id, id, thread_id, subject, sender, snippet, content, received_at, processed, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return unavailable("preparing statement", err)
	}
	defer stmt.Close()

	for _, e := range emails {
		syncedAt := e.SyncedAt
		if syncedAt.IsZero() {
			syncedAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, e.OwnerID, e.ID, e.ThreadID, e.Subject, e.Sender, e.Snippet,
			e.Content, nullTime(&e.ReceivedAt), boolToInt(e.Processed), syncedAt.UTC()); err != nil {
			return unavailable("inserting email", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("committing transaction", err)
	}
	return nil
}

// GetEmail retrieves one of the owner's emails.
func (s *Store) GetEmail(ctx context.Context, ownerID, id string) (*domain.Email, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	row := s.db.QueryRowContext(ctx, `
		SELECT owner_id, id, thread_id, subject, sender, snippet, content, received_at, processed, synced_at
		FROM emails WHERE owner_id = ? AND id = ?
	`, ownerID, id)

	var e domain.Email
	var receivedAt sql.NullTime
	var processed int
	if err := row.Scan(&e.OwnerID, &e.ID, &e.ThreadID, &e.Subject, &e.Sender, &e.Snippet,
		&e.Content, &receivedAt, &processed, &e.SyncedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, unavailable("scanning email", err)
	}
	if receivedAt.Valid {
		e.ReceivedAt = receivedAt.Time
	}
	e.Processed = processed != 0
	return &e, nil
}

// EmailStats summarises the owner's mailbox.
func (s *Store) EmailStats(ctx context.Context, ownerID string) (*domain.EmailStats, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	stats := &domain.EmailStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(processed), 0) FROM emails WHERE owner_id = ?
	`, ownerID).Scan(&stats.Total, &stats.Processed)
	if err != nil {
		return nil, unavailable("counting emails", err)
	}
	stats.Unprocessed = stats.Total - stats.Processed
	if stats.Total == 0 {
		return stats, nil
	}

	var lastSync sql.NullTime
	err = s.db.QueryRowContext(ctx, `
		SELECT synced_at FROM emails WHERE owner_id = ? ORDER BY synced_at DESC LIMIT 1
	`, ownerID).Scan(&lastSync)
	if err != nil {
		return nil, unavailable("reading last sync", err)
	}
	if lastSync.Valid {
		at := lastSync.Time
		stats.LastSync = &at
	}
	return stats, nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullTime stores nil and zero times as NULL.
func nullTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}
