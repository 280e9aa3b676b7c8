package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driving"
	"github.com/custodia-labs/mindkeep/internal/logger"
)

// Ensure IngestionOrchestrator implements the interface.
var _ driving.IngestService = (*IngestionOrchestrator)(nil)

// Ingestion defaults.
const (
	DefaultEmailBatchSize   = 10
	DefaultEmbedConcurrency = 4
)

// Stores groups the relational stores used by ingestion.
type Stores struct {
	Notes  driven.NoteStore
	Tasks  driven.TaskStore
	Ideas  driven.IdeaStore
	Emails driven.EmailStore
}

// IngestionOrchestrator drives notes and emails through chunking, embedding,
// indexing and persistence.
type IngestionOrchestrator struct {
	stores       Stores
	embedder     driven.EmbeddingService
	index        driven.VectorIndex
	extractor    driving.ExtractorService
	noteChunker  driven.PostProcessorPipeline
	emailChunker driven.PostProcessorPipeline

	batchSize        int
	embedConcurrency int
	now              func() time.Time
}

// IngestOption configures an IngestionOrchestrator.
type IngestOption func(*IngestionOrchestrator)

// WithNoteChunker sets the pipeline used to chunk notes.
func WithNoteChunker(p driven.PostProcessorPipeline) IngestOption {
	return func(o *IngestionOrchestrator) {
		o.noteChunker = p
	}
}

// WithEmailChunker sets the pipeline used to chunk emails.
func WithEmailChunker(p driven.PostProcessorPipeline) IngestOption {
	return func(o *IngestionOrchestrator) {
		o.emailChunker = p
	}
}

// WithBatchSize sets how many emails are persisted per transaction.
func WithBatchSize(n int) IngestOption {
	return func(o *IngestionOrchestrator) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithEmbedConcurrency bounds parallel chunk embedding within one document.
func WithEmbedConcurrency(n int) IngestOption {
	return func(o *IngestionOrchestrator) {
		if n > 0 {
			o.embedConcurrency = n
		}
	}
}

// WithIngestClock overrides the clock used for timestamps.
func WithIngestClock(now func() time.Time) IngestOption {
	return func(o *IngestionOrchestrator) {
		o.now = now
	}
}

// NewIngestionOrchestrator creates an orchestrator.
// Document kinds without a chunker are reported as failed at the chunked stage.
func NewIngestionOrchestrator(
	stores Stores,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	extractor driving.ExtractorService,
	opts ...IngestOption,
) *IngestionOrchestrator {
	o := &IngestionOrchestrator{
		stores:           stores,
		embedder:         embedder,
		index:            index,
		extractor:        extractor,
		batchSize:        DefaultEmailBatchSize,
		embedConcurrency: DefaultEmbedConcurrency,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// IngestNote stores a note, indexes it, and creates the artifacts the extractor asks for.
// Each artifact is created independently; failures are reported in the result.
func (o *IngestionOrchestrator) IngestNote(ctx context.Context, ownerID, text string) (*domain.NoteIngestResult, error) {
	logger.Section("Ingest Note")

	text = strings.TrimSpace(text)
	if ownerID == "" || text == "" {
		return nil, fmt.Errorf("%w: owner and note text are required", domain.ErrInvalidInput)
	}

	note := domain.Note{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Text:      text,
		CreatedAt: o.now(),
	}
	if err := o.stores.Notes.SaveNote(ctx, &note); err != nil {
		return nil, fmt.Errorf("save note: %w", err)
	}
	logger.Debug("Saved note %s for user %s", note.ID, ownerID)

	result := &domain.NoteIngestResult{
		NoteID:           note.ID,
		CreatedArtifacts: []string{},
		Relationships:    []domain.IdeaRelationship{},
	}

	// Similar notes are looked up before the new note is indexed so it cannot match itself.
	similar, err := findSimilarNotes(ctx, o.embedder, o.index, o.stores.Notes, ownerID, text, note.ID, MaxSimilarNotes)
	if err != nil {
		logger.Warn("similar notes for note %s (user %s) unavailable: %v", note.ID, ownerID, err)
	}

	outcome := o.indexDocument(ctx, note.Document(), o.noteChunker)
	if outcome.State == domain.StateFailed {
		logger.Error("note %s (user %s) not indexed at %s: %s", note.ID, ownerID, outcome.FailedAt, outcome.Err)
		result.Failures = append(result.Failures, domain.UnitFailure{
			Unit: "note_index", Stage: outcome.FailedAt, Err: outcome.Err,
		})
	}

	if o.extractor == nil {
		result.Extraction = domain.DefaultTaskExtraction()
		return result, nil
	}
	result.Extraction = o.extractor.ExtractTasks(ctx, text, similar)
	extraction := result.Extraction

	if extraction.Calendar.ShouldCreate {
		task := o.newTask(note, domain.TaskTypeCalendar, extraction.Calendar.Title,
			extraction.Calendar.Description, extraction.Calendar.DueDate, domain.DefaultCalendarTitle)
		createArtifact(result, domain.ArtifactCalendarTask, func() error {
			return o.stores.Tasks.SaveTask(ctx, &task)
		})
	}

	if extraction.Reminder.ShouldCreate {
		task := o.newTask(note, domain.TaskTypeReminder, extraction.Reminder.Title,
			extraction.Reminder.Description, extraction.Reminder.DueDate, domain.DefaultReminderTitle)
		createArtifact(result, domain.ArtifactReminderTask, func() error {
			return o.stores.Tasks.SaveTask(ctx, &task)
		})
	}

	if extraction.Diary.ShouldLog {
		entry := domain.DiaryEntry{
			ID:        uuid.New().String(),
			OwnerID:   ownerID,
			NoteID:    note.ID,
			Content:   lo.Ternary(strings.TrimSpace(extraction.Diary.Content) != "", extraction.Diary.Content, text),
			Mood:      extraction.Diary.Mood,
			Tags:      lo.Uniq(extraction.Diary.Tags),
			CreatedAt: o.now(),
		}
		created := createArtifact(result, domain.ArtifactDiaryEntry, func() error {
			return o.stores.Ideas.SaveDiaryEntry(ctx, &entry)
		})
		if created {
			o.linkIdea(ctx, result, entry)
		}
	}

	logger.Info("Note %s ingested: artifacts=%v failures=%d", note.ID, result.CreatedArtifacts, len(result.Failures))
	return result, nil
}

func (o *IngestionOrchestrator) newTask(
	note domain.Note, taskType domain.TaskType, title, description, dueDate, defaultTitle string,
) domain.Task {
	return domain.Task{
		ID:          uuid.New().String(),
		OwnerID:     note.OwnerID,
		NoteID:      note.ID,
		Type:        taskType,
		Title:       lo.Ternary(strings.TrimSpace(title) != "", strings.TrimSpace(title), defaultTitle),
		Description: description,
		DueDate:     domain.NormaliseDueDate(dueDate),
		CreatedAt:   o.now(),
	}
}

// createArtifact runs create and records the outcome under label.
func createArtifact(result *domain.NoteIngestResult, label string, create func() error) bool {
	if err := create(); err != nil {
		logger.Error("note %s: create %s failed: %v", result.NoteID, label, err)
		result.Failures = append(result.Failures, domain.UnitFailure{
			Unit: label, Stage: domain.StatePersisted, Err: err.Error(),
		})
		return false
	}
	result.CreatedArtifacts = append(result.CreatedArtifacts, label)
	return true
}

// linkIdea scores a new diary entry against the owner's previous entries
// and stores the relationships that clear the threshold.
func (o *IngestionOrchestrator) linkIdea(ctx context.Context, result *domain.NoteIngestResult, entry domain.DiaryEntry) {
	previous, err := o.stores.Ideas.ListDiaryEntries(ctx, entry.OwnerID, domain.MaxIdeasCompared+1)
	if err != nil {
		logger.Error("note %s: list ideas for user %s failed: %v", result.NoteID, entry.OwnerID, err)
		result.Failures = append(result.Failures, domain.UnitFailure{
			Unit: domain.ArtifactRelationships, Stage: domain.StateReceived, Err: err.Error(),
		})
		return
	}

	existing := lo.FilterMap(previous, func(e domain.DiaryEntry, _ int) (domain.Idea, bool) {
		return domain.Idea{ID: e.ID, Content: e.Content}, e.ID != entry.ID
	})
	rels := o.extractor.FindIdeaRelationships(ctx, domain.Idea{ID: entry.ID, Content: entry.Content}, existing)
	if len(rels) == 0 {
		return
	}

	for i := range rels {
		rels[i].ID = uuid.New().String()
		rels[i].OwnerID = entry.OwnerID
		rels[i].CreatedAt = o.now()
	}
	if createArtifact(result, domain.ArtifactRelationships, func() error {
		return o.stores.Ideas.SaveRelationships(ctx, rels)
	}) {
		result.Relationships = rels
	}
}

// IngestEmailBatch deduplicates emails against the owner's mailbox, indexes the new
// ones and persists them batch by batch. One failing email or batch never aborts the rest.
func (o *IngestionOrchestrator) IngestEmailBatch(
	ctx context.Context, ownerID string, emails []domain.Email,
) (*domain.EmailBatchResult, error) {
	logger.Section("Ingest Emails")

	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	result := &domain.EmailBatchResult{
		Outcomes: []domain.DocumentOutcome{},
		Errors:   []string{},
	}
	if len(emails) == 0 {
		return result, nil
	}

	valid := make([]domain.Email, 0, len(emails))
	for _, e := range emails {
		if e.ID == "" {
			result.FailedCount++
			result.Errors = append(result.Errors, "email without id rejected")
			continue
		}
		e.OwnerID = ownerID
		valid = append(valid, e)
	}

	ids := lo.Uniq(lo.Map(valid, func(e domain.Email, _ int) string { return e.ID }))
	existing, err := o.stores.Emails.ExistingEmailIDs(ctx, ownerID, ids)
	if err != nil {
		return nil, fmt.Errorf("check existing emails: %w", err)
	}

	seen := make(map[string]bool, len(valid))
	fresh := make([]domain.Email, 0, len(valid))
	for _, e := range valid {
		if existing[e.ID] || seen[e.ID] {
			result.SkippedCount++
			result.Outcomes = append(result.Outcomes, domain.DocumentOutcome{DocumentID: e.ID, State: domain.StateSkipped})
			continue
		}
		seen[e.ID] = true
		fresh = append(fresh, e)
	}
	logger.Info("Emails for user %s: %d received, %d new, %d skipped", ownerID, len(emails), len(fresh), result.SkippedCount)

	for i, batch := range lo.Chunk(fresh, o.batchSize) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		o.ingestEmailBatch(ctx, ownerID, i, batch, result)
	}
	return result, nil
}

// ingestEmailBatch indexes each email and persists the survivors in one transaction.
func (o *IngestionOrchestrator) ingestEmailBatch(
	ctx context.Context, ownerID string, batchNo int, batch []domain.Email, result *domain.EmailBatchResult,
) {
	toStore := make([]domain.Email, 0, len(batch))
	outcomes := make([]domain.DocumentOutcome, 0, len(batch))

	for _, email := range batch {
		outcome := o.indexDocument(ctx, email.Document(), o.emailChunker)
		if outcome.State == domain.StateFailed {
			logger.Error("email %s (user %s) failed at %s: %s", email.ID, ownerID, outcome.FailedAt, outcome.Err)
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("email %s: %s", email.ID, outcome.Err))
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}
		email.Processed = outcome.ChunksEmbedded == outcome.ChunksTotal
		email.SyncedAt = o.now()
		toStore = append(toStore, email)
		outcomes = append(outcomes, outcome)
	}
	if len(toStore) == 0 {
		return
	}

	if err := o.stores.Emails.InsertEmails(ctx, toStore); err != nil {
		logger.Error("email batch %d for user %s failed to persist: %v", batchNo, ownerID, err)
		result.Errors = append(result.Errors, fmt.Sprintf("batch %d: %v", batchNo, err))
		for _, outcome := range outcomes {
			outcome.State = domain.StateFailed
			outcome.FailedAt = domain.StatePersisted
			outcome.Err = err.Error()
			result.Outcomes = append(result.Outcomes, outcome)
		}
		result.FailedCount += len(outcomes)
		return
	}

	for _, outcome := range outcomes {
		outcome.State = domain.StatePersisted
		result.Outcomes = append(result.Outcomes, outcome)
	}
	result.SyncedCount += len(toStore)
}

// indexDocument cleans, chunks, embeds and upserts one document.
// The returned state is StateEmbedded when at least one chunk was indexed,
// StateCleaned when nothing was left to chunk after cleaning,
// and StateFailed otherwise.
func (o *IngestionOrchestrator) indexDocument(
	ctx context.Context, doc domain.Document, chunker driven.PostProcessorPipeline,
) domain.DocumentOutcome {
	outcome := domain.DocumentOutcome{DocumentID: doc.ID, State: domain.StateReceived}
	fail := func(stage domain.DocumentState, err error) domain.DocumentOutcome {
		outcome.State = domain.StateFailed
		outcome.FailedAt = stage
		outcome.Err = err.Error()
		return outcome
	}

	if chunker == nil {
		return fail(domain.StateChunked, errors.New("no chunker configured"))
	}
	doc = chunker.Clean(doc)
	outcome.State = domain.StateCleaned
	if strings.TrimSpace(doc.Body) == "" {
		return outcome
	}

	chunks, err := chunker.Process(ctx, &doc)
	if err != nil {
		return fail(domain.StateChunked, err)
	}
	outcome.State = domain.StateChunked
	outcome.ChunksTotal = len(chunks)
	if len(chunks) == 0 {
		outcome.State = domain.StateEmbedded
		return outcome
	}

	records, errs := o.embedChunks(ctx, doc, chunks)
	outcome.ChunksEmbedded = len(records)
	if len(records) == 0 {
		return fail(domain.StateEmbedded, errors.Join(errs...))
	}

	if o.index == nil {
		return fail(domain.StateEmbedded, domain.ErrVectorIndexUnavailable)
	}
	if err := o.index.Upsert(ctx, records); err != nil {
		return fail(domain.StateEmbedded, fmt.Errorf("upsert: %w", err))
	}
	outcome.State = domain.StateEmbedded
	return outcome
}

// embedChunks embeds chunks in parallel. The returned records keep chunk order
// and omit chunks whose embedding failed.
func (o *IngestionOrchestrator) embedChunks(
	ctx context.Context, doc domain.Document, chunks []domain.Chunk,
) ([]domain.EmbeddingRecord, []error) {
	if o.embedder == nil {
		return nil, []error{domain.ErrEmbeddingUnavailable}
	}

	slots := make([]*domain.EmbeddingRecord, len(chunks))
	errs := make([]error, len(chunks))

	var g errgroup.Group
	g.SetLimit(o.embedConcurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			vector, err := o.embedder.Embed(ctx, chunk.Content)
			if err != nil {
				logger.Warn("embed chunk %d of %s %s (user %s) failed: %v", i, doc.Kind, doc.ID, doc.OwnerID, err)
				errs[i] = fmt.Errorf("chunk %d: %w", i, err)
				return nil
			}
			record := buildRecord(doc, chunk, i, vector)
			slots[i] = &record
			return nil
		})
	}
	_ = g.Wait()

	records := lo.FilterMap(slots, func(r *domain.EmbeddingRecord, _ int) (domain.EmbeddingRecord, bool) {
		if r == nil {
			return domain.EmbeddingRecord{}, false
		}
		return *r, true
	})
	return records, lo.Compact(errs)
}

func buildRecord(doc domain.Document, chunk domain.Chunk, index int, vector []float32) domain.EmbeddingRecord {
	recordType := domain.RecordTypeNoteChunk
	if doc.Kind == domain.DocumentKindEmail {
		recordType = domain.RecordTypeEmailChunk
	}
	return domain.EmbeddingRecord{
		ID:     domain.VectorID(doc.Kind, doc.OwnerID, doc.ID, index),
		Vector: vector,
		Metadata: map[string]any{
			domain.MetaDocumentID:     doc.ID,
			domain.MetaChunkID:        chunk.ID,
			domain.MetaOwnerID:        doc.OwnerID,
			domain.MetaType:           recordType,
			domain.MetaChunkType:      string(chunk.Type),
			domain.MetaChunkIndex:     index,
			domain.MetaSubject:        doc.Subject,
			domain.MetaContentPreview: domain.Preview(chunk.Content),
			domain.MetaText:           chunk.Content,
			domain.MetaWordCount:      domain.WordCount(chunk.Content),
		},
	}
}
