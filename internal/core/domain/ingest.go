package domain

// DocumentState is the per-document ingestion state.
type DocumentState string

// States a document moves through during ingestion.
const (
	StateReceived  DocumentState = "received"
	StateCleaned   DocumentState = "cleaned"
	StateChunked   DocumentState = "chunked"
	StateEmbedded  DocumentState = "embedded"
	StatePersisted DocumentState = "persisted"
	StateFailed    DocumentState = "failed"
	StateSkipped   DocumentState = "skipped"
)

// Artifact labels reported by note ingestion.
const (
	ArtifactCalendarTask  = "calendar_task"
	ArtifactReminderTask  = "reminder_task"
	ArtifactDiaryEntry    = "diary_entry"
	ArtifactRelationships = "idea_relationships"
)

// NoteIngestResult reports the outcome of ingesting one note.
type NoteIngestResult struct {
	NoteID           string
	CreatedArtifacts []string
	Extraction       TaskExtractionResult
	Relationships    []IdeaRelationship
	// Failures lists artifacts whose creation failed.
	Failures []UnitFailure
}

// UnitFailure describes one failed unit of a multi-unit operation.
type UnitFailure struct {
	Unit  string
	Stage DocumentState
	Err   string
}

// DocumentOutcome is the final state of one email in a batch.
type DocumentOutcome struct {
	DocumentID string
	State      DocumentState
	// FailedAt is the stage that failed when State is StateFailed.
	FailedAt       DocumentState
	ChunksTotal    int
	ChunksEmbedded int
	Err            string
}

// EmailBatchResult reports an email batch ingestion.
type EmailBatchResult struct {
	SyncedCount  int
	SkippedCount int
	FailedCount  int
	Outcomes     []DocumentOutcome
	Errors       []string
}

// Partial reports whether some units failed while others succeeded.
func (r EmailBatchResult) Partial() bool {
	return r.FailedCount > 0 && r.SyncedCount > 0
}
