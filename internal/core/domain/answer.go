package domain

// ContentType filters retrieval by document kind.
type ContentType string

// Content types accepted by the QA engine.
const (
	ContentTypeAll    ContentType = "all"
	ContentTypeEmails ContentType = "emails"
	ContentTypeNotes  ContentType = "notes"
)

// IsValid returns true if the content type is recognised.
func (c ContentType) IsValid() bool {
	switch c {
	case ContentTypeAll, ContentTypeEmails, ContentTypeNotes:
		return true
	default:
		return false
	}
}

// RecordType returns the vector metadata "type" to filter on, or empty for all.
func (c ContentType) RecordType() string {
	switch c {
	case ContentTypeEmails:
		return RecordTypeEmailChunk
	case ContentTypeNotes:
		return RecordTypeNoteChunk
	default:
		return ""
	}
}

// Label is the human wording used in answers.
func (c ContentType) Label() string {
	switch c {
	case ContentTypeEmails:
		return "emails"
	case ContentTypeNotes:
		return "notes"
	default:
		return "content"
	}
}

// DefaultMaxContextItems is the retrieval depth used when the caller passes zero.
const DefaultMaxContextItems = 25

// AskRequest is the input to the QA engine.
type AskRequest struct {
	UserID          string
	Question        string
	ContentType     ContentType
	MaxContextItems int
}

// ContextItem is one retrieved chunk included in the answer context.
type ContextItem struct {
	RecordID   string
	DocumentID string
	Type       string
	Subject    string
	Text       string
	Score      float64
}

// AnswerReason explains an unsuccessful answer.
type AnswerReason string

// Answer reasons.
const (
	AnswerReasonNone            AnswerReason = ""
	AnswerReasonNoContext       AnswerReason = "no_context"
	AnswerReasonUpstreamFailure AnswerReason = "upstream_failure"
)

// Answer is the always well-formed result of a question.
type Answer struct {
	Success      bool          `json:"success"`
	Reason       AnswerReason  `json:"reason,omitempty"`
	Answer       string        `json:"answer"`
	Question     string        `json:"question"`
	ContentType  ContentType   `json:"content_type"`
	ContextItems []ContextItem `json:"context_items"`
	// ContextUsed equals len(ContextItems).
	ContextUsed int `json:"context_used"`
}
