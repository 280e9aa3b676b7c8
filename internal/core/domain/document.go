package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// DocumentKind identifies where a document came from.
type DocumentKind string

// Supported document kinds.
const (
	DocumentKindNote  DocumentKind = "note"
	DocumentKindEmail DocumentKind = "email"
)

// Document is the abstract source unit handed to the chunker.
// Notes and emails are both reduced to a Document before chunking.
type Document struct {
	// ID is the stable identifier of the note or email.
	ID string

	// OwnerID is the user the document belongs to.
	OwnerID string

	// Kind is note or email.
	Kind DocumentKind

	// Body is the raw text before cleaning.
	Body string

	// Subject is set for emails.
	Subject string

	// Sender is set for emails.
	Sender string

	// CreatedAt is when the document was received.
	CreatedAt time.Time
}

// ChunkType classifies a chunk. The set is closed.
type ChunkType string

// Chunk types produced by the chunking strategies.
const (
	ChunkTypeSummary         ChunkType = "summary"
	ChunkTypeActionItems     ChunkType = "action_items"
	ChunkTypeKeyInfo         ChunkType = "key_info"
	ChunkTypeContent         ChunkType = "content"
	ChunkTypePromotional     ChunkType = "promotional"
	ChunkTypeFallbackSummary ChunkType = "fallback_summary"
)

// IsValid returns true if the chunk type is one of the known types.
func (t ChunkType) IsValid() bool {
	switch t {
	case ChunkTypeSummary, ChunkTypeActionItems, ChunkTypeKeyInfo,
		ChunkTypeContent, ChunkTypePromotional, ChunkTypeFallbackSummary:
		return true
	default:
		return false
	}
}

// Chunk is an excerpt of a document's text, the unit of embedding and retrieval.
type Chunk struct {
	// ID is content-derived: identical text at the same position yields the same ID.
	ID string

	// DocumentID links to the owning document.
	DocumentID string

	// Type classifies the chunk.
	Type ChunkType

	// Content is the chunk text. Never empty.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Importance is the 1-10 score assigned by semantic chunking (0 when unscored).
	Importance int

	// Promotional is true when semantic chunking flagged the excerpt as marketing.
	Promotional bool

	// ActionItems lists follow-ups found in the excerpt.
	ActionItems []string

	// Tags are free-form labels.
	Tags []string

	// Timeline is a date or period mentioned by the excerpt, if any.
	Timeline string
}

// ChunkID derives the stable identifier for a chunk from its text and position.
func ChunkID(text string, position int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%d", text, position)))
	return hex.EncodeToString(sum[:])
}

// NewChunk builds a chunk with its derived ID.
func NewChunk(documentID string, position int, chunkType ChunkType, text string) Chunk {
	return Chunk{
		ID:         ChunkID(text, position),
		DocumentID: documentID,
		Type:       chunkType,
		Content:    text,
		Position:   position,
	}
}
