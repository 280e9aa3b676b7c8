package domain

import (
	"fmt"
	"math"
	"strings"
)

// Vector record types stored in the "type" metadata field.
const (
	RecordTypeEmailChunk = "email_chunk"
	RecordTypeNoteChunk  = "note_chunk"
)

// Metadata keys stored alongside every vector.
const (
	MetaDocumentID     = "document_id"
	MetaChunkID        = "chunk_id"
	MetaOwnerID        = "owner_id"
	MetaType           = "type"
	MetaChunkType      = "chunk_type"
	MetaChunkIndex     = "chunk_index"
	MetaSubject        = "subject"
	MetaContentPreview = "content_preview"
	MetaText           = "text"
	MetaWordCount      = "word_count"
)

// PreviewLength is the number of characters kept in content_preview.
const PreviewLength = 200

// EmbeddingRecord pairs a chunk with its vector and retrieval metadata.
type EmbeddingRecord struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// VectorFilter restricts a vector query. Empty fields match everything.
type VectorFilter struct {
	OwnerID    string
	Type       string
	DocumentID string
}

// Matches reports whether the metadata satisfies the filter.
func (f VectorFilter) Matches(meta map[string]any) bool {
	if f.OwnerID != "" && MetaString(meta, MetaOwnerID) != f.OwnerID {
		return false
	}
	if f.Type != "" && MetaString(meta, MetaType) != f.Type {
		return false
	}
	if f.DocumentID != "" && MetaString(meta, MetaDocumentID) != f.DocumentID {
		return false
	}
	return true
}

// VectorMatch is one query result, ordered by descending score.
type VectorMatch struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// IndexStats reports the size of the vector index.
type IndexStats struct {
	TotalVectors int
	Dimensions   int
}

// VectorID builds the record id for the i-th chunk of a document.
func VectorID(kind DocumentKind, ownerID, documentID string, index int) string {
	return fmt.Sprintf("%s_%s_%s_chunk_%d", kind, ownerID, documentID, index)
}

// Preview truncates text to PreviewLength characters with an ellipsis.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength]) + "..."
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// MetaString reads a string metadata value.
func MetaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}

// MetaInt reads an integer metadata value that may have been decoded as float64.
func MetaInt(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length or zero magnitude score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
