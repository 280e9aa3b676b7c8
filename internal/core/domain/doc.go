// Package domain defines the core business entities for mindkeep.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Note, Email: ingested documents and their chunkable Document form
//   - Chunk: an excerpt of a document, the unit of embedding and retrieval
//   - EmbeddingRecord: a chunk vector plus retrieval metadata
//   - TaskExtractionResult: the diary/calendar/reminder plan for a note
//   - IdeaRelationship: a scored edge between two diary entries
//   - Answer: the always well-formed result of a question
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
