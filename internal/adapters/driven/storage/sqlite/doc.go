// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - UserStore, NoteStore, TaskStore, IdeaStore, EmailStore: the relational store
//   - CredentialsStore: OAuth credentials keyed by user and provider
//   - VectorIndex: chunk embeddings with brute-force cosine scoring
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.mindkeep/data/mindkeep.db
//
// # Failures
//
// Database errors wrap domain.ErrStoreUnavailable, or domain.ErrVectorIndexUnavailable
// for the vector index. Email batches are inserted in a single transaction.
package sqlite
