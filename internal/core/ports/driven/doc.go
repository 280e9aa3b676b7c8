// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - UserStore, NoteStore, TaskStore, IdeaStore, EmailStore: relational persistence
//   - CredentialsStore: OAuth token persistence
//   - VectorIndex: chunk vector storage and similarity query
//   - PostProcessorPipeline: cleaning and chunking
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: without it nothing is indexed and questions get the no-context answer.
//   - LLMService: without it extraction returns the default plan and questions fail softly.
//   - MailProvider: without it mail sync is unavailable.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or postprocessor package
package driven
