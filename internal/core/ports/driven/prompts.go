package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptSemanticChunk is the system prompt for splitting text into 2-4 classified chunks.
	// This prompt has no format placeholders.
	PromptSemanticChunk = "semantic_chunk"

	// PromptTaskExtraction is the system prompt for diary/calendar/reminder extraction.
	// The template expects %s placeholders for the current date and the weekday.
	PromptTaskExtraction = "task_extraction"

	// PromptSchemaRepair asks the model to fix output that failed validation.
	// The template expects %s placeholders for the validation error and the bad output.
	PromptSchemaRepair = "schema_repair"

	// PromptIdeaRelationships is the system prompt for idea relationship scoring.
	// This prompt has no format placeholders.
	PromptIdeaRelationships = "idea_relationships"

	// PromptQASystem is the grounding system prompt for question answering.
	// This prompt has no format placeholders.
	PromptQASystem = "qa_system"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}
