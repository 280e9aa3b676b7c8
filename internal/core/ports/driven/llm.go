// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService is the generation model gateway.
// This is an optional service - when nil, extraction and chunking fall back
// to their defaults and questions receive a failure answer.
//
// Failures are reported as domain.ErrGenerationUnavailable.
//
// Implementations include:
//   - OpenAI (or any OpenAI-compatible endpoint)
//   - Ollama (local models)
//   - Anthropic Messages API
type LLMService interface {
	// Complete sends a system and a user prompt and returns the model text.
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompleteOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompleteOptions configures a completion.
type CompleteOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// Schema asks for JSON output matching a schema. Nil means free text.
	Schema *ResponseSchema
}

// ResponseSchema describes a structured JSON response.
type ResponseSchema struct {
	// Name identifies the schema to the provider.
	Name string

	// Schema is a JSON Schema document.
	Schema map[string]any
}
