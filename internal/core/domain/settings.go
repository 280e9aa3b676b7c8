package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API (or a compatible endpoint).
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API. Generation only.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// SupportsEmbeddings returns true if the provider offers an embedding model.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// AllAIProviders returns every supported provider.
func AllAIProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic}
}

// EmbeddingProviders returns the providers usable for embeddings.
func EmbeddingProviders() []AIProvider {
	var out []AIProvider
	for _, p := range AllAIProviders() {
		if p.SupportsEmbeddings() {
			out = append(out, p)
		}
	}
	return out
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string
	// BaseURL overrides the API endpoint.
	BaseURL string
	APIKey  string
	// Dimensions overrides the model default when non-zero.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds generation provider configuration.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured returns true if the generation provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkingStrategy selects how documents are split.
type ChunkingStrategy string

// Chunking strategies.
const (
	// ChunkingMechanical packs whole sentences into word-budgeted chunks.
	ChunkingMechanical ChunkingStrategy = "mechanical"

	// ChunkingSemantic asks the generation model for 2-4 classified chunks.
	ChunkingSemantic ChunkingStrategy = "semantic"
)

// IsValid returns true if the strategy is recognised.
func (s ChunkingStrategy) IsValid() bool {
	return s == ChunkingMechanical || s == ChunkingSemantic
}

// ChunkingSettings configures the note chunker.
type ChunkingSettings struct {
	Strategy ChunkingStrategy
	MaxWords int
	Overlap  int
}

// VectorBackend selects the vector index implementation.
type VectorBackend string

// Vector backends.
const (
	VectorBackendSQLite   VectorBackend = "sqlite"
	VectorBackendMemory   VectorBackend = "memory"
	VectorBackendPGVector VectorBackend = "pgvector"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendSQLite, VectorBackendMemory, VectorBackendPGVector:
		return true
	default:
		return false
	}
}

// VectorSettings configures the vector index.
type VectorSettings struct {
	Backend VectorBackend
	// DSN is the connection string for server backends.
	DSN string
}

// TimeoutSettings bounds every upstream call.
type TimeoutSettings struct {
	Embedding  time.Duration
	Generation time.Duration
	Vector     time.Duration
	Store      time.Duration
	Mail       time.Duration
}

// GmailSettings holds the OAuth client used for mail sync.
type GmailSettings struct {
	ClientID     string
	ClientSecret string
}

// IsConfigured returns true if an OAuth client is set.
func (g GmailSettings) IsConfigured() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Vector    VectorSettings
	Chunking  ChunkingSettings
	Timeouts  TimeoutSettings
	Gmail     GmailSettings
	// DefaultUser is the owner email used when a command omits --user.
	DefaultUser string
}

// Mechanical chunking defaults for notes and emails.
const (
	DefaultChunkMaxWords = 1000
	DefaultChunkOverlap  = 100
)

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Vector: VectorSettings{Backend: VectorBackendSQLite},
		Chunking: ChunkingSettings{
			Strategy: ChunkingMechanical,
			MaxWords: DefaultChunkMaxWords,
			Overlap:  DefaultChunkOverlap,
		},
		Timeouts: TimeoutSettings{
			Embedding:  30 * time.Second,
			Generation: 60 * time.Second,
			Vector:     10 * time.Second,
			Store:      10 * time.Second,
			Mail:       30 * time.Second,
		},
		DefaultUser: "me@localhost",
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each generation provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-haiku-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
