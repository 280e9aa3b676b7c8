package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyEmbedProvider     = "embedding.provider"
	KeyEmbedModel        = "embedding.model"
	KeyEmbedBaseURL      = "embedding.base_url"
	KeyEmbedAPIKey       = "embedding.api_key"
	KeyEmbedDimensions   = "embedding.dimensions"
	KeyLLMProvider       = "llm.provider"
	KeyLLMModel          = "llm.model"
	KeyLLMBaseURL        = "llm.base_url"
	KeyLLMAPIKey         = "llm.api_key"
	KeyVectorBackend     = "vector.backend"
	KeyVectorDSN         = "vector.dsn"
	KeyChunkingStrategy  = "chunking.strategy"
	KeyChunkingMaxWords  = "chunking.max_words"
	KeyChunkingOverlap   = "chunking.overlap"
	KeyTimeoutEmbedding  = "timeouts.embedding"
	KeyTimeoutGeneration = "timeouts.generation"
	KeyTimeoutVector     = "timeouts.vector"
	KeyTimeoutStore      = "timeouts.store"
	KeyTimeoutMail       = "timeouts.mail"
	KeyGmailClientID     = "gmail.client_id"
	KeyGmailClientSecret = "gmail.client_secret"
	KeyDefaultUser       = "user.default"
)

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindProvider
	kindEmbedProvider
	kindBackend
	kindStrategy
)

// settingKeys lists every key Set accepts and how its value is parsed.
var settingKeys = map[string]keyKind{
	KeyEmbedProvider:     kindEmbedProvider,
	KeyEmbedModel:        kindString,
	KeyEmbedBaseURL:      kindString,
	KeyEmbedAPIKey:       kindString,
	KeyEmbedDimensions:   kindInt,
	KeyLLMProvider:       kindProvider,
	KeyLLMModel:          kindString,
	KeyLLMBaseURL:        kindString,
	KeyLLMAPIKey:         kindString,
	KeyVectorBackend:     kindBackend,
	KeyVectorDSN:         kindString,
	KeyChunkingStrategy:  kindStrategy,
	KeyChunkingMaxWords:  kindInt,
	KeyChunkingOverlap:   kindInt,
	KeyTimeoutEmbedding:  kindInt,
	KeyTimeoutGeneration: kindInt,
	KeyTimeoutVector:     kindInt,
	KeyTimeoutStore:      kindInt,
	KeyTimeoutMail:       kindInt,
	KeyGmailClientID:     kindString,
	KeyGmailClientSecret: kindString,
	KeyDefaultUser:       kindString,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	embedProvider := s.getProvider(KeyEmbedProvider, defaults.Embedding.Provider)
	llmProvider := s.getProvider(KeyLLMProvider, defaults.LLM.Provider)

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   embedProvider,
			Model:      s.getString(KeyEmbedModel, domain.DefaultEmbeddingModels()[embedProvider]),
			BaseURL:    s.configStore.GetString(KeyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(KeyEmbedAPIKey),
			Dimensions: s.configStore.GetInt(KeyEmbedDimensions),
		},
		LLM: domain.LLMSettings{
			Provider: llmProvider,
			Model:    s.getString(KeyLLMModel, domain.DefaultLLMModels()[llmProvider]),
			BaseURL:  s.configStore.GetString(KeyLLMBaseURL),
			APIKey:   s.configStore.GetString(KeyLLMAPIKey),
		},
		Vector: domain.VectorSettings{
			Backend: s.getBackend(defaults.Vector.Backend),
			DSN:     s.configStore.GetString(KeyVectorDSN),
		},
		Chunking: domain.ChunkingSettings{
			Strategy: s.getStrategy(defaults.Chunking.Strategy),
			MaxWords: s.getInt(KeyChunkingMaxWords, defaults.Chunking.MaxWords),
			Overlap:  s.getInt(KeyChunkingOverlap, defaults.Chunking.Overlap),
		},
		Timeouts: domain.TimeoutSettings{
			Embedding:  s.getSeconds(KeyTimeoutEmbedding, defaults.Timeouts.Embedding),
			Generation: s.getSeconds(KeyTimeoutGeneration, defaults.Timeouts.Generation),
			Vector:     s.getSeconds(KeyTimeoutVector, defaults.Timeouts.Vector),
			Store:      s.getSeconds(KeyTimeoutStore, defaults.Timeouts.Store),
			Mail:       s.getSeconds(KeyTimeoutMail, defaults.Timeouts.Mail),
		},
		Gmail: domain.GmailSettings{
			ClientID:     s.configStore.GetString(KeyGmailClientID),
			ClientSecret: s.configStore.GetString(KeyGmailClientSecret),
		},
		DefaultUser: s.getString(KeyDefaultUser, defaults.DefaultUser),
	}

	return settings, nil
}

// Set validates and stores a single configuration value, then persists the file.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	value = strings.TrimSpace(value)

	var stored any = value
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
		}
		stored = n
	case kindProvider:
		if !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, value)
		}
	case kindEmbedProvider:
		if !domain.AIProvider(value).SupportsEmbeddings() {
			return fmt.Errorf("%w: provider %q has no embedding models", domain.ErrInvalidInput, value)
		}
	case kindBackend:
		if !domain.VectorBackend(value).IsValid() {
			return fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, value)
		}
	case kindStrategy:
		if !domain.ChunkingStrategy(value).IsValid() {
			return fmt.Errorf("%w: unknown chunking strategy %q", domain.ErrInvalidInput, value)
		}
	}

	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	if err := s.configStore.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// Keys returns all keys currently set, sorted.
func (s *SettingsService) Keys() []string {
	return s.configStore.Keys()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider is not configured", domain.ErrEmbeddingUnavailable)
	}
	if s.aiValidator == nil {
		return nil
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: llm provider is not configured", domain.ErrGenerationUnavailable)
	}
	if s.aiValidator == nil {
		return nil
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return time.Duration(val) * time.Second
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	backend := domain.VectorBackend(s.configStore.GetString(KeyVectorBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getStrategy(defaultVal domain.ChunkingStrategy) domain.ChunkingStrategy {
	strategy := domain.ChunkingStrategy(s.configStore.GetString(KeyChunkingStrategy))
	if !strategy.IsValid() {
		return defaultVal
	}
	return strategy
}
