package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/mindkeep/internal/adapters/driven/ai"
	"github.com/custodia-labs/mindkeep/internal/adapters/driven/config/file"
	"github.com/custodia-labs/mindkeep/internal/adapters/driven/oauth"
	"github.com/custodia-labs/mindkeep/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/mindkeep/internal/adapters/driven/storage/pgvector"
	"github.com/custodia-labs/mindkeep/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/mindkeep/internal/adapters/driving/cli"
	"github.com/custodia-labs/mindkeep/internal/connectors/google/gmail"
	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
	"github.com/custodia-labs/mindkeep/internal/core/services"
	"github.com/custodia-labs/mindkeep/internal/logger"
	"github.com/custodia-labs/mindkeep/internal/postprocessors"
	"github.com/custodia-labs/mindkeep/internal/postprocessors/chunker"
)

// app owns the adapters built for one process and the services wired on them.
type app struct {
	Services cli.Services

	store *sqlite.Store
	index driven.VectorIndex
	ai    *ai.InitResult
}

// newApp builds every adapter and service from the settings under home.
// An empty home uses $MINDKEEP_HOME or ~/.mindkeep.
// Unconfigured or unreachable AI providers leave the dependent services
// degraded instead of failing startup.
func newApp(ctx context.Context, home string) (*app, error) {
	if home == "" {
		h, err := file.HomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		home = h
	}

	configStore, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	store, err := sqlite.NewStore(filepath.Join(home, "data"))
	if err != nil {
		return nil, err
	}
	store.SetTimeout(settings.Timeouts.Store)

	a := &app{store: store}

	a.ai = ai.Init(settings)
	for _, w := range a.ai.Warnings {
		logger.Warn("%s", w)
	}

	index, err := openVectorIndex(ctx, settings, store)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.index = ai.WithVectorTimeout(index, settings.Timeouts.Vector)

	prompts, err := file.NewPromptStore(filepath.Join(home, "prompts"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	embedder := a.ai.EmbeddingService
	llm := a.ai.LLMService

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry, llm, prompts)
	noteChunker, err := registry.BuildPipeline(string(settings.Chunking.Strategy), map[string]any{
		"max_words": settings.Chunking.MaxWords,
		"overlap":   settings.Chunking.Overlap,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building note chunker: %w", err)
	}
	emailChunker, err := registry.BuildPipeline(chunker.MechanicalName, map[string]any{
		"max_words": domain.DefaultChunkMaxWords,
		"overlap":   domain.DefaultChunkOverlap,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building email chunker: %w", err)
	}

	extractor := services.NewExtractor(llm)
	extractor.SetPromptStore(prompts)

	qa := services.NewQAService(embedder, a.index, llm)
	qa.SetPromptStore(prompts)

	ingest := services.NewIngestionOrchestrator(
		services.Stores{Notes: store, Tasks: store, Ideas: store, Emails: store},
		embedder, a.index, extractor,
		services.WithNoteChunker(noteChunker),
		services.WithEmailChunker(emailChunker),
	)

	refreshers := map[string]driven.TokenRefresher{}
	if settings.Gmail.ClientID != "" {
		google, err := oauth.NewGoogleRefresher(oauth.GoogleConfig{
			ClientID:     settings.Gmail.ClientID,
			ClientSecret: settings.Gmail.ClientSecret,
		})
		if err != nil {
			logger.Warn("gmail oauth client: %v", err)
		} else {
			refreshers[domain.CredentialProviderGmail] = google
		}
	}
	creds := services.NewCredentialsService(store.CredentialsStore(), refreshers)
	users := services.NewUserService(store)

	a.Services = cli.Services{
		QA:          qa,
		Ingest:      ingest,
		Tasks:       services.NewTaskService(store),
		Ideas:       services.NewIdeaService(store),
		Notes:       services.NewNoteService(store, embedder, a.index),
		Mail:        services.NewMailSyncService(gmail.NewFactory(settings.Timeouts.Mail), creds, store, ingest),
		Users:       users,
		Accounts:    services.NewAccountService(creds, users, gmail.NewAccountLookup(settings.Timeouts.Mail)),
		Credentials: creds,
		Settings:    settingsService,
		Index:       services.NewIndexService(a.index),
		Prompts:     prompts,
	}
	return a, nil
}

// openVectorIndex builds the index selected by vector.backend.
func openVectorIndex(ctx context.Context, settings *domain.AppSettings, store *sqlite.Store) (driven.VectorIndex, error) {
	dims := settings.Embedding.Dimensions
	if dims == 0 {
		dims = domain.EmbeddingDimensions()[settings.Embedding.Model]
	}

	switch settings.Vector.Backend {
	case domain.VectorBackendMemory:
		return memory.NewVectorIndex(dims), nil
	case domain.VectorBackendPGVector:
		index, err := pgvector.New(ctx, pgvector.Config{DSN: settings.Vector.DSN, Dimensions: dims})
		if err != nil {
			return nil, fmt.Errorf("opening pgvector index: %w", err)
		}
		return index, nil
	case domain.VectorBackendSQLite, "":
		return store.VectorIndex(dims), nil
	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, settings.Vector.Backend)
	}
}

// Close releases the adapters in reverse build order.
func (a *app) Close() {
	var errs []error
	if a.index != nil {
		errs = append(errs, a.index.Close())
	}
	if a.ai != nil {
		a.ai.Close()
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warn("closing: %v", err)
	}
}
