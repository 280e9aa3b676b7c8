package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
)

// Ensure decorators implement the interfaces.
var (
	_ driven.EmbeddingService = (*timeoutEmbedding)(nil)
	_ driven.LLMService       = (*timeoutLLM)(nil)
	_ driven.VectorIndex      = (*timeoutIndex)(nil)
)

// withDeadline runs call under timeout. A call cut short by its own deadline
// is reported as domain.ErrUpstreamTimeout joined with unavailable.
// Cancellation of the parent context is passed through unchanged.
func withDeadline(ctx context.Context, timeout time.Duration, unavailable error, call func(context.Context) error) error {
	if timeout <= 0 {
		return call(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := call(callCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: no response after %s", domain.ErrUpstreamTimeout, unavailable, timeout)
	}
	return err
}

// WithEmbeddingTimeout bounds every Embed and EmbedBatch call.
func WithEmbeddingTimeout(svc driven.EmbeddingService, timeout time.Duration) driven.EmbeddingService {
	if svc == nil || timeout <= 0 {
		return svc
	}
	return &timeoutEmbedding{EmbeddingService: svc, timeout: timeout}
}

type timeoutEmbedding struct {
	driven.EmbeddingService
	timeout time.Duration
}

func (t *timeoutEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := withDeadline(ctx, t.timeout, domain.ErrEmbeddingUnavailable, func(ctx context.Context) error {
		var err error
		vec, err = t.EmbeddingService.Embed(ctx, text)
		return err
	})
	return vec, err
}

func (t *timeoutEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := withDeadline(ctx, t.timeout, domain.ErrEmbeddingUnavailable, func(ctx context.Context) error {
		var err error
		vecs, err = t.EmbeddingService.EmbedBatch(ctx, texts)
		return err
	})
	return vecs, err
}

// WithLLMTimeout bounds every Complete call.
func WithLLMTimeout(svc driven.LLMService, timeout time.Duration) driven.LLMService {
	if svc == nil || timeout <= 0 {
		return svc
	}
	return &timeoutLLM{LLMService: svc, timeout: timeout}
}

type timeoutLLM struct {
	driven.LLMService
	timeout time.Duration
}

func (t *timeoutLLM) Complete(
	ctx context.Context, systemPrompt, userPrompt string, opts driven.CompleteOptions,
) (string, error) {
	var out string
	err := withDeadline(ctx, t.timeout, domain.ErrGenerationUnavailable, func(ctx context.Context) error {
		var err error
		out, err = t.LLMService.Complete(ctx, systemPrompt, userPrompt, opts)
		return err
	})
	return out, err
}

// WithVectorTimeout bounds Upsert and Query calls on a vector index.
func WithVectorTimeout(index driven.VectorIndex, timeout time.Duration) driven.VectorIndex {
	if index == nil || timeout <= 0 {
		return index
	}
	return &timeoutIndex{VectorIndex: index, timeout: timeout}
}

type timeoutIndex struct {
	driven.VectorIndex
	timeout time.Duration
}

func (t *timeoutIndex) Upsert(ctx context.Context, records []domain.EmbeddingRecord) error {
	return withDeadline(ctx, t.timeout, domain.ErrVectorIndexUnavailable, func(ctx context.Context) error {
		return t.VectorIndex.Upsert(ctx, records)
	})
}

func (t *timeoutIndex) Query(
	ctx context.Context, vector []float32, topK int, filter domain.VectorFilter,
) ([]domain.VectorMatch, error) {
	var matches []domain.VectorMatch
	err := withDeadline(ctx, t.timeout, domain.ErrVectorIndexUnavailable, func(ctx context.Context) error {
		var err error
		matches, err = t.VectorIndex.Query(ctx, vector, topK, filter)
		return err
	})
	return matches, err
}
