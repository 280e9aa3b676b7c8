package chunker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
	"github.com/custodia-labs/mindkeep/internal/logger"
	"github.com/custodia-labs/mindkeep/internal/prompts"
)

// Ensure Semantic implements the interfaces.
var (
	_ driven.PostProcessor    = (*Semantic)(nil)
	_ driven.PromptStoreAware = (*Semantic)(nil)
)

// SemanticName is the registry name of the LLM-assisted strategy.
const SemanticName = "semantic"

// Semantic chunking limits.
const (
	DefaultMaxInputChars = 3000
	FallbackChars        = 500
	MaxSemanticChunks    = 4
	fallbackImportance   = 5
)

// semanticSchema constrains the model response.
var semanticSchema = &driven.ResponseSchema{
	Name: "chunk_analysis",
	Schema: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"chunks"},
		"properties": map[string]any{
			"chunks": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": MaxSemanticChunks,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required": []string{
						"chunk_text", "chunk_type", "is_promotional",
						"timeline", "action_items", "tags", "importance_score",
					},
					"properties": map[string]any{
						"chunk_text": map[string]any{"type": "string"},
						"chunk_type": map[string]any{
							"type": "string",
							"enum": []string{"summary", "action_items", "key_info", "content", "promotional"},
						},
						"is_promotional":   map[string]any{"type": "boolean"},
						"timeline":         map[string]any{"type": "string"},
						"action_items":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"tags":             map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"importance_score": map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
					},
				},
			},
		},
	},
}

// Semantic asks the generation model to split text into 2-4 classified chunks.
// Any model or parse failure yields a single fallback_summary chunk, so
// non-empty input always produces at least one chunk.
type Semantic struct {
	llm           driven.LLMService
	promptStore   driven.PromptStore
	maxInputChars int
}

// SemanticOption configures the semantic chunker.
type SemanticOption func(*Semantic)

// WithMaxInputChars caps how much text is sent to the model.
func WithMaxInputChars(n int) SemanticOption {
	return func(s *Semantic) {
		if n > 0 {
			s.maxInputChars = n
		}
	}
}

// NewSemantic creates a semantic chunker. llm may be nil, in which case
// every document gets the fallback chunk.
func NewSemantic(llm driven.LLMService, opts ...SemanticOption) *Semantic {
	s := &Semantic{
		llm:           llm,
		maxInputChars: DefaultMaxInputChars,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the processor name.
func (s *Semantic) Name() string {
	return SemanticName
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (s *Semantic) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// Process asks the model for classified chunks of the document body.
func (s *Semantic) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	text := strings.TrimSpace(doc.Body)
	if text == "" {
		return nil, nil
	}

	if s.llm == nil {
		return []domain.Chunk{FallbackChunk(doc.ID, text)}, nil
	}

	chunks, err := s.analyse(ctx, doc.ID, text)
	if err != nil {
		logger.Warn("semantic chunking failed for document %s (owner %s), using fallback: %v", doc.ID, doc.OwnerID, err)
		return []domain.Chunk{FallbackChunk(doc.ID, text)}, nil
	}

	logger.Debug("semantic chunking produced %d chunks for document %s", len(chunks), doc.ID)
	return chunks, nil
}

func (s *Semantic) analyse(ctx context.Context, documentID, text string) ([]domain.Chunk, error) {
	input := truncateRunes(text, s.maxInputChars)
	user := "Analyze this content and create intelligent chunks:\n\nCONTENT:\n" + input

	resp, err := s.llm.Complete(ctx, prompts.Load(s.promptStore, driven.PromptSemanticChunk), user, driven.CompleteOptions{
		Temperature: 0.1,
		Schema:      semanticSchema,
	})
	if err != nil {
		return nil, err
	}

	return ParseSemanticChunks(documentID, []byte(resp))
}

type semanticResponse struct {
	Chunks []semanticChunk `json:"chunks"`
}

type semanticChunk struct {
	ChunkText       string   `json:"chunk_text"`
	ChunkType       string   `json:"chunk_type"`
	IsPromotional   bool     `json:"is_promotional"`
	Timeline        string   `json:"timeline"`
	ActionItems     []string `json:"action_items"`
	Tags            []string `json:"tags"`
	ImportanceScore int      `json:"importance_score"`
}

// ParseSemanticChunks validates a chunk analysis response.
// Entries with empty text are skipped, unknown types become content,
// importance is clamped to 1-10 and at most MaxSemanticChunks are kept.
// A payload with no usable chunk is an ErrSchemaViolation.
func ParseSemanticChunks(documentID string, data []byte) ([]domain.Chunk, error) {
	var resp semanticResponse
	if err := json.Unmarshal(domain.StripCodeFence(data), &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSchemaViolation, err)
	}

	chunks := make([]domain.Chunk, 0, len(resp.Chunks))
	for _, rc := range resp.Chunks {
		text := strings.TrimSpace(rc.ChunkText)
		if text == "" {
			continue
		}
		if len(chunks) == MaxSemanticChunks {
			break
		}

		chunkType := domain.ChunkType(rc.ChunkType)
		if !chunkType.IsValid() || chunkType == domain.ChunkTypeFallbackSummary {
			chunkType = domain.ChunkTypeContent
		}

		c := domain.NewChunk(documentID, len(chunks), chunkType, text)
		c.Importance = min(max(rc.ImportanceScore, 1), 10)
		c.Promotional = rc.IsPromotional
		c.ActionItems = rc.ActionItems
		c.Tags = rc.Tags
		c.Timeline = rc.Timeline
		chunks = append(chunks, c)
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks in response", domain.ErrSchemaViolation)
	}
	return chunks, nil
}

// FallbackChunk is the single chunk used when semantic chunking fails:
// the first FallbackChars characters, with "..." appended when truncated.
func FallbackChunk(documentID, text string) domain.Chunk {
	content := text
	if truncated := truncateRunes(text, FallbackChars); truncated != text {
		content = truncated + "..."
	}

	c := domain.NewChunk(documentID, 0, domain.ChunkTypeFallbackSummary, content)
	c.Importance = fallbackImportance
	c.Tags = []string{"fallback", "summary"}
	c.ActionItems = []string{}
	return c
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
