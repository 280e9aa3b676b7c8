package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driving"
	"github.com/custodia-labs/mindkeep/internal/logger"
	"github.com/custodia-labs/mindkeep/internal/prompts"
)

// Ensure Extractor implements the interface.
var _ driving.ExtractorService = (*Extractor)(nil)

// MaxSimilarNotes bounds how many similar notes are shown to the model.
const MaxSimilarNotes = 3

// extractionTemperature keeps structured answers stable.
const extractionTemperature = 0.1

var taskDecisionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"should_create": map[string]any{"type": "boolean"},
		"title":         map[string]any{"type": "string"},
		"description":   map[string]any{"type": "string"},
		"due_date":      map[string]any{"type": []string{"string", "null"}},
	},
	"required":             []string{"should_create", "title", "description", "due_date"},
	"additionalProperties": false,
}

var taskExtractionSchema = &driven.ResponseSchema{
	Name: "task_extraction",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"diary": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"should_log": map[string]any{"type": "boolean"},
					"content":    map[string]any{"type": "string"},
					"mood":       map[string]any{"type": []string{"string", "null"}},
					"tags":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required":             []string{"should_log", "content", "mood", "tags"},
				"additionalProperties": false,
			},
			"calendar": taskDecisionSchema,
			"reminder": taskDecisionSchema,
		},
		"required":             []string{"diary", "calendar", "reminder"},
		"additionalProperties": false,
	},
}

var relationshipSchema = &driven.ResponseSchema{
	Name: "idea_relationships",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"relationships": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"target_idea_id": map[string]any{"type": "string"},
						"relationship_type": map[string]any{
							"type": "string",
							"enum": []string{"similar", "opposes", "builds_on", "contradicts"},
						},
						"strength":  map[string]any{"type": "number"},
						"reasoning": map[string]any{"type": "string"},
					},
					"required":             []string{"target_idea_id", "relationship_type", "strength", "reasoning"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"relationships"},
		"additionalProperties": false,
	},
}

// Extractor turns note text into structured actions and scores idea relationships.
// Every model answer is validated. An invalid answer gets one repair attempt,
// after which the safe default is returned.
type Extractor struct {
	llm         driven.LLMService
	promptStore driven.PromptStore
	now         func() time.Time
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithClock overrides the clock used to resolve relative dates.
func WithClock(now func() time.Time) ExtractorOption {
	return func(e *Extractor) {
		e.now = now
	}
}

// NewExtractor creates an extractor. A nil llm makes every call return the default.
func NewExtractor(llm driven.LLMService, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		llm: llm,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetPromptStore sets the prompt store used to load templates.
func (e *Extractor) SetPromptStore(store driven.PromptStore) {
	e.promptStore = store
}

// ExtractTasks returns the diary/calendar/reminder plan for a note.
// It never fails: any upstream or validation problem yields DefaultTaskExtraction.
func (e *Extractor) ExtractTasks(
	ctx context.Context, noteText string, similar []domain.SimilarNote,
) domain.TaskExtractionResult {
	noteText = strings.TrimSpace(noteText)
	if noteText == "" {
		return domain.DefaultTaskExtraction()
	}
	if e.llm == nil {
		logger.Warn("task extraction skipped: %v", domain.ErrGenerationUnavailable)
		return domain.DefaultTaskExtraction()
	}

	today := e.now()
	system := fmt.Sprintf(prompts.Load(e.promptStore, driven.PromptTaskExtraction),
		today.Format("2006-01-02"), today.Weekday())
	user := buildExtractionPrompt(noteText, similar)

	var result domain.TaskExtractionResult
	err := e.completeValidated(ctx, system, user, taskExtractionSchema, func(out string) error {
		parsed, err := domain.ParseTaskExtraction([]byte(out))
		if err != nil {
			return err
		}
		result = parsed
		return nil
	})
	if err != nil {
		logger.Warn("task extraction failed, using default: %v", err)
		return domain.DefaultTaskExtraction()
	}
	return result
}

// FindIdeaRelationships scores a new idea against at most MaxIdeasCompared existing ideas.
// With no existing ideas the model is not called.
func (e *Extractor) FindIdeaRelationships(
	ctx context.Context, idea domain.Idea, existing []domain.Idea,
) []domain.IdeaRelationship {
	candidates := lo.Filter(existing, func(c domain.Idea, _ int) bool {
		return c.ID != "" && c.ID != idea.ID
	})
	if len(candidates) == 0 {
		return []domain.IdeaRelationship{}
	}
	candidates = lo.Slice(candidates, 0, domain.MaxIdeasCompared)

	if e.llm == nil {
		logger.Warn("relationship scoring skipped for idea %s: %v", idea.ID, domain.ErrGenerationUnavailable)
		return []domain.IdeaRelationship{}
	}

	system := prompts.Load(e.promptStore, driven.PromptIdeaRelationships)
	user := buildRelationshipPrompt(idea, candidates)

	var rels []domain.IdeaRelationship
	err := e.completeValidated(ctx, system, user, relationshipSchema, func(out string) error {
		parsed, err := domain.ParseIdeaRelationships([]byte(out), idea.ID, candidates)
		if err != nil {
			return err
		}
		rels = parsed
		return nil
	})
	if err != nil {
		logger.Warn("relationship scoring failed for idea %s: %v", idea.ID, err)
		return []domain.IdeaRelationship{}
	}
	return rels
}

// completeValidated asks the model for structured output and validates it with parse.
// A schema violation triggers one repair request carrying the error and the bad output.
func (e *Extractor) completeValidated(
	ctx context.Context, system, user string, schema *driven.ResponseSchema, parse func(string) error,
) error {
	opts := driven.CompleteOptions{Temperature: extractionTemperature, Schema: schema}

	out, err := e.llm.Complete(ctx, system, user, opts)
	if err != nil {
		return err
	}
	parseErr := parse(out)
	if parseErr == nil {
		return nil
	}
	logger.Debug("model output failed validation, attempting repair: %v", parseErr)

	repair := fmt.Sprintf(prompts.Load(e.promptStore, driven.PromptSchemaRepair), parseErr, out)
	out, err = e.llm.Complete(ctx, system, user+"\n\n"+repair, opts)
	if err != nil {
		return err
	}
	return parse(out)
}

func buildExtractionPrompt(noteText string, similar []domain.SimilarNote) string {
	var sb strings.Builder
	sb.WriteString("NOTE:\n")
	sb.WriteString(noteText)

	similar = lo.Filter(similar, func(n domain.SimilarNote, _ int) bool {
		return strings.TrimSpace(n.Text) != ""
	})
	if len(similar) > 0 {
		sb.WriteString("\n\nSIMILAR PREVIOUS NOTES (context only, do not extract from these):\n")
		for i, n := range lo.Slice(similar, 0, MaxSimilarNotes) {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, strings.TrimSpace(n.Text))
		}
	}
	return sb.String()
}

func buildRelationshipPrompt(idea domain.Idea, candidates []domain.Idea) string {
	var sb strings.Builder
	sb.WriteString("NEW IDEA:\n")
	sb.WriteString(strings.TrimSpace(idea.Content))
	sb.WriteString("\n\nEXISTING IDEAS:\n")
	for _, c := range candidates {
		fmt.Fprintf(&sb, "- id: %s\n  content: %s\n", c.ID, strings.TrimSpace(c.Content))
	}
	return sb.String()
}
