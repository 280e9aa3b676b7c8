package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driving"
	"github.com/custodia-labs/mindkeep/internal/logger"
	"github.com/custodia-labs/mindkeep/internal/prompts"
)

// Ensure QAService implements the interface.
var _ driving.QAService = (*QAService)(nil)

// MaxContextCharsPerItem bounds each retrieved chunk in the answer prompt.
const MaxContextCharsPerItem = 2000

// DefaultEmailSearchLimit is used by SearchEmails when the caller passes zero.
const DefaultEmailSearchLimit = 10

const (
	noContextAnswer = "I couldn't find any relevant %s to answer your question. " +
		"Please try rephrasing your question or check if you have content indexed."
	failureAnswerPrefix = "Sorry, I encountered an error while processing your question: "
	answerTemperature   = 0.3
	answerMaxTokens     = 1000
)

// QAService answers questions by retrieval-augmented generation.
type QAService struct {
	embedder    driven.EmbeddingService
	index       driven.VectorIndex
	llm         driven.LLMService
	promptStore driven.PromptStore
}

// NewQAService creates a QA service. Any collaborator may be nil, in which
// case Ask returns a failure answer.
func NewQAService(embedder driven.EmbeddingService, index driven.VectorIndex, llm driven.LLMService) *QAService {
	return &QAService{
		embedder: embedder,
		index:    index,
		llm:      llm,
	}
}

// SetPromptStore sets the prompt store used to load the system prompt.
func (s *QAService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// Ask retrieves owner-scoped context for the question and composes a grounded answer.
func (s *QAService) Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error) {
	logger.Section("Ask")

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = domain.ContentTypeAll
	}
	if !contentType.IsValid() {
		return nil, fmt.Errorf("%w: unknown content type %q", domain.ErrInvalidInput, contentType)
	}
	limit := req.MaxContextItems
	if limit <= 0 {
		limit = domain.DefaultMaxContextItems
	}

	answer := &domain.Answer{
		Question:     question,
		ContentType:  contentType,
		ContextItems: []domain.ContextItem{},
	}

	items, err := s.retrieve(ctx, question, limit, domain.VectorFilter{
		OwnerID: req.UserID,
		Type:    contentType.RecordType(),
	})
	if err != nil {
		logger.Error("ask for user %s: retrieval failed: %v", req.UserID, err)
		return failed(answer, err), nil
	}
	logger.Debug("Retrieved %d context items (limit %d)", len(items), limit)

	if len(items) == 0 {
		answer.Reason = domain.AnswerReasonNoContext
		answer.Answer = fmt.Sprintf(noContextAnswer, contentType.Label())
		return answer, nil
	}

	answer.ContextItems = items
	answer.ContextUsed = len(items)

	if s.llm == nil {
		return failed(answer, domain.ErrGenerationUnavailable), nil
	}

	system := prompts.Load(s.promptStore, driven.PromptQASystem)
	user := buildAnswerPrompt(question, items)
	text, err := s.llm.Complete(ctx, system, user, driven.CompleteOptions{
		MaxTokens:   answerMaxTokens,
		Temperature: answerTemperature,
	})
	if err != nil {
		logger.Error("ask for user %s: generation failed: %v", req.UserID, err)
		return failed(answer, err), nil
	}

	answer.Success = true
	answer.Answer = strings.TrimSpace(text)
	return answer, nil
}

// SearchEmails returns the owner's email chunks most similar to query.
func (s *QAService) SearchEmails(ctx context.Context, ownerID, query string, limit int) ([]domain.ContextItem, error) {
	query = strings.TrimSpace(query)
	if query == "" || ownerID == "" {
		return nil, fmt.Errorf("%w: owner and query are required", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultEmailSearchLimit
	}
	return s.retrieve(ctx, query, limit, domain.VectorFilter{
		OwnerID: ownerID,
		Type:    domain.RecordTypeEmailChunk,
	})
}

// retrieve embeds text and returns matches in index order.
func (s *QAService) retrieve(
	ctx context.Context, text string, limit int, filter domain.VectorFilter,
) ([]domain.ContextItem, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	matches, err := s.index.Query(ctx, vector, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	matches = lo.Slice(matches, 0, limit)
	return lo.Map(matches, func(m domain.VectorMatch, _ int) domain.ContextItem {
		return contextItem(m)
	}), nil
}

func contextItem(m domain.VectorMatch) domain.ContextItem {
	text := domain.MetaString(m.Metadata, domain.MetaText)
	if text == "" {
		text = domain.MetaString(m.Metadata, domain.MetaContentPreview)
	}
	return domain.ContextItem{
		RecordID:   m.ID,
		DocumentID: domain.MetaString(m.Metadata, domain.MetaDocumentID),
		Type:       domain.MetaString(m.Metadata, domain.MetaType),
		Subject:    domain.MetaString(m.Metadata, domain.MetaSubject),
		Text:       text,
		Score:      m.Score,
	}
}

func buildAnswerPrompt(question string, items []domain.ContextItem) string {
	var sb strings.Builder
	sb.WriteString("CONTEXT:\n")
	for i, item := range items {
		fmt.Fprintf(&sb, "[%d] ", i+1)
		if item.Subject != "" {
			fmt.Fprintf(&sb, "(Subject: %s) ", item.Subject)
		}
		sb.WriteString(truncateRunes(item.Text, MaxContextCharsPerItem))
		sb.WriteString("\n")
	}
	sb.WriteString("\nQUESTION: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer using only the context above.")
	return sb.String()
}

func failed(answer *domain.Answer, err error) *domain.Answer {
	answer.Success = false
	answer.Reason = domain.AnswerReasonUpstreamFailure
	answer.Answer = failureAnswerPrefix + err.Error()
	return answer
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
