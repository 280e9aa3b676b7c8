package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockLLM implements driven.LLMService. Responses are returned in order;
// the last one repeats once the list is exhausted.
type mockLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
	systems   []string
	users     []string
	opts      []driven.CompleteOptions
}

func (m *mockLLM) Complete(_ context.Context, system, user string, opts driven.CompleteOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.systems = append(m.systems, system)
	m.users = append(m.users, user)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	idx := m.calls - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockEmbedder implements driven.EmbeddingService.
// Text containing failOn is rejected; everything else maps to a vector
// derived from the text so that identical text embeds identically.
type mockEmbedder struct {
	mu     sync.Mutex
	err    error
	failOn string
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.failOn != "" && strings.Contains(text, m.failOn) {
		return nil, domain.ErrEmbeddingUnavailable
	}
	return textVector(text), nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		result[i] = v
	}
	return result, nil
}

func (m *mockEmbedder) Dimensions() int              { return 4 }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// textVector buckets letter counts into four dimensions.
func textVector(text string) []float32 {
	v := make([]float32, 4)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[(r-'a')%4]++
		}
	}
	v[3] += 0.001
	return v
}

// mockIndex implements driven.VectorIndex with canned query results.
type mockIndex struct {
	mu        sync.Mutex
	matches   []domain.VectorMatch
	queryErr  error
	upsertErr error
	upserted  []domain.EmbeddingRecord
	queries   int
	lastTopK  int
	filters   []domain.VectorFilter
}

func (m *mockIndex) Upsert(_ context.Context, records []domain.EmbeddingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, records...)
	return nil
}

func (m *mockIndex) Query(_ context.Context, _ []float32, topK int, filter domain.VectorFilter) ([]domain.VectorMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	m.lastTopK = topK
	m.filters = append(m.filters, filter)
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if topK < len(m.matches) {
		return m.matches[:topK], nil
	}
	return m.matches, nil
}

func (m *mockIndex) DeleteAll(_ context.Context) error { return nil }

func (m *mockIndex) Stats(_ context.Context) (domain.IndexStats, error) {
	return domain.IndexStats{TotalVectors: len(m.upserted)}, nil
}

func (m *mockIndex) Close() error { return nil }

// mockExtractor implements driving.ExtractorService.
type mockExtractor struct {
	result        domain.TaskExtractionResult
	relationships []domain.IdeaRelationship
	extractCalls  int
	relateCalls   int
	lastSimilar   []domain.SimilarNote
	lastExisting  []domain.Idea
}

func (m *mockExtractor) ExtractTasks(_ context.Context, _ string, similar []domain.SimilarNote) domain.TaskExtractionResult {
	m.extractCalls++
	m.lastSimilar = similar
	return m.result
}

func (m *mockExtractor) FindIdeaRelationships(_ context.Context, idea domain.Idea, existing []domain.Idea) []domain.IdeaRelationship {
	m.relateCalls++
	m.lastExisting = existing
	rels := make([]domain.IdeaRelationship, len(m.relationships))
	copy(rels, m.relationships)
	for i := range rels {
		rels[i].SourceID = idea.ID
	}
	return rels
}

// failingTaskStore wraps a TaskStore and fails saves of one task type.
type failingTaskStore struct {
	driven.TaskStore
	failType domain.TaskType
}

func (s *failingTaskStore) SaveTask(ctx context.Context, task *domain.Task) error {
	if task.Type == s.failType {
		return errStoreDown
	}
	return s.TaskStore.SaveTask(ctx, task)
}

var errStoreDown = errors.New("store down")

// mockRefresher implements driven.TokenRefresher.
type mockRefresher struct {
	mu           sync.Mutex
	token        *domain.OAuthCredentials
	err          error
	refreshCalls int
	exchangeCode string
	exchangeReq  domain.AuthorizationRequest
}

func (m *mockRefresher) Refresh(_ context.Context, _ string) (*domain.OAuthCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshCalls++
	if m.err != nil {
		return nil, m.err
	}
	tok := *m.token
	return &tok, nil
}

func (m *mockRefresher) AuthCodeURL(req domain.AuthorizationRequest) string {
	return "https://accounts.example.com/auth?state=" + req.State
}

func (m *mockRefresher) Exchange(_ context.Context, code string, req domain.AuthorizationRequest) (*domain.OAuthCredentials, error) {
	m.exchangeCode = code
	m.exchangeReq = req
	if m.err != nil {
		return nil, m.err
	}
	tok := *m.token
	return &tok, nil
}

func (m *mockRefresher) refreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCalls
}

// mockMailProvider implements driven.MailProvider.
type mockMailProvider struct {
	ids       []string
	messages  map[string]*domain.MailMessage
	listErr   error
	fetchErr  map[string]error
	lastQuery string
	lastMax   int
	fetched   []string
}

func (m *mockMailProvider) ListMessageIDs(_ context.Context, query string, maxResults int) ([]string, error) {
	m.lastQuery = query
	m.lastMax = maxResults
	if m.listErr != nil {
		return nil, m.listErr
	}
	if maxResults < len(m.ids) {
		return m.ids[:maxResults], nil
	}
	return m.ids, nil
}

func (m *mockMailProvider) GetMessage(_ context.Context, id string) (*domain.MailMessage, error) {
	m.fetched = append(m.fetched, id)
	if err := m.fetchErr[id]; err != nil {
		return nil, err
	}
	msg, ok := m.messages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return msg, nil
}
