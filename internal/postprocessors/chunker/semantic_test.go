package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
)

type mockLLM struct {
	response string
	err      error
	calls    int
	lastUser string
	lastOpts driven.CompleteOptions
}

func (m *mockLLM) Complete(_ context.Context, _, user string, opts driven.CompleteOptions) (string, error) {
	m.calls++
	m.lastUser = user
	m.lastOpts = opts
	return m.response, m.err
}

func (m *mockLLM) ModelName() string            { return "mock" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

const validAnalysis = `{"chunks": [
	{"chunk_text": "Budget review with Sarah.", "chunk_type": "summary", "is_promotional": false, "timeline": "tomorrow 3pm", "action_items": ["prepare slides"], "tags": ["meeting"], "importance_score": 8},
	{"chunk_text": "Bring Q2 numbers.", "chunk_type": "action_items", "is_promotional": false, "timeline": "", "action_items": [], "tags": [], "importance_score": 12}
]}`

func TestSemantic_Name(t *testing.T) {
	if NewSemantic(nil).Name() != "semantic" {
		t.Error("unexpected name")
	}
}

func TestSemantic_Process(t *testing.T) {
	llm := &mockLLM{response: validAnalysis}
	s := NewSemantic(llm)

	chunks, err := s.Process(context.Background(), &domain.Document{ID: "n1", Body: "Meet Sarah tomorrow."}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Type != domain.ChunkTypeSummary || chunks[1].Type != domain.ChunkTypeActionItems {
		t.Errorf("unexpected types %q %q", chunks[0].Type, chunks[1].Type)
	}
	if chunks[0].Importance != 8 || chunks[1].Importance != 10 {
		t.Errorf("unexpected importance %d %d", chunks[0].Importance, chunks[1].Importance)
	}
	if chunks[0].Timeline != "tomorrow 3pm" || len(chunks[0].ActionItems) != 1 {
		t.Error("expected analysis fields to be carried over")
	}
	if chunks[1].ID != domain.ChunkID("Bring Q2 numbers.", 1) {
		t.Error("expected content-derived id")
	}
	if llm.lastOpts.Schema == nil {
		t.Error("expected a response schema to be requested")
	}
}

func TestSemantic_InputCapped(t *testing.T) {
	llm := &mockLLM{response: validAnalysis}
	s := NewSemantic(llm, WithMaxInputChars(10))

	_, _ = s.Process(context.Background(), &domain.Document{ID: "n1", Body: strings.Repeat("x", 100)}, nil)

	if strings.Count(llm.lastUser, "x") != 10 {
		t.Errorf("expected 10 characters of input, got %d", strings.Count(llm.lastUser, "x"))
	}
}

func TestSemantic_EmptyInput(t *testing.T) {
	llm := &mockLLM{response: validAnalysis}
	s := NewSemantic(llm)

	chunks, err := s.Process(context.Background(), &domain.Document{ID: "n1", Body: "  "}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
	if llm.calls != 0 {
		t.Errorf("expected no model call, got %d", llm.calls)
	}
}

func TestSemantic_Fallback(t *testing.T) {
	long := strings.Repeat("a", 600)

	tests := []struct {
		name string
		llm  driven.LLMService
	}{
		{"model error", &mockLLM{err: errors.New("boom")}},
		{"not json", &mockLLM{response: "here are your chunks"}},
		{"no chunks", &mockLLM{response: `{"chunks": []}`}},
		{"nil model", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSemantic(tt.llm)

			chunks, err := s.Process(context.Background(), &domain.Document{ID: "e1", Body: long}, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(chunks) != 1 {
				t.Fatalf("expected 1 fallback chunk, got %d", len(chunks))
			}
			c := chunks[0]
			if c.Type != domain.ChunkTypeFallbackSummary {
				t.Errorf("expected fallback_summary, got %q", c.Type)
			}
			if c.Content != strings.Repeat("a", 500)+"..." {
				t.Errorf("unexpected fallback content length %d", len(c.Content))
			}
			if c.Importance != 5 {
				t.Errorf("expected importance 5, got %d", c.Importance)
			}
		})
	}
}

func TestFallbackChunk_ShortText(t *testing.T) {
	c := FallbackChunk("d", "short note")

	if c.Content != "short note" {
		t.Errorf("expected untruncated content, got %q", c.Content)
	}
	if len(c.Tags) != 2 || c.Tags[0] != "fallback" {
		t.Errorf("unexpected tags %v", c.Tags)
	}
}

func TestParseSemanticChunks(t *testing.T) {
	t.Run("code fence and unknown type", func(t *testing.T) {
		data := "```json\n" + `{"chunks": [{"chunk_text": "x", "chunk_type": "weird", "importance_score": 0}]}` + "\n```"

		chunks, err := ParseSemanticChunks("d", []byte(data))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if chunks[0].Type != domain.ChunkTypeContent {
			t.Errorf("expected content type, got %q", chunks[0].Type)
		}
		if chunks[0].Importance != 1 {
			t.Errorf("expected importance clamped to 1, got %d", chunks[0].Importance)
		}
	})

	t.Run("at most four chunks", func(t *testing.T) {
		data := `{"chunks": [
			{"chunk_text": "a", "chunk_type": "summary"},
			{"chunk_text": "b", "chunk_type": "summary"},
			{"chunk_text": "c", "chunk_type": "summary"},
			{"chunk_text": "d", "chunk_type": "summary"},
			{"chunk_text": "e", "chunk_type": "summary"}
		]}`

		chunks, err := ParseSemanticChunks("d", []byte(data))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(chunks) != MaxSemanticChunks {
			t.Errorf("expected %d chunks, got %d", MaxSemanticChunks, len(chunks))
		}
	})

	t.Run("empty texts skipped", func(t *testing.T) {
		data := `{"chunks": [{"chunk_text": " ", "chunk_type": "summary"}, {"chunk_text": "kept", "chunk_type": "key_info"}]}`

		chunks, err := ParseSemanticChunks("d", []byte(data))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(chunks) != 1 || chunks[0].Position != 0 || chunks[0].Content != "kept" {
			t.Errorf("unexpected chunks %+v", chunks)
		}
	})

	t.Run("schema violation", func(t *testing.T) {
		_, err := ParseSemanticChunks("d", []byte("nope"))
		if !errors.Is(err, domain.ErrSchemaViolation) {
			t.Errorf("expected ErrSchemaViolation, got %v", err)
		}
	})
}
