// Package chunker provides the chunking strategies: a deterministic
// sentence-bounded word-budgeted chunker and an LLM-assisted semantic chunker.
package chunker

import (
	"context"
	"strings"
	"unicode"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// MechanicalName is the registry name of the mechanical strategy.
const MechanicalName = "mechanical"

// Processor packs whole sentences into chunks of at most maxWords words.
// It implements the PostProcessor interface.
type Processor struct {
	maxWords int
	overlap  int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxWords sets the word budget per chunk.
func WithMaxWords(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxWords = n
		}
	}
}

// WithOverlap sets the overlap budget in words.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new mechanical chunker with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxWords: domain.DefaultChunkMaxWords,
		overlap:  domain.DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed the chunk budget
	if p.overlap >= p.maxWords {
		p.overlap = p.maxWords / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return MechanicalName
}

// Process splits the document body into chunks.
// Input chunks are ignored; this processor creates new chunks from the body.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	return ChunkText(doc.ID, doc.Body, p.maxWords, p.overlap), nil
}

// ChunkText splits text into sentences and greedily packs them into chunks of
// at most maxWords words. Each new chunk is seeded with the trailing sentences
// of the previous one, totalling at most overlap words. A single sentence
// longer than maxWords is cut into maxWords-sized pieces first.
//
// Empty or whitespace-only text yields no chunks.
func ChunkText(documentID, text string, maxWords, overlap int) []domain.Chunk {
	if maxWords <= 0 {
		maxWords = domain.DefaultChunkMaxWords
	}
	if overlap < 0 || overlap >= maxWords {
		overlap = maxWords / 4
	}

	var units []sentence
	for _, s := range SplitSentences(text) {
		units = append(units, splitLong(s, maxWords)...)
	}
	if len(units) == 0 {
		return nil
	}

	var (
		chunks  []domain.Chunk
		current []sentence
		words   int
	)

	flush := func() {
		texts := make([]string, len(current))
		for i, s := range current {
			texts[i] = s.text
		}
		chunks = append(chunks, domain.NewChunk(documentID, len(chunks), domain.ChunkTypeContent, strings.Join(texts, " ")))
	}

	for _, s := range units {
		if len(current) > 0 && words+s.words > maxWords {
			flush()
			current = overlapTail(current, overlap)
			words = countWords(current)
			// Drop seed sentences from the front until the next sentence fits.
			for len(current) > 0 && words+s.words > maxWords {
				words -= current[0].words
				current = current[1:]
			}
		}
		current = append(current, s)
		words += s.words
	}
	if len(current) > 0 {
		flush()
	}

	return chunks
}

// SplitSentences splits text at '.', '!' or '?' followed by whitespace or
// end of text. Sentences are trimmed and empty ones dropped.
func SplitSentences(text string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(text)
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type sentence struct {
	text  string
	words int
}

// splitLong cuts a sentence into pieces of at most maxWords words.
func splitLong(s string, maxWords int) []sentence {
	fields := strings.Fields(s)
	if len(fields) <= maxWords {
		return []sentence{{text: s, words: len(fields)}}
	}
	var out []sentence
	for i := 0; i < len(fields); i += maxWords {
		end := min(i+maxWords, len(fields))
		out = append(out, sentence{text: strings.Join(fields[i:end], " "), words: end - i})
	}
	return out
}

// overlapTail returns the longest run of trailing sentences whose total word
// count does not exceed budget, in original order.
func overlapTail(sentences []sentence, budget int) []sentence {
	total := 0
	i := len(sentences)
	for i > 0 && total+sentences[i-1].words <= budget {
		total += sentences[i-1].words
		i--
	}
	tail := make([]sentence, len(sentences)-i)
	copy(tail, sentences[i:])
	return tail
}

func countWords(sentences []sentence) int {
	n := 0
	for _, s := range sentences {
		n += s.words
	}
	return n
}
