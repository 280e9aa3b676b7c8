package postprocessors

import (
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
	"github.com/custodia-labs/mindkeep/internal/postprocessors/chunker"
)

// RegisterDefaults registers the built-in chunking strategies.
// llm and store may be nil; the semantic strategy then always falls back.
func RegisterDefaults(r *Registry, llm driven.LLMService, store driven.PromptStore) {
	r.Register(chunker.MechanicalName, buildMechanical)
	r.Register(chunker.SemanticName, func(cfg map[string]any) (driven.PostProcessor, error) {
		var opts []chunker.SemanticOption
		if n := getIntFromConfig(cfg, "max_input_chars"); n > 0 {
			opts = append(opts, chunker.WithMaxInputChars(n))
		}
		s := chunker.NewSemantic(llm, opts...)
		if store != nil {
			s.SetPromptStore(store)
		}
		return s, nil
	})
}

// buildMechanical creates the mechanical chunker from generic config.
// Supported config keys:
//   - max_words (int): Words per chunk (default: 1000)
//   - overlap (int): Overlapping words between chunks (default: 100)
func buildMechanical(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size := getIntFromConfig(cfg, "max_words"); size > 0 {
		opts = append(opts, chunker.WithMaxWords(size))
	}
	if _, ok := cfg["overlap"]; ok {
		opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
	}

	return chunker.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
