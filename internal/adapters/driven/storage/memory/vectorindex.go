package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is a brute-force in-memory implementation of driven.VectorIndex.
type VectorIndex struct {
	mu         sync.RWMutex
	records    map[string]domain.EmbeddingRecord
	dimensions int
}

// NewVectorIndex creates a new in-memory vector index.
// A dimensions value of zero adopts the size of the first upserted vector.
func NewVectorIndex(dimensions int) *VectorIndex {
	return &VectorIndex{
		records:    make(map[string]domain.EmbeddingRecord),
		dimensions: dimensions,
	}
}

// Upsert stores records, replacing any with the same ID.
func (v *VectorIndex) Upsert(_ context.Context, records []domain.EmbeddingRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record id required", domain.ErrInvalidInput)
		}
		if v.dimensions == 0 {
			v.dimensions = len(r.Vector)
		}
		if len(r.Vector) != v.dimensions {
			return fmt.Errorf("%w: vector has %d dimensions, index has %d",
				domain.ErrInvalidInput, len(r.Vector), v.dimensions)
		}
	}
	for _, r := range records {
		stored := domain.EmbeddingRecord{
			ID:       r.ID,
			Vector:   append([]float32(nil), r.Vector...),
			Metadata: maps.Clone(r.Metadata),
		}
		v.records[r.ID] = stored
	}
	return nil
}

// Query returns the topK records most similar to vector that match filter.
func (v *VectorIndex) Query(_ context.Context, vector []float32, topK int, filter domain.VectorFilter) ([]domain.VectorMatch, error) {
	if topK <= 0 {
		return nil, nil
	}
	v.mu.RLock()
	defer v.mu.RUnlock()

	matches := make([]domain.VectorMatch, 0)
	for _, r := range v.records {
		if !filter.Matches(r.Metadata) {
			continue
		}
		matches = append(matches, domain.VectorMatch{
			ID:       r.ID,
			Score:    domain.CosineSimilarity(vector, r.Vector),
			Metadata: maps.Clone(r.Metadata),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// DeleteAll removes every record.
func (v *VectorIndex) DeleteAll(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.records = make(map[string]domain.EmbeddingRecord)
	return nil
}

// Stats reports the number of stored vectors.
func (v *VectorIndex) Stats(_ context.Context) (domain.IndexStats, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return domain.IndexStats{TotalVectors: len(v.records), Dimensions: v.dimensions}, nil
}

// Close is a no-op.
func (v *VectorIndex) Close() error {
	return nil
}
