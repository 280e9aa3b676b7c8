package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

func record(id, owner, kind string, vec ...float32) domain.EmbeddingRecord {
	return domain.EmbeddingRecord{
		ID:     id,
		Vector: vec,
		Metadata: map[string]any{
			domain.MetaOwnerID: owner,
			domain.MetaType:    kind,
			domain.MetaText:    id,
		},
	}
}

func TestVectorIndex_QueryOrdersByScore(t *testing.T) {
	idx := NewVectorIndex(2)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []domain.EmbeddingRecord{
		record("far", "u1", domain.RecordTypeNoteChunk, 0, 1),
		record("near", "u1", domain.RecordTypeNoteChunk, 1, 0.1),
		record("mid", "u1", domain.RecordTypeNoteChunk, 1, 1),
	}))

	matches, err := idx.Query(ctx, []float32{1, 0}, 2, domain.VectorFilter{})

	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "near", matches[0].ID)
	assert.Equal(t, "mid", matches[1].ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestVectorIndex_QueryFilters(t *testing.T) {
	idx := NewVectorIndex(0)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []domain.EmbeddingRecord{
		record("a", "u1", domain.RecordTypeEmailChunk, 1, 0),
		record("b", "u1", domain.RecordTypeNoteChunk, 1, 0),
		record("c", "u2", domain.RecordTypeEmailChunk, 1, 0),
	}))

	matches, err := idx.Query(ctx, []float32{1, 0}, 10, domain.VectorFilter{OwnerID: "u1", Type: domain.RecordTypeEmailChunk})

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].ID)
}

func TestVectorIndex_UpsertReplaces(t *testing.T) {
	idx := NewVectorIndex(2)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []domain.EmbeddingRecord{record("a", "u1", "x", 1, 0)}))
	require.NoError(t, idx.Upsert(ctx, []domain.EmbeddingRecord{record("a", "u1", "x", 0, 1)}))

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalVectors)

	matches, err := idx.Query(ctx, []float32{0, 1}, 1, domain.VectorFilter{})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestVectorIndex_RejectsBadRecords(t *testing.T) {
	idx := NewVectorIndex(3)
	ctx := context.Background()

	assert.ErrorIs(t, idx.Upsert(ctx, []domain.EmbeddingRecord{record("a", "u1", "x", 1, 0)}), domain.ErrInvalidInput)
	assert.ErrorIs(t, idx.Upsert(ctx, []domain.EmbeddingRecord{record("", "u1", "x", 1, 0, 0)}), domain.ErrInvalidInput)

	stats, _ := idx.Stats(ctx)
	assert.Zero(t, stats.TotalVectors)
}

func TestVectorIndex_DeleteAllAndStats(t *testing.T) {
	idx := NewVectorIndex(0)
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, []domain.EmbeddingRecord{record("a", "u1", "x", 1, 2, 3)}))

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexStats{TotalVectors: 1, Dimensions: 3}, stats)

	require.NoError(t, idx.DeleteAll(ctx))
	stats, _ = idx.Stats(ctx)
	assert.Zero(t, stats.TotalVectors)

	matches, err := idx.Query(ctx, []float32{1, 2, 3}, 0, domain.VectorFilter{})
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.NoError(t, idx.Close())
}

func TestVectorIndex_MetadataIsCopied(t *testing.T) {
	idx := NewVectorIndex(0)
	ctx := context.Background()
	rec := record("a", "u1", "x", 1, 0)
	require.NoError(t, idx.Upsert(ctx, []domain.EmbeddingRecord{rec}))

	rec.Metadata[domain.MetaOwnerID] = "mutated"

	matches, err := idx.Query(ctx, []float32{1, 0}, 1, domain.VectorFilter{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
