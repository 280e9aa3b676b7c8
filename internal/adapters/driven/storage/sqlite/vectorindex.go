package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex stores embeddings as little-endian float32 blobs and scores
// candidates in Go. Owner and type filters are pushed into SQL.
type VectorIndex struct {
	store *Store

	mu         sync.Mutex
	dimensions int
}

// VectorIndex returns a vector index sharing this store's connection.
// A dimensions value of zero adopts the size of the stored vectors.
func (s *Store) VectorIndex(dimensions int) *VectorIndex {
	return &VectorIndex{store: s, dimensions: dimensions}
}

// Upsert inserts or replaces records by ID in one transaction.
func (v *VectorIndex) Upsert(ctx context.Context, records []domain.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	dims, err := v.dims(ctx)
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record id required", domain.ErrInvalidInput)
		}
		if dims == 0 {
			dims = len(r.Vector)
		}
		if len(r.Vector) != dims {
			return fmt.Errorf("%w: vector has %d dimensions, index has %d",
				domain.ErrInvalidInput, len(r.Vector), dims)
		}
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return v.unavailable("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (id, owner_id, type, document_id, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			type = excluded.type,
			document_id = excluded.document_id,
			embedding = excluded.embedding,
			metadata = excluded.metadata
	`)
	if err != nil {
		return v.unavailable("preparing statement", err)
	}
	defer stmt.Close()

	for _, r := range records {
		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID,
			domain.MetaString(r.Metadata, domain.MetaOwnerID),
			domain.MetaString(r.Metadata, domain.MetaType),
			domain.MetaString(r.Metadata, domain.MetaDocumentID),
			float32SliceToBytes(r.Vector), string(metadataJSON)); err != nil {
			return v.unavailable("saving vector", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return v.unavailable("committing transaction", err)
	}
	v.mu.Lock()
	v.dimensions = dims
	v.mu.Unlock()
	return nil
}

// Query returns the topK records most similar to vector that match filter.
func (v *VectorIndex) Query(
	ctx context.Context, vector []float32, topK int, filter domain.VectorFilter,
) ([]domain.VectorMatch, error) {
	if topK <= 0 {
		return nil, nil
	}

	query := "SELECT id, embedding, metadata FROM vectors WHERE 1 = 1"
	var args []any
	if filter.OwnerID != "" {
		query += " AND owner_id = ?"
		args = append(args, filter.OwnerID)
	}
	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, filter.Type)
	}
	if filter.DocumentID != "" {
		query += " AND document_id = ?"
		args = append(args, filter.DocumentID)
	}

	rows, err := v.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, v.unavailable("querying vectors", err)
	}
	defer rows.Close()

	matches := make([]domain.VectorMatch, 0)
	for rows.Next() {
		var id, metadataJSON string
		var blob []byte
		if err := rows.Scan(&id, &blob, &metadataJSON); err != nil {
			return nil, v.unavailable("scanning vector", err)
		}
		var meta map[string]any
		if err := json.Unmarshal([]byte(metadataJSON), &meta); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
		matches = append(matches, domain.VectorMatch{
			ID:       id,
			Score:    domain.CosineSimilarity(vector, bytesToFloat32Slice(blob)),
			Metadata: meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, v.unavailable("iterating vectors", err)
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
func (v *VectorIndex) DeleteAll(ctx context.Context) error {
	if _, err := v.store.db.ExecContext(ctx, "DELETE FROM vectors"); err != nil {
		return v.unavailable("deleting vectors", err)
	}
	return nil
}

// Stats reports the number of stored vectors.
func (v *VectorIndex) Stats(ctx context.Context) (domain.IndexStats, error) {
	var total int
	if err := v.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors").Scan(&total); err != nil {
		return domain.IndexStats{}, v.unavailable("counting vectors", err)
	}
	dims, err := v.dims(ctx)
	if err != nil {
		return domain.IndexStats{}, err
	}
	return domain.IndexStats{TotalVectors: total, Dimensions: dims}, nil
}

// Close is a no-op; the owning Store holds the connection.
func (v *VectorIndex) Close() error {
	return nil
}

// dims returns the configured dimensions or the size of a stored vector.
func (v *VectorIndex) dims(ctx context.Context) (int, error) {
	v.mu.Lock()
	known := v.dimensions
	v.mu.Unlock()
	if known > 0 {
		return known, nil
	}
	var size int
	err := v.store.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(LENGTH(embedding)), 0) FROM vectors").Scan(&size)
	if err != nil {
		return 0, v.unavailable("reading dimensions", err)
	}
	return size / 4, nil
}

func (v *VectorIndex) unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrVectorIndexUnavailable, op, err)
}
