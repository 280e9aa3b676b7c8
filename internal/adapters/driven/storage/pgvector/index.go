// Package pgvector provides a PostgreSQL vector index backed by the pgvector extension.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultTable is the table holding chunk embeddings.
const DefaultTable = "mindkeep_vectors"

// Config configures the pgvector index.
type Config struct {
	// DSN is a lib/pq connection string.
	DSN string

	// Table overrides DefaultTable.
	Table string

	// Dimensions fixes the column size. Zero leaves the column untyped.
	Dimensions int
}

// Index is a driven.VectorIndex on PostgreSQL.
type Index struct {
	db         *sql.DB
	table      string
	dimensions int
}

// New opens the database, verifies it and creates the table if needed.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: pgvector dsn is required", domain.ErrInvalidInput)
	}
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, unavailable("opening database", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, unavailable("pinging database", err)
	}

	idx := &Index{db: db, table: table, dimensions: cfg.Dimensions}
	if err := idx.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (i *Index) ensureSchema(ctx context.Context) error {
	column := "vector"
	if i.dimensions > 0 {
		column = "vector(" + strconv.Itoa(i.dimensions) + ")"
	}
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`CREATE TABLE IF NOT EXISTS ` + i.table + ` (
			id          TEXT PRIMARY KEY,
			owner_id    TEXT NOT NULL DEFAULT '',
			type        TEXT NOT NULL DEFAULT '',
			document_id TEXT NOT NULL DEFAULT '',
			embedding   ` + column + ` NOT NULL,
			metadata    JSONB NOT NULL DEFAULT '{}'
		)`,
		"CREATE INDEX IF NOT EXISTS " + i.table + "_filter_idx ON " + i.table + " (owner_id, type)",
	}
	for _, stmt := range stmts {
		if _, err := i.db.ExecContext(ctx, stmt); err != nil {
			return unavailable("creating schema", err)
		}
	}
	return nil
}

// Upsert inserts or replaces records by ID in one transaction.
func (i *Index) Upsert(ctx context.Context, records []domain.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record id required", domain.ErrInvalidInput)
		}
		if i.dimensions > 0 && len(r.Vector) != i.dimensions {
			return fmt.Errorf("%w: vector has %d dimensions, index has %d",
				domain.ErrInvalidInput, len(r.Vector), i.dimensions)
		}
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO `+i.table+` (id, owner_id, type, document_id, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			type = EXCLUDED.type,
			document_id = EXCLUDED.document_id,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata
	`)
	if err != nil {
		return unavailable("preparing statement", err)
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
			pgvector.NewVector(r.Vector), string(metadataJSON)); err != nil {
			return unavailable("saving vector", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("committing transaction", err)
	}
	return nil
}

// Query returns the topK records most similar to vector that match filter.
// The <=> operator is cosine distance, so similarity is 1 - distance.
func (i *Index) Query(
	ctx context.Context, vector []float32, topK int, filter domain.VectorFilter,
) ([]domain.VectorMatch, error) {
	if topK <= 0 {
		return nil, nil
	}

	where, args := []string{"1 = 1"}, []any{pgvector.NewVector(vector)}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		where = append(where, "owner_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, "type = $"+strconv.Itoa(len(args)))
	}
	if filter.DocumentID != "" {
		args = append(args, filter.DocumentID)
		where = append(where, "document_id = $"+strconv.Itoa(len(args)))
	}
	args = append(args, topK)

	//nolint:gosec // G202: table name is configuration, values are bound.
	query := `
		SELECT id, metadata, 1 - (embedding <=> $1) AS score
		FROM ` + i.table + `
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY embedding <=> $1, id
		LIMIT $` + strconv.Itoa(len(args))

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("querying vectors", err)
	}
	defer rows.Close()

	matches := make([]domain.VectorMatch, 0, topK)
	for rows.Next() {
		var m domain.VectorMatch
		var metadataJSON []byte
		if err := rows.Scan(&m.ID, &metadataJSON, &m.Score); err != nil {
			return nil, unavailable("scanning vector", err)
		}
		if err := json.Unmarshal(metadataJSON, &m.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating vectors", err)
	}
	return matches, nil
}

// DeleteAll removes every record.
func (i *Index) DeleteAll(ctx context.Context) error {
	if _, err := i.db.ExecContext(ctx, "TRUNCATE "+i.table); err != nil {
		return unavailable("deleting vectors", err)
	}
	return nil
}

// Stats reports the number of stored vectors.
func (i *Index) Stats(ctx context.Context) (domain.IndexStats, error) {
	var total int
	if err := i.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+i.table).Scan(&total); err != nil {
		return domain.IndexStats{}, unavailable("counting vectors", err)
	}
	dims := i.dimensions
	if dims == 0 && total > 0 {
		var sample pgvector.Vector
		if err := i.db.QueryRowContext(ctx, "SELECT embedding FROM "+i.table+" LIMIT 1").Scan(&sample); err != nil {
			return domain.IndexStats{}, unavailable("reading dimensions", err)
		}
		dims = len(sample.Slice())
	}
	return domain.IndexStats{TotalVectors: total, Dimensions: dims}, nil
}

// Close closes the database connection.
func (i *Index) Close() error {
	return i.db.Close()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: pgvector: %s: %w", domain.ErrVectorIndexUnavailable, op, err)
}
