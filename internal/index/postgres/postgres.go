// Package postgres provides an Index adapter backed by PostgreSQL with the
// pgvector extension: cosine kNN over an embedding column and ts_rank lexical
// search over the same rows.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/reglens/reglens/internal/index"
)

// Store implements index.Index on top of a pgx connection pool.
type Store struct {
	pool       *pgxpool.Pool
	dimensions int
}

// New connects to Postgres and ensures the schema exists. dimensions is the
// embedding vector width the table is declared with.
func New(ctx context.Context, connString string, dimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool, dimensions: dimensions}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range migrationStatements(s.dimensions) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func migrationStatements(dimensions int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS indexed_documents (
			chunk_id        TEXT PRIMARY KEY,
			embedding       vector(%d) NOT NULL,
			text            TEXT NOT NULL,
			document_id     TEXT NOT NULL,
			document_title  TEXT NOT NULL DEFAULT '',
			document_type   TEXT NOT NULL DEFAULT '',
			source_location TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			metadata        JSONB NOT NULL DEFAULT '{}'
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS idx_documents_document_id ON indexed_documents(document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_type ON indexed_documents(document_type)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_fts ON indexed_documents
			USING GIN (to_tsvector('english', document_title || ' ' || text))`,
	}
}

const upsertSQL = `
	INSERT INTO indexed_documents
		(chunk_id, embedding, text, document_id, document_title, document_type, source_location, created_at, metadata)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (chunk_id) DO UPDATE SET
		embedding = EXCLUDED.embedding,
		text = EXCLUDED.text,
		document_id = EXCLUDED.document_id,
		document_title = EXCLUDED.document_title,
		document_type = EXCLUDED.document_type,
		source_location = EXCLUDED.source_location,
		created_at = EXCLUDED.created_at,
		metadata = EXCLUDED.metadata`

// Upsert bulk-writes documents with one batched round trip. Individual row
// failures are collected per item; the rest of the batch still lands.
func (s *Store) Upsert(ctx context.Context, docs []index.IndexedDocument) (*index.UpsertResult, error) {
	result := &index.UpsertResult{}
	if len(docs) == 0 {
		return result, nil
	}

	batch := &pgx.Batch{}
	for _, doc := range docs {
		createdAt := doc.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		metadata := doc.Metadata
		if metadata == nil {
			metadata = map[string]string{}
		}
		batch.Queue(upsertSQL,
			doc.ChunkID, pgvector.NewVector(doc.Embedding), doc.Text,
			doc.DocumentID, doc.DocumentTitle, doc.DocumentType,
			doc.SourceLocation, createdAt, metadata,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, doc := range docs {
		if _, err := br.Exec(); err != nil {
			result.Failed = append(result.Failed, index.ItemError{ChunkID: doc.ChunkID, Err: err})
			continue
		}
		result.Indexed++
	}
	return result, nil
}

const documentColumns = `chunk_id, embedding, text, document_id, document_title, document_type, source_location, created_at, metadata`

func knnQuerySQL() string {
	return fmt.Sprintf(`
		SELECT %s, 1 - (embedding <=> $1) AS score
		FROM indexed_documents
		WHERE 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3`, documentColumns)
}

func lexicalQuerySQL(docType string, k int) string {
	sql := fmt.Sprintf(`
		SELECT %s, ts_rank(to_tsvector('english', document_title || ' ' || text),
			plainto_tsquery('english', $1)) AS score
		FROM indexed_documents
		WHERE to_tsvector('english', document_title || ' ' || text) @@ plainto_tsquery('english', $1)`,
		documentColumns)
	if docType != "" {
		sql += ` AND document_type = $2`
	}
	return sql + fmt.Sprintf(` ORDER BY score DESC LIMIT %d`, k)
}

func (s *Store) KNNSearch(ctx context.Context, vector []float32, k int, minScore float64) ([]index.Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, knnQuerySQL(), pgvector.NewVector(vector), minScore, k)
	if err != nil {
		return nil, fmt.Errorf("knn query: %w", err)
	}
	defer rows.Close()

	return scanHits(rows)
}

func (s *Store) LexicalSearch(ctx context.Context, query string, k int, docType string) ([]index.Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	args := []any{query}
	if docType != "" {
		args = append(args, docType)
	}

	rows, err := s.pool.Query(ctx, lexicalQuerySQL(docType, k), args...)
	if err != nil {
		return nil, fmt.Errorf("lexical query: %w", err)
	}
	defer rows.Close()

	return scanHits(rows)
}

func scanHits(rows pgx.Rows) ([]index.Hit, error) {
	var hits []index.Hit
	for rows.Next() {
		var (
			doc       index.IndexedDocument
			embedding pgvector.Vector
			score     float64
		)
		if err := rows.Scan(
			&doc.ChunkID, &embedding, &doc.Text,
			&doc.DocumentID, &doc.DocumentTitle, &doc.DocumentType,
			&doc.SourceLocation, &doc.CreatedAt, &doc.Metadata,
			&score,
		); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		doc.Embedding = embedding.Slice()
		hits = append(hits, index.Hit{Document: doc, Score: score})
	}
	return hits, rows.Err()
}
