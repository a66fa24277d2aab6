package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"policybot/internal/config"
	"policybot/internal/models"
)

type chunkRow struct {
	bun.BaseModel `bun:"table:policy_chunks,alias:c"`
	ID            string  `bun:"id,pk"`
	SourceDoc     string  `bun:"source_document,notnull"`
	SequenceIndex int     `bun:"sequence_index,notnull"`
	Page          int     `bun:"page"`
	Section       string  `bun:"section"`
	Text          string  `bun:"chunk_text,notnull"`
	Embedding     string  `bun:"embedding,notnull"`
	Similarity    float32 `bun:"similarity,scanonly"`
}

// PostgresStore is the remote backend: a managed pgvector index searched
// with cosine distance. It optionally mixes in keyword matching when
// hybrid scoring is configured.
type PostgresStore struct {
	db        *bun.DB
	dimension int
	hybrid    bool
}

func NewPostgresStore(cfg config.StoreConfig) *PostgresStore {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithPassword(cfg.Password),
	))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &PostgresStore{db: db, dimension: cfg.Dimension, hybrid: cfg.HybridKeyword}
}

// Init verifies connectivity and creates the table with the configured
// vector dimension. Called once at startup; an unreachable service is
// reported as StoreUnavailableError.
func (s *PostgresStore) Init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &models.StoreUnavailableError{Backend: "postgres", Err: err}
	}
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return &models.StoreUnavailableError{Backend: "postgres", Err: err}
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS policy_chunks (
		id text PRIMARY KEY,
		source_document text NOT NULL,
		sequence_index int NOT NULL,
		page int,
		section text,
		chunk_text text NOT NULL,
		embedding vector(%d) NOT NULL
	)`, s.dimension)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return &models.StoreUnavailableError{Backend: "postgres", Err: err}
	}
	return nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) Upsert(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]chunkRow, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, chunkRow{
			ID:            c.ID,
			SourceDoc:     c.SourceDocument,
			SequenceIndex: c.SequenceIndex,
			Page:          c.Page,
			Section:       c.Section,
			Text:          c.Text,
			Embedding:     vectorLiteral(c.Embedding),
		})
	}
	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("chunk_text = EXCLUDED.chunk_text").
		Set("embedding = EXCLUDED.embedding").
		Exec(ctx)
	if err != nil {
		return &models.StoreUnavailableError{Backend: "postgres", Err: err}
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, queryVector []float32, topK int) ([]Result, error) {
	lit := vectorLiteral(queryVector)
	var rows []chunkRow
	err := s.db.NewSelect().
		Model(&rows).
		Column("id", "source_document", "sequence_index", "page", "section", "chunk_text").
		ColumnExpr("1 - (embedding <=> ?::vector) AS similarity", lit).
		OrderExpr("embedding <=> ?::vector", lit).
		Limit(topK).
		Scan(ctx)
	if err != nil {
		return nil, &models.StoreUnavailableError{Backend: "postgres", Err: err}
	}
	return toResults(rows), nil
}

// SearchHybrid ranks by cosine similarity plus a small boost per query
// keyword found in the chunk text. Result.Similarity stays the pure cosine
// similarity so callers can still threshold on the vector score alone; the
// boosts only affect ordering.
func (s *PostgresStore) SearchHybrid(ctx context.Context, queryVector []float32, queryText string, topK int) ([]Result, error) {
	if !s.hybrid {
		return s.Search(ctx, queryVector, topK)
	}
	lit := vectorLiteral(queryVector)

	rankExpr := strings.Builder{}
	rankExpr.WriteString("(1 - (embedding <=> ?::vector)")
	args := []any{lit}
	for _, term := range keywordTerms(queryText) {
		rankExpr.WriteString(" + (CASE WHEN chunk_text ILIKE ? THEN 0.05 ELSE 0 END)")
		args = append(args, "%"+term+"%")
	}
	rankExpr.WriteString(") DESC")

	var rows []chunkRow
	err := s.db.NewSelect().
		Model(&rows).
		Column("id", "source_document", "sequence_index", "page", "section", "chunk_text").
		ColumnExpr("1 - (embedding <=> ?::vector) AS similarity", lit).
		OrderExpr(rankExpr.String(), args...).
		Limit(topK).
		Scan(ctx)
	if err != nil {
		return nil, &models.StoreUnavailableError{Backend: "postgres", Err: err}
	}
	return toResults(rows), nil
}

func toResults(rows []chunkRow) []Result {
	results := make([]Result, 0, len(rows))
	for _, r := range rows {
		results = append(results, Result{
			ChunkID:        r.ID,
			Text:           r.Text,
			SourceDocument: r.SourceDoc,
			Page:           r.Page,
			Similarity:     r.Similarity,
		})
	}
	return results
}

// vectorLiteral renders a pgvector input literal like [0.1,0.2].
func vectorLiteral(vec []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%g", v)
	}
	sb.WriteByte(']')
	return sb.String()
}

// keywordTerms picks up to five lowercase query words long enough to be
// meaningful for ILIKE matching.
func keywordTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, ".,!?;:()\"'")
		if len(w) < 4 {
			continue
		}
		terms = append(terms, w)
		if len(terms) == 5 {
			break
		}
	}
	return terms
}
