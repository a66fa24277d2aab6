package vectorstore

import (
	"context"

	"policybot/internal/models"
)

// Result is a single similarity-search hit.
type Result struct {
	ChunkID        string
	Text           string
	SourceDocument string
	Page           int
	Similarity     float32
}

// Store persists chunk vectors and answers nearest-neighbor queries.
// Search is a pure read: it returns the true top-k hits by similarity for a
// fixed index state, at most topK of them, and never mutates the index.
// The backend is a fixed deployment-time choice; there is no runtime
// fallback between implementations.
type Store interface {
	Upsert(ctx context.Context, chunks []models.DocumentChunk) error
	Search(ctx context.Context, queryVector []float32, topK int) ([]Result, error)
}

// HybridSearcher is an optional upgrade some backends offer: vector search
// combined with keyword matching on the query text.
type HybridSearcher interface {
	SearchHybrid(ctx context.Context, queryVector []float32, queryText string, topK int) ([]Result, error)
}
