package vectorstore

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"policybot/internal/models"
)

// ChromemStore is the local backend: an in-process index persisted under a
// directory, loaded eagerly at construction. Ingestion is rare and serving
// is frequent, so reads share an RWMutex and only Upsert takes it
// exclusively.
type ChromemStore struct {
	mu         sync.RWMutex
	collection *chromem.Collection
}

// precomputedOnly guards against chromem falling back to its default
// embedding function; every document we add carries its own vector.
func precomputedOnly(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embeddings must be precomputed")
}

// NewChromemStore opens (or creates) the persistent index at path. A
// directory that cannot be opened makes the store unavailable, which is
// fatal to every retrieval-routed query until resolved.
func NewChromemStore(path, collectionName string) (*ChromemStore, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, &models.StoreUnavailableError{Backend: "local", Err: err}
	}
	return newChromemStore(db, collectionName)
}

// NewChromemStoreInMemory builds a non-persistent store, used by tests and
// dry runs.
func NewChromemStoreInMemory(collectionName string) (*ChromemStore, error) {
	return newChromemStore(chromem.NewDB(), collectionName)
}

func newChromemStore(db *chromem.DB, collectionName string) (*ChromemStore, error) {
	c, err := db.GetOrCreateCollection(collectionName, nil, precomputedOnly)
	if err != nil {
		return nil, &models.StoreUnavailableError{Backend: "local", Err: err}
	}
	log.Info().Str("collection", collectionName).Int("documents", c.Count()).Msg("loaded local vector index")
	return &ChromemStore{collection: c}, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, chromem.Document{
			ID:      c.ID,
			Content: c.Text,
			Metadata: map[string]string{
				"source":   c.SourceDocument,
				"sequence": strconv.Itoa(c.SequenceIndex),
				"page":     strconv.Itoa(c.Page),
				"section":  c.Section,
			},
			Embedding: c.Embedding,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("adding documents to local index: %w", err)
	}
	return nil
}

func (s *ChromemStore) Search(ctx context.Context, queryVector []float32, topK int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.collection.Count()
	if n == 0 {
		return nil, nil
	}
	if topK > n {
		topK = n
	}

	hits, err := s.collection.QueryEmbedding(ctx, queryVector, topK, nil, nil)
	if err != nil {
		return nil, &models.StoreUnavailableError{Backend: "local", Err: err}
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		page, _ := strconv.Atoi(h.Metadata["page"])
		results = append(results, Result{
			ChunkID:        h.ID,
			Text:           h.Content,
			SourceDocument: h.Metadata["source"],
			Page:           page,
			Similarity:     h.Similarity,
		})
	}
	return results, nil
}
