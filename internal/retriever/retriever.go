package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"policybot/internal/embedder"
	"policybot/internal/models"
	"policybot/internal/vectorstore"
)

// Weights for re-ranking: vector similarity dominates, lexical overlap with
// the query breaks near-ties.
const (
	similarityWeight = 0.7
	keywordWeight    = 0.3
)

// Retriever turns a query into ranked source passages: embed, search the
// store, drop hits below the similarity threshold, re-rank and truncate.
type Retriever struct {
	embedder  embedder.Embedder
	store     vectorstore.Store
	topK      int
	threshold float32
}

func New(emb embedder.Embedder, store vectorstore.Store, topK int, threshold float32) *Retriever {
	return &Retriever{embedder: emb, store: store, topK: topK, threshold: threshold}
}

// Retrieve returns the top passages for the query. An empty result is a
// valid outcome, distinct from a retrieval failure: no chunk cleared the
// threshold. Errors mean the embedding backend or the store failed.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.RetrievedPassage, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	// Over-fetch so thresholding and re-ranking still leave topK candidates.
	fetch := r.topK * 2
	var hits []vectorstore.Result
	if hs, ok := r.store.(vectorstore.HybridSearcher); ok {
		hits, err = hs.SearchHybrid(ctx, vec, query, fetch)
	} else {
		hits, err = r.store.Search(ctx, vec, fetch)
	}
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	passages := make([]models.RetrievedPassage, 0, len(hits))
	for _, h := range hits {
		if h.Similarity < r.threshold {
			continue
		}
		passages = append(passages, models.RetrievedPassage{
			ChunkID:         h.ChunkID,
			Text:            h.Text,
			SourceDocument:  h.SourceDocument,
			Page:            h.Page,
			SimilarityScore: h.Similarity,
		})
	}
	if len(passages) == 0 {
		log.Debug().Str("query", query).Msg("no passages above similarity threshold")
		return nil, nil
	}

	rerank(query, passages)
	if len(passages) > r.topK {
		passages = passages[:r.topK]
	}
	return passages, nil
}

// rerank orders passages by a blend of vector similarity and query keyword
// overlap. A cross-encoder would do better; this keeps retrieval local.
func rerank(query string, passages []models.RetrievedPassage) {
	queryWords := wordSet(query)
	if len(queryWords) == 0 {
		return
	}

	scores := make(map[string]float64, len(passages))
	for _, p := range passages {
		overlap := 0
		for w := range wordSet(p.Text) {
			if _, ok := queryWords[w]; ok {
				overlap++
			}
		}
		scores[p.ChunkID] = similarityWeight*float64(p.SimilarityScore) +
			keywordWeight*float64(overlap)/float64(len(queryWords))
	}

	sort.SliceStable(passages, func(i, j int) bool {
		return scores[passages[i].ChunkID] > scores[passages[j].ChunkID]
	})
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[strings.Trim(w, ".,!?;:()\"'")] = struct{}{}
	}
	return set
}

// Sources lists the distinct source documents behind the passages, in rank
// order, page-qualified for paged sources.
func Sources(passages []models.RetrievedPassage) []string {
	var sources []string
	seen := make(map[string]struct{})
	for _, p := range passages {
		name := p.SourceDocument
		if p.Page > 0 && strings.HasSuffix(strings.ToLower(name), ".pdf") {
			name = fmt.Sprintf("%s (Page %d)", p.SourceDocument, p.Page)
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		sources = append(sources, name)
	}
	return sources
}
