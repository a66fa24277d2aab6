// Package ingest walks policy documents through the processing pipeline:
// extract and chunk, embed, then upsert into the vector store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"policybot/internal/embedder"
	"policybot/internal/models"
	"policybot/internal/processor"
	"policybot/internal/vectorstore"
)

var supportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".xlsx": true,
	".ods":  true,
	".md":   true,
	".txt":  true,
}

// Stats summarizes one ingestion run.
type Stats struct {
	Documents int
	Chunks    int
	Failures  int
}

type Ingestor struct {
	processor *processor.Processor
	embedder  embedder.Embedder
	store     vectorstore.Store
}

func New(proc *processor.Processor, emb embedder.Embedder, store vectorstore.Store) *Ingestor {
	return &Ingestor{processor: proc, embedder: emb, store: store}
}

// IngestFile runs one document end to end and returns the number of chunks
// stored.
func (in *Ingestor) IngestFile(ctx context.Context, path string) (int, error) {
	chunks, err := in.processor.ProcessFile(path)
	if err != nil {
		return 0, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := in.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	if err := in.store.Upsert(ctx, chunks); err != nil {
		return 0, fmt.Errorf("storing chunks for %s: %w", filepath.Base(path), err)
	}
	return len(chunks), nil
}

// IngestDir ingests every supported document under dir. A failing document
// is logged and skipped; the rest of the batch continues.
func (in *Ingestor) IngestDir(ctx context.Context, dir string) (Stats, error) {
	var stats Stats
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		n, err := in.IngestFile(ctx, path)
		if err != nil {
			var procErr *models.ProcessingError
			if errors.As(err, &procErr) {
				log.Warn().Str("file", path).Str("reason", procErr.Err.Error()).Msg("skipping document")
			} else {
				log.Error().Err(err).Str("file", path).Msg("ingestion failed")
			}
			stats.Failures++
			return nil
		}

		log.Info().Str("file", path).Int("chunks", n).Msg("document ingested")
		stats.Documents++
		stats.Chunks += n
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("walking %s: %w", dir, err)
	}

	log.Info().
		Int("documents", stats.Documents).
		Int("chunks", stats.Chunks).
		Int("failures", stats.Failures).
		Msg("ingestion complete")
	return stats, nil
}
