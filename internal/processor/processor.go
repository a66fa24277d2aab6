package processor

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"policybot/internal/models"
)

const (
	defaultChunkSize    = 500 // tokens
	defaultChunkOverlap = 50  // tokens
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	specialRe    = regexp.MustCompile(`[^\w\s.,!?;:()\-'"]+`)
	quoteRepl    = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")
)

// Processor splits source documents into overlapping chunks ready for
// embedding. It has no side effects; persistence is the caller's job.
type Processor struct {
	chunkSize    int
	chunkOverlap int
}

func New(chunkSize, chunkOverlap int) *Processor {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = defaultChunkOverlap
	}
	return &Processor{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// page is one extracted unit of source text. Number is 0 for unpaged formats.
type page struct {
	number  int
	section string
	text    string
}

// ProcessFile extracts text from a file and chunks it. The format is chosen
// by extension. Unreadable, unsupported or empty sources yield a
// ProcessingError.
func (p *Processor) ProcessFile(path string) ([]models.DocumentChunk, error) {
	source := filepath.Base(path)

	var pages []page
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		pages, err = extractPDF(path)
	case ".docx":
		pages, err = extractDOCX(path)
	case ".xlsx":
		pages, err = extractXLSX(path)
	case ".ods":
		pages, err = extractODS(path)
	case ".md":
		pages, err = extractMarkdown(path)
	case ".txt":
		pages, err = extractText(path)
	default:
		return nil, &models.ProcessingError{Source: source, Err: fmt.Errorf("unsupported file format: %s", ext)}
	}
	if err != nil {
		return nil, &models.ProcessingError{Source: source, Err: err}
	}

	chunks := p.chunkPages(source, pages)
	if len(chunks) == 0 {
		return nil, &models.ProcessingError{Source: source, Err: fmt.Errorf("no text content after cleaning")}
	}

	log.Debug().Str("source", source).Int("chunks", len(chunks)).Msg("processed document")
	return chunks, nil
}

// ProcessText chunks raw text under the given source identifier.
func (p *Processor) ProcessText(text, source string) ([]models.DocumentChunk, error) {
	chunks := p.chunkPages(source, []page{{text: text}})
	if len(chunks) == 0 {
		return nil, &models.ProcessingError{Source: source, Err: fmt.Errorf("no text content after cleaning")}
	}
	return chunks, nil
}

// chunkPages cleans and splits each page, assigning a sequence index that is
// monotone across the whole document.
func (p *Processor) chunkPages(source string, pages []page) []models.DocumentChunk {
	var chunks []models.DocumentChunk
	seq := 0
	for _, pg := range pages {
		cleaned := cleanText(pg.text)
		if cleaned == "" {
			continue
		}
		for _, part := range p.split(cleaned) {
			chunks = append(chunks, models.DocumentChunk{
				ID:             fmt.Sprintf("%s#%d", source, seq),
				SourceDocument: source,
				SequenceIndex:  seq,
				Text:           part,
				TokenCount:     len(strings.Fields(part)),
				Page:           pg.number,
				Section:        pg.section,
			})
			seq++
		}
	}
	return chunks
}

// split breaks text into word windows of chunkSize with chunkOverlap words
// shared between consecutive windows.
func (p *Processor) split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= p.chunkSize {
		return []string{strings.Join(words, " ")}
	}

	step := p.chunkSize - p.chunkOverlap
	var parts []string
	for start := 0; start < len(words); start += step {
		end := start + p.chunkSize
		if end > len(words) {
			end = len(words)
		}
		parts = append(parts, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return parts
}

// cleanText collapses whitespace, normalizes curly quotes and drops
// characters outside basic text and punctuation.
func cleanText(text string) string {
	text = quoteRepl.Replace(text)
	text = specialRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
