package processor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policybot/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(parts, " ")
}

func TestProcessTextSingleChunk(t *testing.T) {
	p := New(500, 50)

	chunks, err := p.ProcessText("The vacation policy grants 20 days per year.", "policy.txt")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, "policy.txt#0", chunks[0].ID)
	assert.Equal(t, "policy.txt", chunks[0].SourceDocument)
	assert.Equal(t, 0, chunks[0].SequenceIndex)
	assert.Equal(t, 8, chunks[0].TokenCount)
}

func TestProcessTextOverlap(t *testing.T) {
	p := New(100, 20)

	chunks, err := p.ProcessText(words(250), "long.txt")
	require.NoError(t, err)
	// step of 80 words over 250: windows at 0, 80 and 160
	require.Len(t, chunks, 3)

	for i, c := range chunks {
		assert.Equal(t, i, c.SequenceIndex)
		assert.Equal(t, fmt.Sprintf("long.txt#%d", i), c.ID)
		assert.LessOrEqual(t, c.TokenCount, 100)
	}

	// consecutive windows share the overlap region
	first := strings.Fields(chunks[0].Text)
	second := strings.Fields(chunks[1].Text)
	assert.Equal(t, first[80:], second[:20])
}

func TestProcessTextEmpty(t *testing.T) {
	p := New(500, 50)

	_, err := p.ProcessText("   \n\t  ", "blank.txt")
	var procErr *models.ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "blank.txt", procErr.Source)
}

func TestProcessFileTxt(t *testing.T) {
	path := writeFile(t, "handbook.txt", "Employees accrue leave monthly.\nUnused leave carries over.")

	chunks, err := New(500, 50).ProcessFile(path)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "handbook.txt", chunks[0].SourceDocument)
	assert.Contains(t, chunks[0].Text, "accrue leave")
	assert.Equal(t, 0, chunks[0].Page)
}

func TestProcessFileMarkdown(t *testing.T) {
	path := writeFile(t, "remote.md", "# Remote Work\n\nEmployees may work remotely **two days** per week.\n\n- Mondays\n- Fridays\n")

	chunks, err := New(500, 50).ProcessFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	text := chunks[0].Text
	assert.Contains(t, text, "Remote Work")
	assert.Contains(t, text, "two days")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "**")
}

func TestProcessFileUnsupported(t *testing.T) {
	path := writeFile(t, "image.png", "not text")

	_, err := New(500, 50).ProcessFile(path)
	var procErr *models.ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Contains(t, err.Error(), "unsupported file format")
}

func TestProcessFileMissing(t *testing.T) {
	_, err := New(500, 50).ProcessFile(filepath.Join(t.TempDir(), "gone.txt"))
	var procErr *models.ProcessingError
	require.True(t, errors.As(err, &procErr))
}

func TestNewClampsBadChunking(t *testing.T) {
	p := New(0, -1)
	assert.Equal(t, defaultChunkSize, p.chunkSize)
	assert.Equal(t, defaultChunkOverlap, p.chunkOverlap)

	// overlap >= size falls back too
	p = New(10, 10)
	assert.Equal(t, defaultChunkOverlap, p.chunkOverlap)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, `"quoted" and 'single'`, cleanText("“quoted” and ‘single’"))
	assert.Equal(t, "spaced out", cleanText("  spaced \n\t out  "))
	assert.Equal(t, "no emoji here", cleanText("no emoji \U0001F600 here"))
	assert.Equal(t, "", cleanText("   "))
}
