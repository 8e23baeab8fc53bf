package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkDocument_Short(t *testing.T) {
	assert.Equal(t, []string{"Run daily."}, ChunkDocument("  Run daily.  "))
	assert.Nil(t, ChunkDocument("   "))
}

func TestChunkDocument_Long(t *testing.T) {
	para := strings.Repeat("Training builds slowly over many weeks. ", 8)
	doc := strings.Join([]string{para, para, para, para}, "\n\n")

	chunks := ChunkDocument(doc)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), ChunkSize, "chunk %d", i)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}

	t.Run("Overlap", func(t *testing.T) {
		tail := overlapText(chunks[0])
		require.NotEmpty(t, tail)
		assert.True(t, strings.HasPrefix(chunks[1], tail))
	})
}

func TestChunkDocument_MultibyteWithoutBoundaries(t *testing.T) {
	doc := strings.Repeat("训练计划需要循序渐进", 120)

	chunks := ChunkDocument(doc)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c))
		assert.LessOrEqual(t, utf8.RuneCountInString(c), ChunkSize)
	}
	assert.Equal(t, doc, strings.Join(chunks, ""))
}

func TestSplitParagraphs(t *testing.T) {
	got := splitParagraphs("line one\nline two\r\n\r\n\n second para ")
	assert.Equal(t, []string{"line one line two", "second para"}, got)
}

func TestChunkInputs(t *testing.T) {
	long := strings.Repeat("word ", 300)
	got := ChunkInputs([]DocumentInput{
		{ID: "short", Content: "tiny"},
		{ID: "long", Content: long, Metadata: map[string]any{"source": "guide"}},
	})

	require.Greater(t, len(got), 2)
	assert.Equal(t, "short", got[0].ID)
	assert.Equal(t, "long#1", got[1].ID)
	assert.Equal(t, "long", got[1].Metadata["parentId"])
	assert.Equal(t, 1, got[1].Metadata["chunk"])
	assert.Equal(t, "guide", got[1].Metadata["source"])
	assert.Equal(t, "long#2", got[2].ID)
}
