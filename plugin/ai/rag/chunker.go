package rag

import (
	"fmt"
	"maps"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// ChunkSize is the maximum rune count per chunk.
	ChunkSize = 500
	// ChunkOverlap is the rune count carried over from the previous chunk.
	ChunkOverlap = 50
)

// ChunkDocument splits a long document into chunks for embedding,
// preferring paragraph, then sentence, then word boundaries.
func ChunkDocument(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if utf8.RuneCountInString(content) <= ChunkSize {
		return []string{content}
	}

	var chunks []string
	var current []rune
	for _, para := range splitParagraphs(content) {
		p := []rune(para)
		// carried: current holds only the previous chunk's overlap.
		carried := false
		if len(current) > 0 && len(current)+2+len(p) > ChunkSize {
			chunks = append(chunks, string(current))
			current = nil
			if overlap := overlapText(chunks[len(chunks)-1]); overlap != "" {
				current = append([]rune(overlap), '\n', '\n')
				carried = true
			}
		}
		if len(current) > 0 && !carried {
			current = append(current, '\n', '\n')
		}
		current = append(current, p...)

		for len(current) > ChunkSize {
			bp := breakPoint(current[:ChunkSize])
			chunks = append(chunks, strings.TrimSpace(string(current[:bp])))
			current = []rune(strings.TrimLeftFunc(string(current[bp:]), unicode.IsSpace))
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, string(current))
	}
	return chunks
}

// splitParagraphs splits on blank lines and joins wrapped lines.
func splitParagraphs(content string) []string {
	var result []string
	var current strings.Builder
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if current.Len() > 0 {
				result = append(result, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// overlapText returns the tail of chunk, starting at a word boundary.
func overlapText(chunk string) string {
	r := []rune(chunk)
	if len(r) <= ChunkOverlap {
		return chunk
	}
	tail := r[len(r)-ChunkOverlap:]
	for i, c := range tail {
		if unicode.IsSpace(c) {
			return string(tail[i+1:])
		}
	}
	return string(tail)
}

// breakPoint finds where to split text: after a sentence end, else at a
// space in the second half, else at the end.
func breakPoint(text []rune) int {
	for i := len(text) - 1; i >= 0; i-- {
		if (text[i] == '.' || text[i] == '!' || text[i] == '?') && (i == len(text)-1 || unicode.IsSpace(text[i+1])) {
			return i + 1
		}
	}
	for i := len(text) - 1; i >= len(text)/2; i-- {
		if unicode.IsSpace(text[i]) {
			return i
		}
	}
	return len(text)
}

// ChunkInputs expands every input longer than ChunkSize into one input per
// chunk with ids "<id>#<n>" and parentId/chunk metadata. Short inputs pass
// through unchanged.
func ChunkInputs(inputs []DocumentInput) []DocumentInput {
	out := make([]DocumentInput, 0, len(inputs))
	for _, in := range inputs {
		chunks := ChunkDocument(in.Content)
		if len(chunks) <= 1 {
			out = append(out, in)
			continue
		}
		for n, c := range chunks {
			meta := maps.Clone(in.Metadata)
			if meta == nil {
				meta = map[string]any{}
			}
			meta["parentId"] = in.ID
			meta["chunk"] = n + 1
			out = append(out, DocumentInput{
				ID:       fmt.Sprintf("%s#%d", in.ID, n+1),
				Content:  c,
				Metadata: meta,
			})
		}
	}
	return out
}
