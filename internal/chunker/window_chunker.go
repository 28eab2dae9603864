package chunker

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
)

// WindowChunker splits text into fixed-size character windows that overlap by
// a fixed number of characters. Sizes count runes, not bytes, so Devanagari
// text is not cut inside a code point.
type WindowChunker struct {
	size    int
	overlap int
}

// NewWindowChunker creates a window chunker. Invalid sizes are clamped.
func NewWindowChunker(size, overlap int) *WindowChunker {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &WindowChunker{size: size, overlap: overlap}
}

// Chunk returns windows in document order. Whitespace-only windows are
// dropped; chunk indexes stay dense.
func (c *WindowChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	content := document.Content
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	// offsets[i] is the byte offset of rune i; the final entry is len(content).
	offsets := make([]int, 0, utf8.RuneCountInString(content)+1)
	for i := range content {
		offsets = append(offsets, i)
	}
	runes := len(offsets)
	offsets = append(offsets, len(content))

	step := c.size - c.overlap
	var chunks []domain.Chunk
	for start := 0; start < runes; start += step {
		end := min(start+c.size, runes)
		raw := content[offsets[start]:offsets[end]]
		if text := strings.TrimSpace(raw); text != "" {
			chunks = append(chunks, newChunk(document, len(chunks), text, offsets[start], offsets[end]))
		}
		if end == runes {
			break
		}
	}
	return chunks, nil
}

func newChunk(document domain.Document, idx int, text string, start, end int) domain.Chunk {
	return domain.Chunk{
		DocumentID: document.ID,
		ChunkID:    document.ID + ":" + strconv.Itoa(idx),
		Text:       text,
		Index:      idx,
		Start:      start,
		End:        end,
	}
}
