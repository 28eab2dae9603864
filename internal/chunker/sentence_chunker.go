package chunker

import (
	"regexp"
	"strings"

	"docqa/internal/domain"
)

// sentencePattern matches a sentence up to its terminator, including the
// Devanagari danda, or the trailing fragment at end of text.
var sentencePattern = regexp.MustCompile(`[^.!?।॥]+(?:[.!?।॥]+|$)`)

// SentenceChunker splits text into sentence-based chunks with overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
	}
}

type span struct {
	text       string
	start, end int
}

func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	var sentences []span
	for _, loc := range sentencePattern.FindAllStringIndex(document.Content, -1) {
		text := strings.TrimSpace(document.Content[loc[0]:loc[1]])
		if text == "" {
			continue
		}
		sentences = append(sentences, span{text: text, start: loc[0], end: loc[1]})
	}
	if len(sentences) == 0 {
		return nil, nil
	}
	var chunks []domain.Chunk
	i := 0
	for i < len(sentences) {
		end := min(i+c.sentencesPerChunk, len(sentences))
		parts := make([]string, 0, end-i)
		for _, s := range sentences[i:end] {
			parts = append(parts, s.text)
		}
		chunks = append(chunks, newChunk(document, len(chunks), strings.Join(parts, " "), sentences[i].start, sentences[end-1].end))
		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
	}
	return chunks, nil
}
