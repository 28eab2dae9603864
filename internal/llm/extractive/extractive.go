// Package extractive is an offline backend that answers by lifting the
// context sentences that best match the question.
package extractive

import (
	"context"
	"strings"

	"docqa/internal/llm"
	"docqa/internal/summarizer"
)

// Generator picks answer sentences out of the request context.
type Generator struct {
	summarizer   *summarizer.FrequencySummarizer
	maxSentences int
}

func New(maxSentences int) *Generator {
	if maxSentences <= 0 {
		maxSentences = 2
	}
	return &Generator{summarizer: summarizer.NewFrequencySummarizer(), maxSentences: maxSentences}
}

func (g *Generator) Name() string { return "extractive" }

// Generate replies with the refusal token when the context shares no
// content word with the question.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text := strings.TrimSpace(req.Context)
	if text == "" || summarizer.Overlap(text, req.Question) == 0 {
		return llm.RefusalToken, nil
	}
	var relevant []string
	for _, s := range summarizer.Sentences(text) {
		if summarizer.Overlap(s, req.Question) > 0 {
			relevant = append(relevant, s)
		}
	}
	return g.summarizer.SummarizeFor(strings.Join(relevant, "\n"), req.Question, g.maxSentences)
}

var _ llm.Generator = (*Generator)(nil)
