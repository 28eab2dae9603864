package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/textproc"
)

// sentencePattern splits on Latin terminators and the Devanagari danda.
var sentencePattern = regexp.MustCompile(`[^.!?।॥\n]+(?:[.!?।॥]+|\n|$)`)

// FrequencySummarizer ranks sentences by word frequency (stopwords filtered).
type FrequencySummarizer struct {
	// QueryWeight scales the bonus a sentence earns per query token it contains.
	QueryWeight float64
}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{QueryWeight: 2}
}

// Summarize returns a short summary by ranking sentences using token frequency.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	return s.SummarizeFor(text, "", maxSentences)
}

// SummarizeFor ranks sentences like Summarize but boosts those sharing
// tokens with query. Selected sentences keep their original order.
func (s *FrequencySummarizer) SummarizeFor(text, query string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	sentences := Sentences(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}
	tokens := make([][]string, len(sentences))
	freq := map[string]float64{}
	for i, sent := range sentences {
		tokens[i] = textproc.Tokens(sent)
		for _, tok := range tokens[i] {
			freq[tok]++
		}
	}
	// Normalize frequencies
	maxF := 0.0
	for _, v := range freq {
		maxF = max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}
	qset := textproc.TokenSet(query)

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i := range sentences {
		sscore := 0.0
		hits := map[string]struct{}{}
		for _, tok := range tokens[i] {
			sscore += freq[tok]
			if _, ok := qset[tok]; ok {
				hits[tok] = struct{}{}
			}
		}
		// Normalize by sentence length to avoid bias
		if l := float64(len(tokens[i])); l > 0 {
			sscore /= math.Sqrt(l)
		}
		sscore += s.QueryWeight * float64(len(hits))
		scores[i] = pair{i, sscore}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	maxSentences = min(maxSentences, len(scores))
	selected := make([]int, maxSentences)
	for i := 0; i < maxSentences; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return strings.Join(out, " "), nil
}

// Overlap reports how many distinct query tokens appear in text.
func Overlap(text, query string) int {
	qset := textproc.TokenSet(query)
	n := 0
	for tok := range textproc.TokenSet(text) {
		if _, ok := qset[tok]; ok {
			n++
		}
	}
	return n
}

// Sentences splits text into trimmed, non-empty sentences.
func Sentences(text string) []string {
	raw := sentencePattern.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if t := strings.TrimSpace(r); t != "" {
			out = append(out, t)
		}
	}
	return out
}

var _ domain.Summarizer = (*FrequencySummarizer)(nil)
