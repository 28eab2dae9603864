package domain

import (
	"strings"
	"time"
)

// Markers placed in QAResult.Answer and comparison cells. Each is distinct so
// "model had nothing to say" never reads like "the pipeline broke".
const (
	InsufficientContextMarker = "[insufficient-context]"
	ErrorMarker               = "[answer-error]"
	MissingAnswer             = "[missing]"
	SkippedAnswer             = "[category skipped]"
)

// ContextSeparator joins retrieved passages into the context string handed to
// an engine and stored on the result.
const ContextSeparator = "\n\n"

// ResultStatus classifies a single QAResult.
type ResultStatus string

const (
	StatusAnswered            ResultStatus = "answered"
	StatusInsufficientContext ResultStatus = "insufficient_context"
	StatusFailed              ResultStatus = "failed"
)

// QAResult is the answer to one question, with the exact context the engine saw.
type QAResult struct {
	Question string       `json:"question"`
	Answer   string       `json:"answer"`
	Context  string       `json:"context"`
	Status   ResultStatus `json:"status"`
}

// NewAnswered classifies answer as answered or insufficient context.
func NewAnswered(question, answer, context string) QAResult {
	status := StatusAnswered
	if IsInsufficientContext(answer) {
		status = StatusInsufficientContext
	}
	return QAResult{Question: question, Answer: answer, Context: context, Status: status}
}

// NewFailed records a question whose answer generation failed. The context is
// left empty.
func NewFailed(question string, err error) QAResult {
	answer := ErrorMarker
	if err != nil {
		answer += " " + err.Error()
	}
	return QAResult{Question: question, Answer: answer, Status: StatusFailed}
}

// IsInsufficientContext reports whether answer is the insufficient context sentinel.
func IsInsufficientContext(answer string) bool {
	return strings.HasPrefix(answer, InsufficientContextMarker)
}

// IsErrorMarker reports whether answer records a failed generation.
func IsErrorMarker(answer string) bool {
	return strings.HasPrefix(answer, ErrorMarker)
}

// JoinContext renders retrieved chunks as one context string.
func JoinContext(results []SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Chunk.Text)
	}
	return strings.Join(parts, ContextSeparator)
}

// Outcome is the accumulated state of one category after a session.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeSkipped Outcome = "skipped"
)

// CategoryResult is the ordered result list for one category plus its outcome.
type CategoryResult struct {
	Category  Category   `json:"category"`
	Path      string     `json:"path"`
	Outcome   Outcome    `json:"outcome"`
	Questions []string   `json:"questions"`
	Results   []QAResult `json:"results"`
	Error     string     `json:"error,omitempty"`
	Err       error      `json:"-"`
}

// Failures counts results carrying the error marker.
func (r *CategoryResult) Failures() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Complete reports whether every question has a result.
func (r *CategoryResult) Complete() bool {
	return r.Outcome != OutcomeSkipped && len(r.Results) == len(r.Questions)
}

// SessionResults maps each input category to its ordered results.
type SessionResults struct {
	ID         string                       `json:"id"`
	StartedAt  time.Time                    `json:"started_at"`
	FinishedAt time.Time                    `json:"finished_at"`
	Categories map[Category]*CategoryResult `json:"categories"`
}

// NewSessionResults returns an empty result set.
func NewSessionResults(id string) *SessionResults {
	return &SessionResults{ID: id, Categories: make(map[Category]*CategoryResult)}
}

// Ordered returns the present categories in canonical order.
func (s *SessionResults) Ordered() []*CategoryResult {
	out := make([]*CategoryResult, 0, len(s.Categories))
	for _, c := range Categories() {
		if r, ok := s.Categories[c]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Produced reports whether any category produced at least one result.
func (s *SessionResults) Produced() bool {
	for _, r := range s.Categories {
		if r.Outcome != OutcomeSkipped && len(r.Results) > 0 {
			return true
		}
	}
	return false
}

// Record is the presentation view of one QAResult.
type Record struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Context  string `json:"context"`
}

// Records returns {category: [{question, answer, context}]}. Skipped
// categories map to an empty list; their outcome is on CategoryResult.
func (s *SessionResults) Records() map[string][]Record {
	out := make(map[string][]Record, len(s.Categories))
	for c, r := range s.Categories {
		recs := make([]Record, 0, len(r.Results))
		for _, res := range r.Results {
			recs = append(recs, Record{Question: res.Question, Answer: res.Answer, Context: res.Context})
		}
		out[string(c)] = recs
	}
	return out
}
