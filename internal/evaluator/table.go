// Package evaluator turns session results into a row-aligned comparison
// table with derived metrics. Everything here is a pure function of its input.
package evaluator

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"docqa/internal/domain"
)

// Cell statuses beyond domain.ResultStatus.
const (
	StatusMissing = "missing"
	StatusSkipped = "skipped"
)

// Derived column names.
const (
	ColumnIndex               = "index"
	ColumnInsufficientContext = "insufficient_context"
	ColumnAnyFailure          = "any_failure"
)

// Row maps column name to value: string, int, float64 or bool. Every column
// of the table is present in every row.
type Row map[string]any

// ComparisonTable is a read-only view over SessionResults. Row i holds the
// i-th result of each category.
type ComparisonTable struct {
	Categories []domain.Category `json:"categories"`
	Columns    []string          `json:"columns"`
	Rows       []Row             `json:"rows"`
}

func QuestionColumn(c domain.Category) string { return string(c) + "_question" }

func AnswerColumn(c domain.Category) string { return string(c) }

func StatusColumn(c domain.Category) string { return string(c) + "_status" }

func LengthColumn(c domain.Category) string { return string(c) + "_answer_len" }

func SimilarityColumn(a, b domain.Category) string {
	return fmt.Sprintf("similarity_%s_%s", a, b)
}

// GenerateComparisonTable builds the table. Categories appear in canonical
// order; the row count is the longest question list among them.
func GenerateComparisonTable(results *domain.SessionResults) *ComparisonTable {
	t := &ComparisonTable{Columns: []string{ColumnIndex}, Rows: []Row{}}
	if results == nil {
		return t
	}
	ordered := results.Ordered()
	rows := 0
	for _, cr := range ordered {
		t.Categories = append(t.Categories, cr.Category)
		t.Columns = append(t.Columns, QuestionColumn(cr.Category), AnswerColumn(cr.Category), StatusColumn(cr.Category), LengthColumn(cr.Category))
		rows = max(rows, len(cr.Questions), len(cr.Results))
	}
	pairs := categoryPairs(t.Categories)
	for _, p := range pairs {
		t.Columns = append(t.Columns, SimilarityColumn(p[0], p[1]))
	}
	t.Columns = append(t.Columns, ColumnInsufficientContext, ColumnAnyFailure)

	for i := 0; i < rows; i++ {
		row := Row{ColumnIndex: i}
		answers := map[domain.Category]string{}
		scored := map[domain.Category]bool{}
		insufficient, failure := false, false
		for _, cr := range ordered {
			question, answer, status := cell(cr, i)
			row[QuestionColumn(cr.Category)] = question
			row[AnswerColumn(cr.Category)] = answer
			row[StatusColumn(cr.Category)] = status
			row[LengthColumn(cr.Category)] = utf8.RuneCountInString(answer)
			answers[cr.Category] = answer
			scored[cr.Category] = status == string(domain.StatusAnswered)
			insufficient = insufficient || status == string(domain.StatusInsufficientContext)
			failure = failure || status == string(domain.StatusFailed)
		}
		for _, p := range pairs {
			sim := 0.0
			if scored[p[0]] && scored[p[1]] {
				sim = Similarity(answers[p[0]], answers[p[1]])
			}
			row[SimilarityColumn(p[0], p[1])] = sim
		}
		row[ColumnInsufficientContext] = insufficient
		row[ColumnAnyFailure] = failure
		t.Rows = append(t.Rows, row)
	}
	return t
}

// cell returns the question, answer and status of category cr at row i.
func cell(cr *domain.CategoryResult, i int) (question, answer, status string) {
	if i < len(cr.Questions) {
		question = cr.Questions[i]
	}
	if cr.Outcome == domain.OutcomeSkipped {
		return question, domain.SkippedAnswer, StatusSkipped
	}
	if i >= len(cr.Results) {
		return question, domain.MissingAnswer, StatusMissing
	}
	r := cr.Results[i]
	return r.Question, r.Answer, string(r.Status)
}

func categoryPairs(cats []domain.Category) [][2]domain.Category {
	var out [][2]domain.Category
	for i := 0; i < len(cats); i++ {
		for j := i + 1; j < len(cats); j++ {
			out = append(out, [2]domain.Category{cats[i], cats[j]})
		}
	}
	return out
}

// Similarity is the cosine of the character trigram profiles of a and b,
// rounded to four decimals. Text is NFC-normalised, lower-cased and
// whitespace-collapsed first, so it works across scripts.
func Similarity(a, b string) float64 {
	pa, pb := trigrams(a), trigrams(b)
	if len(pa) == 0 || len(pb) == 0 {
		return 0
	}
	dot, na, nb := 0.0, 0.0, 0.0
	for g, x := range pa {
		na += float64(x * x)
		if y, ok := pb[g]; ok {
			dot += float64(x * y)
		}
	}
	for _, y := range pb {
		nb += float64(y * y)
	}
	return math.Round(dot/math.Sqrt(na*nb)*1e4) / 1e4
}

func trigrams(s string) map[string]int {
	s = norm.NFC.String(strings.ToLower(s))
	s = strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}), " ")
	runes := []rune(" " + s + " ")
	if len(runes) < 3 || strings.TrimSpace(s) == "" {
		return nil
	}
	out := map[string]int{}
	for i := 0; i+3 <= len(runes); i++ {
		out[string(runes[i:i+3])]++
	}
	return out
}
