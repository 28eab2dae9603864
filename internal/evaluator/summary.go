package evaluator

import (
	"math"
	"unicode/utf8"

	"docqa/internal/domain"
)

// CategorySummary aggregates one category's column of the table.
type CategorySummary struct {
	Category         domain.Category `json:"category"`
	Outcome          domain.Outcome  `json:"outcome"`
	Questions        int             `json:"questions"`
	Answered         int             `json:"answered"`
	Insufficient     int             `json:"insufficient_context"`
	Failed           int             `json:"failed"`
	Missing          int             `json:"missing"`
	MeanAnswerLength float64         `json:"mean_answer_len"`
}

// Summary is the per-category roll-up plus mean pairwise similarity.
type Summary struct {
	Categories     []CategorySummary  `json:"categories"`
	MeanSimilarity map[string]float64 `json:"mean_similarity"`
}

// Summarize rolls up results and the table derived from them.
func Summarize(results *domain.SessionResults, table *ComparisonTable) Summary {
	s := Summary{MeanSimilarity: map[string]float64{}}
	if results == nil {
		return s
	}
	for _, cr := range results.Ordered() {
		cs := CategorySummary{Category: cr.Category, Outcome: cr.Outcome, Questions: len(cr.Questions)}
		total := 0
		for _, r := range cr.Results {
			switch r.Status {
			case domain.StatusAnswered:
				cs.Answered++
				total += utf8.RuneCountInString(r.Answer)
			case domain.StatusInsufficientContext:
				cs.Insufficient++
			case domain.StatusFailed:
				cs.Failed++
			}
		}
		if cr.Outcome == domain.OutcomeSkipped {
			cs.Missing = len(cr.Questions)
		} else {
			cs.Missing = max(0, len(cr.Questions)-len(cr.Results))
		}
		if cs.Answered > 0 {
			cs.MeanAnswerLength = round(float64(total) / float64(cs.Answered))
		}
		s.Categories = append(s.Categories, cs)
	}
	if table == nil {
		return s
	}
	for _, a := range table.Categories {
		for _, b := range table.Categories {
			if a.Rank() >= b.Rank() {
				continue
			}
			col := SimilarityColumn(a, b)
			sum := 0.0
			for _, row := range table.Rows {
				if v, ok := row[col].(float64); ok {
					sum += v
				}
			}
			if len(table.Rows) > 0 {
				s.MeanSimilarity[col] = round(sum / float64(len(table.Rows)))
			}
		}
	}
	return s
}

func round(v float64) float64 { return math.Round(v*1e4) / 1e4 }
