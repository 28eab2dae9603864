package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"docqa/internal/evaluator"
)

// RenderTable draws the comparison table for a terminal. Answer cells are
// truncated to cellWidth runes; cellWidth <= 0 leaves them whole.
func RenderTable(t *evaluator.ComparisonTable, cellWidth int) string {
	headers := []string{"#"}
	for _, c := range t.Categories {
		headers = append(headers, string(c))
	}
	var simCols []string
	for i, a := range t.Categories {
		for _, b := range t.Categories[i+1:] {
			col := evaluator.SimilarityColumn(a, b)
			simCols = append(simCols, col)
			headers = append(headers, fmt.Sprintf("sim %s/%s", abbrev(string(a)), abbrev(string(b))))
		}
	}
	headers = append(headers, "insufficient", "failure")

	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := []string{evaluator.FormatValue(r[evaluator.ColumnIndex])}
		for _, c := range t.Categories {
			row = append(row, truncate(evaluator.FormatValue(r[evaluator.AnswerColumn(c)]), cellWidth))
		}
		for _, col := range simCols {
			row = append(row, evaluator.FormatValue(r[col]))
		}
		row = append(row,
			evaluator.FormatValue(r[evaluator.ColumnInsufficientContext]),
			evaluator.FormatValue(r[evaluator.ColumnAnyFailure]))
		rows = append(rows, row)
	}

	return ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		Render()
}

// RenderSummary lists per-category counts, one line each.
func RenderSummary(s evaluator.Summary) string {
	var b strings.Builder
	for _, c := range s.Categories {
		fmt.Fprintf(&b, "%-14s %-8s answered=%d insufficient=%d failed=%d missing=%d mean_len=%.1f\n",
			c.Category, c.Outcome, c.Answered, c.Insufficient, c.Failed, c.Missing, c.MeanAnswerLength)
	}
	return b.String()
}

func abbrev(s string) string {
	if r := []rune(s); len(r) > 4 {
		return string(r[:4])
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
