package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
	"docqa/internal/evaluator"
)

func sessionFixture() *domain.SessionResults {
	res := domain.NewSessionResults("s1")
	res.Categories[domain.Foundation] = &domain.CategoryResult{
		Category: domain.Foundation, Outcome: domain.OutcomeSuccess,
		Questions: []string{"Where is the tower?", "Who built it?"},
		Results: []domain.QAResult{
			domain.NewAnswered("Where is the tower?", "In Paris.", "The tower stands in Paris. It is tall."),
			domain.NewFailed("Who built it?", assert.AnError),
		},
	}
	res.Categories[domain.Indic] = &domain.CategoryResult{
		Category: domain.Indic, Outcome: domain.OutcomeSkipped,
		Questions: []string{"मीनार कहाँ है?"}, Error: "open hi.pdf: no such file",
	}
	return res
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m tea.Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	out, ok := m.(Model)
	require.True(t, ok)
	return out
}

func TestViewBeforeResize(t *testing.T) {
	assert.Equal(t, "Loading...", New(sessionFixture(), nil).View())
}

func TestBrowseRecords(t *testing.T) {
	m := send(t, New(sessionFixture(), nil), tea.WindowSizeMsg{Width: 120, Height: 40})
	view := m.View()
	assert.Contains(t, view, "Where is the tower?")
	assert.Contains(t, view, "In Paris.")
	assert.Contains(t, view, "foundation (success)")
	assert.Contains(t, view, "indic (skipped)")

	m = send(t, m, key("down"))
	assert.Contains(t, m.renderRecord(), domain.ErrorMarker)

	m = send(t, m, key("tab"))
	assert.Contains(t, m.renderRecord(), domain.SkippedAnswer)
	assert.Contains(t, m.renderRecord(), "no such file")

	m = send(t, m, key("tab"))
	assert.Equal(t, 0, m.tab)
}

func TestFilterNarrowsRows(t *testing.T) {
	m := send(t, New(sessionFixture(), nil), tea.WindowSizeMsg{Width: 120, Height: 40})
	m = send(t, m, key("/"), key("built"), key("enter"))
	assert.False(t, m.filtering)
	assert.Equal(t, []int{1}, m.visible)
	assert.Contains(t, m.status, "1 of 2 rows")
	assert.Contains(t, m.renderRecord(), "Who built it?")

	m = send(t, m, key("/"), key("zzz"), key("enter"))
	assert.Empty(t, m.visible)
	assert.Equal(t, "No matching questions.", m.renderRecord())
}

func TestTableModeJumpsToRow(t *testing.T) {
	m := send(t, New(sessionFixture(), nil), tea.WindowSizeMsg{Width: 120, Height: 40})
	m = send(t, m, key("t"))
	assert.Equal(t, tableMode, m.mode)
	assert.Contains(t, m.View(), "flags")

	m = send(t, m, key("down"), key("enter"))
	assert.Equal(t, recordsMode, m.mode)
	assert.Equal(t, 1, m.cursor)
}

func TestQuit(t *testing.T) {
	_, cmd := New(sessionFixture(), nil).Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("Cats sleep a lot. The tower is in Paris.", "where is the tower")
	assert.Contains(t, out, "Cats sleep a lot.")
	assert.Contains(t, out, "The tower is in Paris.")
	assert.Equal(t, "plain", highlightBestSentence("plain", "other"))
}

func TestRenderTable(t *testing.T) {
	res := sessionFixture()
	tbl := evaluator.GenerateComparisonTable(res)
	out := RenderTable(tbl, 12)
	assert.Contains(t, out, "foundation")
	assert.Contains(t, out, "sim foun/indi")
	assert.Contains(t, out, "In Paris.")
	assert.Contains(t, out, "[category s…")

	summary := RenderSummary(evaluator.Summarize(res, tbl))
	lines := strings.Split(strings.TrimSpace(summary), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "answered=1")
	assert.Contains(t, lines[0], "failed=1")
	assert.Contains(t, lines[1], "skipped")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "a b", truncate("a\n  b", 0))
	assert.Equal(t, "नम…", truncate("नमस्ते", 3))
}
