package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/domain"
	"docqa/internal/evaluator"
	"docqa/internal/summarizer"
)

type mode int

const (
	recordsMode mode = iota
	tableMode
)

// Model is the Bubble Tea model for browsing one finished session.
type Model struct {
	categories []*domain.CategoryResult
	table      *evaluator.ComparisonTable
	summary    evaluator.Summary

	mode      mode
	tab       int
	cursor    int
	visible   []int
	filter    textinput.Model
	filtering bool
	viewport  viewport.Model
	grid      table.Model
	status    string
	width     int
	ready     bool
}

// New creates a browser over results and the comparison table derived from them.
func New(results *domain.SessionResults, tbl *evaluator.ComparisonTable) Model {
	if tbl == nil {
		tbl = evaluator.GenerateComparisonTable(results)
	}
	var cats []*domain.CategoryResult
	if results != nil {
		cats = results.Ordered()
	}
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "filter questions and answers"
	ti.CharLimit = 0

	grid := table.New(
		table.WithColumns(gridColumns(tbl, 80)),
		table.WithRows(gridRows(tbl)),
		table.WithFocused(true),
	)
	m := Model{
		categories: cats,
		table:      tbl,
		summary:    evaluator.Summarize(results, tbl),
		filter:     ti,
		viewport:   viewport.New(0, 0),
		grid:       grid,
		status:     "tab: category  ↑/↓: question  t: table  /: filter  q: quit",
	}
	m.applyFilter("")
	return m
}

// Init has nothing to start.
func (m Model) Init() tea.Cmd { return nil }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = max(20, msg.Width)
		_, fh := boxStyle.GetFrameSize()
		reserved := 4 + fh // header, tabs, filter, status
		height := max(3, msg.Height-reserved)
		m.viewport.Width = m.width - 4
		m.viewport.Height = height
		m.grid.SetHeight(height)
		m.grid.SetColumns(gridColumns(m.table, m.width-4))
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if m.filtering {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "t":
			if m.mode == tableMode {
				m.mode = recordsMode
			} else {
				m.mode = tableMode
			}
			return m, nil
		case "/":
			m.filtering = true
			m.filter.Focus()
			return m, textinput.Blink
		}
		if m.mode == tableMode {
			if msg.String() == "enter" {
				m.jumpTo(m.grid.Cursor())
				m.mode = recordsMode
				return m, nil
			}
			var cmd tea.Cmd
			m.grid, cmd = m.grid.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "tab", "right", "l":
			if len(m.categories) > 0 {
				m.tab = (m.tab + 1) % len(m.categories)
				m.refresh()
			}
		case "shift+tab", "left", "h":
			if len(m.categories) > 0 {
				m.tab = (m.tab - 1 + len(m.categories)) % len(m.categories)
				m.refresh()
			}
		case "down", "j":
			if len(m.visible) > 0 {
				m.cursor = (m.cursor + 1) % len(m.visible)
				m.refresh()
			}
		case "up", "k":
			if len(m.visible) > 0 {
				m.cursor = (m.cursor - 1 + len(m.visible)) % len(m.visible)
				m.refresh()
			}
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		m.applyFilter(m.filter.Value())
		return m, nil
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.applyFilter("")
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

// applyFilter keeps the row indices where any category's question or answer
// contains query, case-insensitively.
func (m *Model) applyFilter(query string) {
	query = strings.ToLower(strings.TrimSpace(query))
	m.visible = m.visible[:0]
	for i := range m.table.Rows {
		if query == "" || m.rowMatches(i, query) {
			m.visible = append(m.visible, i)
		}
	}
	m.cursor = 0
	if query != "" {
		m.status = fmt.Sprintf("%d of %d rows match %q", len(m.visible), len(m.table.Rows), query)
	}
	m.refresh()
}

func (m *Model) rowMatches(i int, query string) bool {
	for _, c := range m.table.Categories {
		for _, col := range []string{evaluator.QuestionColumn(c), evaluator.AnswerColumn(c)} {
			if s, ok := m.table.Rows[i][col].(string); ok && strings.Contains(strings.ToLower(s), query) {
				return true
			}
		}
	}
	return false
}

func (m *Model) jumpTo(row int) {
	for i, r := range m.visible {
		if r == row {
			m.cursor = i
			break
		}
	}
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderRecord())
	m.viewport.GotoTop()
}

// View renders the header, category tabs and the active pane.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("Document QA comparison")
	var body string
	if m.mode == tableMode {
		body = boxStyle.Render(m.grid.View())
	} else {
		body = boxStyle.Render(m.viewport.View())
	}
	filter := m.filter.View()
	status := statusStyle.Render(m.status)
	return header + "\n" + m.renderTabs() + "\n" + body + "\n" + filter + "\n" + status
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, len(m.categories))
	for i, cr := range m.categories {
		label := fmt.Sprintf("%s (%s)", cr.Category, cr.Outcome)
		if i == m.tab && m.mode == recordsMode {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	if len(m.summary.MeanSimilarity) > 0 {
		parts := make([]string, 0, len(m.summary.MeanSimilarity))
		for _, a := range m.table.Categories {
			for _, b := range m.table.Categories {
				if v, ok := m.summary.MeanSimilarity[evaluator.SimilarityColumn(a, b)]; ok {
					parts = append(parts, fmt.Sprintf("%s/%s %.2f", a, b, v))
				}
			}
		}
		tabs = append(tabs, mutedStyle.Render("mean similarity: "+strings.Join(parts, "  ")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderRecord() string {
	if len(m.categories) == 0 {
		return "No categories in this session."
	}
	if len(m.visible) == 0 {
		return "No matching questions."
	}
	cr := m.categories[m.tab]
	row := m.visible[m.cursor]
	title := fmt.Sprintf("%s  %d/%d", cr.Category, row+1, len(m.table.Rows))

	if cr.Outcome == domain.OutcomeSkipped {
		reason := cr.Error
		if reason == "" {
			reason = "document could not be loaded"
		}
		return title + "\n\n" + errorStyle.Render(domain.SkippedAnswer+" "+reason)
	}
	question := ""
	if row < len(cr.Questions) {
		question = cr.Questions[row]
	}
	if row >= len(cr.Results) {
		return title + "\n\nQ: " + question + "\n\n" + mutedStyle.Render(domain.MissingAnswer)
	}
	r := cr.Results[row]
	answer := r.Answer
	switch r.Status {
	case domain.StatusFailed:
		answer = errorStyle.Render(answer)
	case domain.StatusInsufficientContext:
		answer = mutedStyle.Render(answer)
	}
	ctx := r.Context
	if strings.TrimSpace(ctx) == "" {
		ctx = mutedStyle.Render("(no context)")
	} else {
		ctx = highlightBestSentence(ctx, r.Question)
	}
	return fmt.Sprintf("%s  [%s]\n\nQ: %s\n\nA: %s\n\nContext:\n%s", title, r.Status, r.Question, answer, ctx)
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("8"))
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Underline(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// highlightBestSentence marks the context sentence sharing the most tokens
// with the question.
func highlightBestSentence(text, question string) string {
	sentences := summarizer.Sentences(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}
	best, bestScore := 0, 0
	for i, s := range sentences {
		if score := summarizer.Overlap(s, question); score > bestScore {
			best, bestScore = i, score
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == best && bestScore > 0 {
			sent = highlightStyle.Render(sent)
		}
		sentences[i] = sent
	}
	return strings.Join(sentences, " ")
}

func gridColumns(t *evaluator.ComparisonTable, width int) []table.Column {
	cols := []table.Column{{Title: "#", Width: 3}}
	rest := max(len(t.Categories), 1) + 1
	w := max(10, (width-3)/rest-2)
	for _, c := range t.Categories {
		cols = append(cols, table.Column{Title: string(c), Width: w})
	}
	cols = append(cols, table.Column{Title: "flags", Width: w})
	return cols
}

func gridRows(t *evaluator.ComparisonTable) []table.Row {
	rows := make([]table.Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := table.Row{evaluator.FormatValue(r[evaluator.ColumnIndex])}
		for _, c := range t.Categories {
			row = append(row, evaluator.FormatValue(r[evaluator.AnswerColumn(c)]))
		}
		var flags []string
		if r[evaluator.ColumnInsufficientContext] == true {
			flags = append(flags, "insufficient")
		}
		if r[evaluator.ColumnAnyFailure] == true {
			flags = append(flags, "failure")
		}
		row = append(row, strings.Join(flags, ","))
		rows = append(rows, row)
	}
	return rows
}
