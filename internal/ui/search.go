package ui

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/trove-dev/trove/internal/index"
)

const (
	// DefaultResultRows caps the result list.
	DefaultResultRows = 20
	// DefaultMinScore hides results scoring below it.
	DefaultMinScore = 0.001

	// previewMaxBytes bounds how much of a file the preview pane reads.
	previewMaxBytes = 8 * 1024
)

// Searcher is the slice of the index the search screen needs.
type Searcher interface {
	Query(text string) []index.Result
}

type searchResultsMsg struct {
	query   string
	results []index.Result
}

type previewLoadedMsg struct {
	path string
	text string
}

// SearchModel renders the interactive search screen: a query input, the
// ranked result list, and a preview of the selected file's head.
type SearchModel struct {
	searcher Searcher
	root     string
	limit    int
	minScore float64

	input       textinput.Model
	results     []index.Result
	cursor      int
	preview     string
	previewPath string
	chosen      string
	quitting    bool
	width       int
	height      int
	styles      Styles
}

// NewSearchModel builds the search screen over searcher. root trims result
// paths for display. limit and minScore fall back to the package defaults
// when zero or negative.
func NewSearchModel(searcher Searcher, root string, limit int, minScore float64) *SearchModel {
	ti := textinput.New()
	ti.Placeholder = "type to search"
	ti.Prompt = "> "
	ti.CharLimit = 256
	ti.Focus()

	if limit <= 0 {
		limit = DefaultResultRows
	}
	if minScore <= 0 {
		minScore = DefaultMinScore
	}

	return &SearchModel{
		searcher: searcher,
		root:     root,
		limit:    limit,
		minScore: minScore,
		input:    ti,
		styles:   GetStyles(DetectNoColor()),
		width:    100,
		height:   30,
	}
}

// Chosen returns the path picked with enter, or "" when the user quit.
func (m *SearchModel) Chosen() string {
	return m.chosen
}

// Init implements tea.Model.
func (m *SearchModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			if path := m.selectedPath(); path != "" {
				m.chosen = path
				return m, tea.Quit
			}
			return m, nil

		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
				return m, m.loadPreviewCmd()
			}
			return m, nil

		case "down", "ctrl+n":
			if m.cursor < len(m.results)-1 {
				m.cursor++
				return m, m.loadPreviewCmd()
			}
			return m, nil
		}

		// Remaining keys edit the query.
		before := strings.TrimSpace(m.input.Value())
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if after := strings.TrimSpace(m.input.Value()); after != before {
			return m, tea.Batch(cmd, m.searchCmd(after))
		}
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 6

	case searchResultsMsg:
		// Drop responses for queries the user has already typed past.
		if msg.query != strings.TrimSpace(m.input.Value()) {
			return m, nil
		}
		m.results = msg.results
		m.cursor = 0
		m.preview = ""
		m.previewPath = ""
		if len(m.results) > 0 {
			return m, m.loadPreviewCmd()
		}
		return m, nil

	case previewLoadedMsg:
		if msg.path == m.selectedPath() {
			m.preview = msg.text
			m.previewPath = msg.path
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// searchCmd queries the index off the event loop and tags the response
// with the query text so stale answers can be discarded.
func (m *SearchModel) searchCmd(query string) tea.Cmd {
	searcher := m.searcher
	limit := m.limit
	minScore := m.minScore

	return func() tea.Msg {
		if query == "" {
			return searchResultsMsg{query: query}
		}

		all := searcher.Query(query)
		visible := make([]index.Result, 0, limit)
		for _, r := range all {
			if r.Score < minScore {
				break
			}
			visible = append(visible, r)
			if len(visible) == limit {
				break
			}
		}
		return searchResultsMsg{query: query, results: visible}
	}
}

func (m *SearchModel) loadPreviewCmd() tea.Cmd {
	path := m.selectedPath()
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		return previewLoadedMsg{path: path, text: loadPreview(path)}
	}
}

func (m *SearchModel) selectedPath() string {
	if len(m.results) == 0 || m.cursor < 0 || m.cursor >= len(m.results) {
		return ""
	}
	return m.results[m.cursor].Path
}

// loadPreview reads the head of a file for the preview pane.
func loadPreview(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return "unable to open: " + err.Error()
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, previewMaxBytes))
	if err != nil {
		return "unable to read: " + err.Error()
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return "(binary file)"
	}
	return string(data)
}

// View implements tea.Model.
func (m *SearchModel) View() string {
	if m.quitting {
		return ""
	}

	listWidth := m.width * 2 / 5
	if listWidth < 30 {
		listWidth = 30
	}
	previewWidth := m.width - listWidth - 6
	if previewWidth < 20 {
		previewWidth = 20
	}

	rows := DefaultResultRows
	if fit := m.height - 8; fit < rows {
		rows = fit
	}
	if rows < 1 {
		rows = 1
	}

	var b strings.Builder
	b.WriteString(m.styles.Header.Render("trove search"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	query := strings.TrimSpace(m.input.Value())
	switch {
	case query == "":
		b.WriteString(m.styles.Dim.Render("Start typing to search the index."))
	case len(m.results) == 0:
		b.WriteString(m.styles.Dim.Render("No matches."))
	default:
		list := m.renderList(listWidth, rows)
		preview := m.renderPreview(previewWidth, rows)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, list, "  ", preview))
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// renderList renders up to rows ranked results, scores shown as score*1000.
func (m *SearchModel) renderList(width, rows int) string {
	count := len(m.results)
	if count > rows {
		count = rows
	}

	lines := make([]string, 0, count)
	for i := 0; i < count; i++ {
		r := m.results[i]
		score := fmt.Sprintf("%7.1f", r.Score*1000)
		path := truncatePath(m.displayPath(r.Path), width-len(score)-3)

		if i == m.cursor {
			lines = append(lines, m.styles.Selected.Render(score+"  "+path))
		} else {
			lines = append(lines, m.styles.Score.Render(score)+"  "+path)
		}
	}

	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

// renderPreview renders the head of the selected file in a bordered pane.
func (m *SearchModel) renderPreview(width, rows int) string {
	text := m.preview
	if text == "" {
		text = m.styles.Dim.Render("loading...")
	}

	lines := strings.Split(text, "\n")
	if len(lines) > rows {
		lines = lines[:rows]
	}
	for i, line := range lines {
		line = strings.ReplaceAll(line, "\t", "    ")
		if runes := []rune(line); len(runes) > width-2 {
			line = string(runes[:width-2])
		}
		lines[i] = line
	}

	pane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorDarkGray)).
		Padding(0, 1).
		Width(width)

	return pane.Render(strings.Join(lines, "\n"))
}

func (m *SearchModel) renderFooter() string {
	parts := []string{
		fmt.Sprintf("%d results", len(m.results)),
		"enter to select",
		"esc to quit",
	}
	return m.styles.Dim.Render(strings.Join(parts, "  |  "))
}

func (m *SearchModel) displayPath(path string) string {
	if m.root == "" {
		return path
	}
	rel, err := filepath.Rel(m.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

// RunSearch starts the interactive search screen and blocks until the user
// picks a result or quits. It returns the selected path, or "" when the
// user quit without choosing.
func RunSearch(searcher Searcher, root string, limit int, minScore float64, out io.Writer) (string, error) {
	model := NewSearchModel(searcher, root, limit, minScore)

	var opts []tea.ProgramOption
	if f, ok := out.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	opts = append(opts, tea.WithAltScreen())

	final, err := tea.NewProgram(model, opts...).Run()
	if err != nil {
		return "", err
	}
	if m, ok := final.(*SearchModel); ok {
		return m.Chosen(), nil
	}
	return "", nil
}
