package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/gradlab/pkg/analyzer"
)

var (
	tuiHelpStyle = lipgloss.NewStyle().Foreground(colorDim)
	tuiDescStyle = lipgloss.NewStyle().Foreground(colorGray).Italic(true)
	tuiPaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)

// =============================================================================
// CompareModel - Interactive comparison view
// =============================================================================

// CompareModel is the bubbletea model browsing a two-image comparison.
// Up/down select a metric, tab toggles between the table and the
// per-image detail panes.
type CompareModel struct {
	Comparison *analyzer.Comparison
	Cursor     int
	Details    bool
	Width      int
}

// NewCompareModel creates a compare view for c.
func NewCompareModel(c *analyzer.Comparison) CompareModel {
	return CompareModel{Comparison: c}
}

func (m CompareModel) Init() tea.Cmd {
	return nil
}

func (m CompareModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Comparison.Metrics())-1 {
				m.Cursor++
			}
		case "tab", "d":
			m.Details = !m.Details
		}
	case tea.WindowSizeMsg:
		m.Width = msg.Width
	}
	return m, nil
}

func (m CompareModel) View() string {
	var b strings.Builder
	c := m.Comparison

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Compare %s vs %s", c.A.Label, c.B.Label)))
	b.WriteString("\n")
	b.WriteString(tuiHelpStyle.Render("↑/↓ metric  tab details  q quit"))
	b.WriteString("\n\n")

	if m.Details {
		left := tuiPaneStyle.Render(sidePane(&c.A))
		right := tuiPaneStyle.Render(sidePane(&c.B))
		if m.Width > 0 && lipgloss.Width(left)+lipgloss.Width(right) > m.Width {
			b.WriteString(lipgloss.JoinVertical(lipgloss.Left, left, right))
		} else {
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right))
		}
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(compareTable(c, m.Cursor))
	b.WriteString("\n\n")
	metrics := c.Metrics()
	if m.Cursor >= 0 && m.Cursor < len(metrics) {
		b.WriteString(tuiDescStyle.Render(metrics[m.Cursor].Description))
		b.WriteString("\n")
	}
	return b.String()
}

func sidePane(s *analyzer.Side) string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render(s.Label))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("%s · %d×%d", s.ImageID, s.Width, s.Height)))
	b.WriteString("\n")
	b.WriteString(sideTable(s))
	if s.HeatmapURL != "" {
		b.WriteString("\n")
		b.WriteString(StyleDim.Render("heatmap ") + StyleLink.Render(s.HeatmapURL))
	}
	return b.String()
}
