package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/gradlab/pkg/analyzer"
	"github.com/matzehuels/gradlab/pkg/layer"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleLink for URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	// StyleError for negative values and failures.
	StyleError = lipgloss.NewStyle().Foreground(colorRed)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Println(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a written-file line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Edit Output
// =============================================================================

// formatLayerStats renders a one-line summary of a layer's deltas.
func formatLayerStats(ch layer.Channel, st layer.Stats) string {
	if st.Edited == 0 {
		return fmt.Sprintf("%s: unedited", ch)
	}
	parts := []string{
		fmt.Sprintf("%d px", st.Edited),
		fmt.Sprintf("mean %+.1f", st.Mean),
		fmt.Sprintf("σ %.1f", st.StdDev),
		fmt.Sprintf("range [%+d, %+d]", st.MinDelta, st.MaxDelta),
	}
	return fmt.Sprintf("%s: %s", ch, strings.Join(parts, StyleDim.Render(" · ")))
}

// =============================================================================
// Score Output
// =============================================================================

// formatDiff renders a signed score difference, colored by direction.
func formatDiff(d float64) string {
	s := fmt.Sprintf("%+.3f", d)
	switch {
	case d > 0.0005:
		return StyleSuccess.Render(s)
	case d < -0.0005:
		return StyleError.Render(s)
	default:
		return StyleDim.Render(s)
	}
}

// scoreBar renders v in [0,1] as a fixed-width bar.
func scoreBar(v float64, width int) string {
	n := int(v*float64(width) + 0.5)
	n = min(max(n, 0), width)
	return StyleNumber.Render(strings.Repeat("█", n)) + StyleDim.Render(strings.Repeat("░", width-n))
}

// sideTable renders the scores of one analyzed image.
func sideTable(s *analyzer.Side) string {
	sc := s.Scores
	rows := [][]string{
		{"Edge Consistency", fmt.Sprintf("%.3f", sc.EdgeConsistency), scoreBar(sc.EdgeConsistency, 20)},
		{"Smoothness", fmt.Sprintf("%.3f", sc.SmoothnessScore), scoreBar(sc.SmoothnessScore, 20)},
		{"Texture Anomaly", fmt.Sprintf("%.3f", sc.TextureWeirdness), scoreBar(sc.TextureWeirdness, 20)},
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Metric", "Score", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Render()
}

// compareTable renders a comparison, highlighting the selected row (-1 for
// none).
func compareTable(c *analyzer.Comparison, selected int) string {
	metrics := c.Metrics()
	rows := make([][]string, len(metrics))
	for i, m := range metrics {
		rows[i] = []string{m.Name, fmt.Sprintf("%.3f", m.A), fmt.Sprintf("%.3f", m.B), formatDiff(m.Diff)}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Metric", c.A.Label, c.B.Label, "Δ (B−A)").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if row == selected {
				return base.Bold(true).Foreground(colorCyan)
			}
			return base
		}).
		Render()
}
