package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
)

// renderQueryBar renders the query editor, or the last query when not editing
func (m *Model) renderQueryBar() string {
	if m.editing {
		return m.queryInput.View()
	}
	text := queryPromptStyle.Render(m.queryInput.Prompt) + queryTextStyle.Render(m.query)
	return ansi.Truncate(text, m.width, "…")
}

// renderStatusLine renders the bottom line: the view on the left, hints or
// errors in the centre and request state on the right
func (m *Model) renderStatusLine() string {
	baseStyle := lipgloss.NewStyle().
		Background(ColorNavy).
		Foreground(ColorWhite)

	veryNarrow := m.width < 60
	narrow := m.width < 100

	leftText := fmt.Sprintf("[%s]", m.view)
	if m.ctxModal != nil {
		leftText = "[context]"
	}

	var statusText string
	switch {
	case m.Err() != "":
		statusText = errorStyle.Background(ColorNavy).Render(firstLine(m.Err()))
	case m.status != "":
		statusText = m.status
	case m.editing:
		statusText = "Enter: Run • ESC: Cancel"
	case m.showHelp:
		statusText = "ESC: Close Help"
	case veryNarrow:
		statusText = "? • Tab • / • q"
	case m.view == ViewHits && !narrow:
		statusText = "←→: Bucket • ↑↓: Series • v: Show/Hide • f: Focus • a: Filter • Tab: View • ?: Help"
	case m.view == ViewTable && !narrow:
		statusText = "↑↓: Navigate • Enter: Stream context • /: Query • Tab: View • ?: Help"
	case !narrow:
		statusText = "Drag: Select • Ctrl+F: Search • Ctrl+C: Copy • /: Query • Tab: View • ?: Help"
	default:
		statusText = "?: Help • Tab: View • /: Query • q: Quit"
	}

	var rightParts []string
	switch {
	case m.Loading():
		rightParts = append(rightParts, "loading…")
	case !m.lastRun.IsZero():
		rightParts = append(rightParts, fmt.Sprintf("%s logs", humanize.Comma(int64(len(m.records)))))
		if !veryNarrow && m.took > 0 {
			rightParts = append(rightParts, m.took.Round(time.Millisecond).String())
		}
	}
	if m.Tailing() {
		rightParts = append(rightParts, lipgloss.NewStyle().Foreground(ColorGreen).Background(ColorNavy).Render("● tail"))
	}
	if !narrow && m.cfg.Source != "" {
		rightParts = append(rightParts, m.cfg.Source)
	}
	rightText := strings.Join(rightParts, "  ")

	leftWidth := lipgloss.Width(leftText) + 2
	rightWidth := lipgloss.Width(rightText) + 2
	if leftWidth+rightWidth >= m.width {
		return baseStyle.Width(m.width).Render(ansi.Truncate(leftText+" "+rightText, m.width, ""))
	}
	centerWidth := m.width - leftWidth - rightWidth

	leftPart := baseStyle.Align(lipgloss.Left).Width(leftWidth).Render(leftText)
	centerPart := baseStyle.Align(lipgloss.Center).Width(centerWidth).Render(ansi.Truncate(statusText, centerWidth, "…"))
	rightPart := baseStyle.Align(lipgloss.Right).Width(rightWidth).Render(rightText)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPart, centerPart, rightPart)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
