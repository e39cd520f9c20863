package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/control-theory/vlexplore/internal/docview"
)

// renderHelpModal renders the help modal using the full screen
func (m *Model) renderHelpModal() string {
	modalWidth := max(m.width-8, 20)
	modalHeight := max(m.height-4, 6)

	contentWidth := modalWidth - 4
	contentHeight := modalHeight - 4

	m.helpViewport.Width = contentWidth
	m.helpViewport.Height = contentHeight
	m.helpViewport.SetContent(wrapTextToWidth(m.renderHelpModalContent(), contentWidth))

	contentPane := lipgloss.NewStyle().
		Width(contentWidth).
		Height(contentHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorGray).
		Render(m.helpViewport.View())

	header := lipgloss.NewStyle().
		Width(contentWidth).
		Foreground(ColorBlue).
		Bold(true).
		Render("Help")

	statusBar := lipgloss.NewStyle().
		Foreground(ColorGray).
		Render("↑↓/Wheel: Scroll • PgUp/PgDn: Page • ?: Toggle Help • ESC: Close")

	modal := lipgloss.JoinVertical(lipgloss.Left, header, contentPane, statusBar)

	finalModal := modalStyle.
		Width(modalWidth - 2).
		Height(modalHeight - 2).
		Render(modal)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, finalModal)
}

// renderHelpModalContent lists every binding grouped by where it applies
func (m *Model) renderHelpModalContent() string {
	m.help.ShowAll = true
	m.help.Width = m.helpViewport.Width

	var b strings.Builder
	b.WriteString(chartTitleStyle.Render("VIEWS AND QUERY") + "\n")
	b.WriteString("Views: group lines, JSON, table and hits. Tab cycles through them.\n")
	b.WriteString("Enter in the query editor runs logs and hits together.\n\n")
	b.WriteString(m.help.View(m.keys) + "\n\n")

	b.WriteString(chartTitleStyle.Render("DOCUMENT VIEWER") + "\n")
	b.WriteString("Drag to select, double click selects a word, triple click a line.\n")
	b.WriteString("Right click opens the copy menu. Dragging near an edge scrolls.\n\n")
	b.WriteString(m.help.View(docview.DefaultKeyMap()) + "\n\n")

	b.WriteString(chartTitleStyle.Render("HITS") + "\n")
	b.WriteString("←/→ move the focused bucket, click a bar to focus it.\n")
	b.WriteString("↑/↓ select a series, v hides it, f isolates it, a filters the query by it.\n")
	return b.String()
}
