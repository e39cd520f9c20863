package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// View renders the explorer
func (m *Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "Initializing..."
	}

	if m.showHelp {
		return m.renderHelpModal()
	}

	if m.ctxModal != nil {
		return m.ctxModal.View()
	}

	return m.renderMain()
}

// renderMain renders the query bar, the active view and the status line
func (m *Model) renderMain() string {
	if m.height < 5 {
		return "Terminal too small. Resize to at least 5 lines."
	}

	var content string
	switch m.view {
	case ViewGroup:
		content = m.groupView.View()
	case ViewJSON:
		content = m.jsonView.View()
	case ViewTable:
		if len(m.records) == 0 {
			content = helpStyle.Render("No logs")
		} else {
			content = m.table.View()
		}
	case ViewHits:
		content = m.chart.View()
	}

	content = lipgloss.NewStyle().
		Height(m.height - 2).
		MaxHeight(m.height - 2).
		MaxWidth(m.width).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderQueryBar(),
		content,
		m.renderStatusLine(),
	)
}
