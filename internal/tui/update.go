package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/control-theory/vlexplore/internal/docview"
	"github.com/control-theory/vlexplore/internal/hits"
	"github.com/control-theory/vlexplore/internal/selection"
	"github.com/control-theory/vlexplore/internal/vlogs"
)

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		return m, m.handleMouseEvent(msg)

	case selection.ClickResetMsg, selection.AutoScrollMsg:
		// timers carry their engine id, every viewer ignores foreign ones
		var cmds []tea.Cmd
		for _, v := range m.viewers() {
			cmds = append(cmds, v.Update(msg))
		}
		return m, tea.Batch(cmds...)

	case logsMsg:
		m.handleLogs(msg)
		return m, nil

	case hitsMsg:
		m.handleHits(msg)
		return m, nil

	case contextMsg:
		// pages of a closed modal are dropped
		if m.ctxModal == msg.modal {
			m.ctxModal.handle(msg)
		}
		return m, nil

	case tailMsg:
		if msg.tailer != m.tailer {
			return m, nil
		}
		m.appendTailed(msg.records)
		return m, waitForTail(msg.tailer)

	case tailClosedMsg:
		if msg.tailer != m.tailer {
			return m, nil
		}
		m.tailer = nil
		if msg.err != nil {
			m.tailErr = msg.err.Error()
		}
		return m, nil

	case refreshMsg:
		var cmd tea.Cmd
		if !m.Loading() && !m.editing {
			cmd = m.runQuery()
		}
		return m, tea.Batch(cmd, m.refreshTick())
	}

	// cursor blink and other component messages
	var cmd tea.Cmd
	if m.editing {
		m.queryInput, cmd = m.queryInput.Update(msg)
		return m, cmd
	}
	if doc := m.activeDoc(); doc != nil {
		cmd = doc.Update(msg)
	}
	return m, cmd
}

// viewers returns every live document viewer
func (m *Model) viewers() []*docview.Model {
	out := []*docview.Model{m.groupView, m.jsonView}
	if m.ctxModal != nil {
		out = append(out, m.ctxModal.view)
	}
	return out
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.closeViews()
	m.logger.Info("exiting")
	return m, tea.Quit
}

// handleKeyPress routes a key to the help modal, the context modal, the query
// editor, the global bindings or the active view, in that order
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		switch {
		case key.Matches(msg, m.keys.Help, m.keys.Close, m.keys.Quit):
			m.showHelp = false
			return m, nil
		case key.Matches(msg, m.keys.Interrupt):
			return m.quit()
		}
		var cmd tea.Cmd
		m.helpViewport, cmd = m.helpViewport.Update(msg)
		return m, cmd
	}

	if m.editing {
		switch msg.String() {
		case "enter":
			m.editing = false
			m.queryInput.Blur()
			m.query = strings.TrimSpace(m.queryInput.Value())
			if m.query == "" {
				m.query = "*"
				m.queryInput.SetValue(m.query)
			}
			return m, m.runWithTail()
		case "esc":
			m.editing = false
			m.queryInput.Blur()
			m.queryInput.SetValue(m.query)
			return m, nil
		case "ctrl+c":
			return m.quit()
		}
		var cmd tea.Cmd
		m.queryInput, cmd = m.queryInput.Update(msg)
		return m, cmd
	}

	doc := m.activeDoc()

	// Ctrl+C copies while the viewer holds a selection
	if key.Matches(msg, m.keys.Interrupt) {
		if doc != nil && doc.HasSelection() {
			return m, doc.Update(msg)
		}
		return m.quit()
	}

	// the viewer's search box takes every key while focused
	if doc != nil && doc.Capturing() {
		return m, doc.Update(msg)
	}

	if m.ctxModal != nil {
		return m, m.handleContextKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		m.helpViewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.NextView):
		m.switchView(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevView):
		m.switchView(-1)
		return m, nil

	case key.Matches(msg, m.keys.EditQuery):
		m.editing = true
		m.queryInput.SetValue(m.query)
		m.queryInput.CursorEnd()
		return m, m.queryInput.Focus()

	case key.Matches(msg, m.keys.Rerun):
		return m, m.runQuery()

	case key.Matches(msg, m.keys.Tail):
		if m.Tailing() {
			m.stopTail()
			return m, nil
		}
		return m, m.startTail()
	}

	switch m.view {
	case ViewTable:
		return m, m.handleTableKey(msg)
	case ViewHits:
		return m, m.handleHitsKey(msg)
	}
	if doc != nil {
		return m, doc.Update(msg)
	}
	return m, nil
}

// runWithTail runs the query and restarts a running tail with it
func (m *Model) runWithTail() tea.Cmd {
	cmd := m.runQuery()
	if m.Tailing() {
		return tea.Batch(cmd, m.startTail())
	}
	return cmd
}

func (m *Model) switchView(delta int) {
	n := len(viewNames)
	m.view = View((int(m.view) + delta + n) % n)
	m.status = ""
}

func (m *Model) handleTableKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Open) {
		return m.openContext()
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return cmd
}

// openContext opens the stream context of the selected table row
func (m *Model) openContext() tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.records) {
		return nil
	}
	pivot := m.records[idx]
	m.ctxModal = newContextModal(m.backend, pivot, m.cfg.ContextLines, m.logger)
	m.ctxModal.layout(m.width, m.height)
	m.logger.Debug("opening stream context", zap.String("stream_id", pivot.StreamID()))
	return m.ctxModal.open()
}

func (m *Model) closeContext() {
	if m.ctxModal == nil {
		return
	}
	m.ctxModal.close()
	m.ctxModal = nil
}

func (m *Model) handleContextKey(msg tea.KeyMsg) tea.Cmd {
	c := m.ctxModal
	switch {
	case key.Matches(msg, m.keys.Close):
		// esc first closes the viewer's own search box and menu
		if c.view.SearchOpen() || c.view.MenuVisible() {
			return c.view.Update(msg)
		}
		m.closeContext()
		return nil
	case key.Matches(msg, m.keys.Newer):
		return c.load(vlogs.After)
	case key.Matches(msg, m.keys.Older):
		return c.load(vlogs.Before)
	case key.Matches(msg, m.keys.MorePage):
		c.resizePage(1)
		return nil
	case key.Matches(msg, m.keys.LessPage):
		c.resizePage(-1)
		return nil
	case key.Matches(msg, m.keys.Quit):
		m.closeContext()
		return nil
	}
	return c.view.Update(msg)
}

func (m *Model) handleHitsKey(msg tea.KeyMsg) tea.Cmd {
	c := m.chart
	switch {
	case key.Matches(msg, m.keys.FocusLeft):
		c.moveFocus(-1)
	case key.Matches(msg, m.keys.FocusRight):
		c.moveFocus(1)
	case key.Matches(msg, m.keys.LegendUp):
		c.moveSelection(-1)
	case key.Matches(msg, m.keys.LegendDown):
		c.moveSelection(1)
	case key.Matches(msg, m.keys.Visibility):
		c.toggleVisibility()
	case key.Matches(msg, m.keys.Isolate):
		c.toggleIsolate()
	case key.Matches(msg, m.keys.SortOrder):
		c.toggleOrder()
	case key.Matches(msg, m.keys.Close):
		c.clearFocus()
	case key.Matches(msg, m.keys.Filter):
		return m.applySeriesFilter()
	}
	return nil
}

// applySeriesFilter narrows the query to the selected series and runs it
func (m *Model) applySeriesFilter() tea.Cmd {
	e, ok := m.chart.selectedEntry()
	if !ok {
		return nil
	}
	if e.IsOther {
		m.status = "the other series has no filter"
		return nil
	}
	m.query = hits.ApplyFilter(m.query, hits.FilterExpr(e.Fields))
	m.queryInput.SetValue(m.query)
	return m.runWithTail()
}

func (m *Model) handleMouseEvent(msg tea.MouseMsg) tea.Cmd {
	if m.showHelp {
		var cmd tea.Cmd
		m.helpViewport, cmd = m.helpViewport.Update(msg)
		return cmd
	}
	if doc := m.activeDoc(); doc != nil {
		return doc.Update(msg)
	}

	switch m.view {
	case ViewHits:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.chart.click(msg.X, msg.Y)
		}
	case ViewTable:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.table.MoveUp(3)
		case tea.MouseButtonWheelDown:
			m.table.MoveDown(3)
		}
	}
	return nil
}
