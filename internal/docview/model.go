// Package docview implements a virtualized text viewer for large line arrays.
// It renders only the lines near the viewport and supports mouse selection,
// a right-click menu, incremental search and copying to the clipboard.
package docview

import (
	"fmt"
	"slices"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/control-theory/vlexplore/internal/contextmenu"
	"github.com/control-theory/vlexplore/internal/render"
	"github.com/control-theory/vlexplore/internal/search"
	"github.com/control-theory/vlexplore/internal/selection"
	"github.com/control-theory/vlexplore/internal/textsel"
)

// clipboardWrite is replaced in tests
var clipboardWrite = clipboard.WriteAll

const rowHeight = 1

var (
	searchBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#1F2335"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#737AA2"))
)

// Options configure a viewer
type Options struct {
	Selection   selection.Config
	Highlighter render.Highlighter // optional token styling
	KeyMap      KeyMap
	ScrollStep  int // rows per wheel notch
}

// DefaultOptions returns the default viewer options
func DefaultOptions() Options {
	return Options{
		Selection:  selection.DefaultConfig(),
		KeyMap:     DefaultKeyMap(),
		ScrollStep: 3,
	}
}

// Model is the document viewer
type Model struct {
	opts Options

	lines    []string
	maxWidth int

	// Screen placement. The text area takes all rows but the last one,
	// which holds the search bar or the status line.
	originX, originY int
	width, height    int
	screenW, screenH int

	scrollX, scrollY int
	overhead         int
	window           Window

	engine *selection.Engine
	menu   *contextmenu.Menu

	searchInput textinput.Model
	searchOpen  bool
	query       string
	focus       *textsel.Position

	// Rendered rows of the current window, rebuilt when dirty
	rows  []string
	dirty bool

	status string
}

// New creates an empty viewer
func New(opts Options) *Model {
	ti := textinput.New()
	ti.Prompt = "🔍 "
	ti.Placeholder = "search..."
	ti.CharLimit = 256

	m := &Model{
		opts:        opts,
		searchInput: ti,
		dirty:       true,
	}
	m.engine = selection.New(m, opts.Selection, func() { m.searchInput.Blur() })
	m.menu = contextmenu.New(m.engine, m)
	return m
}

// SetLines replaces the document. Selection and search focus are reset,
// the search query is kept.
func (m *Model) SetLines(lines []string) {
	m.lines = lines
	m.maxWidth = 0
	for _, l := range lines {
		m.maxWidth = max(m.maxWidth, displayWidth(l))
	}
	m.engine.Clear()
	m.menu.Close()
	m.focus = nil
	m.scrollX, m.scrollY = 0, 0
	m.window = InitialWindow(m.height*rowHeight, rowHeight, m.overhead, len(m.lines))
	m.dirty = true
}

// ReplaceLines swaps the document for an updated version of it, keeping the
// scroll position, selection and search focus. remap translates a line index
// of the current document into the new one and returns -1 for lines that are
// gone; a selection touching a removed line is cleared. Identical documents
// are left untouched.
func (m *Model) ReplaceLines(lines []string, remap func(int) int) {
	if slices.Equal(m.lines, lines) {
		return
	}
	if remap == nil {
		remap = func(i int) int { return i }
	}
	move := func(p *textsel.Position) *textsel.Position {
		if p == nil {
			return nil
		}
		el := remap(p.Element)
		if el < 0 || el >= len(lines) {
			return nil
		}
		return &textsel.Position{Element: el, Offset: min(p.Offset, len(lines[el]))}
	}

	sel := m.engine.Selection()
	start, end := move(sel.Start), move(sel.End)
	if (sel.Start != nil && start == nil) || (sel.End != nil && end == nil) {
		m.engine.Clear()
	} else if sel.Start != nil {
		m.engine.SetSelection(start, end)
	}
	m.focus = move(m.focus)

	if y := remap(m.scrollY); y >= 0 {
		m.scrollY = y
	}
	m.menu.Close()

	m.lines = lines
	m.maxWidth = 0
	for _, l := range lines {
		m.maxWidth = max(m.maxWidth, displayWidth(l))
	}
	m.clampScroll()
	m.recomputeWindow()
	m.dirty = true
}

// AppendLines adds lines to the end of the document keeping the selection
func (m *Model) AppendLines(lines ...string) {
	m.lines = append(m.lines, lines...)
	for _, l := range lines {
		m.maxWidth = max(m.maxWidth, displayWidth(l))
	}
	m.recomputeWindow()
	m.dirty = true
}

// Lines returns the document
func (m *Model) Lines() []string {
	return m.lines
}

// SetRect places the viewer on screen. The last row is used by the search
// bar and status line.
func (m *Model) SetRect(x, y, width, height int) {
	m.originX, m.originY = x, y
	m.width = max(width, 0)
	m.height = max(height-1, 0)
	m.overhead = Overhead(m.height*rowHeight, rowHeight)
	m.searchInput.Width = max(m.width/2-4, 1)
	m.clampScroll()
	m.recomputeWindow()
	m.dirty = true
}

// SetScreenSize tells the viewer the terminal size, used to keep the menu on screen
func (m *Model) SetScreenSize(width, height int) {
	m.screenW, m.screenH = width, height
}

// Window returns the range of lines currently rendered
func (m *Model) Window() Window {
	return m.window
}

// ScrollOffset returns the horizontal and vertical scroll offsets
func (m *Model) ScrollOffset() (x, y int) {
	return m.scrollX, m.scrollY
}

// Selection returns the current selection
func (m *Model) Selection() textsel.Selection {
	return m.engine.Selection()
}

// SetSelection replaces the selection
func (m *Model) SetSelection(start, end *textsel.Position) {
	m.engine.SetSelection(start, end)
	m.dirty = true
}

// HasSelection reports whether a non-empty selection exists
func (m *Model) HasSelection() bool {
	return !m.engine.Selection().Empty()
}

// SelectedText returns the characters inside the selection
func (m *Model) SelectedText() string {
	sel := m.engine.Selection()
	if !sel.Active() {
		return ""
	}
	return textsel.SliceSelectedText(m.lines, *sel.Start, *sel.End)
}

// SearchOpen reports whether the search bar is shown
func (m *Model) SearchOpen() bool {
	return m.searchOpen
}

// Capturing reports whether keystrokes go to the search input
func (m *Model) Capturing() bool {
	return m.searchOpen && m.searchInput.Focused()
}

// MenuVisible reports whether the context menu is open
func (m *Model) MenuVisible() bool {
	return m.menu.Visible()
}

// Query returns the current search query
func (m *Model) Query() string {
	return m.query
}

// Focus returns the focused search match
func (m *Model) Focus() *textsel.Position {
	return m.focus
}

// Status returns the last status message
func (m *Model) Status() string {
	return m.status
}

// Close releases the viewer's timers. The viewer must not be used afterwards.
func (m *Model) Close() {
	m.engine.Close()
	m.menu.Close()
	m.searchInput.Blur()
}

// CaretAt implements textsel.CaretLocator for screen coordinates
func (m *Model) CaretAt(x, y int) (textsel.Caret, bool) {
	row := y - m.originY
	col := x - m.originX
	if row < 0 || row >= m.height || col < 0 || col >= m.width {
		return textsel.Caret{}, false
	}
	idx := m.scrollY + row
	if idx < 0 || idx >= len(m.lines) {
		return textsel.Caret{}, false
	}
	line := m.lines[idx]
	return textsel.Caret{
		Element: idx,
		Text:    line,
		Offset:  offsetAtColumn(line, m.scrollX+col),
	}, true
}

// Rect implements selection.Viewport
func (m *Model) Rect() (int, int, int, int) {
	return m.originX, m.originY, m.width, m.height
}

// ScrollBy implements selection.Viewport
func (m *Model) ScrollBy(dx, dy int) {
	prevX := m.scrollX
	m.scrollX += dx
	m.scrollY += dy
	m.clampScroll()
	if m.scrollX != prevX {
		m.dirty = true
	}
	m.recomputeWindow()
}

// Update handles keyboard, mouse and timer messages
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case selection.ClickResetMsg:
		return m.engine.Update(msg)

	case selection.AutoScrollMsg:
		m.dirty = true
		return m.engine.Update(msg)
	}

	if m.Capturing() {
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	keys := m.opts.KeyMap
	m.status = ""

	// Vertical scrolling reuses the rendered window, everything else redraws
	switch {
	case m.Capturing(),
		key.Matches(msg, keys.Search, keys.Close, keys.ClearMarks),
		m.searchOpen && msg.String() == "enter":
		m.dirty = true
	}

	switch {
	case key.Matches(msg, keys.Search):
		return m.openSearch()

	case key.Matches(msg, keys.Close):
		m.closeSearch()
		m.menu.Close()
		return nil
	}

	if m.Capturing() {
		switch {
		case msg.String() == "enter" || msg.String() == "down":
			m.navigate(true)
			return nil
		case msg.String() == "up":
			m.navigate(false)
			return nil
		}

		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		if v := m.searchInput.Value(); v != m.query {
			m.setQuery(v)
		}
		return cmd
	}

	switch {
	case key.Matches(msg, keys.Copy):
		m.copySelection()
	case key.Matches(msg, keys.ClearMarks):
		m.engine.Clear()
	case m.searchOpen && msg.String() == "enter":
		m.navigate(true)
	case key.Matches(msg, keys.Up):
		m.ScrollBy(0, -1)
	case key.Matches(msg, keys.Down):
		m.ScrollBy(0, 1)
	case key.Matches(msg, keys.Left):
		m.ScrollBy(-4, 0)
	case key.Matches(msg, keys.Right):
		m.ScrollBy(4, 0)
	case key.Matches(msg, keys.PageUp):
		m.ScrollBy(0, -max(m.height-1, 1))
	case key.Matches(msg, keys.PageDown):
		m.ScrollBy(0, max(m.height-1, 1))
	case key.Matches(msg, keys.Top):
		m.ScrollBy(-m.scrollX, -m.scrollY)
	case key.Matches(msg, keys.Bottom):
		m.ScrollBy(0, len(m.lines))
	}
	return nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonRight:
		m.dirty = true
		m.menu.Close()
		if m.menu.HandleRightClick(msg.X, msg.Y) {
			m.menu.Fit(m.screenW, m.screenH)
		}
		return nil

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && m.menu.Visible():
		m.dirty = true
		item, onItem := m.menu.ItemAt(msg.X, msg.Y)
		m.menu.Close()
		if onItem {
			if item.Action == contextmenu.ActionCopy {
				m.copySelection()
			}
			return nil
		}

	case msg.Button == tea.MouseButtonWheelUp:
		if msg.Shift {
			m.ScrollBy(-m.opts.ScrollStep, 0)
		} else {
			m.ScrollBy(0, -m.opts.ScrollStep)
		}
		return nil

	case msg.Button == tea.MouseButtonWheelDown:
		if msg.Shift {
			m.ScrollBy(m.opts.ScrollStep, 0)
		} else {
			m.ScrollBy(0, m.opts.ScrollStep)
		}
		return nil

	case msg.Button == tea.MouseButtonWheelLeft:
		m.ScrollBy(-m.opts.ScrollStep, 0)
		return nil

	case msg.Button == tea.MouseButtonWheelRight:
		m.ScrollBy(m.opts.ScrollStep, 0)
		return nil
	}

	m.dirty = true
	return m.engine.HandleMouse(msg)
}

// openSearch shows the search bar, pre-filled from the selection if any.
// With no selection and the bar already open it only refocuses the input.
func (m *Model) openSearch() tea.Cmd {
	if m.HasSelection() {
		text := m.SelectedText()
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[:i]
		}
		m.searchInput.SetValue(text)
		m.setQuery(text)
	} else if !m.searchOpen {
		m.searchInput.SetValue("")
		m.setQuery("")
	}
	m.searchOpen = true
	m.menu.Close()
	return m.searchInput.Focus()
}

func (m *Model) closeSearch() {
	m.searchOpen = false
	m.searchInput.Blur()
	m.searchInput.SetValue("")
	m.query = ""
	m.focus = nil
}

// setQuery changes the query and focuses its first match
func (m *Model) setQuery(q string) {
	m.query = q
	m.focus = search.FindMatch(m.lines, q, nil, true)
	m.revealFocus()
}

// navigate moves the focus to the next or previous match
func (m *Model) navigate(forward bool) {
	m.focus = search.FindMatch(m.lines, m.query, m.focus, forward)
	if m.focus == nil {
		return
	}
	if !m.window.Contains(m.focus.Element) {
		m.window = JumpWindow(m.window, m.focus.Element, m.overhead, len(m.lines))
	}
	m.revealFocus()
}

// revealFocus scrolls the focused match to the centre of the viewport
func (m *Model) revealFocus() {
	if m.focus == nil {
		return
	}
	line := m.lines[m.focus.Element]
	startCol := columnAtOffset(line, m.focus.Offset)
	endCol := columnAtOffset(line, search.MatchEnd(line, m.query, m.focus.Offset))

	dy := m.focus.Element - m.height/2 - m.scrollY
	dx := 0
	if startCol < m.scrollX || endCol > m.scrollX+m.width {
		dx = max(0, startCol-m.width/2) - m.scrollX
	}
	m.ScrollBy(dx, dy)
}

func (m *Model) copySelection() {
	if !m.HasSelection() {
		return
	}
	if err := clipboardWrite(m.SelectedText()); err != nil {
		m.status = fmt.Sprintf("Copy failed: %v", err)
		return
	}
	m.status = "Copied to clipboard"
}

func (m *Model) clampScroll() {
	m.scrollY = clamp(m.scrollY, 0, max(len(m.lines)-m.height, 0))
	m.scrollX = clamp(m.scrollX, 0, max(m.maxWidth-m.width, 0))
}

// recomputeWindow derives the window from the scroll position, the way a
// scroll listener would from the list's bounding rectangle
func (m *Model) recomputeWindow() {
	w := ComputeWindow(Geometry{
		ContainerTop:    -m.scrollY * rowHeight,
		ContainerHeight: len(m.lines) * rowHeight,
		ViewportHeight:  m.height * rowHeight,
		RowHeight:       rowHeight,
		Overhead:        m.overhead,
		Count:           len(m.lines),
	})
	if w != m.window {
		m.window = w
		m.dirty = true
	}
}

// materialize renders every line of the window
func (m *Model) materialize() {
	if !m.dirty {
		return
	}
	m.dirty = false
	m.rows = m.rows[:0]

	bounds, hasSel := m.engine.Bounds()
	if hasSel && bounds.Start == bounds.End {
		hasSel = false
	}

	for i := m.window.Start; i < m.window.End && i < len(m.lines); i++ {
		line := m.lines[i]
		ls := lineStyle{
			query:       m.query,
			searchRange: m.searchRanges,
			focusOffset: -1,
			highlighter: m.opts.Highlighter,
		}
		if hasSel {
			if s, e, ok := textsel.LineRange(bounds, i, len(line)); ok && s != e {
				ls.selection = &textsel.Range{Start: s, End: e, Kind: textsel.KindSelection}
			}
		}
		if m.focus != nil && m.focus.Element == i {
			ls.focusOffset = m.focus.Offset
		}
		m.rows = append(m.rows, renderSegments(buildSegments(line, ls), m.scrollX, m.width))
	}
}

func (m *Model) searchRanges(line string) []textsel.Range {
	return search.Matches(line, m.query)
}

// View renders the visible rows, the bottom bar and the context menu
func (m *Model) View() string {
	m.materialize()

	out := make([]string, 0, m.height+1)
	for r := 0; r < m.height; r++ {
		idx := m.scrollY + r
		if idx >= m.window.Start && idx < m.window.End && idx-m.window.Start < len(m.rows) {
			out = append(out, m.rows[idx-m.window.Start])
		} else {
			out = append(out, "")
		}
	}
	out = append(out, m.bottomBar())

	if m.menu.Visible() {
		out = render.Overlay(out, m.menu.View(), m.menu.State().X-m.originX, m.menu.State().Y-m.originY)
	}
	return strings.Join(out, "\n")
}

func (m *Model) bottomBar() string {
	if m.searchOpen {
		info := "no matches"
		if m.focus != nil {
			info = fmt.Sprintf("line %d:%d", m.focus.Element+1, m.focus.Offset+1)
		} else if m.query == "" {
			info = ""
		}
		bar := m.searchInput.View() + "  " + statusStyle.Render(info)
		return searchBarStyle.Width(m.width).Render(ansi.Truncate(bar, m.width, "…"))
	}

	text := fmt.Sprintf("%d-%d of %d", min(m.scrollY+1, len(m.lines)), min(m.scrollY+m.height, len(m.lines)), len(m.lines))
	if m.status != "" {
		text = m.status + "  " + text
	}
	return statusStyle.Render(ansi.Truncate(text, m.width, "…"))
}
