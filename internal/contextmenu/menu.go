// Package contextmenu implements the right-click menu of the document viewer.
package contextmenu

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/control-theory/vlexplore/internal/textsel"
)

// Selector gives the menu access to the viewer's selection
type Selector interface {
	Selection() textsel.Selection
	SetSelection(start, end *textsel.Position)
}

// Action identifies a menu item
type Action int

const (
	ActionNone Action = iota
	ActionCopy
)

// Item is one entry of the menu
type Item struct {
	Label  string
	Action Action
}

// State is the visible state of the menu
type State struct {
	Visible bool
	X       int // screen column of the top-left corner
	Y       int // screen row of the top-left corner
}

var (
	menuStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#469DBD")).
			Padding(0, 1)

	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))
)

// Menu is the context menu controller
type Menu struct {
	selector Selector
	locator  textsel.CaretLocator
	items    []Item
	state    State
}

// New creates a menu operating on selector, hit-testing with locator
func New(selector Selector, locator textsel.CaretLocator) *Menu {
	return &Menu{
		selector: selector,
		locator:  locator,
		items:    []Item{{Label: "Copy", Action: ActionCopy}},
	}
}

// State returns the current menu state
func (m *Menu) State() State {
	return m.state
}

// Visible reports whether the menu is open
func (m *Menu) Visible() bool {
	return m.state.Visible
}

// HandleRightClick opens the menu for a right click at screen coordinates.
// A click inside the current selection keeps it. Any other click selects the
// word under the pointer first. Returns whether the menu opened.
func (m *Menu) HandleRightClick(x, y int) bool {
	click, ok := textsel.ResolveClickPosition(m.locator, x, y)
	if !ok {
		return false
	}

	if b, ok := m.selector.Selection().Bounds(); ok && b.Contains(click) {
		m.state = State{Visible: true, X: x, Y: y}
		return true
	}

	word, ok := textsel.ResolveWordAtPoint(m.locator, x, y)
	if !ok {
		return false
	}
	m.selector.SetSelection(&word.Start, &word.End)
	m.state = State{Visible: true, X: x, Y: y}
	return true
}

// Close hides the menu
func (m *Menu) Close() {
	m.state = State{}
}

// Size returns the rendered width and height of the menu box
func (m *Menu) Size() (int, int) {
	return lipgloss.Size(m.View())
}

// Fit moves the menu so it stays inside a screen of the given size
func (m *Menu) Fit(screenW, screenH int) {
	if !m.state.Visible {
		return
	}
	w, h := m.Size()
	if m.state.X+w > screenW {
		m.state.X = max(0, screenW-w)
	}
	if m.state.Y+h > screenH {
		m.state.Y = max(0, screenH-h)
	}
}

// ItemAt returns the item under the screen coordinates, if any
func (m *Menu) ItemAt(x, y int) (Item, bool) {
	if !m.state.Visible {
		return Item{}, false
	}
	w, _ := m.Size()
	// One row of border above the first item
	row := y - m.state.Y - 1
	if x < m.state.X || x >= m.state.X+w || row < 0 || row >= len(m.items) {
		return Item{}, false
	}
	return m.items[row], true
}

// View renders the menu box
func (m *Menu) View() string {
	labels := make([]string, len(m.items))
	for i, it := range m.items {
		labels[i] = itemStyle.Render(it.Label)
	}
	return menuStyle.Render(strings.Join(labels, "\n"))
}
