package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap holds the application-wide bindings. Viewer bindings live in docview.
type KeyMap struct {
	Quit       key.Binding
	Interrupt  key.Binding
	Help       key.Binding
	NextView   key.Binding
	PrevView   key.Binding
	EditQuery  key.Binding
	Rerun      key.Binding
	Tail       key.Binding
	Open       key.Binding
	Close      key.Binding
	Newer      key.Binding
	Older      key.Binding
	MorePage   key.Binding
	LessPage   key.Binding
	FocusLeft  key.Binding
	FocusRight key.Binding
	LegendUp   key.Binding
	LegendDown key.Binding
	Visibility key.Binding
	Isolate    key.Binding
	Filter     key.Binding
	SortOrder  key.Binding
}

// DefaultKeyMap returns the default bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:       key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		Interrupt:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "copy selection or quit")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		NextView:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
		PrevView:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous view")),
		EditQuery:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "edit query")),
		Rerun:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "run query again")),
		Tail:       key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "toggle live tail")),
		Open:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "stream context")),
		Close:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Newer:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "load newer")),
		Older:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "load older")),
		MorePage:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "bigger page")),
		LessPage:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "smaller page")),
		FocusLeft:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "previous bucket")),
		FocusRight: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "next bucket")),
		LegendUp:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "previous series")),
		LegendDown: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "next series")),
		Visibility: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "show/hide series")),
		Isolate:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "focus series")),
		Filter:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "apply series filter")),
		SortOrder:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "tooltip order")),
	}
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.NextView, k.EditQuery, k.Quit}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextView, k.PrevView, k.EditQuery, k.Rerun, k.Tail, k.Help, k.Interrupt, k.Quit},
		{k.Open, k.Newer, k.Older, k.MorePage, k.LessPage, k.Close},
		{k.FocusLeft, k.FocusRight, k.LegendUp, k.LegendDown, k.Visibility, k.Isolate, k.Filter, k.SortOrder},
	}
}
