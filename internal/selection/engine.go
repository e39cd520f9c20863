// Package selection implements mouse driven text selection: single click and
// drag, double click word selection, triple click line selection, shift+click
// extension and auto-scroll while dragging near the edges of the viewport.
package selection

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/control-theory/vlexplore/internal/textsel"
)

// Internal ID management. Used to route timer messages to the engine that
// scheduled them when several viewers are alive at once.
var lastID int64

func nextID() int {
	return int(atomic.AddInt64(&lastID, 1))
}

// State of the gesture state machine
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Viewport is the scrollable text area the engine selects in
type Viewport interface {
	textsel.CaretLocator

	// Rect returns the screen rectangle of the text area
	Rect() (x, y, width, height int)

	// ScrollBy scrolls the content horizontally by dx columns and vertically by dy rows
	ScrollBy(dx, dy int)
}

// Config tunes gesture timing and auto-scroll
type Config struct {
	ClickResetDelay    time.Duration // window for counting double and triple clicks
	EdgeThreshold      int           // distance from an edge, in cells, that starts auto-scroll
	AutoScrollInterval time.Duration
	ScrollStepX        int // columns per auto-scroll step
	ScrollStepY        int // rows per auto-scroll step
}

// DefaultConfig returns the default gesture configuration
func DefaultConfig() Config {
	return Config{
		ClickResetDelay:    400 * time.Millisecond,
		EdgeThreshold:      1,
		AutoScrollInterval: 100 * time.Millisecond,
		ScrollStepX:        4,
		ScrollStepY:        1,
	}
}

// ClickResetMsg clears the click counter once the multi-click window expires
type ClickResetMsg struct {
	id  int
	seq int
}

// AutoScrollMsg drives one auto-scroll step while dragging near an edge
type AutoScrollMsg struct {
	id  int
	seq int
}

// Engine is the selection gesture state machine
type Engine struct {
	id      int
	cfg     Config
	view    Viewport
	onBegin func()

	sel   textsel.Selection
	state State

	clicks   int
	clickSeq int

	// Auto-scroll state. scrollSeq invalidates ticks of a stopped repeat.
	scrollSeq  int
	scrolling  bool
	dirX, dirY int
	lastX      int
	lastY      int
}

// New creates an engine selecting in view. onBegin, if set, runs whenever a
// new gesture resolves to a text position.
func New(view Viewport, cfg Config, onBegin func()) *Engine {
	return &Engine{
		id:      nextID(),
		cfg:     cfg,
		view:    view,
		onBegin: onBegin,
	}
}

// Selection returns the current selection endpoints in click order
func (e *Engine) Selection() textsel.Selection {
	return e.sel
}

// Bounds returns the ordered bounds of the current selection
func (e *Engine) Bounds() (textsel.Bounds, bool) {
	return e.sel.Bounds()
}

// SetSelection replaces the selection endpoints
func (e *Engine) SetSelection(start, end *textsel.Position) {
	e.sel = textsel.Selection{Start: copyPos(start), End: copyPos(end)}
}

// Clear drops the selection and stops any gesture in progress
func (e *Engine) Clear() {
	e.sel = textsel.Selection{}
	e.stopDrag()
}

// State returns the current gesture state
func (e *Engine) State() State {
	return e.state
}

// Scrolling reports whether an auto-scroll repeat is active
func (e *Engine) Scrolling() bool {
	return e.scrolling
}

// Clicks returns the current multi-click count
func (e *Engine) Clicks() int {
	return e.clicks
}

// Close stops the gesture and invalidates every pending timer
func (e *Engine) Close() {
	e.stopDrag()
	e.clickSeq++
	e.clicks = 0
}

// HandleMouse feeds a mouse event into the state machine
func (e *Engine) HandleMouse(msg tea.MouseMsg) tea.Cmd {
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return nil
		}
		return e.press(msg)

	case tea.MouseActionMotion:
		if e.state != Dragging {
			return nil
		}
		return e.drag(msg.X, msg.Y)

	case tea.MouseActionRelease:
		// Some terminals report releases without the button
		if msg.Button != tea.MouseButtonLeft && msg.Button != tea.MouseButtonNone {
			return nil
		}
		e.stopDrag()
	}
	return nil
}

// Update handles the engine's own timer messages
func (e *Engine) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case ClickResetMsg:
		if msg.id == e.id && msg.seq == e.clickSeq {
			e.clicks = 0
		}

	case AutoScrollMsg:
		if msg.id != e.id || msg.seq != e.scrollSeq || !e.scrolling {
			return nil
		}
		e.view.ScrollBy(e.dirX*e.cfg.ScrollStepX, e.dirY*e.cfg.ScrollStepY)
		// The content moved under a resting pointer, so the end follows it
		if p, ok := textsel.ResolveClickPosition(e.view, e.lastX, e.lastY); ok {
			e.sel.End = &p
		}
		return e.scrollTick()
	}
	return nil
}

func (e *Engine) press(msg tea.MouseMsg) tea.Cmd {
	if !e.inside(msg.X, msg.Y) {
		return nil
	}

	e.clicks++
	e.clickSeq++
	resetCmd := e.clickResetTick()

	p, ok := textsel.ResolveClickPosition(e.view, msg.X, msg.Y)
	if !ok {
		return resetCmd
	}
	if e.onBegin != nil {
		e.onBegin()
	}

	switch e.clicks {
	case 2:
		e.stopDrag()
		if w, ok := textsel.ResolveWordAtPoint(e.view, msg.X, msg.Y); ok {
			e.SetSelection(&w.Start, &w.End)
		}
		return resetCmd

	case 3:
		e.stopDrag()
		if l, ok := textsel.ResolveLineAtPoint(e.view, msg.X, msg.Y); ok {
			e.SetSelection(&l.Start, &l.End)
		}
		e.clicks = 0
		return resetCmd
	}

	if msg.Shift {
		e.sel = textsel.ExtendForShift(e.sel, p)
		return resetCmd
	}

	e.sel = textsel.Selection{Start: &p}
	e.state = Dragging
	e.lastX, e.lastY = msg.X, msg.Y
	return resetCmd
}

func (e *Engine) drag(x, y int) tea.Cmd {
	e.lastX, e.lastY = x, y
	if p, ok := textsel.ResolveClickPosition(e.view, x, y); ok {
		e.sel.End = &p
	}

	dirX, dirY := e.edgeDirection(x, y)
	if dirX == 0 && dirY == 0 {
		e.stopScroll()
		return nil
	}
	if e.scrolling && dirX == e.dirX && dirY == e.dirY {
		return nil
	}

	e.stopScroll()
	e.scrolling = true
	e.dirX, e.dirY = dirX, dirY
	return e.scrollTick()
}

func (e *Engine) edgeDirection(x, y int) (dx, dy int) {
	vx, vy, w, h := e.view.Rect()
	t := e.cfg.EdgeThreshold

	switch {
	case y < vy+t:
		dy = -1
	case y >= vy+h-t:
		dy = 1
	}
	switch {
	case x < vx+t:
		dx = -1
	case x >= vx+w-t:
		dx = 1
	}
	return dx, dy
}

func (e *Engine) inside(x, y int) bool {
	vx, vy, w, h := e.view.Rect()
	return x >= vx && x < vx+w && y >= vy && y < vy+h
}

func (e *Engine) stopDrag() {
	e.state = Idle
	e.stopScroll()
}

func (e *Engine) stopScroll() {
	if e.scrolling {
		e.scrollSeq++
	}
	e.scrolling = false
	e.dirX, e.dirY = 0, 0
}

func (e *Engine) clickResetTick() tea.Cmd {
	id, seq := e.id, e.clickSeq
	return tea.Tick(e.cfg.ClickResetDelay, func(time.Time) tea.Msg {
		return ClickResetMsg{id: id, seq: seq}
	})
}

func (e *Engine) scrollTick() tea.Cmd {
	id, seq := e.id, e.scrollSeq
	return tea.Tick(e.cfg.AutoScrollInterval, func(time.Time) tea.Msg {
		return AutoScrollMsg{id: id, seq: seq}
	})
}

func copyPos(p *textsel.Position) *textsel.Position {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
