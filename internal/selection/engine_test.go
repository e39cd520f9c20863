package selection

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/control-theory/vlexplore/internal/textsel"
)

// gridView lays lines out one per row with one byte per column
type gridView struct {
	lines            []string
	width, height    int
	scrollX, scrollY int
}

func (g *gridView) CaretAt(x, y int) (textsel.Caret, bool) {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return textsel.Caret{}, false
	}
	idx := g.scrollY + y
	if idx >= len(g.lines) {
		return textsel.Caret{}, false
	}
	off := g.scrollX + x
	if off > len(g.lines[idx]) {
		off = len(g.lines[idx])
	}
	return textsel.Caret{Element: idx, Text: g.lines[idx], Offset: off}, true
}

func (g *gridView) Rect() (int, int, int, int) { return 0, 0, g.width, g.height }

func (g *gridView) ScrollBy(dx, dy int) {
	g.scrollX = max(0, g.scrollX+dx)
	g.scrollY = max(0, min(len(g.lines)-1, g.scrollY+dy))
}

func newView() *gridView {
	lines := make([]string, 50)
	for i := range lines {
		lines[i] = "line with some words 10.0.0.1 end"
	}
	return &gridView{lines: lines, width: 30, height: 10}
}

func press(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
}

func motion(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft}
}

func release(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft}
}

func p(e, o int) textsel.Position { return textsel.Position{Element: e, Offset: o} }

func TestSingleClickDrag(t *testing.T) {
	blurred := 0
	e := New(newView(), DefaultConfig(), func() { blurred++ })

	cmd := e.HandleMouse(press(5, 2))
	require.NotNil(t, cmd, "a press schedules the click reset timer")
	assert.Equal(t, 1, blurred)
	assert.Equal(t, Dragging, e.State())
	require.NotNil(t, e.Selection().Start)
	assert.Equal(t, p(2, 5), *e.Selection().Start)
	assert.Nil(t, e.Selection().End)

	assert.Nil(t, e.HandleMouse(motion(12, 4)))
	require.NotNil(t, e.Selection().End)
	assert.Equal(t, p(4, 12), *e.Selection().End)

	e.HandleMouse(release(12, 4))
	assert.Equal(t, Idle, e.State())

	// motion after release does not move the selection
	e.HandleMouse(motion(20, 6))
	assert.Equal(t, p(4, 12), *e.Selection().End)

	b, ok := e.Bounds()
	require.True(t, ok)
	assert.Equal(t, textsel.Bounds{Start: p(2, 5), End: p(4, 12)}, b)
}

func TestDoubleAndTripleClick(t *testing.T) {
	e := New(newView(), DefaultConfig(), nil)

	e.HandleMouse(press(11, 3))
	e.HandleMouse(release(11, 3))
	e.HandleMouse(press(11, 3))
	assert.Equal(t, Idle, e.State())
	b, ok := e.Bounds()
	require.True(t, ok)
	// "some" starts at 10
	assert.Equal(t, textsel.Bounds{Start: p(3, 10), End: p(3, 14)}, b)

	e.HandleMouse(press(11, 3))
	b, ok = e.Bounds()
	require.True(t, ok)
	assert.Equal(t, textsel.Bounds{Start: p(3, 0), End: p(3, 33)}, b)
	assert.Equal(t, 0, e.Clicks(), "the third click resets the counter")

	// the next click starts over as a single click
	e.HandleMouse(press(2, 1))
	assert.Equal(t, Dragging, e.State())
	assert.Equal(t, p(1, 2), *e.Selection().Start)
}

func TestDoubleClickOnDottedNumber(t *testing.T) {
	e := New(newView(), DefaultConfig(), nil)
	e.HandleMouse(press(24, 0))
	e.HandleMouse(press(24, 0))
	b, ok := e.Bounds()
	require.True(t, ok)
	assert.Equal(t, textsel.Bounds{Start: p(0, 21), End: p(0, 29)}, b)
}

func TestClickResetTimer(t *testing.T) {
	e := New(newView(), DefaultConfig(), nil)
	e.HandleMouse(press(1, 1))
	assert.Equal(t, 1, e.Clicks())

	stale := ClickResetMsg{id: e.id, seq: e.clickSeq - 1}
	e.Update(stale)
	assert.Equal(t, 1, e.Clicks(), "stale reset is ignored")

	other := ClickResetMsg{id: e.id + 1000, seq: e.clickSeq}
	e.Update(other)
	assert.Equal(t, 1, e.Clicks(), "reset for another engine is ignored")

	e.Update(ClickResetMsg{id: e.id, seq: e.clickSeq})
	assert.Equal(t, 0, e.Clicks())

	// after the reset a second press is a single click again
	e.HandleMouse(press(1, 1))
	assert.Equal(t, Dragging, e.State())
}

func TestShiftClickExtends(t *testing.T) {
	e := New(newView(), DefaultConfig(), nil)
	start, end := p(2, 3), p(4, 6)
	e.SetSelection(&start, &end)

	msg := press(1, 8)
	msg.Shift = true
	e.HandleMouse(msg)

	assert.Equal(t, Idle, e.State())
	b, ok := e.Bounds()
	require.True(t, ok)
	assert.Equal(t, textsel.Bounds{Start: p(2, 3), End: p(8, 1)}, b)
}

func TestPressOutsideViewport(t *testing.T) {
	e := New(newView(), DefaultConfig(), nil)
	assert.Nil(t, e.HandleMouse(press(40, 2)))
	assert.Equal(t, 0, e.Clicks())
	assert.Equal(t, Idle, e.State())

	right := tea.MouseMsg{X: 3, Y: 3, Action: tea.MouseActionPress, Button: tea.MouseButtonRight}
	assert.Nil(t, e.HandleMouse(right))
	assert.Equal(t, 0, e.Clicks())
}

func TestAutoScroll(t *testing.T) {
	view := newView()
	e := New(view, DefaultConfig(), nil)

	e.HandleMouse(press(5, 2))
	cmd := e.HandleMouse(motion(5, 9))
	require.NotNil(t, cmd, "dragging onto the bottom row starts auto-scroll")
	assert.True(t, e.Scrolling())
	assert.Equal(t, p(9, 5), *e.Selection().End)

	// moving along the same edge keeps the running repeat
	assert.Nil(t, e.HandleMouse(motion(6, 9)))

	next := e.Update(AutoScrollMsg{id: e.id, seq: e.scrollSeq})
	require.NotNil(t, next)
	assert.Equal(t, 1, view.scrollY)
	assert.Equal(t, p(10, 6), *e.Selection().End, "selection grows while the pointer rests")

	e.HandleMouse(release(6, 9))
	assert.False(t, e.Scrolling())
	assert.Nil(t, e.Update(AutoScrollMsg{id: e.id, seq: e.scrollSeq - 1}))
	assert.Equal(t, 1, view.scrollY, "no scrolling after release")
}

func TestAutoScrollStopsAwayFromEdge(t *testing.T) {
	view := newView()
	e := New(view, DefaultConfig(), nil)
	e.HandleMouse(press(5, 5))
	require.NotNil(t, e.HandleMouse(motion(0, 5)))
	assert.True(t, e.Scrolling())

	e.HandleMouse(motion(5, 5))
	assert.False(t, e.Scrolling())
}

func TestCloseInvalidatesTimers(t *testing.T) {
	view := newView()
	e := New(view, DefaultConfig(), nil)
	e.HandleMouse(press(5, 2))
	e.HandleMouse(motion(5, 0))
	require.True(t, e.Scrolling())

	scrollSeq, clickSeq := e.scrollSeq, e.clickSeq
	e.Close()

	assert.Nil(t, e.Update(AutoScrollMsg{id: e.id, seq: scrollSeq}))
	e.Update(ClickResetMsg{id: e.id, seq: clickSeq})
	assert.Equal(t, Idle, e.State())
	assert.Equal(t, 0, view.scrollY)
}

func TestClear(t *testing.T) {
	e := New(newView(), DefaultConfig(), nil)
	e.HandleMouse(press(5, 2))
	e.HandleMouse(motion(8, 2))
	e.Clear()
	assert.False(t, e.Selection().Active())
	assert.Equal(t, Idle, e.State())
}
