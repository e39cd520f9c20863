package docview

// Window is the half-open range [Start, End) of line indices kept rendered
type Window struct {
	Start int
	End   int
}

// Contains reports whether index i is inside the window
func (w Window) Contains(i int) bool {
	return i >= w.Start && i < w.End
}

// Len returns the number of lines in the window
func (w Window) Len() int {
	return w.End - w.Start
}

// Geometry describes the scroll state of a list of fixed-height rows.
// All lengths share one unit (cells in the terminal).
type Geometry struct {
	ContainerTop    int // top edge of the list relative to the viewport, negative once scrolled
	ContainerHeight int
	ViewportHeight  int
	RowHeight       int
	Overhead        int // rows rendered beyond each side of the visible ones
	Count           int
}

// Overhead returns the default overscan for a viewport
func Overhead(viewportHeight, rowHeight int) int {
	return ceilDiv(viewportHeight, rowHeight)
}

// InitialWindow is the window before any scrolling happened
func InitialWindow(viewportHeight, rowHeight, overhead, count int) Window {
	end := ceilDiv(viewportHeight, rowHeight) + overhead
	return Window{Start: 0, End: clamp(end, 0, count)}
}

// ComputeWindow derives the window from the list's position in the viewport.
// The geometrically visible rows are padded by Overhead on both sides and
// clamped to [0, Count].
func ComputeWindow(g Geometry) Window {
	if g.RowHeight <= 0 || g.Count <= 0 {
		return Window{}
	}

	visibleTop := max(g.ContainerTop, 0)
	visibleBottom := min(g.ContainerTop+g.ContainerHeight, g.ViewportHeight)
	visibleHeight := max(visibleBottom-visibleTop, 0)

	start := 0
	if g.ContainerTop <= 0 {
		start = -g.ContainerTop / g.RowHeight
	}
	end := start + ceilDiv(visibleHeight, g.RowHeight)

	return Window{
		Start: clamp(start-g.Overhead, 0, g.Count),
		End:   clamp(end+g.Overhead, 0, g.Count),
	}
}

// JumpWindow moves the window so that target is rendered, keeping its size.
// The window is returned unchanged when target is already inside it.
func JumpWindow(current Window, target, overhead, count int) Window {
	if current.Contains(target) {
		return current
	}
	start := max(0, target-overhead)
	end := min(count, start+current.Len())
	if end <= target {
		end = min(count, target+1)
	}
	return Window{Start: start, End: end}
}

func ceilDiv(a, b int) int {
	if b <= 0 || a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
