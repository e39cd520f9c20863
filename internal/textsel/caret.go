package textsel

// Caret is the result of a caret-from-point hit test
type Caret struct {
	Element int    // index of the line container that was hit
	Text    string // full text content of that container
	Offset  int    // cumulative byte offset of the caret inside Text
}

// CaretLocator performs caret-from-point hit testing for screen coordinates.
// ok is false when the point is not over any line container.
type CaretLocator interface {
	CaretAt(x, y int) (c Caret, ok bool)
}

// ResolveClickPosition maps screen coordinates to a logical position
func ResolveClickPosition(locator CaretLocator, x, y int) (Position, bool) {
	if locator == nil {
		return Position{}, false
	}
	c, ok := locator.CaretAt(x, y)
	if !ok {
		return Position{}, false
	}
	return Position{Element: c.Element, Offset: clampInt(c.Offset, 0, len(c.Text))}, true
}

// ResolveWordAtPoint returns the bounds of the word under the pointer
func ResolveWordAtPoint(locator CaretLocator, x, y int) (Bounds, bool) {
	if locator == nil {
		return Bounds{}, false
	}
	c, ok := locator.CaretAt(x, y)
	if !ok {
		return Bounds{}, false
	}
	span, ok := WordAt(c.Text, c.Offset)
	if !ok {
		return Bounds{}, false
	}
	return Bounds{
		Start: Position{Element: c.Element, Offset: span.Start},
		End:   Position{Element: c.Element, Offset: span.End},
	}, true
}

// ResolveLineAtPoint returns bounds covering the whole line under the pointer
func ResolveLineAtPoint(locator CaretLocator, x, y int) (Bounds, bool) {
	if locator == nil {
		return Bounds{}, false
	}
	c, ok := locator.CaretAt(x, y)
	if !ok {
		return Bounds{}, false
	}
	return Bounds{
		Start: Position{Element: c.Element},
		End:   Position{Element: c.Element, Offset: len(c.Text)},
	}, true
}
