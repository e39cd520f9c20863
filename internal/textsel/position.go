// Package textsel maps pointer coordinates to logical text positions and
// computes ordered ranges, selections and highlight fragments over an ordered
// sequence of lines.
package textsel

import "strings"

// Position identifies a byte offset within one line of an ordered line sequence
type Position struct {
	Element int // index of the line
	Offset  int // byte offset inside the line
}

// Bounds is a pair of positions in document order
type Bounds struct {
	Start Position
	End   Position
}

// Selection holds the endpoints of a selection in click order.
// Either endpoint may be nil while a gesture is in progress.
type Selection struct {
	Start *Position
	End   *Position
}

// Active reports whether both endpoints are set
func (s Selection) Active() bool {
	return s.Start != nil && s.End != nil
}

// Bounds returns the ordered bounds of an active selection
func (s Selection) Bounds() (Bounds, bool) {
	if !s.Active() {
		return Bounds{}, false
	}
	return OrderedBounds(*s.Start, *s.End), true
}

// Empty reports whether the selection covers no characters
func (s Selection) Empty() bool {
	return !s.Active() || *s.Start == *s.End
}

// Before reports whether a is at or before b in (Element, Offset) order
func Before(a, b Position) bool {
	if a.Element != b.Element {
		return a.Element < b.Element
	}
	return a.Offset <= b.Offset
}

// OrderedBounds returns a and b ordered by (Element, Offset)
func OrderedBounds(a, b Position) Bounds {
	if Before(a, b) {
		return Bounds{Start: a, End: b}
	}
	return Bounds{Start: b, End: a}
}

// Contains reports whether p lies inside b, both ends inclusive
func (b Bounds) Contains(p Position) bool {
	return Before(b.Start, p) && Before(p, b.End)
}

// ExtendForShift applies a shift+click at point to the current selection
func ExtendForShift(current Selection, point Position) Selection {
	if current.Start == nil {
		return Selection{Start: ptr(point)}
	}
	if current.End == nil {
		return Selection{Start: current.Start, End: ptr(point)}
	}

	b := OrderedBounds(*current.Start, *current.End)
	switch {
	case point.Element < b.Start.Element ||
		(point.Element == b.Start.Element && point.Offset < b.Start.Offset):
		return Selection{Start: ptr(point), End: ptr(b.End)}
	case point.Element > b.End.Element ||
		(point.Element == b.End.Element && point.Offset > b.End.Offset):
		return Selection{Start: ptr(b.Start), End: ptr(point)}
	}

	// Point is inside: move the endpoint with the smaller line distance, start wins ties
	if abs(point.Element-b.Start.Element) <= abs(point.Element-b.End.Element) {
		return Selection{Start: ptr(point), End: ptr(b.End)}
	}
	return Selection{Start: ptr(b.Start), End: ptr(point)}
}

// SliceSelectedText returns the exact characters between a and b.
// Multi-line selections join the first line suffix, the whole middle lines
// and the last line prefix with newlines. Out-of-range positions are clamped.
func SliceSelectedText(lines []string, a, b Position) string {
	if len(lines) == 0 {
		return ""
	}
	bounds := OrderedBounds(clampPosition(lines, a), clampPosition(lines, b))
	start, end := bounds.Start, bounds.End

	if start.Element == end.Element {
		return lines[start.Element][start.Offset:end.Offset]
	}

	var sb strings.Builder
	sb.WriteString(lines[start.Element][start.Offset:])
	for i := start.Element + 1; i < end.Element; i++ {
		sb.WriteByte('\n')
		sb.WriteString(lines[i])
	}
	sb.WriteByte('\n')
	sb.WriteString(lines[end.Element][:end.Offset])
	return sb.String()
}

// LineRange projects bounds onto line element of length lineLen.
// ok is false when the line is outside the bounds.
func LineRange(b Bounds, element, lineLen int) (start, end int, ok bool) {
	if element < b.Start.Element || element > b.End.Element {
		return 0, 0, false
	}
	start, end = 0, lineLen
	if b.Start.Element == element {
		start = b.Start.Offset
	}
	if b.End.Element == element {
		end = b.End.Offset
	}
	return clampInt(start, 0, lineLen), clampInt(end, 0, lineLen), true
}

func clampPosition(lines []string, p Position) Position {
	p.Element = clampInt(p.Element, 0, len(lines)-1)
	p.Offset = clampInt(p.Offset, 0, len(lines[p.Element]))
	return p
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func ptr(p Position) *Position {
	return &p
}
