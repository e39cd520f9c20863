package docview

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/control-theory/vlexplore/internal/render"
	"github.com/control-theory/vlexplore/internal/search"
	"github.com/control-theory/vlexplore/internal/textsel"
)

var (
	selectionColor = lipgloss.Color("#469DBD")
	searchColor    = lipgloss.Color("#BDB300")
	focusColor     = lipgloss.Color("#DF7700")
)

// segment is a run of text drawn with one style
type segment struct {
	text  string
	style lipgloss.Style
}

// runeCells is the number of terminal cells a rune occupies in the viewer.
// Control characters, tabs included, are drawn as a single space.
func runeCells(r rune) int {
	if isControl(r) {
		return 1
	}
	return runewidth.RuneWidth(r)
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f || r == utf8.RuneError || (!unicode.IsPrint(r) && !unicode.IsMark(r))
}

// displayWidth returns the number of cells text occupies
func displayWidth(text string) int {
	w := 0
	for _, r := range text {
		w += runeCells(r)
	}
	return w
}

// offsetAtColumn maps a display column to the byte offset of the rune drawn
// there. Columns past the end map to len(text).
func offsetAtColumn(text string, col int) int {
	if col <= 0 {
		return 0
	}
	c := 0
	for i, r := range text {
		w := runeCells(r)
		if col < c+w {
			return i
		}
		c += w
	}
	return len(text)
}

// columnAtOffset maps a byte offset to its display column
func columnAtOffset(text string, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	return displayWidth(text[:offset])
}

// lineStyle carries what a single line needs to be drawn
type lineStyle struct {
	query       string
	searchRange func(line string) []textsel.Range
	selection   *textsel.Range
	focusOffset int // -1 when the focused match is not on this line
	highlighter render.Highlighter
}

// buildSegments splits line into styled segments: highlight fragments first,
// then token spans inside each fragment.
func buildSegments(line string, ls lineStyle) []segment {
	var ranges []textsel.Range
	if ls.query != "" && ls.searchRange != nil {
		ranges = ls.searchRange(line)
	}
	fragments := textsel.SplitIntoFragments(line, ranges, ls.selection)

	var spans []render.Span
	if ls.highlighter != nil {
		spans = ls.highlighter.Spans(line)
	}

	// the focused match may be split by selection boundaries
	focusStart, focusEnd := -1, -1
	if ls.focusOffset >= 0 {
		focusStart, focusEnd = ls.focusOffset, search.MatchEnd(line, ls.query, ls.focusOffset)
	}

	segments := make([]segment, 0, len(fragments))
	for _, f := range fragments {
		focused := f.Start != f.End && f.Start >= focusStart && f.Start < focusEnd
		base := fragmentStyle(f, focused)
		segments = appendTokenSegments(segments, line, f.Start, f.End, base, spans)
	}
	return segments
}

func fragmentStyle(f textsel.Fragment, focused bool) lipgloss.Style {
	s := lipgloss.NewStyle()
	switch f.Highlight {
	case textsel.HighlightSearch:
		s = s.Background(searchColor).Foreground(lipgloss.Color("#000000"))
	case textsel.HighlightSelection:
		s = s.Background(selectionColor).Foreground(lipgloss.Color("#FFFFFF"))
	case textsel.HighlightBoth:
		s = s.Background(selectionColor).Foreground(searchColor)
	}
	if focused {
		if f.Highlight == textsel.HighlightBoth {
			s = s.Foreground(focusColor)
		} else {
			s = s.Background(focusColor).Foreground(lipgloss.Color("#000000"))
		}
	}
	return s
}

// appendTokenSegments cuts [start, end) of line by the token spans. Token
// colors apply only where the fragment has no highlight of its own.
func appendTokenSegments(out []segment, line string, start, end int, base lipgloss.Style, spans []render.Span) []segment {
	if start >= end {
		return out
	}
	_, plain := base.GetBackground().(lipgloss.NoColor)

	pos := start
	if plain {
		for _, sp := range spans {
			if sp.End <= pos {
				continue
			}
			if sp.Start >= end {
				break
			}
			if sp.Start > pos {
				out = append(out, segment{text: line[pos:sp.Start], style: base})
				pos = sp.Start
			}
			stop := min(sp.End, end)
			out = append(out, segment{text: line[pos:stop], style: sp.Style})
			pos = stop
		}
	}
	if pos < end {
		out = append(out, segment{text: line[pos:end], style: base})
	}
	return out
}

// renderSegments draws the columns [from, from+width) of the segments
func renderSegments(segments []segment, from, width int) string {
	if width <= 0 {
		return ""
	}
	to := from + width

	var sb strings.Builder
	col := 0
	for _, seg := range segments {
		if col >= to {
			break
		}
		segWidth := displayWidth(seg.text)
		if col+segWidth <= from {
			col += segWidth
			continue
		}

		var visible strings.Builder
		for _, r := range seg.text {
			w := runeCells(r)
			switch {
			case col < from && col+w > from:
				// wide rune cut by the left edge
				visible.WriteString(strings.Repeat(" ", col+w-from))
			case col >= from && col+w <= to:
				visible.WriteString(printable(r))
			case col >= from && col < to:
				// wide rune cut by the right edge
				visible.WriteString(strings.Repeat(" ", to-col))
			}
			col += w
			if col >= to {
				break
			}
		}
		if visible.Len() > 0 {
			sb.WriteString(seg.style.Render(visible.String()))
		}
	}
	return sb.String()
}

func printable(r rune) string {
	if isControl(r) {
		return " "
	}
	return string(r)
}
