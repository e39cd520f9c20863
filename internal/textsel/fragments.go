package textsel

import "sort"

// Highlight classifies a fragment of a line
type Highlight int

const (
	HighlightNone Highlight = iota
	HighlightSearch
	HighlightSelection
	HighlightBoth
)

// String returns the highlight name
func (h Highlight) String() string {
	switch h {
	case HighlightSearch:
		return "search"
	case HighlightSelection:
		return "selection"
	case HighlightBoth:
		return "both"
	default:
		return "none"
	}
}

// RangeKind tells search ranges from the selection range
type RangeKind int

const (
	KindSearch RangeKind = iota
	KindSelection
)

// Range is a half-open byte interval within one line
type Range struct {
	Start int
	End   int
	Kind  RangeKind
}

// Fragment is a contiguous piece of a line with one highlight classification
type Fragment struct {
	Text      string
	Start     int
	End       int
	Highlight Highlight
}

// SplitIntoFragments cuts text at every boundary contributed by the search
// ranges and the selection, and classifies each piece.
// The fragments cover the whole text; an empty text yields one empty fragment.
func SplitIntoFragments(text string, search []Range, selection *Range) []Fragment {
	if len(text) == 0 {
		return []Fragment{{Highlight: HighlightNone}}
	}

	seen := map[int]struct{}{0: {}, len(text): {}}
	add := func(v int) {
		seen[clampInt(v, 0, len(text))] = struct{}{}
	}
	for _, r := range search {
		add(r.Start)
		add(r.End)
	}
	if selection != nil {
		add(selection.Start)
		add(selection.End)
	}

	positions := make([]int, 0, len(seen))
	for p := range seen {
		positions = append(positions, p)
	}
	sort.Ints(positions)

	fragments := make([]Fragment, 0, len(positions)-1)
	for i := 0; i < len(positions)-1; i++ {
		lo, hi := positions[i], positions[i+1]

		inSelection := selection != nil && lo >= selection.Start && hi <= selection.End
		inSearch := false
		for _, r := range search {
			if lo >= r.Start && hi <= r.End {
				inSearch = true
				break
			}
		}

		h := HighlightNone
		switch {
		case inSelection && inSearch:
			h = HighlightBoth
		case inSelection:
			h = HighlightSelection
		case inSearch:
			h = HighlightSearch
		}

		fragments = append(fragments, Fragment{
			Text:      text[lo:hi],
			Start:     lo,
			End:       hi,
			Highlight: h,
		})
	}
	return fragments
}
