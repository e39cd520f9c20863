package docview

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/control-theory/vlexplore/internal/search"
	"github.com/control-theory/vlexplore/internal/textsel"
)

func TestBuildSegmentsFocusSpansSplitMatch(t *testing.T) {
	line := "This is some sample text"
	ls := lineStyle{
		query:       "sample",
		searchRange: func(l string) []textsel.Range { return search.Matches(l, "sample") },
		selection:   &textsel.Range{Start: 0, End: 16, Kind: textsel.KindSelection},
		focusOffset: 13,
	}

	segs := buildSegments(line, ls)
	byText := map[string]lipgloss.Style{}
	for _, s := range segs {
		byText[s.text] = s.style
	}
	require.Contains(t, byText, "sam")
	require.Contains(t, byText, "ple")

	// selected part of the focused match
	assert.Equal(t, focusColor, byText["sam"].GetForeground())
	// unselected part of the focused match
	assert.Equal(t, focusColor, byText["ple"].GetBackground())
	// text after the match is plain
	_, plain := byText[" text"].GetBackground().(lipgloss.NoColor)
	assert.True(t, plain)

	// other matches on the line keep the search color
	ls.focusOffset = -1
	for _, s := range buildSegments(line, ls) {
		if s.text == "ple" {
			assert.Equal(t, searchColor, s.style.GetBackground())
		}
	}
}
