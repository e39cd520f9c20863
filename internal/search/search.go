// Package search implements case-insensitive find next/previous navigation
// across an ordered sequence of lines.
package search

import (
	"strings"
	"unicode/utf8"

	"github.com/control-theory/vlexplore/internal/textsel"
)

// FindMatch returns the position of the match to focus next.
//
// With no previous position it returns the first occurrence. Otherwise it
// searches forward or backward from previous and wraps around the line
// sequence, so that repeated calls cycle through every match exactly once.
func FindMatch(lines []string, query string, previous *textsel.Position, forward bool) *textsel.Position {
	if query == "" {
		return nil
	}
	if previous == nil {
		return first(lines, query)
	}
	if previous.Element < 0 || previous.Element >= len(lines) {
		return first(lines, query)
	}
	if forward {
		return next(lines, query, *previous)
	}
	return prev(lines, query, *previous)
}

func first(lines []string, query string) *textsel.Position {
	for i, line := range lines {
		if at := indexFold(line, query, 0, len(line)); at >= 0 {
			return &textsel.Position{Element: i, Offset: at}
		}
	}
	return nil
}

func next(lines []string, query string, p textsel.Position) *textsel.Position {
	// Rest of the current line
	line := lines[p.Element]
	if at := indexFold(line, query, p.Offset+1, len(line)); at >= 0 {
		return &textsel.Position{Element: p.Element, Offset: at}
	}

	// Following lines
	for i := p.Element + 1; i < len(lines); i++ {
		if at := indexFold(lines[i], query, 0, len(lines[i])); at >= 0 {
			return &textsel.Position{Element: i, Offset: at}
		}
	}

	// Wrap to the top. On the starting line only matches starting at or before previous count.
	for i := 0; i <= p.Element; i++ {
		at := indexFold(lines[i], query, 0, len(lines[i]))
		if at < 0 || (i == p.Element && at > p.Offset) {
			continue
		}
		return &textsel.Position{Element: i, Offset: at}
	}
	return nil
}

func prev(lines []string, query string, p textsel.Position) *textsel.Position {
	// Matches on the current line starting before previous
	line := lines[p.Element]
	if at := lastIndexFold(line, query, 0, p.Offset); at >= 0 {
		return &textsel.Position{Element: p.Element, Offset: at}
	}

	// Preceding lines in reverse
	for i := p.Element - 1; i >= 0; i-- {
		if at := lastIndexFold(lines[i], query, 0, len(lines[i])); at >= 0 {
			return &textsel.Position{Element: i, Offset: at}
		}
	}

	// Wrap to the bottom. On the starting line only matches from previous onwards count.
	for i := len(lines) - 1; i >= p.Element; i-- {
		from := 0
		if i == p.Element {
			from = p.Offset
		}
		if at := lastIndexFold(lines[i], query, from, len(lines[i])); at >= 0 {
			return &textsel.Position{Element: i, Offset: at}
		}
	}
	return nil
}

// Matches returns the non-overlapping case-insensitive matches of query in line
func Matches(line, query string) []textsel.Range {
	if query == "" {
		return nil
	}
	var out []textsel.Range
	from := 0
	for {
		at := indexFold(line, query, from, len(line))
		if at < 0 {
			return out
		}
		end, _ := matchFold(line, query, at, len(line))
		out = append(out, textsel.Range{Start: at, End: end, Kind: textsel.KindSearch})
		from = end
	}
}

// MatchEnd returns the byte offset where the match starting at offset ends,
// or offset itself when there is no match there.
func MatchEnd(line, query string, offset int) int {
	if offset < 0 {
		return offset
	}
	if end, ok := matchFold(line, query, offset, len(line)); ok {
		return end
	}
	return offset
}

// indexFold returns the first rune-aligned offset at or after from where
// query matches entirely inside [from, limit), or -1.
func indexFold(s, query string, from, limit int) int {
	if from < 0 {
		from = 0
	}
	if limit > len(s) {
		limit = len(s)
	}
	for i := from; i < limit; {
		if !utf8.RuneStart(s[i]) {
			i++
			continue
		}
		if _, ok := matchFold(s, query, i, limit); ok {
			return i
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1
}

// lastIndexFold returns the last rune-aligned offset in [from, before) where
// query matches, or -1. Matches are judged by where they start and may run
// to the end of s.
func lastIndexFold(s, query string, from, before int) int {
	if from < 0 {
		from = 0
	}
	if before > len(s) {
		before = len(s)
	}
	for i := before - 1; i >= from; i-- {
		if !utf8.RuneStart(s[i]) {
			continue
		}
		if _, ok := matchFold(s, query, i, len(s)); ok {
			return i
		}
	}
	return -1
}

// matchFold reports whether query matches s at offset under simple case
// folding without crossing limit, and returns the end offset of the match.
func matchFold(s, query string, offset, limit int) (int, bool) {
	i := offset
	for _, qr := range query {
		if i >= limit {
			return 0, false
		}
		r, size := utf8.DecodeRuneInString(s[i:limit])
		if r != qr && !strings.EqualFold(string(r), string(qr)) {
			return 0, false
		}
		i += size
	}
	return i, true
}
