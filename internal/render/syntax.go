// Package render provides token styling for lines shown in the document viewer.
package render

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/charmbracelet/lipgloss"
)

// Span styles the half-open byte interval [Start, End) of a line
type Span struct {
	Start int
	End   int
	Style lipgloss.Style
}

// Highlighter produces token spans for one line of text
type Highlighter interface {
	Spans(line string) []Span
}

// SyntaxHighlighter styles lines with a chroma lexer
type SyntaxHighlighter struct {
	lexer  chroma.Lexer
	styles map[chroma.TokenType]lipgloss.Style
}

// NewSyntaxHighlighter creates a highlighter for the named chroma lexer
// ("json", "logfmt", ...). Unknown names fall back to plain text.
func NewSyntaxHighlighter(lexerName string) *SyntaxHighlighter {
	lexer := lexers.Get(lexerName)
	if lexer == nil {
		lexer = lexers.Fallback
	}

	return &SyntaxHighlighter{
		lexer: chroma.Coalesce(lexer),
		styles: map[chroma.TokenType]lipgloss.Style{
			chroma.NameTag:       lipgloss.NewStyle().Foreground(lipgloss.Color("#7AA2F7")),
			chroma.LiteralString: lipgloss.NewStyle().Foreground(lipgloss.Color("#9ECE6A")),
			chroma.LiteralNumber: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF9E64")),
			chroma.Keyword:       lipgloss.NewStyle().Foreground(lipgloss.Color("#BB9AF7")),
			chroma.Punctuation:   lipgloss.NewStyle().Foreground(lipgloss.Color("#737AA2")),
		},
	}
}

// Spans tokenises line and returns the styled spans in order.
// Tokens without a style are omitted.
func (h *SyntaxHighlighter) Spans(line string) []Span {
	if line == "" {
		return nil
	}
	it, err := h.lexer.Tokenise(nil, line)
	if err != nil {
		return nil
	}

	var spans []Span
	offset := 0
	for _, tok := range it.Tokens() {
		start := offset
		offset += len(tok.Value)
		if start >= len(line) {
			break
		}
		end := min(offset, len(line))

		style, ok := h.styleFor(tok.Type)
		if !ok {
			continue
		}
		spans = append(spans, Span{Start: start, End: end, Style: style})
	}
	return spans
}

func (h *SyntaxHighlighter) styleFor(t chroma.TokenType) (lipgloss.Style, bool) {
	if s, ok := h.styles[t]; ok {
		return s, true
	}
	for _, group := range []chroma.TokenType{t.SubCategory(), t.Category()} {
		if s, ok := h.styles[group]; ok {
			return s, true
		}
	}
	return lipgloss.Style{}, false
}
