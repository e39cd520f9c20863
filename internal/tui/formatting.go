package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/control-theory/vlexplore/internal/vlogs"
)

// groupLines renders records grouped by stream: a header per stream followed
// by its records, one line each. keys identify what every line shows.
func groupLines(records []vlogs.Record) (lines, keys []string) {
	groups := vlogs.GroupByStream(records)
	recKeys := recordKeys(records)
	lines = make([]string, 0, len(records)+2*len(groups))
	keys = make([]string, 0, cap(lines))
	pos := make(map[string][]int, len(groups))
	for i, r := range records {
		pos[r.Stream()] = append(pos[r.Stream()], i)
	}
	for i, g := range groups {
		if i > 0 {
			lines = append(lines, "")
			keys = append(keys, "")
		}
		stream := g.Stream
		if stream == "" {
			stream = "{}"
		}
		lines = append(lines, fmt.Sprintf("── %s (%s)", stream, humanize.Comma(int64(len(g.Records)))))
		keys = append(keys, "stream\x00"+g.Stream)
		for j, r := range g.Records {
			lines = append(lines, "  "+oneLine(r.Line()))
			keys = append(keys, recKeys[pos[g.Stream][j]])
		}
	}
	return lines, keys
}

// jsonLines pretty-prints every record, separated by blank lines
func jsonLines(records []vlogs.Record) (lines, keys []string) {
	recKeys := recordKeys(records)
	lines = make([]string, 0, len(records)*4)
	keys = make([]string, 0, cap(lines))
	for i, r := range records {
		if i > 0 {
			lines = append(lines, "")
			keys = append(keys, "")
		}
		for j, l := range strings.Split(r.JSON(), "\n") {
			lines = append(lines, l)
			keys = append(keys, fmt.Sprintf("%s\x00%d", recKeys[i], j))
		}
	}
	return lines, keys
}

// recordKeys identifies records across result sets. Repeated records are
// told apart by their occurrence number.
func recordKeys(records []vlogs.Record) []string {
	seen := make(map[string]int, len(records))
	keys := make([]string, len(records))
	for i, r := range records {
		k := r.Time() + "\x00" + r.StreamID() + "\x00" + r.Msg()
		keys[i] = fmt.Sprintf("%s\x00%d", k, seen[k])
		seen[k]++
	}
	return keys
}

// remapLines translates line indexes between two renderings by their keys.
// Separator lines follow the next keyed line.
func remapLines(oldKeys, newKeys []string) func(int) int {
	index := make(map[string]int, len(newKeys))
	for i, k := range newKeys {
		if k != "" {
			index[k] = i
		}
	}
	return func(i int) int {
		for d := 0; i+d < len(oldKeys); d++ {
			k := oldKeys[i+d]
			if k == "" {
				continue
			}
			j, ok := index[k]
			if !ok {
				return -1
			}
			return max(j-d, 0)
		}
		return -1
	}
}

// oneLine replaces line breaks so a record fits a single document line
func oneLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.NewReplacer("\r\n", "⏎", "\n", "⏎", "\r", "⏎").Replace(s)
}

func newRecordTable() table.Model {
	t := table.New(
		table.WithColumns(recordColumns(80)),
		table.WithFocused(true),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorGray).
		BorderBottom(true).
		Foreground(ColorBlue).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(ColorWhite).
		Background(ColorNavy).
		Bold(false)
	t.SetStyles(s)
	return t
}

// recordColumns splits width between time, stream and message
func recordColumns(width int) []table.Column {
	const timeW = 30
	streamW := max(width/4, 12)
	msgW := max(width-timeW-streamW-6, 10)
	return []table.Column{
		{Title: "Time", Width: timeW},
		{Title: "Stream", Width: streamW},
		{Title: "Message", Width: msgW},
	}
}

func recordRows(records []vlogs.Record) []table.Row {
	rows := make([]table.Row, len(records))
	for i, r := range records {
		rows[i] = table.Row{r.Time(), r.Stream(), oneLine(r.Msg())}
	}
	return rows
}

// contextLines renders stream context records. The pivot is marked.
func contextLines(records []vlogs.Record, pivot int) []string {
	lines := make([]string, len(records))
	for i, r := range records {
		marker := "  "
		if i == pivot {
			marker = "▶ "
		}
		lines[i] = marker + oneLine(r.Line())
	}
	return lines
}

// wrapTextToWidth wraps text to fit within the specified width
func wrapTextToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}
