package render

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Overlay draws box over rows with its top-left corner at (x, y). Rows are
// cut by display width so styled text on either side keeps its escapes.
// Box lines falling outside rows are dropped.
func Overlay(rows []string, box string, x, y int) []string {
	x = max(x, 0)
	for i, boxLine := range strings.Split(box, "\n") {
		r := y + i
		if r < 0 || r >= len(rows) {
			continue
		}
		row := rows[r]
		left := ansi.Truncate(row, x, "")
		if pad := x - ansi.StringWidth(left); pad > 0 {
			left += strings.Repeat(" ", pad)
		}
		right := ansi.TruncateLeft(row, x+ansi.StringWidth(boxLine), "")
		rows[r] = left + boxLine + right
	}
	return rows
}
