package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/control-theory/vlexplore/internal/hits"
	"github.com/control-theory/vlexplore/internal/render"
	"github.com/control-theory/vlexplore/internal/timeutil"
)

const (
	legendWidth = 36
	barStride   = 2 // bar width plus gap
)

// hitsChart draws the hits histogram as stacked bars with a legend on the
// right, a focus marker under the focused bucket and its tooltip
type hitsChart struct {
	x, y, width, height int

	buckets  []hits.Bucket
	grid     hits.Grid
	step     time.Duration
	legend   *hits.Legend
	entries  []hits.LegendEntry
	selected int
	focus    int // focused column, -1 for none
	order    hits.Order
	loc      *time.Location

	bars string // cached plot, rebuilt after every legend change
}

func newHitsChart() *hitsChart {
	c := &hitsChart{focus: -1, order: hits.Descending, loc: time.Local}
	c.legend = hits.NewLegend(nil, c.invalidate)
	c.legend.OnDraw(func(series []*hits.Series) {
		c.entries = hits.LegendEntries(c.buckets, series)
	})
	return c
}

func (c *hitsChart) invalidate() {
	c.bars = ""
}

func (c *hitsChart) setRect(x, y, width, height int) {
	c.x, c.y, c.width, c.height = x, y, width, height
	c.invalidate()
}

// plot geometry: a title row, the bars, a marker row and a time axis row
func (c *hitsChart) plotWidth() int  { return max(c.width-legendWidth-2, 10) }
func (c *hitsChart) plotHeight() int { return max(c.height-3, 3) }

// columns is the number of buckets the plot can show
func (c *hitsChart) columns() int {
	return max(c.plotWidth()/barStride, 1)
}

func (c *hitsChart) setBuckets(buckets []hits.Bucket, step time.Duration) {
	c.buckets = buckets
	c.step = step
	c.grid = hits.Align(buckets, step)
	c.focus = -1
	c.legend.SetSeries(hits.NewSeries(buckets))
	if c.selected >= len(c.entries) {
		c.selected = max(len(c.entries)-1, 0)
	}
}

// window returns the visible column range, keeping the focus visible
func (c *hitsChart) window() (int, int) {
	n := len(c.grid.Timestamps)
	cols := c.columns()
	if n <= cols {
		return 0, n
	}
	first := n - cols
	if c.focus >= 0 && c.focus < first {
		first = c.focus
	}
	return first, first + cols
}

func (c *hitsChart) moveFocus(delta int) {
	n := len(c.grid.Timestamps)
	if n == 0 {
		return
	}
	c.invalidate()
	if c.focus < 0 {
		c.focus = n - 1
		return
	}
	c.focus = min(max(c.focus+delta, 0), n-1)
}

func (c *hitsChart) clearFocus() {
	c.focus = -1
	c.invalidate()
}

func (c *hitsChart) moveSelection(delta int) {
	if len(c.entries) == 0 {
		return
	}
	c.selected = min(max(c.selected+delta, 0), len(c.entries)-1)
}

func (c *hitsChart) selectedEntry() (hits.LegendEntry, bool) {
	if c.selected < 0 || c.selected >= len(c.entries) {
		return hits.LegendEntry{}, false
	}
	return c.entries[c.selected], true
}

func (c *hitsChart) toggleVisibility() {
	if e, ok := c.selectedEntry(); ok {
		c.legend.ToggleVisibility(e.Label)
	}
}

func (c *hitsChart) toggleIsolate() {
	if e, ok := c.selectedEntry(); ok {
		c.legend.ToggleFocus(e.Label)
	}
}

func (c *hitsChart) toggleOrder() {
	if c.order == hits.Descending {
		c.order = hits.Ascending
	} else {
		c.order = hits.Descending
	}
}

// click focuses the bucket or selects the legend entry under (x, y)
func (c *hitsChart) click(x, y int) bool {
	plotTop := c.y + 1
	relX, relY := x-c.x, y-plotTop
	if relY < 0 || relY >= c.plotHeight() {
		return false
	}

	if relX >= 0 && relX < c.plotWidth() {
		first, last := c.window()
		col := first + relX/barStride
		if col >= last {
			return false
		}
		c.focus = col
		c.invalidate()
		return true
	}

	legendX := c.plotWidth() + 2
	if relX >= legendX && relX < legendX+legendWidth {
		// the legend starts with a header row
		idx := relY - 1
		if idx >= 0 && idx < len(c.entries) {
			c.selected = idx
			return true
		}
	}
	return false
}

// cellScale maps grid values to plot cells. Timestamps resolve to their
// column so gaps in the axis do not stretch the plot.
type cellScale struct {
	columns  map[int64]int
	first    int
	maxStack float64
	height   int
}

func (s cellScale) X(unixSeconds float64) float64 {
	return float64((s.columns[int64(unixSeconds)] - s.first) * barStride)
}

func (s cellScale) Y(value float64) float64 {
	if s.maxStack <= 0 {
		return float64(s.height)
	}
	return float64(s.height) - value/s.maxStack*float64(s.height)
}

func (c *hitsChart) scale() cellScale {
	first, last := c.window()
	s := cellScale{columns: make(map[int64]int, len(c.grid.Timestamps)), first: first, height: c.plotHeight()}
	for i, ts := range c.grid.Timestamps {
		s.columns[ts] = i
	}
	series := c.legend.Series()
	for col := first; col < last; col++ {
		var sum float64
		for i, v := range c.grid.Column(col) {
			if i < len(series) && series[i].Show && v > 0 {
				sum += v
			}
		}
		s.maxStack = max(s.maxStack, sum)
	}
	return s
}

// tooltip computes the tooltip of the focused column
func (c *hitsChart) tooltip() (hits.Tooltip, bool) {
	if c.focus < 0 {
		return hits.Tooltip{}, false
	}
	return hits.ComputeTooltip(c.grid, c.legend.Series(), c.focus, c.scale(), c.order)
}

// View renders the chart block of c.height lines
func (c *hitsChart) View() string {
	title := chartTitleStyle.Render(c.title())
	if len(c.buckets) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, helpStyle.Render("No hits"))
	}

	plotW, plotH := c.plotWidth(), c.plotHeight()
	if c.bars == "" {
		c.bars = c.drawBars(plotW, plotH)
	}

	plotLines := strings.Split(c.bars, "\n")
	for len(plotLines) < plotH {
		plotLines = append(plotLines, "")
	}
	plotLines = plotLines[:plotH]
	plotLines = append(plotLines, c.markerRow(plotW), c.axisRow(plotW))

	legendLines := c.legendLines(len(plotLines))
	lines := make([]string, 0, len(plotLines)+1)
	lines = append(lines, title)
	for i, pl := range plotLines {
		if pad := plotW - ansi.StringWidth(pl); pad > 0 {
			pl += strings.Repeat(" ", pad)
		}
		lines = append(lines, pl+"  "+legendLines[i])
	}

	if tt, ok := c.tooltip(); ok {
		box := c.renderTooltip(tt)
		size := hits.Size{Width: float64(lipgloss.Width(box)), Height: float64(lipgloss.Height(box))}
		plot := hits.Rect{Left: 0, Top: 1, Width: float64(plotW), Height: float64(plotH)}
		pos := hits.PlaceTooltip(tt.Point, plot, size, hits.Placement{Margin: 2, MinOffset: 1})
		lines = render.Overlay(lines, box, int(pos.X), int(pos.Y))
	}
	return strings.Join(lines, "\n")
}

func (c *hitsChart) title() string {
	total := hits.TotalHits(c.buckets)
	text := fmt.Sprintf("Hits: %s", humanize.Comma(total))
	if c.step > 0 {
		text += fmt.Sprintf("  step %s", timeutil.FormatStep(c.step))
	}
	return text
}

func (c *hitsChart) drawBars(width, height int) string {
	bc := barchart.New(width, height,
		barchart.WithBarGap(barStride-1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)

	series := c.legend.Series()
	first, last := c.window()
	for col := first; col < last; col++ {
		var values []barchart.BarValue
		for i, v := range c.grid.Column(col) {
			if i >= len(series) || !series[i].Show || v <= 0 {
				continue
			}
			color := series[i].Color
			values = append(values, barchart.BarValue{
				Name:  series[i].Label,
				Value: v,
				Style: lipgloss.NewStyle().Foreground(color).Background(color),
			})
		}
		// keep empty columns so bars stay aligned with the axis
		if len(values) == 0 {
			values = append(values, barchart.BarValue{Name: "", Value: 0, Style: dimStyle})
		}
		bc.Push(barchart.BarData{Label: "", Values: values})
	}

	bc.Draw()
	return bc.View()
}

func (c *hitsChart) markerRow(width int) string {
	first, _ := c.window()
	if c.focus < first {
		return strings.Repeat(" ", width)
	}
	x := (c.focus - first) * barStride
	if x >= width {
		return strings.Repeat(" ", width)
	}
	return strings.Repeat(" ", x) + chartTitleStyle.Render("▲") + strings.Repeat(" ", width-x-1)
}

func (c *hitsChart) axisRow(width int) string {
	first, last := c.window()
	if last <= first {
		return ""
	}
	left := time.Unix(c.grid.Timestamps[first], 0).In(c.loc).Format("01-02 15:04")
	right := time.Unix(c.grid.Timestamps[last-1], 0).In(c.loc).Format("01-02 15:04")
	gap := width - len(left) - len(right)
	if gap < 1 {
		return dimStyle.Render(left)
	}
	return dimStyle.Render(left + strings.Repeat(" ", gap) + right)
}

// legendLines renders the legend padded to n lines
func (c *hitsChart) legendLines(n int) []string {
	lines := []string{chartTitleStyle.Render("Series")}
	for i, e := range c.entries {
		marker := " "
		if i == c.selected {
			marker = ">"
		}
		swatch := lipgloss.NewStyle().Foreground(e.Color).Render("■")
		if !c.legend.IsShown(e.Label) {
			swatch = dimStyle.Render("□")
		}
		count := fmt.Sprintf("%s %5.1f%%", humanize.Comma(e.Total), e.Percent())
		labelW := max(legendWidth-4-len(count), 4)
		label := ansi.Truncate(e.Label, labelW, "…")
		label += strings.Repeat(" ", max(labelW-ansi.StringWidth(label), 0))
		line := marker + swatch + " " + label + " " + count
		if i == c.selected {
			line = lipgloss.NewStyle().Bold(true).Render(line)
		}
		lines = append(lines, line)
	}
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	return lines
}

func (c *hitsChart) renderTooltip(tt hits.Tooltip) string {
	rows := []string{chartTitleStyle.Render(timeutil.FormatRange(tt.Start, tt.End, c.loc))}
	for _, it := range tt.Items {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(it.Color)).Render("■")
		rows = append(rows, fmt.Sprintf("%s %s: %s", swatch, ansi.Truncate(it.Label, 40, "…"), humanize.Comma(int64(it.Value))))
	}
	rows = append(rows, fmt.Sprintf("Total: %s", humanize.Comma(int64(tt.Total))))
	return tooltipStyle.Render(strings.Join(rows, "\n"))
}
