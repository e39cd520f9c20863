// Package hits aggregates time-bucketed hit counts for the histogram view:
// grid alignment, legend entries, tooltip contents and placement, and the
// per-series visibility controller.
package hits

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// OtherLabel is the label of the bucket aggregating everything outside the top-N groups
const OtherLabel = "other"

// Bucket is the hit series of one grouping key
type Bucket struct {
	Timestamps []time.Time
	Values     []int64
	Total      int64
	Fields     map[string]string
	IsOther    bool
}

// Label returns the series label of the bucket
func (b Bucket) Label() string {
	if b.IsOther {
		return OtherLabel
	}
	return Label(b.Fields)
}

// Label formats grouping fields as {k1="v1", k2="v2"} with sorted keys.
// A single _stream field is shown as its value.
func Label(fields map[string]string) string {
	if len(fields) == 0 {
		return "{}"
	}
	if v, ok := fields["_stream"]; ok && len(fields) == 1 {
		return v
	}
	keys := sortedKeys(fields)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.Quote(fields[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Grid is the aligned multi-series time grid.
// Timestamps is row 0 in unix seconds, Rows holds one count row per series.
type Grid struct {
	Timestamps []int64
	Rows       [][]float64
	Step       int64 // bucket width used when there are fewer than two timestamps
}

// Align merges the buckets' timestamps into one sorted axis and places every
// bucket's counts on it. Missing points are zero.
func Align(buckets []Bucket, step time.Duration) Grid {
	seen := map[int64]struct{}{}
	for _, b := range buckets {
		for _, ts := range b.Timestamps {
			seen[ts.Unix()] = struct{}{}
		}
	}
	axis := make([]int64, 0, len(seen))
	for ts := range seen {
		axis = append(axis, ts)
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i] < axis[j] })

	index := make(map[int64]int, len(axis))
	for i, ts := range axis {
		index[ts] = i
	}

	rows := make([][]float64, len(buckets))
	for i, b := range buckets {
		row := make([]float64, len(axis))
		for j, ts := range b.Timestamps {
			if j < len(b.Values) {
				row[index[ts.Unix()]] += float64(b.Values[j])
			}
		}
		rows[i] = row
	}
	return Grid{Timestamps: axis, Rows: rows, Step: int64(step / time.Second)}
}

// BucketWidth returns the width of one column in seconds
func (g Grid) BucketWidth() int64 {
	if len(g.Timestamps) >= 2 {
		return g.Timestamps[1] - g.Timestamps[0]
	}
	return g.Step
}

// Column returns the counts of every series at column idx
func (g Grid) Column(idx int) []float64 {
	col := make([]float64, len(g.Rows))
	for i, row := range g.Rows {
		if idx >= 0 && idx < len(row) {
			col[i] = row[idx]
		}
	}
	return col
}

// Series is one drawable series of the chart
type Series struct {
	Label string
	Show  bool
	Color lipgloss.Color
}

var palette = []lipgloss.Color{
	"#7AA2F7", "#9ECE6A", "#E0AF68", "#F7768E", "#BB9AF7",
	"#7DCFFF", "#FF9E64", "#73DACA", "#C0CAF5", "#DB4B4B",
}

// OtherColor is used for the aggregated other series
var OtherColor = lipgloss.Color("#565F89")

// NewSeries creates one visible series per bucket
func NewSeries(buckets []Bucket) []*Series {
	series := make([]*Series, len(buckets))
	n := 0
	for i, b := range buckets {
		color := OtherColor
		if !b.IsOther {
			color = palette[n%len(palette)]
			n++
		}
		series[i] = &Series{Label: b.Label(), Show: true, Color: color}
	}
	return series
}

// LegendEntry binds one bucket to the legend
type LegendEntry struct {
	Label     string
	Total     int64
	TotalHits int64
	IsOther   bool
	Fields    map[string]string
	Color     lipgloss.Color
}

// Percent returns the entry's share of all hits
func (e LegendEntry) Percent() float64 {
	if e.TotalHits == 0 {
		return 0
	}
	return float64(e.Total) * 100 / float64(e.TotalHits)
}

// LegendEntries derives the legend from the buckets and their series.
// It is regenerated every time the chart is drawn.
func LegendEntries(buckets []Bucket, series []*Series) []LegendEntry {
	total := TotalHits(buckets)
	entries := make([]LegendEntry, len(buckets))
	for i, b := range buckets {
		e := LegendEntry{
			Label:     b.Label(),
			Total:     b.Total,
			TotalHits: total,
			IsOther:   b.IsOther,
			Fields:    b.Fields,
		}
		if i < len(series) && series[i] != nil {
			e.Color = series[i].Color
		}
		entries[i] = e
	}
	return entries
}

// TotalHits sums the totals of all buckets
func TotalHits(buckets []Bucket) int64 {
	var total int64
	for _, b := range buckets {
		total += b.Total
	}
	return total
}

// FilterExpr builds a LogsQL filter matching the bucket's grouping fields
func FilterExpr(fields map[string]string) string {
	keys := sortedKeys(fields)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := fields[k]
		if k == "_stream" {
			parts = append(parts, "_stream:"+v)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:=%s", quoteField(k), strconv.Quote(v)))
	}
	return strings.Join(parts, " ")
}

// ApplyFilter appends filter to query. The match-all query is replaced.
func ApplyFilter(query, filter string) string {
	q := strings.TrimSpace(query)
	if q == "" || q == "*" {
		return filter
	}
	return q + " " + filter
}

func quoteField(name string) string {
	for _, r := range name {
		if !(r == '_' || r == '.' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return strconv.Quote(name)
		}
	}
	return name
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
