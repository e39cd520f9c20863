package hits

import (
	"sort"
	"time"
)

// Scale maps data values to plot coordinates
type Scale interface {
	X(unixSeconds float64) float64
	Y(value float64) float64
}

// Order of tooltip items
type Order int

const (
	Ascending Order = iota
	Descending
)

// Point is a position in plot coordinates
type Point struct {
	X float64
	Y float64
}

// TooltipItem is one visible series at the focused column
type TooltipItem struct {
	Label string
	Value float64
	Color string
}

// Tooltip is the content of the hits tooltip
type Tooltip struct {
	Point Point
	Items []TooltipItem
	Total float64
	Start time.Time
	End   time.Time
}

// ComputeTooltip builds the tooltip for column focus. ok is false when the
// grid or series are missing, focus is out of range or no visible series has
// hits in the column.
func ComputeTooltip(g Grid, series []*Series, focus int, scale Scale, order Order) (Tooltip, bool) {
	if scale == nil || focus < 0 || len(g.Timestamps) == 0 || focus >= len(g.Timestamps) {
		return Tooltip{}, false
	}

	ts := g.Timestamps[focus]
	values := g.Column(focus)

	var items []TooltipItem
	var total float64
	for i, s := range series {
		if s == nil || !s.Show || i >= len(values) {
			continue
		}
		v := values[i]
		if v <= 0 {
			continue
		}
		items = append(items, TooltipItem{Label: s.Label, Value: v, Color: string(s.Color)})
		total += v
	}
	if len(items) == 0 {
		return Tooltip{}, false
	}

	sort.SliceStable(items, func(i, j int) bool {
		if order == Descending {
			return items[i].Value > items[j].Value
		}
		return items[i].Value < items[j].Value
	})

	smallest := items[0].Value
	for _, it := range items {
		smallest = min(smallest, it.Value)
	}

	return Tooltip{
		Point: Point{X: scale.X(float64(ts)), Y: scale.Y(smallest)},
		Items: items,
		Total: total,
		Start: time.Unix(ts, 0),
		End:   time.Unix(ts+g.BucketWidth(), 0),
	}, true
}

// Rect is the plot area: its offset inside the chart and its size
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Size of the rendered tooltip box
type Size struct {
	Width  float64
	Height float64
}

// Placement tunes tooltip placement
type Placement struct {
	Margin    float64 // gap between the point and the tooltip
	MinOffset float64 // position used when flipping would leave the chart
}

// DefaultPlacement is the placement in pixel units
func DefaultPlacement() Placement {
	return Placement{Margin: 50, MinOffset: 20}
}

// PlaceTooltip positions a tooltip of the given size next to point. When the
// box would overflow the plot on an axis it flips to the other side of the
// point, and negative positions are replaced by MinOffset.
func PlaceTooltip(point Point, plot Rect, size Size, cfg Placement) Point {
	var overflowX, overflowY float64
	if point.X+size.Width >= plot.Width {
		overflowX = size.Width + 2*cfg.Margin
	}
	if point.Y+size.Height >= plot.Height {
		overflowY = size.Height + 2*cfg.Margin
	}

	pos := Point{
		X: point.X + plot.Left + cfg.Margin - overflowX,
		Y: point.Y + plot.Top + cfg.Margin - overflowY,
	}
	if pos.X < 0 {
		pos.X = cfg.MinOffset
	}
	if pos.Y < 0 {
		pos.Y = cfg.MinOffset
	}
	return pos
}
