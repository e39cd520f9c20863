package hits

// Legend toggles visibility and focus of the chart's live series list.
// Every change triggers the redraw callback, and every redraw notifies the
// draw hooks so bound legend entries can be regenerated.
type Legend struct {
	series []*Series
	redraw func()
	hooks  []func([]*Series)
}

// NewLegend creates a legend controller over series
func NewLegend(series []*Series, redraw func()) *Legend {
	return &Legend{series: series, redraw: redraw}
}

// Series returns the live series list
func (l *Legend) Series() []*Series {
	return l.series
}

// SetSeries replaces the series list and redraws
func (l *Legend) SetSeries(series []*Series) {
	l.series = series
	l.Refresh()
}

// OnDraw registers a hook called after every redraw
func (l *Legend) OnDraw(hook func([]*Series)) {
	l.hooks = append(l.hooks, hook)
}

// Find returns the series with the given label
func (l *Legend) Find(label string) *Series {
	for _, s := range l.series {
		if s.Label == label {
			return s
		}
	}
	return nil
}

// IsShown reports whether the labelled series is visible
func (l *Legend) IsShown(label string) bool {
	s := l.Find(label)
	return s != nil && s.Show
}

// OnlyVisible reports whether every series other than the labelled one is hidden
func (l *Legend) OnlyVisible(label string) bool {
	target := l.Find(label)
	for _, s := range l.series {
		if s != target && s.Show {
			return false
		}
	}
	return true
}

// ToggleVisibility flips the labelled series' visibility
func (l *Legend) ToggleVisibility(label string) {
	target := l.Find(label)
	if target == nil {
		return
	}
	target.Show = !target.Show
	l.Refresh()
}

// ToggleFocus isolates the labelled series, or shows every series when it is
// already the only visible one
func (l *Legend) ToggleFocus(label string) {
	target := l.Find(label)
	if target == nil {
		return
	}
	showAll := l.OnlyVisible(label)
	for _, s := range l.series {
		s.Show = showAll || s == target
	}
	l.Refresh()
}

// ShowAll makes every series visible
func (l *Legend) ShowAll() {
	for _, s := range l.series {
		s.Show = true
	}
	l.Refresh()
}

// Refresh redraws and runs the draw hooks
func (l *Legend) Refresh() {
	if l.redraw != nil {
		l.redraw()
	}
	for _, h := range l.hooks {
		h(l.series)
	}
}
