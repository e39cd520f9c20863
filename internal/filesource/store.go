package filesource

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/control-theory/vlexplore/internal/hits"
	"github.com/control-theory/vlexplore/internal/timeutil"
	"github.com/control-theory/vlexplore/internal/vlogs"
)

type entry struct {
	rec vlogs.Record
	ts  time.Time
}

// Store keeps file records in time order and evaluates a small subset of
// LogsQL over them: words, field:="value" exact filters, _stream:{...}
// filters and the stream context pipe.
type Store struct {
	mu      sync.RWMutex
	entries []entry
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// Add inserts records keeping time order. Records with equal times keep
// insertion order.
func (s *Store) Add(recs ...vlogs.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		ts, err := timeutil.ParseTime(r.Time())
		if err != nil {
			continue
		}
		i := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].ts.After(ts) })
		s.entries = append(s.entries, entry{})
		copy(s.entries[i+1:], s.entries[i:])
		s.entries[i] = entry{rec: r, ts: ts}
	}
}

// Len returns the number of stored records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Span returns the time range covered by the stored records
func (s *Store) Span() timeutil.Period {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return timeutil.Period{}
	}
	return timeutil.Period{Start: s.entries[0].ts, End: s.entries[len(s.entries)-1].ts}
}

var contextRegex = regexp.MustCompile(`^_stream_id:(\S+) _time:(\S+) \| stream_context (before|after) (\d+) \| sort by \(_time\) desc$`)

// Query returns matching records newest first
func (s *Store) Query(ctx context.Context, p vlogs.QueryParams) ([]vlogs.Record, error) {
	q := strings.TrimSpace(p.Query)
	if q == "" {
		return nil, vlogs.ErrEmptyQuery
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if m := contextRegex.FindStringSubmatch(q); m != nil {
		n, _ := strconv.Atoi(m[4])
		return s.streamContext(m[1], m[2], vlogs.Direction(m[3]), n)
	}

	match := compileQuery(q)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []vlogs.Record
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if !inPeriod(e.ts, p.Period) || !match(e.rec) {
			continue
		}
		out = append(out, e.rec)
		if p.Limit > 0 && len(out) >= p.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) streamContext(streamID, rawTime string, dir vlogs.Direction, n int) ([]vlogs.Record, error) {
	pivot, err := timeutil.ParseTime(rawTime)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var stream []entry
	for _, e := range s.entries {
		if e.rec.StreamID() == streamID {
			stream = append(stream, e)
		}
	}
	at := -1
	for i, e := range stream {
		if e.ts.Equal(pivot) {
			at = i
			break
		}
	}
	if at < 0 {
		return nil, nil
	}

	lo, hi := at, at
	if dir == vlogs.Before {
		lo = max(at-n, 0)
	} else {
		hi = min(at+n, len(stream)-1)
	}
	out := make([]vlogs.Record, 0, hi-lo+1)
	for i := hi; i >= lo; i-- {
		out = append(out, stream[i].rec)
	}
	return out, nil
}

// Hits buckets matching records by step and grouping fields. Groups beyond
// the fields limit are folded into one bucket without fields.
func (s *Store) Hits(ctx context.Context, p vlogs.HitsParams) ([]hits.Bucket, error) {
	q := strings.TrimSpace(p.Query)
	if q == "" {
		return nil, vlogs.ErrEmptyQuery
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	step := p.Step
	if step <= 0 {
		step = time.Minute
	}
	match := compileQuery(q)

	type group struct {
		fields map[string]string
		counts map[int64]int64
		total  int64
	}
	groups := map[string]*group{}

	s.mu.RLock()
	for _, e := range s.entries {
		if !inPeriod(e.ts, p.Period) || !match(e.rec) {
			continue
		}
		fields := make(map[string]string, len(p.Fields))
		for _, f := range p.Fields {
			fields[f] = e.rec[f]
		}
		key := hits.Label(fields)
		g, ok := groups[key]
		if !ok {
			g = &group{fields: fields, counts: map[int64]int64{}}
			groups[key] = g
		}
		g.counts[e.ts.Truncate(step).Unix()]++
		g.total++
	}
	s.mu.RUnlock()

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].total != ordered[j].total {
			return ordered[i].total > ordered[j].total
		}
		return hits.Label(ordered[i].fields) < hits.Label(ordered[j].fields)
	})

	limit := p.FieldsLimit
	if limit <= 0 || limit > len(ordered) {
		limit = len(ordered)
	}
	var other *group
	for _, g := range ordered[limit:] {
		if other == nil {
			other = &group{counts: map[int64]int64{}}
		}
		for ts, c := range g.counts {
			other.counts[ts] += c
		}
		other.total += g.total
	}

	out := make([]hits.Bucket, 0, limit+1)
	for _, g := range ordered[:limit] {
		out = append(out, toBucket(g.fields, g.counts, g.total, false))
	}
	if other != nil {
		out = append(out, toBucket(nil, other.counts, other.total, true))
	}
	return out, nil
}

func toBucket(fields map[string]string, counts map[int64]int64, total int64, other bool) hits.Bucket {
	keys := make([]int64, 0, len(counts))
	for ts := range counts {
		keys = append(keys, ts)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	b := hits.Bucket{Total: total, Fields: fields, IsOther: other}
	for _, ts := range keys {
		b.Timestamps = append(b.Timestamps, time.Unix(ts, 0).UTC())
		b.Values = append(b.Values, counts[ts])
	}
	return b
}

func inPeriod(ts time.Time, p timeutil.Period) bool {
	if p.IsZero() {
		return true
	}
	return !ts.Before(p.Start) && !ts.After(p.End)
}

// compileQuery builds a record predicate. All terms must match.
func compileQuery(q string) func(vlogs.Record) bool {
	var preds []func(vlogs.Record) bool
	for _, term := range splitQuery(q) {
		if pred := compileTerm(term); pred != nil {
			preds = append(preds, pred)
		}
	}
	return func(r vlogs.Record) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

func compileTerm(term string) func(vlogs.Record) bool {
	switch {
	case term == "*" || term == "AND" || strings.HasPrefix(term, "_time:"):
		return nil
	case strings.HasPrefix(term, "_stream:"):
		want := strings.TrimPrefix(term, "_stream:")
		return func(r vlogs.Record) bool { return r.Stream() == want }
	}

	if name, value, ok := strings.Cut(term, ":="); ok {
		name, value = unquote(name), unquote(value)
		return func(r vlogs.Record) bool { return r[name] == value }
	}
	if name, value, ok := strings.Cut(term, ":"); ok && !strings.HasPrefix(name, "\"") {
		value = strings.ToLower(unquote(value))
		return func(r vlogs.Record) bool { return strings.Contains(strings.ToLower(r[name]), value) }
	}

	word := strings.ToLower(unquote(term))
	return func(r vlogs.Record) bool { return strings.Contains(strings.ToLower(r.Line()), word) }
}

func unquote(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return s
}

// splitQuery splits on whitespace outside quotes and braces
func splitQuery(q string) []string {
	var (
		out     []string
		b       strings.Builder
		inQuote bool
		depth   int
	)
	flush := func() {
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	for i := 0; i < len(q); i++ {
		c := q[i]
		switch {
		case c == '\\' && inQuote && i+1 < len(q):
			b.WriteByte(c)
			i++
			c = q[i]
		case c == '"':
			inQuote = !inQuote
		case c == '{' && !inQuote:
			depth++
		case c == '}' && !inQuote && depth > 0:
			depth--
		case (c == ' ' || c == '\t') && !inQuote && depth == 0:
			flush()
			continue
		}
		b.WriteByte(c)
	}
	flush()
	return out
}
