package vlogs

import (
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"
)

// Distinguished fields present on every log returned by the query endpoint
const (
	FieldMsg      = "_msg"
	FieldStream   = "_stream"
	FieldStreamID = "_stream_id"
	FieldTime     = "_time"
)

// Record is one log entry: field name to value
type Record map[string]string

// Msg returns the _msg field
func (r Record) Msg() string { return r[FieldMsg] }

// Time returns the raw _time field
func (r Record) Time() string { return r[FieldTime] }

// Stream returns the _stream field
func (r Record) Stream() string { return r[FieldStream] }

// StreamID returns the _stream_id field
func (r Record) StreamID() string { return r[FieldStreamID] }

// Fields returns the record's field names, distinguished fields first
func (r Record) Fields() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := fieldRank(keys[i]), fieldRank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func fieldRank(name string) int {
	switch name {
	case FieldTime:
		return 0
	case FieldStream:
		return 1
	case FieldStreamID:
		return 2
	case FieldMsg:
		return 3
	}
	return 4
}

// Equal reports whether both records hold exactly the same fields and values
func (r Record) Equal(other Record) bool {
	return maps.Equal(r, other)
}

// JSON renders the record as an indented JSON document
func (r Record) JSON() string {
	b, err := json.MarshalIndent(map[string]string(r), "", "    ")
	if err != nil {
		return fmt.Sprintf("%v", map[string]string(r))
	}
	return string(b)
}

// Line renders the record as a single line: time, message and the remaining fields
func (r Record) Line() string {
	var b strings.Builder
	b.WriteString(r.Time())
	if msg := r.Msg(); msg != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(msg)
	}
	for _, k := range r.Fields() {
		if fieldRank(k) < 4 {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(quoteIfNeeded(r[k]))
	}
	return b.String()
}

func quoteIfNeeded(v string) string {
	if v == "" || strings.ContainsAny(v, " \t\"=") {
		return strconv.Quote(v)
	}
	return v
}

// ParseRecord decodes one NDJSON line. Non-string values are kept in their
// JSON form.
func ParseRecord(line []byte) (Record, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, err
	}
	r := make(Record, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			r[k] = s
			continue
		}
		r[k] = string(v)
	}
	return r, nil
}

// RemoveExactLog returns records without the entries equal to target
func RemoveExactLog(records []Record, target Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if !r.Equal(target) {
			out = append(out, r)
		}
	}
	return out
}

// Group is a run of records sharing one _stream
type Group struct {
	Stream  string
	Records []Record
}

// GroupByStream groups records by _stream keeping first-seen order
func GroupByStream(records []Record) []Group {
	index := map[string]int{}
	var groups []Group
	for _, r := range records {
		key := r.Stream()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Stream: key})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}
