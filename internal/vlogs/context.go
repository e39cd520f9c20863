package vlogs

import (
	"errors"
	"fmt"

	"github.com/control-theory/vlexplore/internal/timeutil"
)

// Direction of a stream context request
type Direction string

const (
	Before Direction = "before"
	After  Direction = "after"
)

// ErrMissingStreamFields is returned for pivots without _stream_id or _time
var ErrMissingStreamFields = errors.New("log must contain _stream_id and _time fields")

// ContextPageSizes are the selectable "load more" sizes
var ContextPageSizes = []int{5, 10, 20, 50, 100}

// BuildContextQuery builds the LogsQL query returning lines logs of the
// pivot's stream in direction dir, newest first
func BuildContextQuery(pivot Record, dir Direction, lines int) (string, error) {
	streamID, ts := pivot.StreamID(), pivot.Time()
	if streamID == "" || ts == "" {
		return "", ErrMissingStreamFields
	}
	nano, err := timeutil.ToNanoPrecision(ts)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("_stream_id:%s _time:%s | stream_context %s %d | sort by (_time) desc", streamID, nano, dir, lines), nil
}

// ContextRequest is one pending stream context fetch
type ContextRequest struct {
	Dir    Direction
	Lines  int
	Target Record
	Query  string
}

// StreamContext accumulates the logs around a pivot. After holds newer logs
// and Before holds the pivot followed by older logs, both newest first.
type StreamContext struct {
	Pivot  Record
	Before []Record
	After  []Record
	more   map[Direction]bool
}

// NewStreamContext creates an empty context around pivot
func NewStreamContext(pivot Record) *StreamContext {
	s := &StreamContext{Pivot: pivot}
	s.Reset()
	return s
}

// Reset drops everything loaded so far
func (s *StreamContext) Reset() {
	s.Before = nil
	s.After = nil
	s.more = map[Direction]bool{Before: true, After: true}
}

// HasMore reports whether the last fetch in dir returned a full page
func (s *StreamContext) HasMore(dir Direction) bool {
	return s.more[dir]
}

// NextPivot returns the record the next fetch in dir starts from: the newest
// loaded log for After, the oldest for Before
func (s *StreamContext) NextPivot(dir Direction) Record {
	switch dir {
	case After:
		if len(s.After) > 0 {
			return s.After[0]
		}
	case Before:
		if len(s.Before) > 0 {
			return s.Before[len(s.Before)-1]
		}
	}
	return s.Pivot
}

// Request prepares the next fetch of lines logs in dir
func (s *StreamContext) Request(dir Direction, lines int) (ContextRequest, error) {
	target := s.NextPivot(dir)
	q, err := BuildContextQuery(target, dir, lines)
	if err != nil {
		return ContextRequest{}, err
	}
	return ContextRequest{Dir: dir, Lines: lines, Target: target, Query: q}, nil
}

// Merge folds fetched logs of req into the context. Newer logs are prepended
// without the target itself, older logs are appended. The target is skipped
// on older pages too once it is already loaded.
func (s *StreamContext) Merge(req ContextRequest, fetched []Record) {
	s.more[req.Dir] = len(fetched) > 0 && len(fetched) >= req.Lines
	if len(fetched) == 0 {
		return
	}
	switch req.Dir {
	case After:
		s.After = append(RemoveExactLog(fetched, req.Target), s.After...)
	case Before:
		if len(s.Before) > 0 {
			fetched = RemoveExactLog(fetched, req.Target)
		}
		s.Before = append(s.Before, fetched...)
	}
}

// Records returns the whole context newest first and the index of the pivot
func (s *StreamContext) Records() ([]Record, int) {
	out := make([]Record, 0, len(s.After)+len(s.Before))
	out = append(out, s.After...)
	pivot := -1
	if len(s.Before) > 0 {
		pivot = len(out)
	}
	out = append(out, s.Before...)
	return out, pivot
}
