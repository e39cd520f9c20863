package filesource

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/control-theory/vlexplore/internal/timeutil"
	"github.com/control-theory/vlexplore/internal/vlogs"
)

// Converter turns file lines into records carrying the distinguished fields
type Converter struct {
	parser *timeutil.Parser
	now    func() time.Time
}

// NewConverter creates a converter using parser for embedded timestamps
func NewConverter(parser *timeutil.Parser) *Converter {
	return &Converter{parser: parser, now: time.Now}
}

var (
	msgAliases  = []string{"message", "msg", "log"}
	timeAliases = []string{"timestamp", "time", "ts", "@timestamp"}
)

// Convert parses one line of file source. NDJSON objects keep their fields,
// any other line becomes the message. Blank lines are skipped.
func (c *Converter) Convert(source, line string) (vlogs.Record, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}

	var rec vlogs.Record
	if strings.HasPrefix(line, "{") {
		if parsed, err := vlogs.ParseRecord([]byte(line)); err == nil {
			rec = parsed
		}
	}

	if rec == nil {
		rec = vlogs.Record{vlogs.FieldMsg: line}
		if t, _, ok := c.parser.Extract(line); ok {
			rec[vlogs.FieldTime] = timeutil.FormatNano(t)
		}
	}

	if rec.Msg() == "" {
		rec[vlogs.FieldMsg] = firstOf(rec, msgAliases, line)
	}
	if rec.Time() == "" || !validTime(rec.Time()) {
		t := c.now()
		if raw := firstOf(rec, append([]string{vlogs.FieldTime}, timeAliases...), ""); raw != "" {
			if parsed, ok := c.parser.Parse(raw); ok {
				t = parsed
			}
		}
		rec[vlogs.FieldTime] = timeutil.FormatNano(t)
	}
	if rec.Stream() == "" {
		rec[vlogs.FieldStream] = fmt.Sprintf("{source=%q}", source)
	}
	if rec.StreamID() == "" {
		rec[vlogs.FieldStreamID] = streamID(rec.Stream())
	}
	return rec, true
}

func validTime(s string) bool {
	_, err := timeutil.ParseTime(s)
	return err == nil
}

func firstOf(rec vlogs.Record, keys []string, fallback string) string {
	for _, k := range keys {
		if v := rec[k]; v != "" {
			return v
		}
	}
	return fallback
}

func streamID(stream string) string {
	h := fnv.New64a()
	h.Write([]byte(stream))
	return fmt.Sprintf("%032x", h.Sum64())
}
