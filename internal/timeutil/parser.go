package timeutil

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// embeddedRegex finds an ISO 8601, syslog or bracketed timestamp inside a log line.
	// Comma decimal separators are accepted.
	embeddedRegex = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}[T\s]\d{2}:\d{2}:\d{2}(?:[,.]\d{1,9})?(?:Z|[+-]\d{2}:?\d{2})?|\w{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2}(?:[,.]\d{3,6})?|\[\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}(?:[,.]\d{3,6})?\])`)

	commaRegex = regexp.MustCompile(`,(\d+)`)
)

// Parser recognises the timestamp notations found in plain log files
type Parser struct {
	layouts []string
	now     func() time.Time
}

// NewParser creates a parser with the common log layouts, most frequent first
func NewParser() *Parser {
	return &Parser{
		layouts: []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02T15:04:05.999999999",
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05.999999999Z07:00",
			"2006-01-02 15:04:05.999999999",
			"2006-01-02 15:04:05Z07:00",
			"2006-01-02 15:04:05",
			"2006-01-02 15:04:05.999999999 -07:00",
			"2006-01-02 15:04:05 -07:00",
			"2006-01-02T15:04:05.999999999-0700",
			"[2006-01-02 15:04:05.999999]",
			"[2006-01-02 15:04:05]",
			"Jan _2 15:04:05.000000",
			"Jan _2 15:04:05.000",
			"Jan _2 15:04:05",
		},
		now: time.Now,
	}
}

// Extract finds the first timestamp in text and returns it with the text
// that remains once the timestamp is removed
func (p *Parser) Extract(text string) (time.Time, string, bool) {
	m := embeddedRegex.FindStringSubmatch(text)
	if len(m) < 2 {
		return time.Time{}, text, false
	}
	t, ok := p.parseString(m[1])
	if !ok {
		return time.Time{}, text, false
	}
	rest := strings.TrimSpace(strings.Replace(text, m[1], "", 1))
	return t, rest, true
}

// Parse converts a string or numeric timestamp value. Numbers are treated as
// unix time in seconds, milliseconds, microseconds or nanoseconds depending on
// their magnitude.
func (p *Parser) Parse(value any) (time.Time, bool) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return time.Time{}, false
		}
		if t, ok := p.parseString(v); ok {
			return t, true
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return unixScaled(f), true
		}
	case float64:
		return unixScaled(v), true
	case int64:
		return unixScaled(float64(v)), true
	case int:
		return unixScaled(float64(v)), true
	}
	return time.Time{}, false
}

func (p *Parser) parseString(s string) (time.Time, bool) {
	s = commaRegex.ReplaceAllString(s, ".$1")
	for _, layout := range p.layouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		// syslog stamps carry no year
		if t.Year() == 0 {
			t = t.AddDate(p.now().Year(), 0, 0)
		}
		return t, true
	}
	return time.Time{}, false
}

func unixScaled(v float64) time.Time {
	switch {
	case v > 1e17:
		return time.Unix(0, int64(v))
	case v > 1e14:
		return time.Unix(0, int64(v*1e3))
	case v > 1e11:
		return time.Unix(0, int64(v*1e6))
	default:
		sec := int64(v)
		return time.Unix(sec, int64((v-float64(sec))*1e9))
	}
}
