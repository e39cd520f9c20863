// Package timeutil holds the time helpers shared by the query layer and the
// UI: nanosecond normalisation of _time values, query periods and hits steps.
package timeutil

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeFormat is returned for _time values that are not RFC3339 UTC timestamps
var ErrInvalidTimeFormat = errors.New("invalid time format")

var nanoRegex = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})(?:\.(\d+))?Z$`)

// ToNanoPrecision rewrites an RFC3339 UTC timestamp so that its fraction has
// exactly nine digits. Shorter fractions are padded with zeros, longer ones
// are truncated and a missing fraction becomes .000000000.
func ToNanoPrecision(s string) (string, error) {
	m := nanoRegex.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	frac := m[2]
	if len(frac) > 9 {
		frac = frac[:9]
	}
	frac += strings.Repeat("0", 9-len(frac))
	return m[1] + "." + frac + "Z", nil
}

// ParseTime parses a _time value with up to nanosecond precision
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return t, nil
}

// FormatISO formats t as an RFC3339 UTC timestamp with millisecond precision
func FormatISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// FormatNano formats t as a _time value with nine fraction digits
func FormatNano(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

// Period is a closed time range
type Period struct {
	Start time.Time
	End   time.Time
}

// Last returns the period of length d ending at now
func Last(now time.Time, d time.Duration) Period {
	return Period{Start: now.Add(-d), End: now}
}

// Duration returns the length of the period
func (p Period) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// IsZero reports whether the period is unset
func (p Period) IsZero() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

// ParseDuration extends time.ParseDuration with the d (day) and w (week) units
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	var unit time.Duration
	switch {
	case strings.HasSuffix(s, "d"):
		unit = 24 * time.Hour
	case strings.HasSuffix(s, "w"):
		unit = 7 * 24 * time.Hour
	default:
		return time.ParseDuration(s)
	}
	n, err := strconv.ParseFloat(s[:len(s)-1], 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(n * float64(unit)), nil
}

var steps = []time.Duration{
	time.Second,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
	time.Minute,
	5 * time.Minute,
	10 * time.Minute,
	30 * time.Minute,
	time.Hour,
	3 * time.Hour,
	6 * time.Hour,
	12 * time.Hour,
	24 * time.Hour,
	7 * 24 * time.Hour,
}

// AutoStep picks the smallest round bucket width that splits p into at most
// buckets columns
func AutoStep(p Period, buckets int) time.Duration {
	if buckets <= 0 {
		buckets = 1
	}
	raw := p.Duration() / time.Duration(buckets)
	for _, s := range steps {
		if s >= raw {
			return s
		}
	}
	return steps[len(steps)-1]
}

// FormatStep renders a bucket width in the form accepted by the hits endpoint
func FormatStep(d time.Duration) string {
	switch {
	case d <= 0:
		return "1s"
	case d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return fmt.Sprintf("%ds", max(d/time.Second, 1))
	}
}

// FormatRange renders a bucket range "start - end" in loc
func FormatRange(start, end time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	const layout = "2006-01-02 15:04:05"
	s, e := start.In(loc), end.In(loc)
	if s.YearDay() == e.YearDay() && s.Year() == e.Year() {
		return s.Format(layout) + " - " + e.Format("15:04:05")
	}
	return s.Format(layout) + " - " + e.Format(layout)
}
