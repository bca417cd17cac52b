// Package timeutil holds the time handling shared by the loader, the range
// filter and the ranking engine. Timestamps are normalized to UTC once, at the
// loader boundary; everything downstream assumes UTC.
package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimestamp is returned when a text timestamp matches no known layout
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// ErrInvalidTimeframe is returned for an interval identifier that cannot be parsed
var ErrInvalidTimeframe = errors.New("invalid timeframe")

// Normalize converts t to UTC
// ⭐ SSOT: 타임존 변환은 여기서만
func Normalize(t time.Time) time.Time {
	return t.UTC()
}

// FromEpochMillis converts epoch milliseconds to a UTC time
func FromEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a text timestamp. Values without a zone are read as
// UTC; all-digit values are epoch milliseconds.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidTimestamp)
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return FromEpochMillis(ms), nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return Normalize(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// ParseTimeframe converts an interval identifier such as "5m", "1h" or "1d"
// into a duration
func ParseTimeframe(tf string) (time.Duration, error) {
	if len(tf) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeframe, tf)
	}

	n, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeframe, tf)
	}

	var unit time.Duration
	switch tf[len(tf)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	default:
		// "1M" (calendar month) has no fixed duration
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeframe, tf)
	}
	return time.Duration(n) * unit, nil
}

// PickTimeColumn chooses the timestamp column of a source: "date", then
// "timestamp", then the first column whose name contains "time" or "date"
func PickTimeColumn(names []string) (string, bool) {
	for _, preferred := range []string{"date", "timestamp"} {
		for _, n := range names {
			if n == preferred {
				return n, true
			}
		}
	}
	for _, n := range names {
		lower := strings.ToLower(n)
		if strings.Contains(lower, "time") || strings.Contains(lower, "date") {
			return n, true
		}
	}
	return "", false
}
