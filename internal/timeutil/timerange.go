package timeutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRange is returned for a malformed range or start after end
var ErrInvalidRange = errors.New("invalid time range")

const (
	// Latest is the anchored-mode start sentinel
	Latest = "latest"

	// Lookback is subtracted from an instrument's last persisted timestamp so
	// that the 24h change and volume windows are complete at the boundary
	Lookback = 24 * time.Hour

	dateLayout = "20060102"
)

// Range is a parsed "START-END" time range
// ⭐ SSOT: Fixed는 양끝 포함, Anchored는 종목별 시작점
type Range struct {
	Raw      string
	Anchored bool
	Start    time.Time // zero when anchored
	End      time.Time // zero when open ended
}

// ParseRange parses "YYYYMMDD-YYYYMMDD" (fixed) or "latest-[YYYYMMDD]" (anchored).
// Both bounds are midnight UTC of their date.
func ParseRange(s string) (Range, error) {
	raw := strings.TrimSpace(s)
	startStr, endStr, ok := strings.Cut(raw, "-")
	if !ok {
		return Range{}, fmt.Errorf("%w: expected START-END, got %q", ErrInvalidRange, s)
	}

	r := Range{Raw: raw}

	if endStr != "" {
		end, err := time.ParseInLocation(dateLayout, endStr, time.UTC)
		if err != nil {
			return Range{}, fmt.Errorf("%w: bad end date %q", ErrInvalidRange, endStr)
		}
		r.End = end
	}

	if startStr == Latest {
		r.Anchored = true
		return r, nil
	}

	start, err := time.ParseInLocation(dateLayout, startStr, time.UTC)
	if err != nil {
		return Range{}, fmt.Errorf("%w: bad start date %q", ErrInvalidRange, startStr)
	}
	if r.End.IsZero() {
		return Range{}, fmt.Errorf("%w: fixed range %q needs an end date", ErrInvalidRange, s)
	}
	if start.After(r.End) {
		return Range{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, startStr, endStr)
	}
	r.Start = start
	return r, nil
}

// Contains reports whether t is inside a fixed range (inclusive bounds)
func (r Range) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// AnchorStart returns the effective start of an anchored instrument.
// Without prior state the instrument starts at its earliest timestamp.
func (r Range) AnchorStart(lastSeen time.Time, hasPrior bool, earliest time.Time) time.Time {
	if !hasPrior {
		return earliest
	}
	return lastSeen.Add(-Lookback)
}

// String returns the range as given
func (r Range) String() string {
	return r.Raw
}
