package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange_Fixed(t *testing.T) {
	r, err := ParseRange("20230601-20230615")
	require.NoError(t, err)

	assert.False(t, r.Anchored)
	assert.Equal(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), r.End)

	assert.True(t, r.Contains(r.Start))
	assert.True(t, r.Contains(r.End))
	assert.False(t, r.Contains(r.End.Add(time.Hour)))
	assert.False(t, r.Contains(r.Start.Add(-time.Nanosecond)))
}

func TestParseRange_SameDay(t *testing.T) {
	r, err := ParseRange("20230601-20230601")
	require.NoError(t, err)
	assert.Equal(t, r.Start, r.End)
}

func TestParseRange_Anchored(t *testing.T) {
	open, err := ParseRange("latest-")
	require.NoError(t, err)
	assert.True(t, open.Anchored)
	assert.True(t, open.End.IsZero())

	bounded, err := ParseRange("latest-20230615")
	require.NoError(t, err)
	assert.True(t, bounded.Anchored)
	assert.Equal(t, time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), bounded.End)
	assert.False(t, bounded.Contains(bounded.End.Add(time.Hour)))
}

func TestParseRange_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"20230601",
		"20230615-20230601",
		"2023-06-01-2023-06-15",
		"20230601-",
		"latest-2023",
		"earliest-20230601",
		"20231301-20231302",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := ParseRange(in)
			assert.ErrorIs(t, err, ErrInvalidRange)
		})
	}
}

func TestRange_AnchorStart(t *testing.T) {
	r := Range{Anchored: true}
	last := time.Date(2023, 6, 10, 12, 0, 0, 0, time.UTC)
	earliest := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, last.Add(-24*time.Hour), r.AnchorStart(last, true, earliest))
	assert.Equal(t, earliest, r.AnchorStart(time.Time{}, false, earliest))
}
