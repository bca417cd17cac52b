package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/metrex/internal/contracts"
	"github.com/wonny/metrex/internal/timeutil"
	"github.com/wonny/metrex/pkg/logger"
)

func hourly(instrument string, from, to int) []contracts.Candle {
	var out []contracts.Candle
	for h := from; h <= to; h++ {
		out = append(out, contracts.Candle{
			Timestamp:  t0.Add(time.Duration(h) * time.Hour),
			Instrument: instrument,
			Open:       1, High: 1, Low: 1, Close: 1, Volume: 1,
		})
	}
	return out
}

func TestFilterFixed(t *testing.T) {
	candles := append(hourly("A", 0, 72), hourly("B", 48, 72)...)
	frame := contracts.NewMarketFrame(candles)

	r, err := timeutil.ParseRange("20230601-20230602")
	require.NoError(t, err)

	out, err := FilterFixed(frame, r, logger.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, out.Instruments())
	for _, c := range out.Rows() {
		assert.False(t, c.Timestamp.Before(r.Start))
		assert.False(t, c.Timestamp.After(r.End))
	}
	// end bound is midnight of the end date, inclusive
	assert.Equal(t, 25, out.Len())
}

func TestFilterFixed_NoInstruments(t *testing.T) {
	frame := contracts.NewMarketFrame(hourly("A", 0, 5))
	r, err := timeutil.ParseRange("20240101-20240102")
	require.NoError(t, err)

	_, err = FilterFixed(frame, r, logger.Nop())
	assert.ErrorIs(t, err, ErrNoInstruments)
}

func TestFilterFixed_RejectsAnchored(t *testing.T) {
	frame := contracts.NewMarketFrame(hourly("A", 0, 5))
	r, err := timeutil.ParseRange("latest-")
	require.NoError(t, err)

	_, err = FilterFixed(frame, r, logger.Nop())
	assert.ErrorIs(t, err, timeutil.ErrInvalidRange)
}

func TestFilterAnchored(t *testing.T) {
	r, err := timeutil.ParseRange("latest-")
	require.NoError(t, err)

	tests := []struct {
		name     string
		candles  []contracts.Candle
		lastSeen map[string]time.Time
		want     map[string]time.Time
	}{
		{
			name:     "persisted state: earliest lastSeen minus two windows",
			candles:  append(hourly("A", 0, 100), hourly("B", 0, 100)...),
			lastSeen: map[string]time.Time{"A": t0.Add(90 * time.Hour), "B": t0.Add(95 * time.Hour)},
			want:     map[string]time.Time{"A": t0.Add(42 * time.Hour), "B": t0.Add(42 * time.Hour)},
		},
		{
			name: "new instrument pulls everyone back to its first row",
			candles: append(append(hourly("A", 0, 100), hourly("B", 0, 100)...),
				hourly("C", 50, 100)...),
			lastSeen: map[string]time.Time{"A": t0.Add(90 * time.Hour), "B": t0.Add(95 * time.Hour)},
			want: map[string]time.Time{
				"A": t0.Add(26 * time.Hour),
				"B": t0.Add(26 * time.Hour),
				"C": t0.Add(50 * time.Hour),
			},
		},
		{
			name:    "no state: everything",
			candles: append(hourly("A", 0, 100), hourly("B", 10, 100)...),
			want:    map[string]time.Time{"A": t0, "B": t0.Add(10 * time.Hour)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := FilterAnchored(contracts.NewMarketFrame(tt.candles), r, tt.lastSeen, logger.Nop())
			require.NoError(t, err)

			for inst, first := range tt.want {
				series := out.Series(inst)
				require.NotEmpty(t, series, inst)
				assert.Equal(t, first, series[0].Timestamp, inst)
				assert.Equal(t, t0.Add(100*time.Hour), series[len(series)-1].Timestamp, inst)
			}
		})
	}
}

func TestFilterAnchored_WithEnd(t *testing.T) {
	frame := contracts.NewMarketFrame(hourly("A", 0, 100))
	r, err := timeutil.ParseRange("latest-20230603")
	require.NoError(t, err)

	out, err := FilterAnchored(frame, r, nil, logger.Nop())
	require.NoError(t, err)
	series := out.Series("A")
	assert.Equal(t, t0.Add(48*time.Hour), series[len(series)-1].Timestamp)
}
