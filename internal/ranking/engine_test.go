package ranking

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/metrex/internal/contracts"
	"github.com/wonny/metrex/pkg/logger"
)

var t0 = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

func at(hour int) time.Time {
	return t0.Add(time.Duration(hour) * time.Hour)
}

func candle(inst string, hour int, close, volume float64) contracts.Candle {
	return contracts.Candle{
		Timestamp:  at(hour),
		Instrument: inst,
		Open:       close, High: close, Low: close, Close: close, Volume: volume,
	}
}

func TestCompetitionRank(t *testing.T) {
	tests := []struct {
		name       string
		values     []float64
		descending bool
		want       []int
	}{
		{"descending with tie", []float64{5, 9, 5, 1}, true, []int{2, 1, 2, 4}},
		{"ascending with tie", []float64{5, 9, 5, 1}, false, []int{2, 4, 2, 1}},
		{"all tied", []float64{3, 3, 3}, true, []int{1, 1, 1}},
		{"nan unranked", []float64{math.NaN(), 2, 1}, true, []int{0, 1, 2}},
		{"empty", nil, true, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompetitionRank(tt.values, tt.descending))
		})
	}
}

func TestRank_ChangeExample(t *testing.T) {
	frame := contracts.NewMarketFrame([]contracts.Candle{
		candle("A", 0, 110, 1),
		candle("A", 24, 100, 1),
	})

	out := NewEngine(logger.Nop()).Rank(frame)
	a := out["A"]
	require.Len(t, a, 2)

	assert.True(t, math.IsNaN(a[0].ChangePercentage24h))
	assert.InDelta(t, -9.090909, a[1].ChangePercentage24h, 1e-6)
	assert.Equal(t, (100.0-110.0)/110.0*100, a[1].ChangePercentage24h)
}

func TestRank_ExactLagOnly(t *testing.T) {
	frame := contracts.NewMarketFrame([]contracts.Candle{
		candle("A", 0, 100, 1),
		candle("A", 1, 120, 1),
		// 23h and 25h after hour 0/1, never exactly 24h
		candle("A", 26, 130, 1),
	})

	a := NewEngine(logger.Nop()).Rank(frame)["A"]
	for _, r := range a {
		assert.True(t, math.IsNaN(r.ChangePercentage24h), r.Timestamp.String())
		assert.Equal(t, 0, r.TopGainerRank)
		assert.Equal(t, 0, r.TopLooserRank)
	}
}

func TestRank_ZeroLaggedClose(t *testing.T) {
	frame := contracts.NewMarketFrame([]contracts.Candle{
		candle("A", 0, 0, 1),
		candle("A", 24, 10, 1),
	})

	a := NewEngine(logger.Nop()).Rank(frame)["A"]
	assert.True(t, math.IsNaN(a[1].ChangePercentage24h))
}

func TestRank_Volume24IsTimeWindowed(t *testing.T) {
	// 4h candles: six rows per 24h, with one missing
	var candles []contracts.Candle
	for h := 0; h <= 48; h += 4 {
		if h == 36 {
			continue
		}
		candles = append(candles, candle("A", h, 2, 10))
	}

	a := NewEngine(logger.Nop()).Rank(contracts.NewMarketFrame(candles))["A"]
	last := a[len(a)-1]
	require.Equal(t, at(48), last.Timestamp)

	// (24h, 48h] holds 28, 32, 40, 44, 48
	assert.Equal(t, 20.0, last.VolumeInCurrency)
	assert.Equal(t, 100.0, last.VolumeInCurrency24)
	assert.Equal(t, 20.0, a[0].VolumeInCurrency24)
}

func TestRank_CrossSection(t *testing.T) {
	frame := contracts.NewMarketFrame([]contracts.Candle{
		candle("A", 0, 100, 1),
		candle("B", 0, 100, 1),
		candle("C", 0, 100, 1),
		candle("A", 24, 120, 1), // +20%
		candle("B", 24, 120, 1), // +20%
		candle("C", 24, 90, 50), // -10%
	})

	out := NewEngine(logger.Nop()).Rank(frame)
	a, b, c := out["A"][1], out["B"][1], out["C"][1]

	assert.Equal(t, 3, a.PairsCount)

	assert.Equal(t, 1, a.TopGainerRank)
	assert.Equal(t, 1, b.TopGainerRank)
	assert.Equal(t, 3, c.TopGainerRank)

	assert.Equal(t, 2, a.TopLooserRank)
	assert.Equal(t, 2, b.TopLooserRank)
	assert.Equal(t, 1, c.TopLooserRank)

	// vol24 = 120 for A and B, 4500 for C
	assert.Equal(t, 1, c.TopVolumeRank)
	assert.Equal(t, 2, a.TopVolumeRank)
	assert.Equal(t, 3, c.BottomVolumeRank)
	assert.Equal(t, 1, a.BottomVolumeRank)
	assert.Equal(t, 1, b.BottomVolumeRank)
}

func TestRank_PairsCountWithMissingInstrument(t *testing.T) {
	var candles []contracts.Candle
	for h := 0; h < 10; h++ {
		candles = append(candles, candle("A", h, 1, 1), candle("C", h, 1, 1))
		if h != 5 {
			candles = append(candles, candle("B", h, 1, 1))
		}
	}

	out := NewEngine(logger.Nop()).Rank(contracts.NewMarketFrame(candles))
	assert.Equal(t, 2, out["A"][5].PairsCount)
	assert.Equal(t, 3, out["A"][4].PairsCount)
	assert.Len(t, out["B"], 9)
}
