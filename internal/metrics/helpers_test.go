package metrics

import (
	"math"
	"time"

	"github.com/wonny/metrex/internal/contracts"
)

var t0 = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

func at(hour int) time.Time {
	return t0.Add(time.Duration(hour) * time.Hour)
}

// series builds hourly candles for hours [0, n) with close = f(hour)
func series(instrument string, n int, f func(h int) float64) []contracts.Candle {
	out := make([]contracts.Candle, 0, n)
	for h := 0; h < n; h++ {
		c := f(h)
		out = append(out, contracts.Candle{
			Timestamp:  at(h),
			Instrument: instrument,
			Open:       c, High: c, Low: c, Close: c, Volume: 1,
		})
	}
	return out
}

func frameOf(parts ...[]contracts.Candle) *contracts.MarketFrame {
	var all []contracts.Candle
	for _, p := range parts {
		all = append(all, p...)
	}
	return contracts.NewMarketFrame(all)
}

func without(candles []contracts.Candle, drop func(time.Time) bool) []contracts.Candle {
	var out []contracts.Candle
	for _, c := range candles {
		if !drop(c.Timestamp) {
			out = append(out, c)
		}
	}
	return out
}

func rowOf(t *contracts.Table, ts time.Time) int {
	for i, x := range t.Timestamps {
		if x.Equal(ts) {
			return i
		}
	}
	return -1
}

func rising(h int) float64  { return 100 + float64(h) }
func falling(h int) float64 { return 1000 - float64(h) }

func nan() float64 { return math.NaN() }
