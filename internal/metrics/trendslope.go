package metrics

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/metrex/internal/contracts"
)

const slopeWindow = 20

// TrendSlope is the rolling least-squares slope of the reference close
// against a unit step index. Windows spanning a timestamp gap are undefined.
type TrendSlope struct{}

func (TrendSlope) Name() string      { return "btc_trend_slope" }
func (TrendSlope) Columns() []string { return []string{"btc_trend_slope"} }

func (m TrendSlope) Compute(frame *contracts.MarketFrame, ctx Context) (*contracts.Table, error) {
	ref, ok := resolveReference(frame, ctx.references())
	if !ok {
		return nil, fmt.Errorf("%w: %s needs one of %v", ErrReferenceMissing, m.Name(), ctx.references())
	}

	candles := frame.Series(ref)
	interval := ctx.Interval
	if interval <= 0 {
		interval = inferInterval(candles)
	}
	wantSpan := time.Duration(slopeWindow-1) * interval

	slope := make([]float64, len(candles))
	for i := range candles {
		slope[i] = math.NaN()
		if i < slopeWindow-1 {
			continue
		}
		first := i - (slopeWindow - 1)
		if candles[i].Timestamp.Sub(candles[first].Timestamp) != wantSpan {
			continue
		}
		slope[i] = lsSlope(candles[first : i+1])
	}

	return floatTable(seriesTimes(candles), map[string][]float64{"btc_trend_slope": slope}, m.Columns()), nil
}

// lsSlope fits close = a + b*x for x = 0..n-1 and returns b
func lsSlope(window []contracts.Candle) float64 {
	xs := make([]float64, len(window))
	ys := make([]float64, len(window))
	for i, c := range window {
		xs[i] = float64(i)
		ys[i] = c.Close
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return beta
}
