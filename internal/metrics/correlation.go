package metrics

import (
	"fmt"
	"math"

	"github.com/wonny/metrex/internal/contracts"
)

const (
	corrWindow = 50
	corrMinObs = 10
)

// AvgCorrelation is the cross-sectional mean of each instrument's rolling
// return correlation with the reference instrument
type AvgCorrelation struct{}

func (AvgCorrelation) Name() string      { return "avg_correlation_btc" }
func (AvgCorrelation) Columns() []string { return []string{"avg_corr_btc"} }

func (m AvgCorrelation) Compute(frame *contracts.MarketFrame, ctx Context) (*contracts.Table, error) {
	ref, ok := resolveReference(frame, ctx.references())
	if !ok {
		return nil, fmt.Errorf("%w: %s needs one of %v", ErrReferenceMissing, m.Name(), ctx.references())
	}

	refCandles := frame.Series(ref)
	refReturns := make(map[int64]float64, len(refCandles))
	for i, r := range periodReturns(refCandles) {
		refReturns[refCandles[i].Timestamp.UnixNano()] = r
	}

	ix := newTimeIndex(frame.Timestamps())
	cs := newCrossSection(len(ix.times))

	for _, s := range frame.ByInstrument() {
		xw := NewRollingWindow(corrWindow)
		yw := NewRollingWindow(corrWindow)
		for i, r := range periodReturns(s.Candles) {
			refR, ok := refReturns[s.Candles[i].Timestamp.UnixNano()]
			if !ok {
				refR = math.NaN()
			}
			xw.Push(r)
			yw.Push(refR)
			cs.add(ix.at(s.Candles[i].Timestamp), pearson(xw.Values(), yw.Values(), corrMinObs))
		}
	}

	return floatTable(ix.times, map[string][]float64{"avg_corr_btc": cs.means()}, m.Columns()), nil
}
