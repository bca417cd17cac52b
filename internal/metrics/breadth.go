package metrics

import (
	"github.com/wonny/metrex/internal/contracts"
)

// BreadthSMA50 is the percentage of instruments whose close is above their own 50-period SMA
type BreadthSMA50 struct{}

func (BreadthSMA50) Name() string      { return "breadth_sma50" }
func (BreadthSMA50) Columns() []string { return []string{"breadth_above_sma_50"} }

func (m BreadthSMA50) Compute(frame *contracts.MarketFrame, _ Context) (*contracts.Table, error) {
	ix := newTimeIndex(frame.Timestamps())
	cs := newCrossSection(len(ix.times))

	for _, s := range frame.ByInstrument() {
		w := NewRollingWindow(50)
		for _, c := range s.Candles {
			w.Push(c.Close)
			above := 0.0
			if c.Close > w.Mean(1) {
				above = 1
			}
			cs.add(ix.at(c.Timestamp), above)
		}
	}

	breadth := cs.means()
	for i := range breadth {
		breadth[i] *= 100
	}
	return floatTable(ix.times, map[string][]float64{"breadth_above_sma_50": breadth}, m.Columns()), nil
}
