package metrics

import (
	"github.com/wonny/metrex/internal/contracts"
)

// NewHighsLows counts instruments at their 50-period rolling high (low)
type NewHighsLows struct{}

func (NewHighsLows) Name() string      { return "new_highs_lows" }
func (NewHighsLows) Columns() []string { return []string{"new_highs_50", "new_lows_50"} }

func (m NewHighsLows) Compute(frame *contracts.MarketFrame, _ Context) (*contracts.Table, error) {
	ix := newTimeIndex(frame.Timestamps())
	highs := make([]float64, len(ix.times))
	lows := make([]float64, len(ix.times))

	for _, s := range frame.ByInstrument() {
		hw := NewRollingWindow(50)
		lw := NewRollingWindow(50)
		for _, c := range s.Candles {
			hw.Push(c.High)
			lw.Push(c.Low)
			row := ix.at(c.Timestamp)
			if c.High == hw.Max(1) {
				highs[row]++
			}
			if c.Low == lw.Min(1) {
				lows[row]++
			}
		}
	}

	return floatTable(ix.times, map[string][]float64{
		"new_highs_50": highs,
		"new_lows_50":  lows,
	}, m.Columns()), nil
}
