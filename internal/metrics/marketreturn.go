package metrics

import (
	"github.com/wonny/metrex/internal/contracts"
)

// MarketReturnMA is the cross-sectional mean period return and its 20-period mean
type MarketReturnMA struct{}

func (MarketReturnMA) Name() string      { return "market_return_ma" }
func (MarketReturnMA) Columns() []string { return []string{"mkt_ret", "mkt_ret_sma20"} }

func (m MarketReturnMA) Compute(frame *contracts.MarketFrame, _ Context) (*contracts.Table, error) {
	ix := newTimeIndex(frame.Timestamps())
	cs := newCrossSection(len(ix.times))

	for _, s := range frame.ByInstrument() {
		for i, r := range periodReturns(s.Candles) {
			cs.add(ix.at(s.Candles[i].Timestamp), r)
		}
	}

	ret := cs.means()
	sma := make([]float64, len(ret))
	w := NewRollingWindow(20)
	for i, r := range ret {
		w.Push(r)
		sma[i] = w.Mean(1)
	}

	return floatTable(ix.times, map[string][]float64{
		"mkt_ret":       ret,
		"mkt_ret_sma20": sma,
	}, m.Columns()), nil
}
