package metrics

import (
	"github.com/wonny/metrex/internal/contracts"
)

// AdvanceDecline counts advancing and declining instruments per timestamp and
// accumulates their difference into the advance-decline line
type AdvanceDecline struct{}

func (AdvanceDecline) Name() string { return "adv_decline" }

func (AdvanceDecline) Columns() []string {
	return []string{"adv_count", "decl_count", "adv_decline_diff", "adv_decline_line"}
}

func (m AdvanceDecline) Compute(frame *contracts.MarketFrame, _ Context) (*contracts.Table, error) {
	ix := newTimeIndex(frame.Timestamps())
	rows := len(ix.times)
	adv := make([]float64, rows)
	decl := make([]float64, rows)

	for _, s := range frame.ByInstrument() {
		for i, r := range periodReturns(s.Candles) {
			row := ix.at(s.Candles[i].Timestamp)
			switch {
			case r > 0:
				adv[row]++
			case r < 0:
				decl[row]++
			}
		}
	}

	diff := make([]float64, rows)
	line := make([]float64, rows)
	cum := 0.0
	for i := range diff {
		diff[i] = adv[i] - decl[i]
		cum += diff[i]
		line[i] = cum
	}

	return floatTable(ix.times, map[string][]float64{
		"adv_count":        adv,
		"decl_count":       decl,
		"adv_decline_diff": diff,
		"adv_decline_line": line,
	}, m.Columns()), nil
}
