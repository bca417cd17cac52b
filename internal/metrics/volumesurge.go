package metrics

import (
	"math"

	"github.com/wonny/metrex/internal/contracts"
)

// VolumeSurgeRatio is the cross-sectional mean of volume over its own 20-period mean
type VolumeSurgeRatio struct{}

func (VolumeSurgeRatio) Name() string      { return "volume_surge_ratio" }
func (VolumeSurgeRatio) Columns() []string { return []string{"volume_surge_ratio"} }

func (m VolumeSurgeRatio) Compute(frame *contracts.MarketFrame, _ Context) (*contracts.Table, error) {
	ix := newTimeIndex(frame.Timestamps())
	cs := newCrossSection(len(ix.times))

	for _, s := range frame.ByInstrument() {
		w := NewRollingWindow(20)
		for _, c := range s.Candles {
			w.Push(c.Volume)
			ratio := math.NaN()
			if avg := w.Mean(1); avg != 0 && !math.IsNaN(avg) {
				ratio = c.Volume / avg
			}
			cs.add(ix.at(c.Timestamp), ratio)
		}
	}

	return floatTable(ix.times, map[string][]float64{"volume_surge_ratio": cs.means()}, m.Columns()), nil
}
