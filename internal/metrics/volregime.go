package metrics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/metrex/internal/contracts"
)

const (
	RegimeLow    = "low"
	RegimeMedium = "medium"
	RegimeHigh   = "high"
)

// MarketVolRegime classifies the reference instrument's 20-period return
// volatility against the 33rd/67th percentiles of its full history
type MarketVolRegime struct{}

func (MarketVolRegime) Name() string      { return "market_vol_regime" }
func (MarketVolRegime) Columns() []string { return []string{"market_vol_regime", "vol_zscore"} }

func (m MarketVolRegime) Compute(frame *contracts.MarketFrame, ctx Context) (*contracts.Table, error) {
	ref, ok := resolveReference(frame, ctx.references())
	if !ok {
		instruments := frame.Instruments()
		if len(instruments) == 0 {
			return nil, fmt.Errorf("%w: frame is empty", ErrReferenceMissing)
		}
		ref = instruments[0]
		ctx.log().WithFields(map[string]interface{}{
			"metric":     m.Name(),
			"instrument": ref,
			"priority":   ctx.references(),
		}).Warn("Reference instrument not found, falling back to first instrument")
	}

	candles := frame.Series(ref)
	returns := periodReturns(candles)

	vol := make([]float64, len(candles))
	w := NewRollingWindow(20)
	for i, r := range returns {
		w.Push(r)
		vol[i] = w.Std(2)
	}

	var history []float64
	for _, v := range vol {
		if !math.IsNaN(v) {
			history = append(history, v)
		}
	}
	sorted := append([]float64(nil), history...)
	sort.Float64s(sorted)
	p33, p67 := quantile(sorted, 0.33), quantile(sorted, 0.67)
	mean, std := meanOf(history), sampleStd(history, 2)

	regime := make([]string, len(candles))
	zscore := make([]float64, len(candles))
	for i, v := range vol {
		switch {
		case math.IsNaN(v):
			regime[i] = ""
		case v < p33:
			regime[i] = RegimeLow
		case v < p67:
			regime[i] = RegimeMedium
		default:
			regime[i] = RegimeHigh
		}

		zscore[i] = math.NaN()
		if !math.IsNaN(v) && !math.IsNaN(std) && std > 0 {
			zscore[i] = (v - mean) / std
		}
	}

	return &contracts.Table{
		Timestamps: seriesTimes(candles),
		Columns: []*contracts.Column{
			contracts.NewStringColumn("market_vol_regime", regime),
			contracts.NewFloatColumn("vol_zscore", zscore),
		},
	}, nil
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}
