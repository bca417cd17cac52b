// Package ranking computes per-instrument 24h statistics and their
// cross-sectional competition ranks, and reconciles fresh results with
// previously persisted output.
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/wonny/metrex/internal/contracts"
	"github.com/wonny/metrex/internal/timeutil"
	"github.com/wonny/metrex/pkg/logger"
)

// Window is the trailing span of the change and volume statistics
const Window = 24 * time.Hour

// Engine ranks instruments against each other at every timestamp
// ⭐ SSOT: 랭킹 계산은 이 엔진에서만
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a ranking engine
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{logger: log}
}

// Rank returns the ranked records of every instrument in the frame, each
// slice ascending by timestamp
func (e *Engine) Rank(frame *contracts.MarketFrame) map[string][]contracts.RankedRecord {
	pairsCount := make(map[int64]int)
	for _, c := range frame.Rows() {
		pairsCount[c.Timestamp.UnixNano()]++
	}

	out := make(map[string][]contracts.RankedRecord)
	byTime := make(map[int64][]*contracts.RankedRecord)

	for _, s := range frame.ByInstrument() {
		records := instrumentStats(s.Candles)
		for i := range records {
			records[i].PairsCount = pairsCount[records[i].Timestamp.UnixNano()]
		}
		out[s.Instrument] = records
	}

	// pointers are taken after every slice is final
	for _, inst := range frame.Instruments() {
		records := out[inst]
		for i := range records {
			key := records[i].Timestamp.UnixNano()
			byTime[key] = append(byTime[key], &records[i])
		}
	}

	for _, group := range byTime {
		assignRanks(group)
	}

	e.logger.WithFields(map[string]interface{}{
		"instruments": len(out),
		"timestamps":  len(byTime),
	}).Debug("Ranking computed")

	return out
}

// instrumentStats fills the per-instrument columns: OHLCV, the exact-lag 24h
// change and the time-windowed 24h traded value
func instrumentStats(candles []contracts.Candle) []contracts.RankedRecord {
	closeAt := make(map[int64]float64, len(candles))
	for _, c := range candles {
		closeAt[c.Timestamp.UnixNano()] = c.Close
	}

	records := make([]contracts.RankedRecord, len(candles))
	left := 0
	for i, c := range candles {
		change := math.NaN()
		if prev, ok := closeAt[c.Timestamp.Add(-Window).UnixNano()]; ok && prev != 0 {
			change = (c.Close - prev) / prev * 100
		}

		// rows with t-24h < ts <= t
		cutoff := c.Timestamp.Add(-Window)
		for !candles[left].Timestamp.After(cutoff) {
			left++
		}
		vol24 := 0.0
		for j := left; j <= i; j++ {
			vol24 += candles[j].Volume * candles[j].Close
		}

		records[i] = contracts.RankedRecord{
			Timestamp:           timeutil.Normalize(c.Timestamp),
			Instrument:          c.Instrument,
			Open:                c.Open,
			High:                c.High,
			Low:                 c.Low,
			Close:               c.Close,
			Volume:              c.Volume,
			ChangePercentage24h: change,
			VolumeInCurrency:    c.Volume * c.Close,
			VolumeInCurrency24:  vol24,
		}
	}
	return records
}

// assignRanks sets the four competition ranks of the records sharing one timestamp
func assignRanks(group []*contracts.RankedRecord) {
	change := make([]float64, len(group))
	vol := make([]float64, len(group))
	for i, r := range group {
		change[i] = r.ChangePercentage24h
		vol[i] = r.VolumeInCurrency24
	}

	gainer := CompetitionRank(change, true)
	looser := CompetitionRank(change, false)
	top := CompetitionRank(vol, true)
	bottom := CompetitionRank(vol, false)

	for i, r := range group {
		r.TopGainerRank = gainer[i]
		r.TopLooserRank = looser[i]
		r.TopVolumeRank = top[i]
		r.BottomVolumeRank = bottom[i]
	}
}

// CompetitionRank ranks values so that ties share the best rank and the next
// distinct value is ranked 1 + the number of strictly better values. NaN
// values are unranked (0).
func CompetitionRank(values []float64, descending bool) []int {
	idx := make([]int, 0, len(values))
	for i, v := range values {
		if !math.IsNaN(v) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if descending {
			return values[idx[a]] > values[idx[b]]
		}
		return values[idx[a]] < values[idx[b]]
	})

	ranks := make([]int, len(values))
	for pos, i := range idx {
		if pos > 0 && values[i] == values[idx[pos-1]] {
			ranks[i] = ranks[idx[pos-1]]
			continue
		}
		ranks[i] = pos + 1
	}
	return ranks
}
