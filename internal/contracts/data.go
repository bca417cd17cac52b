package contracts

import (
	"math"
	"sort"
	"time"
)

// Candle is one OHLCV row of one instrument
// ⭐ SSOT: Loader 경계에서 UTC로 정규화된 캔들
type Candle struct {
	Timestamp  time.Time `json:"timestamp"`
	Instrument string    `json:"instrument"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
}

// Valid reports whether the candle has an instrument tag, a timestamp and finite OHLCV
func (c Candle) Valid() bool {
	if c.Instrument == "" || c.Timestamp.IsZero() {
		return false
	}
	for _, v := range [...]float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Series is the ascending candle history of one instrument
type Series struct {
	Instrument string
	Candles    []Candle
}

// MarketFrame is the long-format union of all candles for one interval,
// sorted by (timestamp, instrument)
// ⭐ SSOT: 한 번의 실행 동안만 존재하는 시장 전체 캔들
type MarketFrame struct {
	rows []Candle
}

// NewMarketFrame copies and sorts candles
func NewMarketFrame(candles []Candle) *MarketFrame {
	rows := make([]Candle, len(candles))
	copy(rows, candles)
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Timestamp.Equal(rows[j].Timestamp) {
			return rows[i].Timestamp.Before(rows[j].Timestamp)
		}
		return rows[i].Instrument < rows[j].Instrument
	})
	return &MarketFrame{rows: rows}
}

// Len returns the number of rows
func (f *MarketFrame) Len() int {
	return len(f.rows)
}

// Empty reports whether the frame has no rows
func (f *MarketFrame) Empty() bool {
	return len(f.rows) == 0
}

// Rows returns the rows in (timestamp, instrument) order. Callers must not modify them.
func (f *MarketFrame) Rows() []Candle {
	return f.rows
}

// Instruments returns the distinct instruments, sorted
func (f *MarketFrame) Instruments() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range f.rows {
		if _, ok := seen[c.Instrument]; !ok {
			seen[c.Instrument] = struct{}{}
			out = append(out, c.Instrument)
		}
	}
	sort.Strings(out)
	return out
}

// Timestamps returns the distinct timestamps, ascending
func (f *MarketFrame) Timestamps() []time.Time {
	var out []time.Time
	for _, c := range f.rows {
		if n := len(out); n == 0 || !out[n-1].Equal(c.Timestamp) {
			out = append(out, c.Timestamp)
		}
	}
	return out
}

// ByInstrument splits the frame into one ascending series per instrument,
// ordered by instrument name
func (f *MarketFrame) ByInstrument() []Series {
	groups := make(map[string][]Candle)
	for _, c := range f.rows {
		groups[c.Instrument] = append(groups[c.Instrument], c)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Series, 0, len(names))
	for _, name := range names {
		out = append(out, Series{Instrument: name, Candles: groups[name]})
	}
	return out
}

// Series returns the candles of one instrument, or nil
func (f *MarketFrame) Series(instrument string) []Candle {
	var out []Candle
	for _, c := range f.rows {
		if c.Instrument == instrument {
			out = append(out, c)
		}
	}
	return out
}

// Has reports whether the instrument has at least one row
func (f *MarketFrame) Has(instrument string) bool {
	for _, c := range f.rows {
		if c.Instrument == instrument {
			return true
		}
	}
	return false
}

// Filter returns a new frame with the rows for which keep returns true
func (f *MarketFrame) Filter(keep func(Candle) bool) *MarketFrame {
	out := make([]Candle, 0, len(f.rows))
	for _, c := range f.rows {
		if keep(c) {
			out = append(out, c)
		}
	}
	return &MarketFrame{rows: out}
}
