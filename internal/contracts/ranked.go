package contracts

import (
	"fmt"
	"math"
	"time"
)

// RankedRecord is one instrument's ranking row at one timestamp
// ⭐ SSOT: 랭킹 엔진 출력이자 유일한 영속 상태
type RankedRecord struct {
	Timestamp  time.Time `json:"date"`
	Instrument string    `json:"pair"`

	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`

	PairsCount          int     `json:"pairsCount"`          // 해당 시점 종목 수
	ChangePercentage24h float64 `json:"changePercentage24h"` // NaN = 24h 전 캔들 없음
	TopGainerRank       int     `json:"topGainerRank"`       // 0 = 순위 없음
	TopLooserRank       int     `json:"topLooserRank"`
	VolumeInCurrency    float64 `json:"volumeInCurrency"`
	VolumeInCurrency24  float64 `json:"volumeInCurrency24"`
	TopVolumeRank       int     `json:"topVolumeRank"`
	BottomVolumeRank    int     `json:"bottomVolumeRank"`
}

// Ranked column names, in persisted order
const (
	ColOpen                = "open"
	ColHigh                = "high"
	ColLow                 = "low"
	ColClose               = "close"
	ColVolume              = "volume"
	ColPairsCount          = "pairsCount"
	ColChangePercentage24h = "changePercentage24h"
	ColTopGainerRank       = "topGainerRank"
	ColTopLooserRank       = "topLooserRank"
	ColVolumeInCurrency    = "volumeInCurrency"
	ColVolumeInCurrency24  = "volumeInCurrency24"
	ColTopVolumeRank       = "topVolumeRank"
	ColBottomVolumeRank    = "bottomVolumeRank"
)

// RankedColumns lists the persisted ranking columns
var RankedColumns = []string{
	ColOpen, ColHigh, ColLow, ColClose, ColVolume,
	ColPairsCount, ColChangePercentage24h, ColTopGainerRank, ColTopLooserRank,
	ColVolumeInCurrency, ColVolumeInCurrency24, ColTopVolumeRank, ColBottomVolumeRank,
}

func rankToFloat(rank int) float64 {
	if rank <= 0 {
		return math.NaN()
	}
	return float64(rank)
}

func floatToRank(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	return int(math.Round(v))
}

// RecordsToTable converts one instrument's records (ascending, unique) into a table
func RecordsToTable(records []RankedRecord) *Table {
	n := len(records)
	cols := make(map[string][]float64, len(RankedColumns))
	for _, name := range RankedColumns {
		cols[name] = make([]float64, n)
	}

	ts := make([]time.Time, n)
	for i, r := range records {
		ts[i] = r.Timestamp
		cols[ColOpen][i] = r.Open
		cols[ColHigh][i] = r.High
		cols[ColLow][i] = r.Low
		cols[ColClose][i] = r.Close
		cols[ColVolume][i] = r.Volume
		cols[ColPairsCount][i] = float64(r.PairsCount)
		cols[ColChangePercentage24h][i] = r.ChangePercentage24h
		cols[ColTopGainerRank][i] = rankToFloat(r.TopGainerRank)
		cols[ColTopLooserRank][i] = rankToFloat(r.TopLooserRank)
		cols[ColVolumeInCurrency][i] = r.VolumeInCurrency
		cols[ColVolumeInCurrency24][i] = r.VolumeInCurrency24
		cols[ColTopVolumeRank][i] = rankToFloat(r.TopVolumeRank)
		cols[ColBottomVolumeRank][i] = rankToFloat(r.BottomVolumeRank)
	}

	table := &Table{Timestamps: ts}
	for _, name := range RankedColumns {
		table.Columns = append(table.Columns, NewFloatColumn(name, cols[name]))
	}
	return table
}

// TableToRecords converts a persisted ranking table back into records
func TableToRecords(instrument string, table *Table) ([]RankedRecord, error) {
	cols := make(map[string][]float64, len(RankedColumns))
	for _, name := range RankedColumns {
		c := table.Column(name)
		if c == nil {
			return nil, fmt.Errorf("ranking table for %s: missing column %q", instrument, name)
		}
		if c.Kind != FloatColumn {
			return nil, fmt.Errorf("ranking table for %s: column %q is %s", instrument, name, c.Kind)
		}
		cols[name] = c.Floats
	}

	records := make([]RankedRecord, table.Len())
	for i, ts := range table.Timestamps {
		records[i] = RankedRecord{
			Timestamp:           ts,
			Instrument:          instrument,
			Open:                cols[ColOpen][i],
			High:                cols[ColHigh][i],
			Low:                 cols[ColLow][i],
			Close:               cols[ColClose][i],
			Volume:              cols[ColVolume][i],
			PairsCount:          int(math.Round(cols[ColPairsCount][i])),
			ChangePercentage24h: cols[ColChangePercentage24h][i],
			TopGainerRank:       floatToRank(cols[ColTopGainerRank][i]),
			TopLooserRank:       floatToRank(cols[ColTopLooserRank][i]),
			VolumeInCurrency:    cols[ColVolumeInCurrency][i],
			VolumeInCurrency24:  cols[ColVolumeInCurrency24][i],
			TopVolumeRank:       floatToRank(cols[ColTopVolumeRank][i]),
			BottomVolumeRank:    floatToRank(cols[ColBottomVolumeRank][i]),
		}
	}
	return records, nil
}
