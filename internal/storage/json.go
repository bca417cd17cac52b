package storage

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/wonny/metrex/internal/contracts"
	"github.com/wonny/metrex/internal/timeutil"
)

// JSONCodec reads freqtrade JSON candle files: [[epoch_ms, o, h, l, c, v], ...]
type JSONCodec struct{}

func (JSONCodec) Name() string      { return "json" }
func (JSONCodec) Extension() string { return ".json" }
func (JSONCodec) Writable() bool    { return false }

var jsonCandleColumns = []string{"open", "high", "low", "close", "volume"}

func (JSONCodec) Read(path string) (*contracts.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	var raw [][]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	table := &contracts.Table{Timestamps: make([]time.Time, len(raw))}
	cols := make([][]float64, len(jsonCandleColumns))
	for j := range cols {
		cols[j] = make([]float64, len(raw))
	}

	for i, row := range raw {
		if len(row) > 0 && row[0] != nil {
			table.Timestamps[i] = timeutil.FromEpochMillis(int64(*row[0]))
		}
		for j := range jsonCandleColumns {
			cols[j][i] = math.NaN()
			if j+1 < len(row) && row[j+1] != nil {
				cols[j][i] = *row[j+1]
			}
		}
	}

	for j, name := range jsonCandleColumns {
		table.Columns = append(table.Columns, contracts.NewFloatColumn(name, cols[j]))
	}
	return table, nil
}

func (JSONCodec) Write(path string, _ *contracts.Table) error {
	return fmt.Errorf("%w: json (%s)", ErrReadOnlyFormat, path)
}
