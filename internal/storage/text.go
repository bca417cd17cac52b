package storage

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/metrex/internal/contracts"
	"github.com/wonny/metrex/internal/timeutil"
)

// gridToTable turns a header row plus string rows (CSV, XLSX) into a table.
// A column is numeric when every non-empty cell parses as a float.
func gridToTable(rows [][]string) (*contracts.Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header row")
	}
	header := rows[0]
	body := rows[1:]

	timeName, ok := timeutil.PickTimeColumn(header)
	if !ok {
		return nil, fmt.Errorf("no time column among %v", header)
	}

	cell := func(row []string, j int) string {
		if j < len(row) {
			return strings.TrimSpace(row[j])
		}
		return ""
	}

	table := &contracts.Table{Timestamps: make([]time.Time, len(body))}
	for j, name := range header {
		if name == timeName {
			for i, row := range body {
				if t, err := timeutil.ParseTimestamp(cell(row, j)); err == nil {
					table.Timestamps[i] = t
				}
			}
			continue
		}
		if name == "" {
			continue
		}

		floats := make([]float64, len(body))
		numeric := true
		for i, row := range body {
			v := cell(row, j)
			if v == "" {
				floats[i] = math.NaN()
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				numeric = false
				break
			}
			floats[i] = f
		}

		if numeric {
			table.Columns = append(table.Columns, contracts.NewFloatColumn(name, floats))
			continue
		}
		strs := make([]string, len(body))
		for i, row := range body {
			strs[i] = cell(row, j)
		}
		table.Columns = append(table.Columns, contracts.NewStringColumn(name, strs))
	}
	return table, nil
}

// tableToGrid is the inverse of gridToTable. Undefined values become empty cells.
func tableToGrid(table *contracts.Table) ([][]string, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid table: %w", err)
	}

	header := append([]string{contracts.TimeColumn}, table.ColumnNames()...)
	rows := make([][]string, 0, table.Len()+1)
	rows = append(rows, header)

	for i, ts := range table.Timestamps {
		row := make([]string, 0, len(header))
		row = append(row, ts.UTC().Format(time.RFC3339Nano))
		for _, c := range table.Columns {
			row = append(row, formatCell(c, i))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func formatCell(c *contracts.Column, i int) string {
	if c.IsNull(i) {
		return ""
	}
	if c.Kind == contracts.StringColumn {
		return c.Strings[i]
	}
	return strconv.FormatFloat(c.Floats[i], 'f', -1, 64)
}
