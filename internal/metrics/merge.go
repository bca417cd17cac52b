package metrics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/metrex/internal/contracts"
)

// Merge outer-joins the results on timestamp, forward-fills every column
// independently and drops rows in which every column is still undefined
// ⭐ SSOT: 앞 값으로만 채움 (backward fill 없음)
func Merge(results ...*contracts.Table) (*contracts.Table, error) {
	seenCol := make(map[string]bool)
	seenTime := make(map[int64]time.Time)
	for _, r := range results {
		for _, c := range r.Columns {
			if seenCol[c.Name] {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, c.Name)
			}
			seenCol[c.Name] = true
		}
		for _, ts := range r.Timestamps {
			seenTime[ts.UnixNano()] = ts
		}
	}

	union := make([]time.Time, 0, len(seenTime))
	for _, ts := range seenTime {
		union = append(union, ts)
	}
	sort.Slice(union, func(i, j int) bool { return union[i].Before(union[j]) })
	ix := newTimeIndex(union)

	var columns []*contracts.Column
	for _, r := range results {
		for _, c := range r.Columns {
			columns = append(columns, alignColumn(c, r.Timestamps, ix))
		}
	}

	merged := &contracts.Table{}
	keep := make([]int, 0, len(union))
	for i := range union {
		for _, c := range columns {
			if !c.IsNull(i) {
				keep = append(keep, i)
				break
			}
		}
	}

	for _, i := range keep {
		merged.Timestamps = append(merged.Timestamps, union[i])
	}
	for _, c := range columns {
		merged.Columns = append(merged.Columns, pick(c, keep))
	}
	return merged, nil
}

// alignColumn places c onto the union index and forward-fills it
func alignColumn(c *contracts.Column, times []time.Time, ix *timeIndex) *contracts.Column {
	n := len(ix.times)
	if c.Kind == contracts.StringColumn {
		out := make([]string, n)
		for i, ts := range times {
			out[ix.at(ts)] = c.Strings[i]
		}
		for i := 1; i < n; i++ {
			if out[i] == "" {
				out[i] = out[i-1]
			}
		}
		return contracts.NewStringColumn(c.Name, out)
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	for i, ts := range times {
		out[ix.at(ts)] = c.Floats[i]
	}
	for i := 1; i < n; i++ {
		if math.IsNaN(out[i]) {
			out[i] = out[i-1]
		}
	}
	return contracts.NewFloatColumn(c.Name, out)
}

func pick(c *contracts.Column, rows []int) *contracts.Column {
	if c.Kind == contracts.StringColumn {
		out := make([]string, len(rows))
		for j, i := range rows {
			out[j] = c.Strings[i]
		}
		return contracts.NewStringColumn(c.Name, out)
	}
	out := make([]float64, len(rows))
	for j, i := range rows {
		out[j] = c.Floats[i]
	}
	return contracts.NewFloatColumn(c.Name, out)
}
