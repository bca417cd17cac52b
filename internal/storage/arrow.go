package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/wonny/metrex/internal/contracts"
	"github.com/wonny/metrex/internal/timeutil"
)

var timestampType = &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}

// tableSchema builds the Arrow schema: the time column first, then the table's columns
func tableSchema(table *contracts.Table) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(table.Columns)+1)
	fields = append(fields, arrow.Field{Name: contracts.TimeColumn, Type: timestampType})
	for _, c := range table.Columns {
		var dt arrow.DataType = arrow.PrimitiveTypes.Float64
		if c.Kind == contracts.StringColumn {
			dt = arrow.BinaryTypes.String
		}
		fields = append(fields, arrow.Field{Name: c.Name, Type: dt, Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}

// tableToRecord converts a table into one Arrow record. The caller releases it.
func tableToRecord(mem memory.Allocator, table *contracts.Table) (arrow.Record, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid table: %w", err)
	}

	schema := tableSchema(table)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	tsb := b.Field(0).(*array.TimestampBuilder)
	for _, ts := range table.Timestamps {
		tsb.Append(arrow.Timestamp(ts.UnixNano()))
	}

	for i, c := range table.Columns {
		switch fb := b.Field(i + 1).(type) {
		case *array.Float64Builder:
			for _, v := range c.Floats {
				if math.IsNaN(v) {
					fb.AppendNull()
				} else {
					fb.Append(v)
				}
			}
		case *array.StringBuilder:
			for _, v := range c.Strings {
				if v == "" {
					fb.AppendNull()
				} else {
					fb.Append(v)
				}
			}
		}
	}

	return b.NewRecord(), nil
}

// recordsToTable converts decoded Arrow records back into a table. The time
// column is picked by name; columns of unsupported types are skipped.
func recordsToTable(schema *arrow.Schema, records []arrow.Record) (*contracts.Table, error) {
	names := make([]string, len(schema.Fields()))
	for i, f := range schema.Fields() {
		names[i] = f.Name
	}

	timeName, ok := timeutil.PickTimeColumn(names)
	if !ok {
		return nil, fmt.Errorf("no time column among %v", names)
	}
	timeIdx := schema.FieldIndices(timeName)[0]

	table := &contracts.Table{}
	colIdx := make(map[int]*contracts.Column)
	for i, f := range schema.Fields() {
		if i == timeIdx {
			continue
		}
		switch {
		case isNumeric(f.Type):
			c := contracts.NewFloatColumn(f.Name, nil)
			colIdx[i] = c
			table.Columns = append(table.Columns, c)
		case f.Type.ID() == arrow.STRING || f.Type.ID() == arrow.LARGE_STRING:
			c := contracts.NewStringColumn(f.Name, nil)
			colIdx[i] = c
			table.Columns = append(table.Columns, c)
		}
	}

	for _, rec := range records {
		ts, err := timeValues(rec.Column(timeIdx))
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", timeName, err)
		}
		table.Timestamps = append(table.Timestamps, ts...)

		for i, c := range colIdx {
			arr := rec.Column(i)
			if c.Kind == contracts.StringColumn {
				c.Strings = append(c.Strings, stringValues(arr)...)
			} else {
				c.Floats = append(c.Floats, floatValues(arr)...)
			}
		}
	}
	return table, nil
}

func isNumeric(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.FLOAT64, arrow.FLOAT32,
		arrow.INT64, arrow.INT32, arrow.INT16, arrow.INT8,
		arrow.UINT64, arrow.UINT32, arrow.UINT16, arrow.UINT8:
		return true
	}
	return false
}

// timeValues decodes a timestamp-like column; null entries become the zero time
func timeValues(arr arrow.Array) ([]time.Time, error) {
	out := make([]time.Time, arr.Len())
	switch a := arr.(type) {
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		for i := range out {
			if a.IsValid(i) {
				out[i] = timeutil.Normalize(a.Value(i).ToTime(unit))
			}
		}
	case *array.Date32:
		for i := range out {
			if a.IsValid(i) {
				out[i] = timeutil.Normalize(a.Value(i).ToTime())
			}
		}
	case *array.Date64:
		for i := range out {
			if a.IsValid(i) {
				out[i] = timeutil.Normalize(a.Value(i).ToTime())
			}
		}
	case *array.Int64:
		for i := range out {
			if a.IsValid(i) {
				out[i] = timeutil.FromEpochMillis(a.Value(i))
			}
		}
	case *array.String:
		for i := range out {
			if a.IsValid(i) {
				if t, err := timeutil.ParseTimestamp(a.Value(i)); err == nil {
					out[i] = t
				}
			}
		}
	default:
		return nil, fmt.Errorf("unsupported time type %s", arr.DataType())
	}
	return out, nil
}

func floatValues(arr arrow.Array) []float64 {
	out := make([]float64, arr.Len())
	for i := range out {
		if arr.IsNull(i) {
			out[i] = math.NaN()
			continue
		}
		switch a := arr.(type) {
		case *array.Float64:
			out[i] = a.Value(i)
		case *array.Float32:
			out[i] = float64(a.Value(i))
		case *array.Int64:
			out[i] = float64(a.Value(i))
		case *array.Int32:
			out[i] = float64(a.Value(i))
		case *array.Int16:
			out[i] = float64(a.Value(i))
		case *array.Int8:
			out[i] = float64(a.Value(i))
		case *array.Uint64:
			out[i] = float64(a.Value(i))
		case *array.Uint32:
			out[i] = float64(a.Value(i))
		case *array.Uint16:
			out[i] = float64(a.Value(i))
		case *array.Uint8:
			out[i] = float64(a.Value(i))
		default:
			out[i] = math.NaN()
		}
	}
	return out
}

func stringValues(arr arrow.Array) []string {
	out := make([]string, arr.Len())
	for i := range out {
		if arr.IsNull(i) {
			continue
		}
		switch a := arr.(type) {
		case *array.String:
			out[i] = a.Value(i)
		case *array.LargeString:
			out[i] = a.Value(i)
		}
	}
	return out
}
