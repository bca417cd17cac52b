package contracts

import (
	"fmt"
	"math"
	"time"
)

// TimeColumn is the name of the timestamp column in every persisted table
const TimeColumn = "date"

// ColumnKind distinguishes numeric and categorical columns
type ColumnKind int

const (
	FloatColumn ColumnKind = iota
	StringColumn
)

func (k ColumnKind) String() string {
	switch k {
	case FloatColumn:
		return "float"
	case StringColumn:
		return "string"
	default:
		return fmt.Sprintf("ColumnKind(%d)", int(k))
	}
}

// Column is one named column. Undefined values are NaN (float) or "" (string).
type Column struct {
	Name    string
	Kind    ColumnKind
	Floats  []float64
	Strings []string
}

// NewFloatColumn creates a numeric column
func NewFloatColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: FloatColumn, Floats: values}
}

// NewStringColumn creates a categorical column
func NewStringColumn(name string, values []string) *Column {
	return &Column{Name: name, Kind: StringColumn, Strings: values}
}

// Len returns the number of values
func (c *Column) Len() int {
	if c.Kind == StringColumn {
		return len(c.Strings)
	}
	return len(c.Floats)
}

// IsNull reports whether the i-th value is undefined
func (c *Column) IsNull(i int) bool {
	if c.Kind == StringColumn {
		return c.Strings[i] == ""
	}
	return math.IsNaN(c.Floats[i])
}

// Table is a timestamp-indexed table with no instrument dimension
// ⭐ SSOT: 지표 결과, 병합 결과, 저장 포맷의 공통 표현
type Table struct {
	Timestamps []time.Time
	Columns    []*Column
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Timestamps)
}

// Column returns the named column, or nil
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Validate checks column lengths, name uniqueness and the ascending, unique index
func (t *Table) Validate() error {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" || c.Name == TimeColumn {
			return fmt.Errorf("invalid column name %q", c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		if c.Len() != len(t.Timestamps) {
			return fmt.Errorf("column %q has %d values, index has %d", c.Name, c.Len(), len(t.Timestamps))
		}
	}
	for i := 1; i < len(t.Timestamps); i++ {
		if !t.Timestamps[i-1].Before(t.Timestamps[i]) {
			return fmt.Errorf("index not strictly ascending at row %d", i)
		}
	}
	return nil
}
