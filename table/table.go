// Package table holds the in-memory tabular representation used by the
// benchmark and its codecs: CSV and JSON-lines readers, a columnar
// on-disk format, and the canonical binary stream format that tables
// are serialized to when written into the store.
package table

import (
	"fmt"
)

// ColumnType identifies the element type of a column.
type ColumnType uint8

const (
	Int64 ColumnType = iota
	Float64
	String
)

func (t ColumnType) String() string {
	switch t {
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case String:
		return "string"
	default:
		return fmt.Sprintf("ColumnType(%d)", uint8(t))
	}
}

// Column is a single named, typed column. Exactly one of the value
// slices is populated, matching Type.
type Column struct {
	Name    string
	Type    ColumnType
	Ints    []int64
	Floats  []float64
	Strings []string
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	switch c.Type {
	case Int64:
		return len(c.Ints)
	case Float64:
		return len(c.Floats)
	default:
		return len(c.Strings)
	}
}

// Table is an immutable columnar table. All columns have the same
// number of rows.
type Table struct {
	Columns []Column
}

// NumRows returns the row count (0 for a table with no columns).
func (t *Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}

	return t.Columns[0].Len()
}

// NumColumns returns the column count.
func (t *Table) NumColumns() int {
	return len(t.Columns)
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}

	return names
}

// validate checks that all columns agree on row count and that each
// column's populated slice matches its declared type.
func (t *Table) validate() error {
	if len(t.Columns) == 0 {
		return nil
	}

	rows := t.Columns[0].Len()

	for i := range t.Columns {
		c := &t.Columns[i]
		if c.Len() != rows {
			return fmt.Errorf("column %q has %d rows, want %d",
				c.Name, c.Len(), rows)
		}
	}

	return nil
}
