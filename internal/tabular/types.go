// Package tabular provides typed in-memory tables and their CSV serialization.
//
// A Table declares an ordered list of typed columns. Values are coerced to the
// declared type when the table is written or read, and coercion is strict: a
// value that cannot be represented in its column type fails the whole table.
package tabular

import (
	"errors"
	"fmt"
)

// Column types understood by the coercion rules.
const (
	Int      ColumnType = "int"
	Float    ColumnType = "float"
	String   ColumnType = "string"
	Datetime ColumnType = "datetime"
)

var (
	// ErrUnknownColumnType is returned for a column type outside Int, Float, String, Datetime.
	ErrUnknownColumnType = errors.New("unknown column type")
	// ErrRowWidth is returned when a row does not have one value per column.
	ErrRowWidth = errors.New("row width does not match column count")
	// ErrHeaderMismatch is returned when a CSV header differs from the declared columns.
	ErrHeaderMismatch = errors.New("header does not match declared columns")
	// ErrEmptyTableName is returned when a table without a name is written.
	ErrEmptyTableName = errors.New("table name cannot be empty")
)

type (
	// ColumnType is the declared type of a column.
	ColumnType string

	// Column is a named, typed column.
	Column struct {
		Name string
		Type ColumnType
	}

	// Table is an ordered set of rows over declared columns.
	// Row values are positional and must line up with Columns.
	Table struct {
		Name    string
		Columns []Column
		Rows    [][]any
	}
)

// IsValid reports whether t is one of the supported column types.
func (t ColumnType) IsValid() bool {
	switch t {
	case Int, Float, String, Datetime:
		return true
	default:
		return false
	}
}

// NewTable returns an empty table with the given columns.
func NewTable(name string, columns ...Column) *Table {
	return &Table{
		Name:    name,
		Columns: columns,
	}
}

// Append adds one row. The row must have one value per column.
func (t *Table) Append(values ...any) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("%w: table %s expects %d values, got %d",
			ErrRowWidth, t.Name, len(t.Columns), len(values))
	}

	t.Rows = append(t.Rows, values)

	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, column := range t.Columns {
		names[i] = column.Name
	}

	return names
}

// Schema returns the column name to type map.
func (t *Table) Schema() map[string]ColumnType {
	schema := make(map[string]ColumnType, len(t.Columns))
	for _, column := range t.Columns {
		schema[column.Name] = column.Type
	}

	return schema
}

// Filename returns the CSV file name used for this table.
func (t *Table) Filename() string {
	return t.Name + ".csv"
}

func (t *Table) validate() error {
	if t.Name == "" {
		return ErrEmptyTableName
	}

	for _, column := range t.Columns {
		if !column.Type.IsValid() {
			return fmt.Errorf("%w: %q for column %s.%s", ErrUnknownColumnType, column.Type, t.Name, column.Name)
		}
	}

	return nil
}
