package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
)

// Reader streams typed rows from a CSV written by Writer.
// The header must list exactly the declared columns, in order.
type Reader struct {
	name    string
	columns []Column
	csv     *csv.Reader
	row     int
}

// NewReader reads and checks the header, returning a Reader positioned at the first data row.
func NewReader(r io.Reader, name string, columns []Column) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(columns)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s has no header row", ErrHeaderMismatch, name)
		}

		return nil, fmt.Errorf("failed to read header of %s: %w", name, err)
	}

	expected := make([]string, len(columns))
	for i, column := range columns {
		expected[i] = column.Name
	}

	if !slices.Equal(header, expected) {
		return nil, fmt.Errorf("%w: %s has %v, expected %v", ErrHeaderMismatch, name, header, expected)
	}

	return &Reader{
		name:    name,
		columns: columns,
		csv:     cr,
	}, nil
}

// Next returns the next row coerced to the column types, or io.EOF at the end.
func (r *Reader) Next() ([]any, error) {
	record, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}

		return nil, fmt.Errorf("failed to read row %d of %s: %w", r.row+1, r.name, err)
	}

	r.row++

	values := make([]any, len(record))

	for i, column := range r.columns {
		value, err := Coerce(record[i], column.Type)
		if err != nil {
			return nil, &CoercionError{
				Table:  r.name,
				Column: column.Name,
				Row:    r.row,
				Type:   column.Type,
				Value:  record[i],
				Err:    err,
			}
		}

		values[i] = value
	}

	return values, nil
}

// ReadAll drains the reader into a Table.
func (r *Reader) ReadAll() (*Table, error) {
	table := NewTable(r.name, r.columns...)

	for {
		values, err := r.Next()
		if errors.Is(err, io.EOF) {
			return table, nil
		}

		if err != nil {
			return nil, err
		}

		table.Rows = append(table.Rows, values)
	}
}
