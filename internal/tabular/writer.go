package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/salesdw/salesdw/internal/fileutil"
)

// Writer persists tables as CSV files under a directory.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter returns a Writer rooted at dir. A nil logger discards log output.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Writer{dir: dir, logger: logger}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write coerces and writes one table to <dir>/<name>.csv and returns the path.
// Nothing is written if any value fails coercion.
func (w *Writer) Write(table *Table) (string, error) {
	paths, err := w.WriteAll(table)
	if err != nil {
		return "", err
	}

	return paths[0], nil
}

// WriteAll encodes every table before persisting any of them, so a coercion
// failure in one table leaves the directory untouched.
func (w *Writer) WriteAll(tables ...*Table) ([]string, error) {
	encoded := make([][]byte, len(tables))

	for i, table := range tables {
		var buf bytes.Buffer
		if err := Encode(&buf, table); err != nil {
			return nil, err
		}

		encoded[i] = buf.Bytes()
	}

	if err := fileutil.EnsureDir(w.dir); err != nil {
		return nil, err
	}

	paths := make([]string, len(tables))

	for i, table := range tables {
		path := filepath.Join(w.dir, table.Filename())
		if err := fileutil.WriteAtomic(path, encoded[i]); err != nil {
			return nil, err
		}

		w.logger.Info("Wrote table",
			slog.String("table", table.Name),
			slog.String("path", path),
			slog.Int("rows", table.Len()),
		)

		paths[i] = path
	}

	return paths, nil
}

// Encode writes the header row and every coerced data row of table as CSV.
func Encode(out io.Writer, table *Table) error {
	if err := table.validate(); err != nil {
		return err
	}

	cw := csv.NewWriter(out)

	if err := cw.Write(table.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", table.Name, err)
	}

	record := make([]string, len(table.Columns))

	for i, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return fmt.Errorf("%w: table %s row %d has %d values, expected %d",
				ErrRowWidth, table.Name, i+1, len(row), len(table.Columns))
		}

		for j, column := range table.Columns {
			text, err := Format(row[j], column.Type)
			if err != nil {
				return &CoercionError{
					Table:  table.Name,
					Column: column.Name,
					Row:    i + 1,
					Type:   column.Type,
					Value:  row[j],
					Err:    err,
				}
			}

			record[j] = text
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, table.Name, err)
		}
	}

	cw.Flush()

	return cw.Error()
}
