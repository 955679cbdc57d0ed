package features

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrMalformedTable is reported for tables whose content does not match
// their schema
var ErrMalformedTable = errors.New("malformed feature table")

// LoadError reports a feature table that could not be loaded. It wraps the
// underlying cause, so errors.Is works with fs.ErrNotExist, ErrDuplicateKey
// and ErrMalformedTable.
type LoadError struct {
	Table string
	Path  string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s table from %s: %v", e.Table, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// FormatFloat renders a value with the shortest representation that parses
// back to the same float64
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes a header row and one line per record
func WriteCSV[R Record](w io.Writer, t *Table[R]) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Schema.Header()); err != nil {
		return err
	}

	line := make([]string, 2+len(t.Schema.Columns))
	for _, row := range t.Rows {
		key := row.RowKey()
		line[0], line[1] = key.Filename, key.Species
		for i, v := range row.Values() {
			line[2+i] = FormatFloat(v)
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV. The header must match the
// schema exactly and every key must be unique.
func ReadCSV[R Record](r io.Reader, schema Schema[R]) (*Table[R], error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrMalformedTable)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}

	want := schema.Header()
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	if !equalStrings(header, want) {
		return nil, fmt.Errorf("%w: header %v, expected %v", ErrMalformedTable, header, want)
	}

	table := NewTable(schema, 64)
	seen := make(map[Key]int)
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedTable, line, err)
		}
		if len(fields) != len(want) {
			return nil, fmt.Errorf("%w: line %d has %d fields, expected %d", ErrMalformedTable, line, len(fields), len(want))
		}

		key := Key{Filename: fields[0], Species: fields[1]}
		if first, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %s on lines %d and %d", ErrDuplicateKey, key, first, line)
		}
		seen[key] = line

		values := make([]float64, len(schema.Columns))
		for i, raw := range fields[2:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %s: %v", ErrMalformedTable, line, schema.Columns[i], err)
			}
			values[i] = v
		}

		table.Append(schema.Build(key, values))
	}

	return table, nil
}

// SaveTable writes a table to path, creating the directory if needed and
// replacing any previous file
func SaveTable[R Record](path string, t *Table[R]) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s table: %w", t.Schema.Name, err)
	}
	return f.Close()
}

// LoadTable reads a table from path. Every failure is a *LoadError.
func LoadTable[R Record](path string, schema Schema[R]) (*Table[R], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Table: schema.Name, Path: path, Err: err}
	}
	defer f.Close()

	table, err := ReadCSV(f, schema)
	if err != nil {
		return nil, &LoadError{Table: schema.Name, Path: path, Err: err}
	}
	return table, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(a[i]) != b[i] {
			return false
		}
	}
	return true
}
