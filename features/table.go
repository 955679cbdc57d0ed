package features

import (
	"errors"
	"fmt"
)

// ErrDuplicateKey is reported when a table holds more than one row per key
var ErrDuplicateKey = errors.New("duplicate key")

// Schema binds a record type to its table name and numeric column names
type Schema[R Record] struct {
	Name    string
	Columns []string
	Build   func(key Key, values []float64) R
}

// Header returns the table header: the key columns followed by Columns
func (s Schema[R]) Header() []string {
	return concat([]string{"filename", "species"}, s.Columns)
}

// SpatialSchema describes the spatial table
var SpatialSchema = Schema[SpatialRecord]{
	Name:    "spatial",
	Columns: SpatialColumns,
	Build: func(key Key, v []float64) SpatialRecord {
		return SpatialRecord{Key: key, Spatial: spatialFrom(v)}
	},
}

// FrequencySchema describes the frequency table
var FrequencySchema = Schema[FrequencyRecord]{
	Name:    "frequency",
	Columns: FrequencyColumns,
	Build: func(key Key, v []float64) FrequencyRecord {
		return FrequencyRecord{Key: key, Frequency: frequencyFrom(v)}
	},
}

// TextureSchema describes the LBP table
var TextureSchema = Schema[TextureRecord]{
	Name:    "lbp",
	Columns: TextureColumns,
	Build: func(key Key, v []float64) TextureRecord {
		return TextureRecord{Key: key, Texture: textureFrom(v)}
	},
}

// MergedSchema describes the joined table
var MergedSchema = Schema[MergedRecord]{
	Name:    "merged",
	Columns: MergedColumns,
	Build: func(key Key, v []float64) MergedRecord {
		ns, nf := len(SpatialColumns), len(FrequencyColumns)
		return MergedRecord{
			Key:       key,
			Spatial:   spatialFrom(v[:ns]),
			Frequency: frequencyFrom(v[ns : ns+nf]),
			Texture:   textureFrom(v[ns+nf:]),
		}
	},
}

// Table is an ordered sequence of records of one schema. Rows are appended
// while the table is built and left untouched afterwards.
type Table[R Record] struct {
	Schema Schema[R]
	Rows   []R
}

// NewTable creates an empty table
func NewTable[R Record](schema Schema[R], capacity int) *Table[R] {
	return &Table[R]{
		Schema: schema,
		Rows:   make([]R, 0, capacity),
	}
}

// Append adds a row
func (t *Table[R]) Append(row R) {
	t.Rows = append(t.Rows, row)
}

// Len returns the number of rows
func (t *Table[R]) Len() int {
	return len(t.Rows)
}

// Keys returns the row keys in table order
func (t *Table[R]) Keys() []Key {
	keys := make([]Key, len(t.Rows))
	for i, row := range t.Rows {
		keys[i] = row.RowKey()
	}
	return keys
}

// Index maps every key to its row. A repeated key yields ErrDuplicateKey.
func (t *Table[R]) Index() (map[Key]R, error) {
	index := make(map[Key]R, len(t.Rows))
	for _, row := range t.Rows {
		key := row.RowKey()
		if _, exists := index[key]; exists {
			return nil, fmt.Errorf("%s table: %w: %s", t.Schema.Name, ErrDuplicateKey, key)
		}
		index[key] = row
	}
	return index, nil
}

// Column returns the values of one numeric column in row order
func (t *Table[R]) Column(name string) ([]float64, error) {
	idx := -1
	for i, c := range t.Schema.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%s table has no column %q", t.Schema.Name, name)
	}

	values := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row.Values()[idx]
	}
	return values, nil
}

// Columns returns every numeric column in schema order
func (t *Table[R]) Columns() [][]float64 {
	columns := make([][]float64, len(t.Schema.Columns))
	for j := range columns {
		columns[j] = make([]float64, len(t.Rows))
	}
	for i, row := range t.Rows {
		for j, v := range row.Values() {
			columns[j][i] = v
		}
	}
	return columns
}
