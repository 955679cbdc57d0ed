package analysis

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/specimen/algorithms/stats"
	"github.com/RyanBlaney/specimen/features"
)

// ErrNotEnoughRows is returned when a table is too small for the analysis
var ErrNotEnoughRows = errors.New("not enough rows")

// CorrelationMatrix is the Pearson correlation between every pair of
// numeric columns. Pairs involving a constant column are NaN.
type CorrelationMatrix struct {
	Columns []string
	Values  *mat.SymDense
}

// Correlate computes the correlation matrix over all numeric columns of
// the merged table
func Correlate(merged *features.Table[features.MergedRecord]) (*CorrelationMatrix, error) {
	if merged.Len() == 0 {
		return nil, fmt.Errorf("correlation of %s table: %w", merged.Schema.Name, ErrNotEnoughRows)
	}

	values, err := stats.NewCorrelation().Matrix(merged.Columns())
	if err != nil {
		return nil, fmt.Errorf("failed to compute correlation matrix: %w", err)
	}
	return &CorrelationMatrix{Columns: merged.Schema.Columns, Values: values}, nil
}

// At returns the correlation of columns i and j
func (c *CorrelationMatrix) At(i, j int) float64 {
	return c.Values.At(i, j)
}

// Size returns the number of columns
func (c *CorrelationMatrix) Size() int {
	return len(c.Columns)
}

// WriteCSV writes the square matrix with a leading label column
func (c *CorrelationMatrix) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append([]string{""}, c.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	line := make([]string, 1+c.Size())
	for i, name := range c.Columns {
		line[0] = name
		for j := range c.Columns {
			line[1+j] = features.FormatFloat(c.At(i, j))
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
