package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Correlation computes Pearson correlation matrices between feature columns
//
// References:
// - Pearson, K. (1895). "Notes on regression and inheritance in the case of two parents"
//
// Columns with zero variance have undefined correlations and produce NaN
// entries, including on the diagonal.
type Correlation struct{}

// NewCorrelation creates a new correlation calculator
func NewCorrelation() *Correlation {
	return &Correlation{}
}

// Matrix returns the d×d correlation matrix of d equally long columns
func (c *Correlation) Matrix(columns [][]float64) (*mat.SymDense, error) {
	d := len(columns)
	if d == 0 {
		return nil, fmt.Errorf("no columns provided")
	}

	n := len(columns[0])
	for i, col := range columns {
		if len(col) != n {
			return nil, fmt.Errorf("column %d has %d values, expected %d", i, len(col), n)
		}
	}
	if n == 0 {
		return nil, fmt.Errorf("columns are empty")
	}

	data := mat.NewDense(n, d, nil)
	for j, col := range columns {
		data.SetCol(j, col)
	}

	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, data, nil)

	// gonum pins the diagonal to 1 even for constant columns
	nan := math.NaN()
	for j, col := range columns {
		if v := stat.Variance(col, nil); v != 0 && !math.IsNaN(v) {
			continue
		}
		for k := 0; k < d; k++ {
			corr.SetSym(j, k, nan)
		}
	}
	return &corr, nil
}
