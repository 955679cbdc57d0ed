// Package classify trains and evaluates multiclass species classifiers on
// the merged feature table.
package classify

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/specimen/algorithms/common"
	"github.com/RyanBlaney/specimen/features"
)

// ErrNotEnoughSamples is returned when the table cannot support a
// stratified train/test split
var ErrNotEnoughSamples = errors.New("not enough samples")

// Dataset is a numeric design matrix with integer class labels
type Dataset struct {
	Keys    []features.Key
	Columns []string

	// Sorted species names; Labels index into it
	Classes []string

	X      *mat.Dense
	Labels []int
}

// FromTable builds a dataset from the numeric columns of the merged table,
// labelled by species
func FromTable(merged *features.Table[features.MergedRecord]) (*Dataset, error) {
	n, d := merged.Len(), len(merged.Schema.Columns)
	if n == 0 {
		return nil, fmt.Errorf("classification of empty %s table: %w", merged.Schema.Name, ErrNotEnoughSamples)
	}

	seen := make(map[string]struct{})
	for _, row := range merged.Rows {
		seen[row.Species] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for s := range seen {
		classes = append(classes, s)
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, s := range classes {
		index[s] = i
	}

	ds := &Dataset{
		Keys:    merged.Keys(),
		Columns: merged.Schema.Columns,
		Classes: classes,
		X:       mat.NewDense(n, d, nil),
		Labels:  make([]int, n),
	}
	for i, row := range merged.Rows {
		ds.X.SetRow(i, row.Values())
		ds.Labels[i] = index[row.Species]
	}
	return ds, nil
}

// Len returns the number of samples
func (d *Dataset) Len() int {
	return len(d.Labels)
}

// Subset returns the samples at idx, in that order
func (d *Dataset) Subset(idx []int) *Dataset {
	_, cols := d.X.Dims()
	sub := &Dataset{
		Keys:    make([]features.Key, len(idx)),
		Columns: d.Columns,
		Classes: d.Classes,
		X:       mat.NewDense(len(idx), cols, nil),
		Labels:  make([]int, len(idx)),
	}
	for i, j := range idx {
		sub.Keys[i] = d.Keys[j]
		sub.X.SetRow(i, d.X.RawRowView(j))
		sub.Labels[i] = d.Labels[j]
	}
	return sub
}

// Scaler standardises columns with the mean and population deviation of the
// rows it was fitted on. Constant columns are only centred.
type Scaler struct {
	Mean  []float64
	Scale []float64
}

// FitScaler computes the column statistics of x
func FitScaler(x mat.Matrix) *Scaler {
	_, cols := x.Dims()
	s := &Scaler{Mean: make([]float64, cols), Scale: make([]float64, cols)}
	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, x)
		s.Mean[j] = common.Mean(col)
		s.Scale[j] = common.PopStdDev(col)
		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}
	return s
}

// Transform returns the standardised copy of x
func (s *Scaler) Transform(x mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.CloneFrom(x)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, &out)
	return &out
}
