package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/specimen/algorithms/common"
	"github.com/RyanBlaney/specimen/features"
)

// PCAResult holds a principal component analysis of the standardised
// numeric columns
type PCAResult struct {
	Keys       []features.Key
	Columns    []string
	Components int

	// n×Components scores of every row
	Projections *mat.Dense

	// d×Components unit loading vectors
	Loadings *mat.Dense

	VarianceRatio []float64
	Cumulative    []float64
}

// PCA standardises every numeric column (population deviation, constant
// columns only centred) and keeps at most maxComponents components, further
// bounded by the number of rows and columns.
//
// Component signs are fixed so that the largest absolute loading of each
// component is positive, making the output deterministic.
func PCA(merged *features.Table[features.MergedRecord], maxComponents int) (*PCAResult, error) {
	n, d := merged.Len(), len(merged.Schema.Columns)
	if n < 2 {
		return nil, fmt.Errorf("pca of %d rows: %w", n, ErrNotEnoughRows)
	}
	if maxComponents <= 0 {
		return nil, fmt.Errorf("component count must be positive, got %d", maxComponents)
	}

	data := mat.NewDense(n, d, nil)
	for j, col := range merged.Columns() {
		data.SetCol(j, common.Standardize(col))
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, fmt.Errorf("principal component decomposition failed")
	}

	var vectors mat.Dense
	pc.VectorsTo(&vectors)
	variances := pc.VarsTo(nil)

	k := min(maxComponents, n, d)
	for j := 0; j < k; j++ {
		orientComponent(&vectors, j)
	}

	loadings := mat.DenseCopyOf(vectors.Slice(0, d, 0, k))
	var projections mat.Dense
	projections.Mul(data, loadings)

	ratio := make([]float64, k)
	if total := floats.Sum(variances); total > 0 {
		for j := range ratio {
			ratio[j] = variances[j] / total
		}
	}
	cumulative := make([]float64, k)
	floats.CumSum(cumulative, ratio)

	return &PCAResult{
		Keys:          merged.Keys(),
		Columns:       merged.Schema.Columns,
		Components:    k,
		Projections:   &projections,
		Loadings:      loadings,
		VarianceRatio: ratio,
		Cumulative:    cumulative,
	}, nil
}

// orientComponent flips column j of v when its largest magnitude entry is
// negative
func orientComponent(v *mat.Dense, j int) {
	rows, _ := v.Dims()
	best, bestAbs := 0.0, -1.0
	for i := 0; i < rows; i++ {
		x := v.At(i, j)
		if a := math.Abs(x); a > bestAbs {
			best, bestAbs = x, a
		}
	}
	if best >= 0 {
		return
	}
	for i := 0; i < rows; i++ {
		v.Set(i, j, -v.At(i, j))
	}
}

// ComponentNames returns PC1..PCk
func (r *PCAResult) ComponentNames() []string {
	names := make([]string, r.Components)
	for i := range names {
		names[i] = "PC" + strconv.Itoa(i+1)
	}
	return names
}

// WriteProjections writes filename, species and the component scores of
// every row
func (r *PCAResult) WriteProjections(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"filename", "species"}, r.ComponentNames()...)); err != nil {
		return err
	}

	line := make([]string, 2+r.Components)
	for i, key := range r.Keys {
		line[0], line[1] = key.Filename, key.Species
		for j := 0; j < r.Components; j++ {
			line[2+j] = features.FormatFloat(r.Projections.At(i, j))
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteVariance writes the explained variance ratio of every component
func (r *PCAResult) WriteVariance(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"component", "ratio", "cumulative"}); err != nil {
		return err
	}

	for j, name := range r.ComponentNames() {
		line := []string{
			name,
			features.FormatFloat(r.VarianceRatio[j]),
			features.FormatFloat(r.Cumulative[j]),
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
