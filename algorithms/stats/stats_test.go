package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueEntropy(t *testing.T) {
	e := NewEntropy()

	tests := []struct {
		name string
		data []float64
		want float64
	}{
		{"constant", []float64{4, 4, 4, 4}, 0},
		{"two equiprobable values", []float64{0, 1, 0, 1}, 1},
		{"four distinct values", []float64{1, 2, 3, 4}, 2},
		{"skewed", []float64{0, 0, 0, 1}, -(0.75*math.Log2(0.75) + 0.25*math.Log2(0.25))},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, e.ValueEntropy(tt.data), 1e-12)
		})
	}
}

func TestIntensityEntropyMatchesValueEntropy(t *testing.T) {
	e := NewEntropy()
	pixels := []uint8{0, 10, 10, 200, 255, 255, 255, 3}
	values := make([]float64, len(pixels))
	for i, p := range pixels {
		values[i] = float64(p)
	}

	assert.InDelta(t, e.ValueEntropy(values), e.IntensityEntropy(pixels), 1e-12)
	assert.Greater(t, e.IntensityEntropy(pixels), 0.0)
	assert.Equal(t, 0.0, e.IntensityEntropy([]uint8{9, 9, 9}))
}

func TestEntropyNaturalBase(t *testing.T) {
	e := NewEntropyWithParams(EntropyParams{BaseLog: math.E})
	assert.InDelta(t, math.Log(2), e.ProbabilityEntropy([]float64{0.5, 0.5}), 1e-12)
}

func TestCodeHistogram(t *testing.T) {
	hist := CodeHistogram([]int{0, 2, 2, 9})
	require.Len(t, hist, 10)
	assert.InDelta(t, 0.25, hist[0], 1e-12)
	assert.InDelta(t, 0.5, hist[2], 1e-12)
	assert.InDelta(t, 0.25, hist[9], 1e-12)

	sum := 0.0
	for _, v := range hist {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)

	assert.Empty(t, CodeHistogram(nil))
}

func TestDescribe(t *testing.T) {
	m := NewMoments()

	s := m.Describe([]float64{1, 2, 3, 4})
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), s.StdDev, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)

	single := m.Describe([]float64{7})
	assert.Equal(t, 7.0, single.Mean)
	assert.True(t, math.IsNaN(single.StdDev))

	empty := m.Describe(nil)
	assert.True(t, math.IsNaN(empty.Mean))
}

func TestMeanAndContrast(t *testing.T) {
	mean, contrast := NewMoments().MeanAndContrast([]uint8{0, 0, 255, 255})
	assert.InDelta(t, 127.5, mean, 1e-12)
	assert.InDelta(t, 127.5, contrast, 1e-12)
}

func TestCorrelationMatrix(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 6, 8, 10}
	z := []float64{5, 4, 3, 2, 1}
	flat := []float64{3, 3, 3, 3, 3}

	corr, err := NewCorrelation().Matrix([][]float64{x, y, z, flat})
	require.NoError(t, err)

	r, c := corr.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 4, c)
	assert.InDelta(t, 1.0, corr.At(0, 0), 1e-12)
	assert.InDelta(t, 1.0, corr.At(0, 1), 1e-12)
	assert.InDelta(t, -1.0, corr.At(0, 2), 1e-12)
	assert.True(t, math.IsNaN(corr.At(3, 3)))
	assert.True(t, math.IsNaN(corr.At(0, 3)))
}

func TestCorrelationMatrixErrors(t *testing.T) {
	_, err := NewCorrelation().Matrix(nil)
	assert.Error(t, err)

	_, err = NewCorrelation().Matrix([][]float64{{1, 2}, {1}})
	assert.Error(t, err)
}
