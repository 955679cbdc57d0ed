package stats

import (
	"math"

	"github.com/RyanBlaney/specimen/algorithms/common"
)

// Summary contains the descriptive statistics reported per group
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"` // sample standard deviation (n-1)
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Moments computes first and second moment summaries of a sample
type Moments struct{}

// NewMoments creates a new moment analyzer
func NewMoments() *Moments {
	return &Moments{}
}

// Describe summarises data. Empty input yields NaN statistics; a single
// observation has an undefined (NaN) sample standard deviation.
func (m *Moments) Describe(data []float64) Summary {
	if len(data) == 0 {
		nan := math.NaN()
		return Summary{Mean: nan, StdDev: nan, Min: nan, Max: nan}
	}

	min, max := common.MinMax(data)
	return Summary{
		Count:  len(data),
		Mean:   common.Mean(data),
		StdDev: common.StandardDeviation(data),
		Min:    min,
		Max:    max,
	}
}

// MeanAndContrast returns the mean and population standard deviation of
// 8-bit pixel data
func (m *Moments) MeanAndContrast(pixels []uint8) (mean, contrast float64) {
	if len(pixels) == 0 {
		return 0, 0
	}

	values := make([]float64, len(pixels))
	for i, p := range pixels {
		values[i] = float64(p)
	}
	return common.Mean(values), common.PopStdDev(values)
}
