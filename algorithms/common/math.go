package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical functions used across algorithms using gonum for robustness

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// PopStdDev calculates the population standard deviation (divisor n)
func PopStdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.PopStdDev(data, nil)
}

// StandardDeviation calculates the sample standard deviation (divisor n-1).
// A single observation yields NaN, matching the usual dataframe convention.
func StandardDeviation(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	return stat.StdDev(data, nil)
}

// MinMax returns the smallest and largest values of data
func MinMax(data []float64) (min, max float64) {
	if len(data) == 0 {
		return math.NaN(), math.NaN()
	}
	return floats.Min(data), floats.Max(data)
}

// SumSquares returns Σ v² over data
func SumSquares(data []float64) float64 {
	return floats.Dot(data, data)
}

// ArgMax returns the index of the first maximum value, or -1 for empty input
func ArgMax(data []float64) int {
	if len(data) == 0 {
		return -1
	}
	return floats.MaxIdx(data)
}

// Flatten returns the rows of grid concatenated in row-major order
func Flatten(grid [][]float64) []float64 {
	n := 0
	for _, row := range grid {
		n += len(row)
	}
	out := make([]float64, 0, n)
	for _, row := range grid {
		out = append(out, row...)
	}
	return out
}

// NewGrid allocates a rows×cols matrix of zeros
func NewGrid(rows, cols int) [][]float64 {
	backing := make([]float64, rows*cols)
	grid := make([][]float64, rows)
	for r := range grid {
		grid[r] = backing[r*cols : (r+1)*cols : (r+1)*cols]
	}
	return grid
}

// Standardize scales data to zero mean and unit population variance.
// Constant data is only centred, since its scale is zero.
func Standardize(data []float64) []float64 {
	if len(data) == 0 {
		return data
	}

	mean, std := stat.PopMeanStdDev(data, nil)
	if std < 1e-12 {
		std = 1
	}

	out := make([]float64, len(data))
	for i, val := range data {
		out[i] = (val - mean) / std
	}
	return out
}

// MinMaxScale maps data linearly onto [lo, hi]; constant data maps to lo
func MinMaxScale(data []float64, lo, hi float64) []float64 {
	if len(data) == 0 {
		return data
	}

	min, max := MinMax(data)
	out := make([]float64, len(data))
	if math.Abs(max-min) < 1e-12 {
		for i := range out {
			out[i] = lo
		}
		return out
	}

	scale := (hi - lo) / (max - min)
	for i, val := range data {
		out[i] = (val-min)*scale + lo
	}
	return out
}

// Clamp limits value to [min, max]
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// RoundTo rounds value to the given number of decimal places (half away from zero)
func RoundTo(value float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(value*p) / p
}
