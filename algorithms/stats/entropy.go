package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// EntropyParams contains parameters for entropy calculation
type EntropyParams struct {
	BaseLog float64 `json:"base_log"` // Base for logarithm (2, e, 10)
}

// Entropy implements Shannon entropy measures for image descriptors
//
// References:
// - Shannon, C.E. (1948). "A Mathematical Theory of Communication"
// - Cover, T.M., Thomas, J.A. (2006). "Elements of Information Theory"
//
// Two views are offered:
//   - ValueEntropy treats the input as a sample and measures the entropy of the
//     distribution of its distinct values. For an 8-bit image this is the
//     entropy of the intensity histogram.
//   - ProbabilityEntropy treats the input as a probability vector.
//
// Entropy is non-negative and zero exactly when a single value is observed.
type Entropy struct {
	params EntropyParams
}

// NewEntropy creates an entropy analyzer measuring in bits
func NewEntropy() *Entropy {
	return &Entropy{
		params: EntropyParams{
			BaseLog: 2.0, // Information theory standard
		},
	}
}

// NewEntropyWithParams creates an entropy analyzer with custom parameters
func NewEntropyWithParams(params EntropyParams) *Entropy {
	if params.BaseLog <= 0 || params.BaseLog == 1 {
		params.BaseLog = 2.0
	}
	return &Entropy{params: params}
}

// ValueEntropy returns -Σ p·log(p) where p ranges over the relative frequencies
// of the distinct values in data. Values are compared exactly.
func (e *Entropy) ValueEntropy(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}

	sorted := slices.Clone(data)
	slices.Sort(sorted)

	n := float64(len(sorted))
	probabilities := make([]float64, 0, 16)
	run := 1
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && sorted[i] == sorted[i-1] {
			run++
			continue
		}
		probabilities = append(probabilities, float64(run)/n)
		run = 1
	}

	return e.ProbabilityEntropy(probabilities)
}

// IntensityEntropy is ValueEntropy specialised for 8-bit pixel data
func (e *Entropy) IntensityEntropy(pixels []uint8) float64 {
	if len(pixels) == 0 {
		return 0
	}

	var counts [256]int
	for _, p := range pixels {
		counts[p]++
	}

	n := float64(len(pixels))
	probabilities := make([]float64, 0, 256)
	for _, c := range counts {
		if c > 0 {
			probabilities = append(probabilities, float64(c)/n)
		}
	}

	return e.ProbabilityEntropy(probabilities)
}

// ProbabilityEntropy returns the entropy of a probability vector in the
// configured base. Zero entries contribute nothing.
func (e *Entropy) ProbabilityEntropy(p []float64) float64 {
	// gonum uses the natural logarithm
	h := stat.Entropy(p) / math.Log(e.params.BaseLog)
	if h < 0 {
		// a single outcome can round to -0
		return 0
	}
	return h
}
