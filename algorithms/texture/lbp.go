package texture

import (
	"image"
	"math"

	"github.com/RyanBlaney/specimen/algorithms/common"
	"github.com/RyanBlaney/specimen/algorithms/stats"
)

// LBPParams contains parameters for local binary pattern computation
type LBPParams struct {
	Radius float64 `json:"radius"` // Sampling circle radius in pixels
	Points int     `json:"points"` // Number of circularly symmetric neighbours

	// Added to every histogram bin before entropy is measured
	EntropyEpsilon float64 `json:"entropy_epsilon"`
}

// LBPResult contains the code histogram and the texture descriptors derived from it
type LBPResult struct {
	Histogram []float64 `json:"histogram"` // density over codes 0..max observed code

	UniformRatio     float64 `json:"uniform_ratio"`      // mass outside the last bin
	Entropy          float64 `json:"entropy"`            // bits
	DominantBinRatio float64 `json:"dominant_bin_ratio"` // max(hist) / Σ hist
}

// LBP implements rotation-invariant uniform local binary patterns
//
// References:
// - Ojala, T., Pietikäinen, M., Mäenpää, T. (2002). "Multiresolution Gray-Scale
//   and Rotation Invariant Texture Classification with Local Binary Patterns"
//
// Each pixel is compared with Points neighbours on a circle of Radius, sampled
// with bilinear interpolation (neighbours outside the image read as 0). A
// pattern with at most two bit transitions maps to its number of set bits
// (0..Points); every other pattern maps to Points+1. Transitions are counted
// between consecutive neighbours only, without wrapping from last to first.
type LBP struct {
	params LBPParams

	// neighbour offsets, rounded to 5 decimals
	rowOffsets []float64
	colOffsets []float64
	entropy    *stats.Entropy
}

// NewLBP creates a uniform LBP operator with custom parameters
func NewLBP(params LBPParams) *LBP {
	if params.Radius <= 0 {
		params.Radius = 1
	}
	if params.Points <= 0 {
		params.Points = int(8 * params.Radius)
	}
	if params.EntropyEpsilon < 0 {
		params.EntropyEpsilon = 0
	}

	l := &LBP{
		params:     params,
		rowOffsets: make([]float64, params.Points),
		colOffsets: make([]float64, params.Points),
		entropy:    stats.NewEntropy(),
	}

	p := float64(params.Points)
	for i := 0; i < params.Points; i++ {
		angle := 2 * math.Pi * float64(i) / p
		l.rowOffsets[i] = common.RoundTo(-params.Radius*math.Sin(angle), 5)
		l.colOffsets[i] = common.RoundTo(params.Radius*math.Cos(angle), 5)
	}

	return l
}

// NewLBPDefault creates the radius 1, 8 point operator
func NewLBPDefault() *LBP {
	return NewLBP(LBPParams{
		Radius:         1,
		Points:         8,
		EntropyEpsilon: 1e-12,
	})
}

// Params returns the operator parameters
func (l *LBP) Params() LBPParams {
	return l.params
}

// Codes returns the uniform LBP code of every pixel in row-major order
func (l *LBP) Codes(img *image.Gray) []int {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return []int{}
	}

	grid := common.NewGrid(height, width)
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width]
		for x, v := range row {
			grid[y][x] = float64(v)
		}
	}

	points := l.params.Points
	bits := make([]int, points)
	codes := make([]int, width*height)

	for r := 0; r < height; r++ {
		for c := 0; c < width; c++ {
			center := grid[r][c]
			for i := 0; i < points; i++ {
				sample := common.BilinearConstant(grid, float64(r)+l.rowOffsets[i], float64(c)+l.colOffsets[i], 0)
				if sample-center >= 0 {
					bits[i] = 1
				} else {
					bits[i] = 0
				}
			}

			changes := 0
			for i := 0; i < points-1; i++ {
				if bits[i] != bits[i+1] {
					changes++
				}
			}

			code := points + 1
			if changes <= 2 {
				code = 0
				for _, b := range bits {
					code += b
				}
			}
			codes[r*width+c] = code
		}
	}

	return codes
}

// Compute derives the code histogram and texture descriptors of an image
func (l *LBP) Compute(img *image.Gray) *LBPResult {
	hist := stats.CodeHistogram(l.Codes(img))
	if len(hist) == 0 {
		return &LBPResult{Histogram: hist}
	}

	total := 0.0
	for _, v := range hist {
		total += v
	}

	uniform := 0.0
	for _, v := range hist[:len(hist)-1] {
		uniform += v
	}

	shifted := make([]float64, len(hist))
	for i, v := range hist {
		shifted[i] = v + l.params.EntropyEpsilon
	}

	result := &LBPResult{
		Histogram:    hist,
		UniformRatio: uniform,
		Entropy:      l.entropy.ValueEntropy(shifted),
	}
	if total > 0 {
		result.DominantBinRatio = hist[common.ArgMax(hist)] / total
	}

	return result
}
