// Package windowing provides tapering windows applied to images before a
// Fourier transform. Windows are separable: the 2-D weight of a pixel is the
// product of its row and column coefficients.
package windowing

import (
	"fmt"
	"math"
	"strings"
)

// Type names a window function
type Type string

const (
	Rectangular Type = "rectangular"
	Hann        Type = "hann"
	Hamming     Type = "hamming"
	Blackman    Type = "blackman"
	Tukey       Type = "tukey"
)

// DefaultTukeyAlpha is the tapered fraction of a Tukey window
const DefaultTukeyAlpha = 0.5

// ParseType resolves a window name. The empty name is Rectangular.
func ParseType(name string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(name))); t {
	case "":
		return Rectangular, nil
	case Rectangular, Hann, Hamming, Blackman, Tukey:
		return t, nil
	default:
		return "", fmt.Errorf("unknown window %q", name)
	}
}

// Window holds the symmetric coefficients of one window
type Window struct {
	typ          Type
	coefficients []float64
}

// New creates a symmetric window of the given size
func New(t Type, size int) (*Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", size)
	}

	w := &Window{typ: t, coefficients: make([]float64, size)}
	switch t {
	case Rectangular, "":
		w.typ = Rectangular
		for i := range w.coefficients {
			w.coefficients[i] = 1
		}
	case Hann:
		w.cosineSum(0.5, 0.5, 0)
	case Hamming:
		w.cosineSum(0.54, 0.46, 0)
	case Blackman:
		w.cosineSum(0.42, 0.5, 0.08)
	case Tukey:
		w.tukey(DefaultTukeyAlpha)
	default:
		return nil, fmt.Errorf("unknown window %q", t)
	}
	return w, nil
}

// cosineSum fills a0 - a1·cos(θ) + a2·cos(2θ) with θ spanning [0, 2π]
func (w *Window) cosineSum(a0, a1, a2 float64) {
	n := len(w.coefficients)
	if n == 1 {
		w.coefficients[0] = 1
		return
	}
	for i := range w.coefficients {
		arg := 2 * math.Pi * float64(i) / float64(n-1)
		w.coefficients[i] = a0 - a1*math.Cos(arg) + a2*math.Cos(2*arg)
	}
}

// tukey is flat in the middle with cosine tapers covering alpha of the span
func (w *Window) tukey(alpha float64) {
	n := len(w.coefficients)
	taper := int(alpha * float64(n) / 2)
	for i := range w.coefficients {
		switch {
		case i < taper:
			w.coefficients[i] = 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(taper)))
		case i >= n-taper:
			w.coefficients[i] = 0.5 * (1 - math.Cos(math.Pi*float64(n-1-i)/float64(taper)))
		default:
			w.coefficients[i] = 1
		}
	}
}

// Coefficients returns a copy of the window coefficients
func (w *Window) Coefficients() []float64 {
	out := make([]float64, len(w.coefficients))
	copy(out, w.coefficients)
	return out
}

// Size returns the window length
func (w *Window) Size() int {
	return len(w.coefficients)
}

// Type returns the window type
func (w *Window) Type() Type {
	return w.typ
}

// Apply2D weights a row-major grid by the outer product of a row window and
// a column window of type t. Rectangular returns the grid unchanged.
func Apply2D(grid [][]float64, t Type) ([][]float64, error) {
	if t == Rectangular || t == "" || len(grid) == 0 || len(grid[0]) == 0 {
		return grid, nil
	}

	rows, err := New(t, len(grid))
	if err != nil {
		return nil, err
	}
	cols, err := New(t, len(grid[0]))
	if err != nil {
		return nil, err
	}

	out := make([][]float64, len(grid))
	for y, row := range grid {
		if len(row) != cols.Size() {
			return nil, fmt.Errorf("ragged grid: row %d has %d columns, want %d", y, len(row), cols.Size())
		}
		wy := rows.coefficients[y]
		out[y] = make([]float64, len(row))
		for x, v := range row {
			out[y][x] = v * wy * cols.coefficients[x]
		}
	}
	return out, nil
}
