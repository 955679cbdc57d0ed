package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT provides two-dimensional Fast Fourier Transform functionality for
// image-sized real matrices
type FFT struct {
	// No state needed
}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute2D computes the forward 2-D FFT of a real rows×cols matrix using
// mjibson/go-dsp. Non-power-of-2 sizes are handled (Bluestein).
func (f *FFT) Compute2D(x [][]float64) [][]complex128 {
	if len(x) == 0 || len(x[0]) == 0 {
		return [][]complex128{}
	}

	return fft.FFT2Real(x)
}

// Shift2D moves the zero-frequency component to the centre of the spectrum.
// Element (r, c) of the input lands at ((r + rows/2) % rows, (c + cols/2) % cols),
// for both even and odd sizes, so DC sits at (rows/2, cols/2).
func (f *FFT) Shift2D(spectrum [][]complex128) [][]complex128 {
	rows := len(spectrum)
	if rows == 0 {
		return [][]complex128{}
	}
	cols := len(spectrum[0])

	shifted := make([][]complex128, rows)
	for r := range shifted {
		shifted[r] = make([]complex128, cols)
	}

	rowOffset, colOffset := rows/2, cols/2
	for r := 0; r < rows; r++ {
		dr := (r + rowOffset) % rows
		for c := 0; c < cols; c++ {
			shifted[dr][(c+colOffset)%cols] = spectrum[r][c]
		}
	}

	return shifted
}

// Magnitude2D returns |X| element-wise
func (f *FFT) Magnitude2D(spectrum [][]complex128) [][]float64 {
	magnitude := make([][]float64, len(spectrum))
	for r, row := range spectrum {
		magnitude[r] = make([]float64, len(row))
		for c, v := range row {
			magnitude[r][c] = cmplx.Abs(v)
		}
	}
	return magnitude
}

// CenteredMagnitude runs Compute2D, Shift2D and Magnitude2D in sequence
func (f *FFT) CenteredMagnitude(x [][]float64) [][]float64 {
	return f.Magnitude2D(f.Shift2D(f.Compute2D(x)))
}
