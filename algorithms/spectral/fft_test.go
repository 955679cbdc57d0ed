package spectral

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantGrid(rows, cols int, v float64) [][]float64 {
	grid := make([][]float64, rows)
	for r := range grid {
		grid[r] = make([]float64, cols)
		for c := range grid[r] {
			grid[r][c] = v
		}
	}
	return grid
}

func TestShift2DMovesOriginToCenter(t *testing.T) {
	for _, size := range [][2]int{{4, 4}, {5, 3}, {3, 6}} {
		rows, cols := size[0], size[1]
		spectrum := make([][]complex128, rows)
		for r := range spectrum {
			spectrum[r] = make([]complex128, cols)
		}
		spectrum[0][0] = 1

		shifted := NewFFT().Shift2D(spectrum)
		assert.Equal(t, complex(1, 0), shifted[rows/2][cols/2], "size %dx%d", rows, cols)
	}
}

func TestShift2DOddLength(t *testing.T) {
	// odd lengths put DC at index n/2
	spectrum := [][]complex128{{0, 1, 2, 3, 4}}
	shifted := NewFFT().Shift2D(spectrum)
	assert.Equal(t, []complex128{3, 4, 0, 1, 2}, shifted[0])
}

func TestCenteredMagnitudeConstantImage(t *testing.T) {
	rows, cols := 12, 10
	mag := NewFFT().CenteredMagnitude(constantGrid(rows, cols, 7))

	require.Len(t, mag, rows)
	dc := 7.0 * float64(rows*cols)
	assert.InDelta(t, dc, mag[rows/2][cols/2], 1e-6)

	for r := range mag {
		for c := range mag[r] {
			if r == rows/2 && c == cols/2 {
				continue
			}
			assert.InDelta(t, 0, mag[r][c], 1e-6)
		}
	}
}

func TestParsevalEnergy(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	rows, cols := 9, 16
	grid := constantGrid(rows, cols, 0)
	spatial := 0.0
	for r := range grid {
		for c := range grid[r] {
			grid[r][c] = float64(rng.Intn(256))
			spatial += grid[r][c] * grid[r][c]
		}
	}

	mag := NewFFT().CenteredMagnitude(grid)
	energy := NewPowerSpectrum().TotalEnergy(mag)
	assert.InEpsilon(t, spatial*float64(rows*cols), energy, 1e-9)
}

func TestCompute2DEmpty(t *testing.T) {
	assert.Empty(t, NewFFT().Compute2D(nil))
	assert.Empty(t, NewFFT().Shift2D(nil))
}

func TestRadialPartitionConstantImage(t *testing.T) {
	rows, cols := 32, 32
	mag := NewFFT().CenteredMagnitude(constantGrid(rows, cols, 100))
	result := NewRadialPartition(4).Compute(mag)

	assert.Equal(t, 16, result.CenterX)
	assert.Equal(t, 16, result.CenterY)
	assert.Equal(t, 4, result.Radius)

	total := NewPowerSpectrum().TotalEnergy(mag)
	assert.InEpsilon(t, total, result.LowEnergy, 1e-9)
	assert.InDelta(t, 0, result.HighEnergy, 1e-6)
	assert.Equal(t, 0.0, result.DominantFrequency)
}

func TestRadialPartitionPeakDistance(t *testing.T) {
	mag := constantGrid(8, 8, 0)
	mag[4][4] = 1
	mag[0][0] = 5 // corner peak

	result := NewRadialPartition(4).Compute(mag)
	assert.Equal(t, 0, result.PeakX)
	assert.Equal(t, 0, result.PeakY)
	assert.InDelta(t, 1.0, result.DominantFrequency, 1e-12)
	assert.InDelta(t, 25.0, result.HighEnergy, 1e-12)
	assert.InDelta(t, 1.0, result.LowEnergy, 1e-12)
}

func TestRadialPartitionFirstMaximumWins(t *testing.T) {
	mag := constantGrid(4, 4, 0)
	mag[0][1] = 2
	mag[3][3] = 2

	result := NewRadialPartition(4).Compute(mag)
	assert.Equal(t, 1, result.PeakX)
	assert.Equal(t, 0, result.PeakY)
	assert.InDelta(t, math.Sqrt(1+4)/math.Sqrt(8), result.DominantFrequency, 1e-12)
}

func TestRadialPartitionSinglePixel(t *testing.T) {
	result := NewRadialPartition(4).Compute([][]float64{{3}})
	assert.Equal(t, 9.0, result.LowEnergy)
	assert.Equal(t, 0.0, result.DominantFrequency)
}
