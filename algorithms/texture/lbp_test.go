package texture

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grayFrom(rows [][]uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, len(rows[0]), len(rows)))
	for y, row := range rows {
		for x, v := range row {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestLBPOffsets(t *testing.T) {
	l := NewLBPDefault()

	assert.Equal(t, 0.0, l.rowOffsets[0])
	assert.Equal(t, 1.0, l.colOffsets[0])
	assert.Equal(t, -1.0, l.rowOffsets[2])
	assert.Equal(t, 0.0, l.colOffsets[2])
	assert.Equal(t, -0.70711, l.rowOffsets[1])
	assert.Equal(t, 0.70711, l.colOffsets[1])
}

func TestLBPBrightCenter(t *testing.T) {
	img := grayFrom([][]uint8{
		{0, 0, 0},
		{0, 100, 0},
		{0, 0, 0},
	})

	l := NewLBPDefault()
	codes := l.Codes(img)
	require.Len(t, codes, 9)

	// every neighbour of the centre is darker
	assert.Equal(t, 0, codes[4])
	for i, c := range codes {
		if i != 4 {
			assert.Equal(t, 8, c, "pixel %d", i)
		}
	}

	result := l.Compute(img)
	require.Len(t, result.Histogram, 9)
	assert.InDelta(t, 1.0/9, result.UniformRatio, 1e-12)
	assert.InDelta(t, 8.0/9, result.DominantBinRatio, 1e-12)
}

func TestLBPNonUniformPattern(t *testing.T) {
	// single pixel wide vertical stripes
	rows := make([][]uint8, 5)
	for y := range rows {
		rows[y] = []uint8{255, 0, 255, 0, 255}
	}

	codes := NewLBPDefault().Codes(grayFrom(rows))
	assert.Equal(t, 9, codes[2*5+2])
}

func TestLBPConstantImage(t *testing.T) {
	rows := make([][]uint8, 6)
	for y := range rows {
		rows[y] = make([]uint8, 6)
	}

	result := NewLBPDefault().Compute(grayFrom(rows))

	// all pixels share the all-ones pattern, which lands in the last bin
	require.Len(t, result.Histogram, 9)
	assert.Equal(t, 1.0, result.Histogram[8])
	assert.Equal(t, 0.0, result.UniformRatio)
	assert.Equal(t, 1.0, result.DominantBinRatio)

	// entropy is measured over the distinct values of hist+epsilon
	want := -(8.0/9*math.Log2(8.0/9) + 1.0/9*math.Log2(1.0/9))
	assert.InDelta(t, want, result.Entropy, 1e-12)
}

func TestLBPHistogramProperties(t *testing.T) {
	rows := make([][]uint8, 16)
	for y := range rows {
		rows[y] = make([]uint8, 16)
		for x := range rows[y] {
			rows[y][x] = uint8((x*37 + y*91 + x*y*13) % 256)
		}
	}

	l := NewLBPDefault()
	img := grayFrom(rows)
	result := l.Compute(img)

	last := result.Histogram[len(result.Histogram)-1]
	assert.InDelta(t, 1.0, result.UniformRatio+last, 1e-9)
	assert.Greater(t, result.DominantBinRatio, 0.0)
	assert.LessOrEqual(t, result.DominantBinRatio, 1.0)
	assert.GreaterOrEqual(t, result.Entropy, 0.0)

	for _, c := range l.Codes(img) {
		assert.GreaterOrEqual(t, c, 0)
		assert.LessOrEqual(t, c, 9)
	}
}

func TestLBPEmptyImage(t *testing.T) {
	result := NewLBPDefault().Compute(image.NewGray(image.Rect(0, 0, 0, 0)))
	assert.Empty(t, result.Histogram)
	assert.Equal(t, 0.0, result.DominantBinRatio)
}
