package enhancement

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/RyanBlaney/specimen/internal/cvmat"
)

// MinMaxNormalizer linearly stretches intensities onto [Alpha, Beta]
type MinMaxNormalizer struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// NewMinMaxNormalizer creates a normaliser onto the full 8-bit range
func NewMinMaxNormalizer() *MinMaxNormalizer {
	return &MinMaxNormalizer{Alpha: 0, Beta: 255}
}

// Apply returns the normalised copy of img. A constant image maps to Alpha.
func (n *MinMaxNormalizer) Apply(img *image.Gray) (*image.Gray, error) {
	if img.Bounds().Empty() {
		return image.NewGray(image.Rect(0, 0, 0, 0)), nil
	}

	out, err := cvmat.Apply(img, func(src gocv.Mat, dst *gocv.Mat) error {
		gocv.Normalize(src, dst, n.Alpha, n.Beta, gocv.NormMinMax)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	return out, nil
}
