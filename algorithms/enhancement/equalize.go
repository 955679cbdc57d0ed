package enhancement

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/RyanBlaney/specimen/internal/cvmat"
)

// Equalizer applies global histogram equalisation to 8-bit images
//
// References:
// - Gonzalez, R.C., Woods, R.E. (2008). "Digital Image Processing", 3.3.1
//
// The lowest occupied intensity maps to 0 and the brightest to 255. A
// constant image is returned unchanged.
type Equalizer struct{}

// NewEqualizer creates a histogram equaliser
func NewEqualizer() *Equalizer {
	return &Equalizer{}
}

// Apply returns the equalised copy of img
func (e *Equalizer) Apply(img *image.Gray) (*image.Gray, error) {
	if img.Bounds().Empty() {
		return image.NewGray(image.Rect(0, 0, 0, 0)), nil
	}

	out, err := cvmat.Apply(img, func(src gocv.Mat, dst *gocv.Mat) error {
		gocv.EqualizeHist(src, dst)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("equalize: %w", err)
	}
	return out, nil
}
