package enhancement

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/RyanBlaney/specimen/internal/cvmat"
)

// CLAHEParams contains parameters for contrast limited adaptive equalisation
type CLAHEParams struct {
	ClipLimit float64 `json:"clip_limit"` // relative to a uniform histogram
	TilesX    int     `json:"tiles_x"`
	TilesY    int     `json:"tiles_y"`
}

// CLAHE applies OpenCV contrast limited adaptive histogram equalisation
//
// References:
// - Zuiderveld, K. (1994). "Contrast Limited Adaptive Histogram Equalization",
//   Graphics Gems IV
type CLAHE struct {
	params CLAHEParams
}

// NewCLAHE creates a CLAHE operator with custom parameters
func NewCLAHE(params CLAHEParams) *CLAHE {
	if params.ClipLimit <= 0 {
		params.ClipLimit = 2.0
	}
	if params.TilesX <= 0 {
		params.TilesX = 8
	}
	if params.TilesY <= 0 {
		params.TilesY = 8
	}
	return &CLAHE{params: params}
}

// NewCLAHEDefault creates a CLAHE operator with clip limit 2 and 8×8 tiles
func NewCLAHEDefault() *CLAHE {
	return NewCLAHE(CLAHEParams{ClipLimit: 2.0, TilesX: 8, TilesY: 8})
}

// Params returns the operator parameters
func (c *CLAHE) Params() CLAHEParams {
	return c.params
}

// Apply returns the equalised copy of img
func (c *CLAHE) Apply(img *image.Gray) (*image.Gray, error) {
	if img.Bounds().Empty() {
		return image.NewGray(image.Rect(0, 0, 0, 0)), nil
	}

	out, err := cvmat.Apply(img, func(src gocv.Mat, dst *gocv.Mat) error {
		clahe := gocv.NewCLAHEWithParams(c.params.ClipLimit, image.Point{X: c.params.TilesX, Y: c.params.TilesY})
		defer clahe.Close()

		clahe.Apply(src, dst)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("clahe: %w", err)
	}
	return out, nil
}
