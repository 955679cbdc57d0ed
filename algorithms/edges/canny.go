package edges

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/RyanBlaney/specimen/internal/cvmat"
)

// CannyParams contains the hysteresis thresholds of the detector
type CannyParams struct {
	LowThreshold  float32 `json:"low_threshold"`  // weak edge floor on the gradient
	HighThreshold float32 `json:"high_threshold"` // strong edge floor on the gradient
}

// EdgeMap is a binary edge image
type EdgeMap struct {
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Edges  *image.Gray `json:"-"` // 255 on edges, 0 elsewhere
	Count  int         `json:"count"`
}

// Density returns the fraction of pixels marked as edges
func (e *EdgeMap) Density() float64 {
	total := e.Width * e.Height
	if total == 0 {
		return 0
	}
	return float64(e.Count) / float64(total)
}

// IsEdge reports whether the pixel at (x, y) is an edge
func (e *EdgeMap) IsEdge(x, y int) bool {
	return e.Edges != nil && e.Edges.GrayAt(x, y).Y != 0
}

// Canny wraps the OpenCV Canny detector
//
// References:
// - Canny, J. (1986). "A Computational Approach to Edge Detection"
//
// Gradients come from a 3×3 Sobel aperture combined with the L1 norm.
// Pixels above HighThreshold seed edges that grow through 8-connected
// pixels above LowThreshold.
type Canny struct {
	params CannyParams
}

// NewCanny creates a detector with the given hysteresis thresholds.
// Swapped thresholds are reordered.
func NewCanny(low, high float32) *Canny {
	if low > high {
		low, high = high, low
	}
	return &Canny{
		params: CannyParams{
			LowThreshold:  low,
			HighThreshold: high,
		},
	}
}

// NewCannyDefault creates a detector with thresholds 100/200
func NewCannyDefault() *Canny {
	return NewCanny(100, 200)
}

// Params returns the detector thresholds
func (c *Canny) Params() CannyParams {
	return c.params
}

// Detect computes the edge map of a grayscale image
func (c *Canny) Detect(img *image.Gray) (*EdgeMap, error) {
	bounds := img.Bounds()
	result := &EdgeMap{Width: bounds.Dx(), Height: bounds.Dy()}
	if bounds.Empty() {
		return result, nil
	}

	src, err := cvmat.FromGray(img)
	if err != nil {
		return nil, fmt.Errorf("canny: %w", err)
	}
	defer src.Close()

	edges := gocv.NewMat()
	defer edges.Close()

	gocv.Canny(src, &edges, c.params.LowThreshold, c.params.HighThreshold)

	result.Count = gocv.CountNonZero(edges)
	result.Edges, err = cvmat.ToGray(edges)
	if err != nil {
		return nil, fmt.Errorf("canny: %w", err)
	}
	return result, nil
}

// EdgeDensity returns the fraction of edge pixels in img
func (c *Canny) EdgeDensity(img *image.Gray) (float64, error) {
	edges, err := c.Detect(img)
	if err != nil {
		return 0, err
	}
	return edges.Density(), nil
}
