package preprocess

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/RyanBlaney/specimen/algorithms/enhancement"
	"github.com/RyanBlaney/specimen/algorithms/stats"
	"github.com/RyanBlaney/specimen/corpus"
)

// Reject reasons
const (
	ReasonUnreadable  = "Unreadable/Corrupted"
	ReasonLowVariance = "Almost blank (low variance)"
)

// RejectError drops an image from a stage's output
type RejectError struct {
	Reason string
}

func (e *RejectError) Error() string {
	return "rejected: " + e.Reason
}

func reject(format string, args ...any) error {
	return &RejectError{Reason: fmt.Sprintf(format, args...)}
}

// Transform processes one decoded image. Returning a *RejectError drops
// the image with a reason; any other error aborts the stage.
type Transform interface {
	Apply(img image.Image) (image.Image, error)
}

// TransformFunc adapts a function to Transform
type TransformFunc func(image.Image) (image.Image, error)

// Apply implements Transform
func (f TransformFunc) Apply(img image.Image) (image.Image, error) {
	return f(img)
}

// Validator rejects images that are too small or nearly uniform and passes
// the rest through unchanged
type Validator struct {
	MinWidth  int
	MinHeight int
	MinStdDev float64

	moments *stats.Moments
}

// NewValidator creates a new image validator
func NewValidator(minWidth, minHeight int, minStdDev float64) *Validator {
	return &Validator{
		MinWidth:  minWidth,
		MinHeight: minHeight,
		MinStdDev: minStdDev,
		moments:   stats.NewMoments(),
	}
}

// Apply implements Transform
func (v *Validator) Apply(img image.Image) (image.Image, error) {
	b := img.Bounds()
	if b.Dx() < v.MinWidth || b.Dy() < v.MinHeight {
		return nil, reject("Too small (%dx%d)", b.Dx(), b.Dy())
	}

	gray := corpus.ToGray(img)
	if _, std := v.moments.MeanAndContrast(gray.Pix); std < v.MinStdDev {
		return nil, reject(ReasonLowVariance)
	}
	return img, nil
}

// Cropper removes a fraction of rows from the bottom of an image
type Cropper struct {
	Ratio float64
}

// NewCropper creates a new bottom cropper
func NewCropper(ratio float64) *Cropper {
	return &Cropper{Ratio: ratio}
}

// Apply implements Transform. The kept height is truncated towards zero.
func (c *Cropper) Apply(img image.Image) (image.Image, error) {
	b := img.Bounds()
	keep := int(float64(b.Dy()) * (1 - c.Ratio))
	if keep <= 0 || b.Dx() == 0 {
		return nil, reject("Nothing left after crop (%dx%d)", b.Dx(), b.Dy())
	}

	rect := image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+keep)
	if sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(rect), nil
	}

	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out, nil
}

// Resizer scales images to a fixed size. Grayscale input stays grayscale.
type Resizer struct {
	Width  int
	Height int
	Scaler draw.Scaler
}

// NewResizer creates a bilinear resizer
func NewResizer(width, height int) *Resizer {
	return &Resizer{
		Width:  width,
		Height: height,
		Scaler: draw.BiLinear,
	}
}

// Apply implements Transform
func (r *Resizer) Apply(img image.Image) (image.Image, error) {
	if img.Bounds().Empty() {
		return nil, reject("Empty image")
	}

	rect := image.Rect(0, 0, r.Width, r.Height)
	var dst draw.Image
	if _, ok := img.(*image.Gray); ok {
		dst = image.NewGray(rect)
	} else {
		dst = image.NewRGBA(rect)
	}
	r.Scaler.Scale(dst, rect, img, img.Bounds(), draw.Src, nil)
	return dst, nil
}

// Grayscale converts images to 8-bit intensity
var Grayscale = TransformFunc(func(img image.Image) (image.Image, error) {
	return corpus.ToGray(img), nil
})

// Enhancer improves the contrast of grayscale images. Each step is optional
// and runs in order: global equalisation, CLAHE, min-max normalisation.
type Enhancer struct {
	equalizer  *enhancement.Equalizer
	clahe      *enhancement.CLAHE
	normalizer *enhancement.MinMaxNormalizer
}

// NewEnhancer creates an enhancer from the stage configuration
func NewEnhancer(cfg *Config) *Enhancer {
	e := &Enhancer{}
	if cfg.Equalize {
		e.equalizer = enhancement.NewEqualizer()
	}
	if cfg.CLAHE {
		e.clahe = enhancement.NewCLAHE(enhancement.CLAHEParams{
			ClipLimit: cfg.ClipLimit,
			TilesX:    cfg.TileGrid,
			TilesY:    cfg.TileGrid,
		})
	}
	if cfg.Normalize {
		e.normalizer = enhancement.NewMinMaxNormalizer()
	}
	return e
}

// Apply implements Transform
func (e *Enhancer) Apply(img image.Image) (image.Image, error) {
	gray := corpus.ToGray(img)
	var err error
	if e.equalizer != nil {
		if gray, err = e.equalizer.Apply(gray); err != nil {
			return nil, err
		}
	}
	if e.clahe != nil {
		if gray, err = e.clahe.Apply(gray); err != nil {
			return nil, err
		}
	}
	if e.normalizer != nil {
		if gray, err = e.normalizer.Apply(gray); err != nil {
			return nil, err
		}
	}
	return gray, nil
}
