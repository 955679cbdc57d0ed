package corpus

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/specimen/internal/cvmat"
)

// JPEGQuality is the encoder quality used when writing JPEG files
const JPEGQuality = 95

// Decode reads a JPEG or PNG image
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// DecodeGray reads an image as single channel 8-bit intensity through
// OpenCV, which ignores any alpha channel
func DecodeGray(r io.Reader) (*image.Gray, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return cvmat.DecodeGray(data)
}

// Fixed-point BT.601 luma weights with a 14 bit shift, as used by OpenCV
const (
	lumaShift = 14
	lumaR     = 4899
	lumaG     = 9617
	lumaB     = 1868
)

// luma converts straight (non-premultiplied) RGB to 8-bit intensity
func luma(r, g, b uint8) uint8 {
	return uint8((int(r)*lumaR + int(g)*lumaG + int(b)*lumaB + 1<<(lumaShift-1)) >> lumaShift)
}

// ToGray converts img to an 8-bit grayscale image with origin (0, 0).
// YCbCr images (decoded JPEGs) contribute their luma plane unchanged; other
// colour models are un-premultiplied and go through the BT.601 luma weights,
// so alpha does not darken a pixel.
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < b.Dy(); y++ {
			start := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], src.Pix[start:start+b.Dx()])
		}
	case *image.YCbCr:
		for y := 0; y < b.Dy(); y++ {
			start := src.YOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], src.Y[start:start+b.Dx()])
		}
	case *image.NRGBA:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				c := src.NRGBAAt(b.Min.X+x, b.Min.Y+y)
				out.Pix[y*out.Stride+x] = luma(c.R, c.G, c.B)
			}
		}
	default:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				out.Pix[y*out.Stride+x] = luma(c.R, c.G, c.B)
			}
		}
	}

	return out
}

// ToRGBA copies img into an RGBA image with origin (0, 0)
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Encode writes img in the format implied by the file name extension
func Encode(w io.Writer, name string, img image.Image) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return png.Encode(w, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	default:
		return fmt.Errorf("unsupported image extension %q", filepath.Ext(name))
	}
}

// Save writes img to path, creating parent directories as needed and
// overwriting any existing file
func Save(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := Encode(f, path, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

// Load opens and decodes one corpus image
func Load(c Corpus, species, name string) (image.Image, error) {
	rc, err := c.Open(species, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	img, _, err := Decode(rc)
	return img, err
}

// LoadGray opens and decodes one corpus image as grayscale
func LoadGray(c Corpus, species, name string) (*image.Gray, error) {
	rc, err := c.Open(species, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return DecodeGray(rc)
}
