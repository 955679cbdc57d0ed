// Package testimage builds synthetic images and corpora for tests.
package testimage

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// Gradient creates a diagonal black to white gradient
func Gradient(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) * 255 / (width + height))})
		}
	}
	return img
}

// Uniform creates an image of constant intensity
func Uniform(width, height int, value uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = value
	}
	return img
}

// Checker creates a checkerboard with square cells of the given size
func Checker(width, height, cell int, dark, light uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := dark
			if (x/cell+y/cell)%2 == 1 {
				v = light
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

// Colorful creates an RGBA image with independent channel ramps
func Colorful(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / max(width-1, 1)),
				G: uint8(y * 255 / max(height-1, 1)),
				B: uint8((x * y) % 256),
				A: 255,
			})
		}
	}
	return img
}

// PNG encodes img as PNG
func PNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// JPEG encodes img as a high quality JPEG
func JPEG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// Corrupt returns bytes that carry a JPEG marker but no decodable image
func Corrupt() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xE0, 'n', 'o', 't', ' ', 'a', 'n', ' ', 'i', 'm', 'a', 'g', 'e'}
}

// WriteFiles writes files (relative path to content) under root
func WriteFiles(t testing.TB, root string, files map[string][]byte) {
	t.Helper()
	for rel, data := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", path, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

// SampleCorpus writes species A with two JPEGs and one corrupt file, and
// species B with one PNG, returning the root directory
func SampleCorpus(t testing.TB) string {
	t.Helper()
	root := t.TempDir()
	WriteFiles(t, root, map[string][]byte{
		"A/a1.jpg":     JPEG(t, Gradient(48, 40)),
		"A/a2.JPG":     JPEG(t, Checker(40, 48, 4, 30, 220)),
		"A/broken.jpg": Corrupt(),
		"A/notes.txt":  []byte("ignored"),
		"B/b1.png":     PNG(t, Colorful(32, 32)),
		"README.md":    []byte("ignored"),
	})
	return root
}
