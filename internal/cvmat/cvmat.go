// Package cvmat moves 8-bit grayscale pixels between Go images and OpenCV
// matrices.
package cvmat

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// FromGray copies img into a new single channel Mat. The caller owns the Mat
// and must Close it.
func FromGray(img *image.Gray) (gocv.Mat, error) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return gocv.NewMat(), fmt.Errorf("empty image")
	}

	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC1)
	data, err := mat.DataPtrUint8()
	if err != nil {
		mat.Close()
		return gocv.NewMat(), fmt.Errorf("failed to access Mat data: %w", err)
	}

	for y := 0; y < height; y++ {
		start := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(data[y*width:(y+1)*width], img.Pix[start:start+width])
	}
	return mat, nil
}

// ToGray copies a single channel 8-bit Mat into an image with origin (0, 0)
func ToGray(mat gocv.Mat) (*image.Gray, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("empty Mat")
	}
	if mat.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("unsupported Mat type %v, want CV_8UC1", mat.Type())
	}

	width, height := mat.Cols(), mat.Rows()
	out := image.NewGray(image.Rect(0, 0, width, height))
	copy(out.Pix, mat.ToBytes())
	return out, nil
}

// Apply runs op on the Mat form of img and returns the result as an image
func Apply(img *image.Gray, op func(src gocv.Mat, dst *gocv.Mat) error) (*image.Gray, error) {
	src, err := FromGray(img)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	if err := op(src, &dst); err != nil {
		return nil, err
	}
	return ToGray(dst)
}

// DecodeGray decodes an encoded image as 8-bit intensity. Alpha is ignored
// and colour images use the BT.601 luma weights of OpenCV.
func DecodeGray(data []byte) (*image.Gray, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadGrayScale)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("failed to decode image: unsupported or corrupt data")
	}
	return ToGray(mat)
}
