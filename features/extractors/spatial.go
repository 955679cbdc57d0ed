package extractors

import (
	"fmt"
	"image"

	"github.com/RyanBlaney/specimen/algorithms/edges"
	"github.com/RyanBlaney/specimen/algorithms/stats"
	"github.com/RyanBlaney/specimen/features"
	"github.com/RyanBlaney/specimen/features/config"
	"github.com/RyanBlaney/specimen/logging"
)

// SpatialExtractor measures global intensity statistics and edge density
type SpatialExtractor struct {
	logger logging.Logger

	moments *stats.Moments
	entropy *stats.Entropy
	canny   *edges.Canny
}

// NewSpatialExtractor creates a new spatial feature extractor
func NewSpatialExtractor(cfg *config.SpatialConfig) *SpatialExtractor {
	if cfg == nil {
		cfg = &config.DefaultExtractionConfig().Spatial
	}
	return &SpatialExtractor{
		logger: logging.WithFields(logging.Fields{
			"component":  "spatial_feature_extractor",
			"canny_low":  cfg.CannyLow,
			"canny_high": cfg.CannyHigh,
		}),
		moments: stats.NewMoments(),
		entropy: stats.NewEntropy(),
		canny:   edges.NewCanny(float32(cfg.CannyLow), float32(cfg.CannyHigh)),
	}
}

// GetName implements FeatureExtractor
func (s *SpatialExtractor) GetName() string {
	return string(KindSpatial)
}

// GetSchema implements FeatureExtractor
func (s *SpatialExtractor) GetSchema() features.Schema[features.SpatialRecord] {
	return features.SpatialSchema
}

// Extract implements FeatureExtractor
func (s *SpatialExtractor) Extract(key features.Key, img *image.Gray) (features.SpatialRecord, error) {
	pixels := grayPixels(img)
	mean, contrast := s.moments.MeanAndContrast(pixels)

	edgeMap, err := s.canny.Detect(img)
	if err != nil {
		return features.SpatialRecord{}, fmt.Errorf("edge detection failed: %w", err)
	}

	s.logger.Debug("Spatial features computed", logging.Fields{
		"image":      key.String(),
		"pixels":     len(pixels),
		"edge_count": edgeMap.Count,
	})

	return features.SpatialRecord{
		Key: key,
		Spatial: features.Spatial{
			MeanIntensity: mean,
			Contrast:      contrast,
			Entropy:       s.entropy.IntensityEntropy(pixels),
			EdgeDensity:   edgeMap.Density(),
		},
	}, nil
}

// grayPixels returns the pixels of img in row-major order without padding
func grayPixels(img *image.Gray) []uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if img.Stride == w && len(img.Pix) == w*h {
		return img.Pix
	}

	pixels := make([]uint8, 0, w*h)
	for y := 0; y < h; y++ {
		pixels = append(pixels, img.Pix[y*img.Stride:y*img.Stride+w]...)
	}
	return pixels
}

// grayGrid returns img as a rows×cols float matrix
func grayGrid(img *image.Gray) [][]float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	grid := make([][]float64, h)
	for y := 0; y < h; y++ {
		row := make([]float64, w)
		for x, v := range img.Pix[y*img.Stride : y*img.Stride+w] {
			row[x] = float64(v)
		}
		grid[y] = row
	}
	return grid
}
