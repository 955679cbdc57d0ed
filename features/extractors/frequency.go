package extractors

import (
	"fmt"
	"image"

	"github.com/RyanBlaney/specimen/algorithms/spectral"
	"github.com/RyanBlaney/specimen/algorithms/windowing"
	"github.com/RyanBlaney/specimen/features"
	"github.com/RyanBlaney/specimen/features/config"
	"github.com/RyanBlaney/specimen/logging"
)

// FrequencyExtractor describes how image energy is spread over spatial
// frequencies
//
// The centred magnitude spectrum is split by a disc around DC into low and
// high frequency energy. The dominant frequency is the distance of the
// strongest spectral component from DC, normalised by the centre-to-corner
// distance, so 0 means DC dominates and 1 means a corner does.
//
// An optional window tapers the image borders before the transform.
type FrequencyExtractor struct {
	config *config.FrequencyConfig
	logger logging.Logger

	fft    *spectral.FFT
	power  *spectral.PowerSpectrum
	radial *spectral.RadialPartition
	window windowing.Type
}

// NewFrequencyExtractor creates a new frequency feature extractor. An unknown
// window name is an error.
func NewFrequencyExtractor(cfg *config.FrequencyConfig) (*FrequencyExtractor, error) {
	if cfg == nil {
		cfg = &config.DefaultExtractionConfig().Frequency
	}
	window, err := windowing.ParseType(cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("invalid frequency extractor config: %w", err)
	}

	return &FrequencyExtractor{
		config: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "frequency_feature_extractor",
			"window":    window,
		}),
		fft:    spectral.NewFFT(),
		power:  spectral.NewPowerSpectrum(),
		radial: spectral.NewRadialPartition(cfg.RadiusDivisor),
		window: window,
	}, nil
}

// GetName implements FeatureExtractor
func (f *FrequencyExtractor) GetName() string {
	return string(KindFrequency)
}

// GetSchema implements FeatureExtractor
func (f *FrequencyExtractor) GetSchema() features.Schema[features.FrequencyRecord] {
	return features.FrequencySchema
}

// Extract implements FeatureExtractor
func (f *FrequencyExtractor) Extract(key features.Key, img *image.Gray) (features.FrequencyRecord, error) {
	grid, err := windowing.Apply2D(grayGrid(img), f.window)
	if err != nil {
		return features.FrequencyRecord{}, fmt.Errorf("failed to apply %s window: %w", f.window, err)
	}
	magnitude := f.fft.CenteredMagnitude(grid)
	split := f.radial.Compute(magnitude)

	f.logger.Debug("Frequency features computed", logging.Fields{
		"image":    key.String(),
		"rows":     len(grid),
		"dominant": split.DominantFrequency,
	})

	return features.FrequencyRecord{
		Key: key,
		Frequency: features.Frequency{
			SpectralEnergy:    f.power.TotalEnergy(magnitude),
			LowFreqEnergy:     split.LowEnergy,
			HighFreqEnergy:    split.HighEnergy,
			HighLowRatio:      split.HighEnergy / (split.LowEnergy + f.config.RatioEpsilon),
			DominantFrequency: split.DominantFrequency,
		},
	}, nil
}
