package extractors

import (
	"image"

	"github.com/RyanBlaney/specimen/algorithms/texture"
	"github.com/RyanBlaney/specimen/features"
	"github.com/RyanBlaney/specimen/features/config"
	"github.com/RyanBlaney/specimen/logging"
)

// TextureExtractor summarises micro-texture with uniform local binary patterns
type TextureExtractor struct {
	logger logging.Logger

	lbp *texture.LBP
}

// NewTextureExtractor creates a new LBP feature extractor
func NewTextureExtractor(cfg *config.TextureConfig) *TextureExtractor {
	if cfg == nil {
		cfg = &config.DefaultExtractionConfig().Texture
	}
	return &TextureExtractor{
		logger: logging.WithFields(logging.Fields{
			"component": "texture_feature_extractor",
			"radius":    cfg.Radius,
			"points":    cfg.Points,
		}),
		lbp: texture.NewLBP(texture.LBPParams{
			Radius:         cfg.Radius,
			Points:         cfg.Points,
			EntropyEpsilon: cfg.EntropyEpsilon,
		}),
	}
}

// GetName implements FeatureExtractor
func (t *TextureExtractor) GetName() string {
	return string(KindTexture)
}

// GetSchema implements FeatureExtractor
func (t *TextureExtractor) GetSchema() features.Schema[features.TextureRecord] {
	return features.TextureSchema
}

// Extract implements FeatureExtractor
func (t *TextureExtractor) Extract(key features.Key, img *image.Gray) (features.TextureRecord, error) {
	result := t.lbp.Compute(img)

	t.logger.Debug("Texture features computed", logging.Fields{
		"image":         key.String(),
		"uniform_ratio": result.UniformRatio,
	})

	return features.TextureRecord{
		Key: key,
		Texture: features.Texture{
			LBPUniformRatio: result.UniformRatio,
			LBPEntropy:      result.Entropy,
			LBPDomBinRatio:  result.DominantBinRatio,
		},
	}, nil
}
