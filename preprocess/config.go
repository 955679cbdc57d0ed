package preprocess

import (
	"fmt"
	"path/filepath"
)

// Config holds the stage directories and the parameters of every
// preprocessing stage. Each stage reads the output of the previous one.
type Config struct {
	RawDir       string `json:"raw_dir" mapstructure:"raw_dir"`
	CleanDir     string `json:"clean_dir" mapstructure:"clean_dir"`
	CroppedDir   string `json:"cropped_dir" mapstructure:"cropped_dir"`
	ResizedDir   string `json:"resized_dir" mapstructure:"resized_dir"`
	GrayscaleDir string `json:"grayscale_dir" mapstructure:"grayscale_dir"`
	EnhancedDir  string `json:"enhanced_dir" mapstructure:"enhanced_dir"`

	// Cleaning thresholds
	MinWidth  int     `json:"min_width" mapstructure:"min_width"`
	MinHeight int     `json:"min_height" mapstructure:"min_height"`
	MinStdDev float64 `json:"min_std_dev" mapstructure:"min_std_dev"`

	// Fraction of rows removed from the bottom
	CropRatio float64 `json:"crop_ratio" mapstructure:"crop_ratio"`

	Width  int `json:"width" mapstructure:"width"`
	Height int `json:"height" mapstructure:"height"`

	Equalize  bool    `json:"equalize" mapstructure:"equalize"`
	CLAHE     bool    `json:"clahe" mapstructure:"clahe"`
	Normalize bool    `json:"normalize" mapstructure:"normalize"`
	ClipLimit float64 `json:"clip_limit" mapstructure:"clip_limit"`
	TileGrid  int     `json:"tile_grid" mapstructure:"tile_grid"`

	Workers int `json:"workers" mapstructure:"workers"`
}

// DefaultConfig returns the reference preprocessing setup
func DefaultConfig() *Config {
	processed := filepath.Join("Data", "processed")
	return &Config{
		RawDir:       filepath.Join("Data", "raw", "train_features"),
		CleanDir:     filepath.Join(processed, "clean"),
		CroppedDir:   filepath.Join(processed, "cropped"),
		ResizedDir:   filepath.Join(processed, "resized"),
		GrayscaleDir: filepath.Join(processed, "grayscale"),
		EnhancedDir:  filepath.Join(processed, "enhanced"),

		MinWidth:  200,
		MinHeight: 200,
		MinStdDev: 2,

		CropRatio: 0.10,

		Width:  256,
		Height: 256,

		Equalize:  true,
		CLAHE:     true,
		Normalize: true,
		ClipLimit: 2.0,
		TileGrid:  8,

		Workers: 4,
	}
}

// Validate checks that the parameters describe usable stages
func (c *Config) Validate() error {
	if c.CropRatio < 0 || c.CropRatio >= 1 {
		return fmt.Errorf("crop ratio must be in [0, 1), got %g", c.CropRatio)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("resize target must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.MinWidth < 0 || c.MinHeight < 0 || c.MinStdDev < 0 {
		return fmt.Errorf("cleaning thresholds must be non-negative")
	}
	if c.CLAHE && (c.ClipLimit <= 0 || c.TileGrid <= 0) {
		return fmt.Errorf("clahe needs a positive clip limit and tile grid")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	for stage, dir := range map[Stage]string{
		StageClean:     c.CleanDir,
		StageCrop:      c.CroppedDir,
		StageResize:    c.ResizedDir,
		StageGrayscale: c.GrayscaleDir,
		StageEnhance:   c.EnhancedDir,
	} {
		if dir == "" {
			return fmt.Errorf("%s output directory is empty", stage)
		}
	}
	return nil
}

// Dirs returns the input and output directories of a stage
func (c *Config) Dirs(stage Stage) (in, out string, err error) {
	switch stage {
	case StageClean:
		return c.RawDir, c.CleanDir, nil
	case StageCrop:
		return c.CleanDir, c.CroppedDir, nil
	case StageResize:
		return c.CroppedDir, c.ResizedDir, nil
	case StageGrayscale:
		return c.ResizedDir, c.GrayscaleDir, nil
	case StageEnhance:
		return c.GrayscaleDir, c.EnhancedDir, nil
	default:
		return "", "", fmt.Errorf("unknown preprocessing stage %q", stage)
	}
}
