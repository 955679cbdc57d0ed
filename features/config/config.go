package config

import (
	"fmt"
	"path/filepath"

	"github.com/RyanBlaney/specimen/algorithms/windowing"
)

// SpatialConfig configures intensity and edge descriptors
type SpatialConfig struct {
	CannyLow  int `json:"canny_low" mapstructure:"canny_low"`   // hysteresis low threshold
	CannyHigh int `json:"canny_high" mapstructure:"canny_high"` // hysteresis high threshold
}

// FrequencyConfig configures Fourier spectrum descriptors
type FrequencyConfig struct {
	RadiusDivisor int     `json:"radius_divisor" mapstructure:"radius_divisor"` // cutoff = min(cx, cy) / divisor
	RatioEpsilon  float64 `json:"ratio_epsilon" mapstructure:"ratio_epsilon"`   // guards high/low against flat spectra

	// Taper applied before the transform; rectangular leaves pixels as is
	Window string `json:"window" mapstructure:"window"`
}

// TextureConfig configures local binary pattern descriptors
type TextureConfig struct {
	Radius         float64 `json:"radius" mapstructure:"radius"`
	Points         int     `json:"points" mapstructure:"points"`
	EntropyEpsilon float64 `json:"entropy_epsilon" mapstructure:"entropy_epsilon"` // added per histogram bin
}

// ExtractionConfig holds the parameters of all three descriptor extractors
type ExtractionConfig struct {
	Spatial   SpatialConfig   `json:"spatial" mapstructure:"spatial"`
	Frequency FrequencyConfig `json:"frequency" mapstructure:"frequency"`
	Texture   TextureConfig   `json:"texture" mapstructure:"texture"`

	// Images decoded concurrently per extractor
	Workers int `json:"workers" mapstructure:"workers"`
}

// OutputConfig names the persisted feature tables
type OutputConfig struct {
	Dir           string `json:"dir" mapstructure:"dir"`
	SpatialFile   string `json:"spatial_file" mapstructure:"spatial_file"`
	FrequencyFile string `json:"frequency_file" mapstructure:"frequency_file"`
	TextureFile   string `json:"texture_file" mapstructure:"texture_file"`
	MergedFile    string `json:"merged_file" mapstructure:"merged_file"`
}

// DefaultExtractionConfig returns the reference extraction parameters
func DefaultExtractionConfig() *ExtractionConfig {
	return &ExtractionConfig{
		Spatial: SpatialConfig{
			CannyLow:  100,
			CannyHigh: 200,
		},
		Frequency: FrequencyConfig{
			RadiusDivisor: 4,
			RatioEpsilon:  1e-8,
			Window:        string(windowing.Rectangular),
		},
		Texture: TextureConfig{
			Radius:         1,
			Points:         8, // 8 × radius
			EntropyEpsilon: 1e-12,
		},
		Workers: 4,
	}
}

// DefaultOutputConfig returns the default feature table locations
func DefaultOutputConfig() *OutputConfig {
	return &OutputConfig{
		Dir:           filepath.Join("Data", "features"),
		SpatialFile:   "features_spatial.csv",
		FrequencyFile: "features_frequency.csv",
		TextureFile:   "features_lbp.csv",
		MergedFile:    "features_all.csv",
	}
}

// SpatialPath returns the spatial table location
func (o *OutputConfig) SpatialPath() string { return filepath.Join(o.Dir, o.SpatialFile) }

// FrequencyPath returns the frequency table location
func (o *OutputConfig) FrequencyPath() string { return filepath.Join(o.Dir, o.FrequencyFile) }

// TexturePath returns the LBP table location
func (o *OutputConfig) TexturePath() string { return filepath.Join(o.Dir, o.TextureFile) }

// MergedPath returns the merged table location
func (o *OutputConfig) MergedPath() string { return filepath.Join(o.Dir, o.MergedFile) }

// Validate checks that the parameters describe a usable extraction
func (c *ExtractionConfig) Validate() error {
	if c.Spatial.CannyLow < 0 || c.Spatial.CannyHigh < 0 {
		return fmt.Errorf("canny thresholds must be non-negative")
	}
	if c.Frequency.RadiusDivisor <= 0 {
		return fmt.Errorf("radius divisor must be positive, got %d", c.Frequency.RadiusDivisor)
	}
	if c.Frequency.RatioEpsilon < 0 {
		return fmt.Errorf("ratio epsilon must be non-negative")
	}
	if _, err := windowing.ParseType(c.Frequency.Window); err != nil {
		return err
	}
	if c.Texture.Radius <= 0 || c.Texture.Points <= 0 {
		return fmt.Errorf("lbp radius and points must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}

// Validate checks that every table has a file name
func (o *OutputConfig) Validate() error {
	for name, file := range map[string]string{
		"spatial":   o.SpatialFile,
		"frequency": o.FrequencyFile,
		"texture":   o.TextureFile,
		"merged":    o.MergedFile,
	} {
		if file == "" {
			return fmt.Errorf("%s table file name is empty", name)
		}
	}
	return nil
}

// AnalysisConfig controls the statistics, PCA and classification stages
type AnalysisConfig struct {
	TablesDir  string `json:"tables_dir" mapstructure:"tables_dir"`
	FiguresDir string `json:"figures_dir" mapstructure:"figures_dir"`

	// Upper bound on retained principal components
	PCAComponents int `json:"pca_components" mapstructure:"pca_components"`

	// Render PNG figures next to the tables
	Plots bool `json:"plots" mapstructure:"plots"`

	Classification ClassificationConfig `json:"classification" mapstructure:"classification"`
}

// ClassificationConfig controls the classifier training stage
type ClassificationConfig struct {
	// Models to train, by name
	Models []string `json:"models" mapstructure:"models"`

	// Fraction of every class held out for evaluation
	TestSize float64 `json:"test_size" mapstructure:"test_size"`
	Seed     uint64  `json:"seed" mapstructure:"seed"`

	Trees         int     `json:"trees" mapstructure:"trees"`                   // random forest size
	C             float64 `json:"c" mapstructure:"c"`                           // inverse regularisation of SVM and logistic models
	MaxIterations int     `json:"max_iterations" mapstructure:"max_iterations"` // solver iteration cap
	Workers       int     `json:"workers" mapstructure:"workers"`
}

// DefaultClassificationConfig returns a 75/25 split seeded with 42 and all
// three models
func DefaultClassificationConfig() *ClassificationConfig {
	return &ClassificationConfig{
		Models:        []string{"RandomForest", "SVM_RBF", "LogisticRegression"},
		TestSize:      0.25,
		Seed:          42,
		Trees:         200,
		C:             1,
		MaxIterations: 2000,
		Workers:       4,
	}
}

// Validate checks the classifier parameters. Model names are resolved by
// the classify package.
func (c *ClassificationConfig) Validate() error {
	if len(c.Models) == 0 {
		return fmt.Errorf("no classification models configured")
	}
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return fmt.Errorf("test size must lie in (0, 1), got %g", c.TestSize)
	}
	if c.Trees <= 0 {
		return fmt.Errorf("tree count must be positive, got %d", c.Trees)
	}
	if c.C <= 0 {
		return fmt.Errorf("regularisation C must be positive, got %g", c.C)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}

// DefaultAnalysisConfig returns the default report locations
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		TablesDir:      filepath.Join("Results", "tables"),
		FiguresDir:     filepath.Join("Results", "figures"),
		PCAComponents:  10,
		Plots:          true,
		Classification: *DefaultClassificationConfig(),
	}
}

// Validate checks the analysis parameters
func (a *AnalysisConfig) Validate() error {
	if a.TablesDir == "" {
		return fmt.Errorf("tables directory is empty")
	}
	if a.Plots && a.FiguresDir == "" {
		return fmt.Errorf("figures directory is empty")
	}
	if a.PCAComponents <= 0 {
		return fmt.Errorf("pca components must be positive, got %d", a.PCAComponents)
	}
	if err := a.Classification.Validate(); err != nil {
		return fmt.Errorf("classification: %w", err)
	}
	return nil
}
