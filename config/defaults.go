package config

import (
	"path/filepath"

	"github.com/spf13/viper"

	fconfig "github.com/RyanBlaney/specimen/features/config"
	"github.com/RyanBlaney/specimen/preprocess"
)

// Defaults returns the settings used when nothing overrides them
func Defaults() *Settings {
	return &Settings{
		Log: LogSettings{
			Level:  "info",
			Format: "console",
		},
		Preprocess: *preprocess.DefaultConfig(),
		Extraction: *fconfig.DefaultExtractionConfig(),
		Output:     *fconfig.DefaultOutputConfig(),
		Analysis:   *fconfig.DefaultAnalysisConfig(),
		Store: StoreSettings{
			Enabled: false,
			Path:    filepath.Join("Results", "specimen.db"),
		},
		Metrics: MetricsSettings{
			Enabled: false,
			Path:    filepath.Join("Results", "specimen.prom"),
		},
		SummaryPath: filepath.Join("Results", "run_summary.yaml"),
	}
}

// setDefaults registers every key so environment variables and Unmarshal
// see it even when no file mentions it
func setDefaults(v *viper.Viper, d *Settings) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	p := d.Preprocess
	v.SetDefault("preprocess.raw_dir", p.RawDir)
	v.SetDefault("preprocess.clean_dir", p.CleanDir)
	v.SetDefault("preprocess.cropped_dir", p.CroppedDir)
	v.SetDefault("preprocess.resized_dir", p.ResizedDir)
	v.SetDefault("preprocess.grayscale_dir", p.GrayscaleDir)
	v.SetDefault("preprocess.enhanced_dir", p.EnhancedDir)
	v.SetDefault("preprocess.min_width", p.MinWidth)
	v.SetDefault("preprocess.min_height", p.MinHeight)
	v.SetDefault("preprocess.min_std_dev", p.MinStdDev)
	v.SetDefault("preprocess.crop_ratio", p.CropRatio)
	v.SetDefault("preprocess.width", p.Width)
	v.SetDefault("preprocess.height", p.Height)
	v.SetDefault("preprocess.equalize", p.Equalize)
	v.SetDefault("preprocess.clahe", p.CLAHE)
	v.SetDefault("preprocess.normalize", p.Normalize)
	v.SetDefault("preprocess.clip_limit", p.ClipLimit)
	v.SetDefault("preprocess.tile_grid", p.TileGrid)
	v.SetDefault("preprocess.workers", p.Workers)

	e := d.Extraction
	v.SetDefault("extraction.spatial.canny_low", e.Spatial.CannyLow)
	v.SetDefault("extraction.spatial.canny_high", e.Spatial.CannyHigh)
	v.SetDefault("extraction.frequency.radius_divisor", e.Frequency.RadiusDivisor)
	v.SetDefault("extraction.frequency.ratio_epsilon", e.Frequency.RatioEpsilon)
	v.SetDefault("extraction.frequency.window", e.Frequency.Window)
	v.SetDefault("extraction.texture.radius", e.Texture.Radius)
	v.SetDefault("extraction.texture.points", e.Texture.Points)
	v.SetDefault("extraction.texture.entropy_epsilon", e.Texture.EntropyEpsilon)
	v.SetDefault("extraction.workers", e.Workers)

	o := d.Output
	v.SetDefault("output.dir", o.Dir)
	v.SetDefault("output.spatial_file", o.SpatialFile)
	v.SetDefault("output.frequency_file", o.FrequencyFile)
	v.SetDefault("output.texture_file", o.TextureFile)
	v.SetDefault("output.merged_file", o.MergedFile)

	a := d.Analysis
	v.SetDefault("analysis.tables_dir", a.TablesDir)
	v.SetDefault("analysis.figures_dir", a.FiguresDir)
	v.SetDefault("analysis.pca_components", a.PCAComponents)
	v.SetDefault("analysis.plots", a.Plots)
	c := a.Classification
	v.SetDefault("analysis.classification.models", c.Models)
	v.SetDefault("analysis.classification.test_size", c.TestSize)
	v.SetDefault("analysis.classification.seed", c.Seed)
	v.SetDefault("analysis.classification.trees", c.Trees)
	v.SetDefault("analysis.classification.c", c.C)
	v.SetDefault("analysis.classification.max_iterations", c.MaxIterations)
	v.SetDefault("analysis.classification.workers", c.Workers)

	v.SetDefault("feature_dir", d.FeatureDir)
	v.SetDefault("store.enabled", d.Store.Enabled)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("summary_path", d.SummaryPath)
}
