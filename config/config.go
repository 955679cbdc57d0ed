// Package config loads the settings of the specimen command line tool from
// defaults, an optional YAML file and SPECIMEN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/specimen/classify"
	fconfig "github.com/RyanBlaney/specimen/features/config"
	"github.com/RyanBlaney/specimen/logging"
	"github.com/RyanBlaney/specimen/preprocess"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// EnvPrefix prefixes every environment override, e.g. SPECIMEN_LOG_LEVEL
const EnvPrefix = "SPECIMEN"

// Settings is the complete tool configuration
type Settings struct {
	Log        LogSettings              `mapstructure:"log"`
	Preprocess preprocess.Config        `mapstructure:"preprocess"`
	Extraction fconfig.ExtractionConfig `mapstructure:"extraction"`
	Output     fconfig.OutputConfig     `mapstructure:"output"`
	Analysis   fconfig.AnalysisConfig   `mapstructure:"analysis"`

	// Corpus read by the extractors. Empty means preprocess.enhanced_dir.
	FeatureDir string `mapstructure:"feature_dir"`

	Store   StoreSettings   `mapstructure:"store"`
	Metrics MetricsSettings `mapstructure:"metrics"`

	SummaryPath string `mapstructure:"summary_path"`
}

// LogSettings selects the log level and output format
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// StoreSettings configures the SQLite run history
type StoreSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// MetricsSettings configures the Prometheus textfile written after a run
type MetricsSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Loader reads settings through its own viper instance so command flags
// can be bound before loading
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with every default registered
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// BindFlags binds command flags to configuration keys. The map goes from
// flag name to key; flags set on the command line take precedence over the
// file and the environment.
func (l *Loader) BindFlags(cmd *cobra.Command, keys map[string]string) error {
	for name, key := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag %q", name)
		}
		if err := l.v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("error binding flag %q: %w", name, err)
		}
	}
	return nil
}

// Load reads the configuration. An explicit path must exist; without one,
// specimen.yaml is looked up in the working directory and skipped when
// absent.
func (l *Loader) Load(path string) (*Settings, error) {
	if path != "" {
		l.v.SetConfigFile(path)
	} else {
		l.v.SetConfigName("specimen")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := l.v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// ConfigFile returns the file settings were read from, if any
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Load reads settings without any flag bindings
func Load(path string) (*Settings, error) {
	return NewLoader().Load(path)
}

// Validate checks every section, wrapping failures in ErrInvalidConfig
func (s *Settings) Validate() error {
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch s.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, s.Log.Format)
	}

	sections := []struct {
		name     string
		validate func() error
	}{
		{"preprocess", s.Preprocess.Validate},
		{"extraction", s.Extraction.Validate},
		{"output", s.Output.Validate},
		{"analysis", s.Analysis.Validate},
	}
	for _, section := range sections {
		if err := section.validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, section.name, err)
		}
	}

	if err := classify.ValidateModels(s.Analysis.Classification.Models); err != nil {
		return fmt.Errorf("%w: analysis: classification: %v", ErrInvalidConfig, err)
	}

	if s.Store.Enabled && s.Store.Path == "" {
		return fmt.Errorf("%w: store path is empty", ErrInvalidConfig)
	}
	if s.Metrics.Enabled && s.Metrics.Path == "" {
		return fmt.Errorf("%w: metrics path is empty", ErrInvalidConfig)
	}
	return nil
}

// NewLogger builds the logger described by the log section
func (s *Settings) NewLogger() (logging.Logger, error) {
	level, err := logging.ParseLevel(s.Log.Level)
	if err != nil {
		return nil, err
	}

	if s.Log.Format == "json" {
		return logging.NewJSONLogger(os.Stderr, level), nil
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return logging.NewZerologLogger(writer, level), nil
}
