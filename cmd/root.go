// Package cmd implements the specimen command line interface
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/specimen/config"
	"github.com/RyanBlaney/specimen/logging"
)

// flagKeys maps command flags to configuration keys. Only flags present on
// the executing command are bound.
var flagKeys = map[string]string{
	"log-level":   "log.level",
	"log-format":  "log.format",
	"input":       "feature_dir",
	"output-dir":  "output.dir",
	"tables-dir":  "analysis.tables_dir",
	"figures-dir": "analysis.figures_dir",
	"components":  "analysis.pca_components",
	"plots":       "analysis.plots",
	"models":      "analysis.classification.models",
	"test-size":   "analysis.classification.test_size",
	"seed":        "analysis.classification.seed",
	"workers":     "extraction.workers",
	"store":       "store.enabled",
	"metrics":     "metrics.enabled",
	"summary":     "summary_path",
}

// app carries the state shared by every subcommand
type app struct {
	loader     *config.Loader
	configPath string
	settings   *config.Settings
}

// RootCommand creates and returns the root command
func RootCommand() *cobra.Command {
	a := &app{loader: config.NewLoader()}

	rootCmd := &cobra.Command{
		Use:   "specimen",
		Short: "Species image feature pipeline",
		Long: `Preprocesses a species-organised image corpus, extracts spatial, Fourier and
LBP texture descriptors, merges them into one table and reports per-species
statistics, feature correlations, a principal component analysis and the
held-out performance of species classifiers.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to a YAML configuration file (default ./specimen.yaml)")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "console", "Log format: console or json")

	rootCmd.AddCommand(
		a.runCommand(),
		a.preprocessCommand(),
		a.extractCommand(),
		a.aggregateCommand(),
		a.analyzeCommand(),
		a.historyCommand(),
	)

	return rootCmd
}

// initialize binds the executing command's flags, loads the settings and
// installs the configured logger
func (a *app) initialize(cmd *cobra.Command) error {
	keys := make(map[string]string)
	for name, key := range flagKeys {
		if cmd.Flags().Lookup(name) != nil {
			keys[name] = key
		}
	}
	if err := a.loader.BindFlags(cmd, keys); err != nil {
		return err
	}

	settings, err := a.loader.Load(a.configPath)
	if err != nil {
		return err
	}
	a.settings = settings

	logger, err := settings.NewLogger()
	if err != nil {
		return err
	}
	logging.SetGlobalLogger(logger)

	if file := a.loader.ConfigFile(); file != "" {
		logging.Debug("Configuration loaded", logging.Fields{"file": file})
	}
	return nil
}
