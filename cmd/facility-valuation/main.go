package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iwvelando/facility-valuation/internal/config"
	"github.com/iwvelando/facility-valuation/internal/scenario"
	"github.com/iwvelando/facility-valuation/internal/settings"
	"github.com/iwvelando/facility-valuation/internal/valuation"
	"github.com/iwvelando/facility-valuation/pkg/validation"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configLocation   string
	settingsLocation string
	outputFormatFlag string
	logLevel         string

	conf         *config.Configuration
	logger       *zap.Logger
	baseSettings settings.Settings
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:           "facility-valuation",
	Short:         "Value senior-care facilities with six reconciled methods",
	Long:          "Values skilled nursing, assisted living and independent living facilities by cap rate, price per bed, DCF, NOI multiple, comparable sales and replacement cost, then reconciles them into one confidence-weighted estimate.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadConfiguration(configLocation)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		conf = c

		logger, err = config.NewLogger(conf.Logging, logLevel)
		if err != nil {
			return eris.Wrap(err, "init logger")
		}

		// CLI override takes precedence over config
		outputFormat = conf.Output.Format
		if outputFormatFlag != "" {
			outputFormat = outputFormatFlag
		}
		if err := validation.ValidateOutputFormat(outputFormat); err != nil {
			return err
		}

		path := conf.SettingsPath
		if settingsLocation != "" {
			path = settingsLocation
		}
		baseSettings, err = settings.Load(path)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&configLocation, "config", "", "path to configuration file (default ./config.yaml if present)")
	f.StringVar(&settingsLocation, "settings", "", "path to a valuation settings file overlaid on the defaults")
	f.StringVar(&outputFormatFlag, "output-format", "", "type of output override: pretty, csv, json")
	f.StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.Version = version
}

// loadScenario reads a scenario document, logs its data-quality warnings and
// overlays its settings on the base settings.
func loadScenario(path, op string) (scenario.File, valuation.Scenario, error) {
	f, err := scenario.Load(path)
	if err != nil {
		return scenario.File{}, valuation.Scenario{}, err
	}
	for _, warning := range f.Warnings() {
		logger.Warn("scenario warning: "+warning,
			zap.String("op", op),
			zap.String("scenario", path),
		)
	}
	sc, err := f.Scenario(baseSettings)
	if err != nil {
		return scenario.File{}, valuation.Scenario{}, err
	}
	return f, sc, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"error\": %q}\n", err.Error())
		os.Exit(1)
	}
}
