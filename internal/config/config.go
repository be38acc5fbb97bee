// Package config defines the application configuration and loads it from a
// YAML file and VALUATION_* environment variables.
package config

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"

	"github.com/iwvelando/facility-valuation/pkg/constants"
)

// Configuration holds all configuration for facility-valuation.
type Configuration struct {
	Logging      LoggingConfig    `yaml:"logging,omitempty" mapstructure:"logging"`
	Output       OutputConfig     `yaml:"output,omitempty" mapstructure:"output"`
	Server       ServerConfig     `yaml:"server,omitempty" mapstructure:"server"`
	SettingsPath string           `yaml:"settingsPath,omitempty" mapstructure:"settingsPath"`
	MonteCarlo   MonteCarloConfig `yaml:"monteCarlo,omitempty" mapstructure:"monteCarlo"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" mapstructure:"format"` // pretty, csv, json
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address     string `yaml:"address,omitempty" mapstructure:"address"`
	MaxBodySize string `yaml:"maxBodySize,omitempty" mapstructure:"maxBodySize"` // e.g. 512K, 1M
}

// MonteCarloConfig holds the simulation defaults used when a request does not
// set them.
type MonteCarloConfig struct {
	Iterations       int    `yaml:"iterations,omitempty" mapstructure:"iterations"`
	Buckets          int    `yaml:"buckets,omitempty" mapstructure:"buckets"`
	Workers          int    `yaml:"workers,omitempty" mapstructure:"workers"`
	ProgressInterval int    `yaml:"progressInterval,omitempty" mapstructure:"progressInterval"`
	Seed             uint64 `yaml:"seed,omitempty" mapstructure:"seed"`
}

// LoadConfiguration reads the configuration at configPath. An empty path looks
// for config.yaml in the working directory and falls back to defaults when
// there is none; an explicit path must exist.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()

	configPath = strings.TrimSpace(configPath)
	if configPath == "" {
		v.SetConfigName(strings.TrimSuffix(constants.DefaultConfigFile, ".yaml"))
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(configPath)
	}
	v.SetConfigType("yaml")

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, eris.Wrapf(err, "config: read %s", configPath)
		}
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &configuration, nil
}

// Every key needs a default so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.maxBodySize", "1M")
	v.SetDefault("settingsPath", "")
	v.SetDefault("monteCarlo.iterations", constants.DefaultIterations)
	v.SetDefault("monteCarlo.buckets", constants.DefaultHistogramBuckets)
	v.SetDefault("monteCarlo.workers", 0)
	v.SetDefault("monteCarlo.progressInterval", constants.DefaultProgressInterval)
	v.SetDefault("monteCarlo.seed", 0)
}
