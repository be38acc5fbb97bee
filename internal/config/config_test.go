package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwvelando/facility-valuation/pkg/constants"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadConfigurationMissingFile(t *testing.T) {
	_, err := LoadConfiguration(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigurationDefaults(t *testing.T) {
	conf, err := LoadConfiguration(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "info", conf.Logging.Level)
	assert.Equal(t, "json", conf.Logging.Format)
	assert.Equal(t, constants.OutputFormatPretty, conf.Output.Format)
	assert.Equal(t, constants.DefaultServerAddress, conf.Server.Address)
	assert.Equal(t, constants.DefaultIterations, conf.MonteCarlo.Iterations)
	assert.Equal(t, constants.DefaultHistogramBuckets, conf.MonteCarlo.Buckets)
	assert.Empty(t, conf.SettingsPath)
}

func TestLoadConfigurationOverrides(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: console
output:
  format: csv
server:
  address: 127.0.0.1:9000
  maxBodySize: 2M
settingsPath: settings/valuation.yaml
monteCarlo:
  iterations: 5000
  seed: 42
`)

	conf, err := LoadConfiguration(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", conf.Logging.Level)
	assert.Equal(t, "console", conf.Logging.Format)
	assert.Equal(t, constants.OutputFormatCSV, conf.Output.Format)
	assert.Equal(t, "127.0.0.1:9000", conf.Server.Address)
	assert.Equal(t, "2M", conf.Server.MaxBodySize)
	assert.Equal(t, "settings/valuation.yaml", conf.SettingsPath)
	assert.Equal(t, 5000, conf.MonteCarlo.Iterations)
	assert.Equal(t, uint64(42), conf.MonteCarlo.Seed)
	assert.Equal(t, constants.DefaultProgressInterval, conf.MonteCarlo.ProgressInterval)
}

func TestLoadConfigurationEnvironment(t *testing.T) {
	t.Setenv("VALUATION_OUTPUT_FORMAT", "json")
	t.Setenv("VALUATION_MONTECARLO_ITERATIONS", "250")

	conf, err := LoadConfiguration(writeConfig(t, "output:\n  format: csv\n"))
	require.NoError(t, err)

	assert.Equal(t, constants.OutputFormatJSON, conf.Output.Format)
	assert.Equal(t, 250, conf.MonteCarlo.Iterations)
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		cfg      LoggingConfig
		override string
		wantErr  bool
	}{
		{name: "defaults", cfg: LoggingConfig{}},
		{name: "console debug", cfg: LoggingConfig{Level: "debug", Format: "console"}},
		{name: "warning alias", cfg: LoggingConfig{Level: "warning"}},
		{name: "override wins", cfg: LoggingConfig{Level: "bogus"}, override: "error"},
		{name: "bad level", cfg: LoggingConfig{Level: "loud"}, wantErr: true},
		{name: "bad format", cfg: LoggingConfig{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg, tt.override)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "valuation.log")
	logger, err := NewLogger(LoggingConfig{OutputFile: path}, "")
	require.NoError(t, err)

	logger.Info("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
