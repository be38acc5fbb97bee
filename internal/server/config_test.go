package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwvelando/facility-valuation/internal/config"
	"github.com/iwvelando/facility-valuation/pkg/constants"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig(config.Configuration{}, " ")
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultServerAddress, cfg.Address)
	assert.Equal(t, constants.DefaultMaxBodySizeBytes, cfg.MaxBodySize)
	assert.Equal(t, "dev", cfg.Version)
}

func TestNewConfigOverrides(t *testing.T) {
	conf := config.Configuration{
		Server:     config.ServerConfig{Address: "127.0.0.1:9000", MaxBodySize: "2M"},
		MonteCarlo: config.MonteCarloConfig{Iterations: 400},
	}

	cfg, err := NewConfig(conf, "1.2.3")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Address)
	assert.Equal(t, int64(2*1024*1024), cfg.MaxBodySize)
	assert.Equal(t, 400, cfg.MonteCarlo.Iterations)
	assert.Equal(t, "1.2.3", cfg.Version)

	_, err = NewConfig(config.Configuration{Server: config.ServerConfig{MaxBodySize: "invalid"}}, "")
	assert.Error(t, err)
}

func TestParseSize(t *testing.T) {
	tests := map[string]int64{
		"":          constants.DefaultMaxBodySizeBytes,
		"1024":      1024,
		"512b":      512,
		"256K":      256 * 1024,
		"1m":        1024 * 1024,
		"3MB":       3 * 1024 * 1024,
		"2G":        2 * 1024 * 1024 * 1024,
		"  4096   ": 4096,
	}

	for input, expected := range tests {
		got, err := ParseSize(input)
		require.NoError(t, err, "ParseSize(%q)", input)
		assert.Equal(t, expected, got, "ParseSize(%q)", input)
	}

	for _, bad := range []string{"1TB", "abc", "9999999999999G"} {
		_, err := ParseSize(bad)
		assert.Error(t, err, "ParseSize(%q)", bad)
	}
}
