package server

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/iwvelando/facility-valuation/internal/config"
	"github.com/iwvelando/facility-valuation/pkg/constants"
)

// Config defines runtime parameters for the HTTP server.
type Config struct {
	Address     string
	MaxBodySize int64
	MonteCarlo  config.MonteCarloConfig
	Version     string
}

// NewConfig derives the server configuration from the application
// configuration, parsing the human-friendly body size.
func NewConfig(conf config.Configuration, version string) (Config, error) {
	size, err := ParseSize(conf.Server.MaxBodySize)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Address:     strings.TrimSpace(conf.Server.Address),
		MaxBodySize: size,
		MonteCarlo:  conf.MonteCarlo,
		Version:     strings.TrimSpace(version),
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = constants.DefaultMaxBodySizeBytes
	}
	if c.Version == "" {
		c.Version = "dev"
	}
	if c.MonteCarlo.Iterations <= 0 {
		c.MonteCarlo.Iterations = constants.DefaultIterations
	}
}

// ParseSize converts a human-friendly byte string (e.g., "256K", "10M") into bytes.
func ParseSize(value string) (int64, error) {
	upper := strings.ToUpper(strings.TrimSpace(value))
	if upper == "" {
		return constants.DefaultMaxBodySizeBytes, nil
	}

	idx := len(upper)
	for idx > 0 && !unicode.IsDigit(rune(upper[idx-1])) {
		idx--
	}
	if idx == 0 {
		return 0, eris.Errorf("invalid size: %s", value)
	}

	n, err := strconv.ParseInt(strings.TrimSpace(upper[:idx]), 10, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid size value %q", value)
	}

	var shift uint
	switch strings.TrimSpace(upper[idx:]) {
	case "", "B":
	case "K", "KB":
		shift = 10
	case "M", "MB":
		shift = 20
	case "G", "GB":
		shift = 30
	default:
		return 0, eris.Errorf("unsupported size unit %q", upper[idx:])
	}

	result := n << shift
	if result < 0 || result>>shift != n {
		return 0, eris.Errorf("size overflow for value %s", value)
	}
	return result, nil
}
