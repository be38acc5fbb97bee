package settings

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Load reads a YAML or JSON settings file and overlays it on the built-in
// defaults, so a file only needs to carry the values it changes.
func Load(path string) (Settings, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		v.SetConfigType("json")
	default:
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		return Settings{}, eris.Wrapf(err, "settings: read %s", path)
	}

	merged, err := Merge(Default(), v.AllSettings())
	if err != nil {
		return Settings{}, eris.Wrapf(err, "settings: merge %s", path)
	}
	return merged, nil
}
