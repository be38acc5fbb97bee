package settings

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// MergeMaps overlays override onto base and returns a new tree. Nested objects
// merge key by key; arrays and scalars in override replace the base value
// wholesale. Keys match case-insensitively so overrides read through viper,
// which lower-cases keys, still land on the canonical spelling. Neither input
// is modified.
func MergeMaps(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = cloneValue(v)
	}
	for k, v := range override {
		key := matchKey(out, k)
		overrideMap, overrideIsMap := asMap(v)
		baseMap, baseIsMap := asMap(out[key])
		if overrideIsMap && baseIsMap {
			out[key] = MergeMaps(baseMap, overrideMap)
			continue
		}
		out[key] = cloneValue(v)
	}
	return out
}

// Merge overlays a partial settings tree onto base and decodes the result.
func Merge(base Settings, override map[string]any) (Settings, error) {
	if len(override) == 0 {
		return base, nil
	}
	tree, err := toTree(base)
	if err != nil {
		return Settings{}, err
	}
	var merged Settings
	if err := fromTree(MergeMaps(tree, override), &merged); err != nil {
		return Settings{}, err
	}
	return merged, nil
}

// Resolve returns the asset-type settings with any state override for that
// asset type merged on top.
func Resolve(s Settings, assetType AssetType, state string) (AssetTypeSettings, error) {
	ats, err := s.AssetTypes.Get(assetType)
	if err != nil {
		return AssetTypeSettings{}, err
	}
	override, ok := stateOverride(s, state, assetType)
	if !ok {
		return ats, nil
	}
	tree, err := toTree(ats)
	if err != nil {
		return AssetTypeSettings{}, err
	}
	var resolved AssetTypeSettings
	if err := fromTree(MergeMaps(tree, override), &resolved); err != nil {
		return AssetTypeSettings{}, eris.Wrapf(err, "state override %s", state)
	}
	return resolved, nil
}

func stateOverride(s Settings, state string, assetType AssetType) (map[string]any, bool) {
	state = strings.TrimSpace(state)
	if state == "" || len(s.StateOverrides) == 0 {
		return nil, false
	}
	for st, byType := range s.StateOverrides {
		if !strings.EqualFold(st, state) {
			continue
		}
		for key, partial := range byType {
			if strings.EqualFold(key, assetType.Key()) && len(partial) > 0 {
				return partial, true
			}
		}
	}
	return nil, false
}

func toTree(v any) (map[string]any, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "settings: encode")
	}
	tree := make(map[string]any)
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, eris.Wrap(err, "settings: decode tree")
	}
	return tree, nil
}

func fromTree(tree map[string]any, out any) error {
	data, err := yaml.Marshal(tree)
	if err != nil {
		return eris.Wrap(err, "settings: encode merged tree")
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "settings: decode merged tree")
	}
	return nil
}

func matchKey(m map[string]any, key string) string {
	if _, ok := m[key]; ok {
		return key
	}
	for k := range m {
		if strings.EqualFold(k, key) {
			return k
		}
	}
	return key
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func cloneValue(v any) any {
	if m, ok := asMap(v); ok {
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = cloneValue(val)
		}
		return out
	}
	if s, ok := v.([]any); ok {
		out := make([]any, len(s))
		for i, val := range s {
			out[i] = cloneValue(val)
		}
		return out
	}
	return v
}
