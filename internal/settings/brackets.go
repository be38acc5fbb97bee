package settings

import "strings"

// NumericBracket maps a numeric attribute range onto an adjustment. A nil bound
// is open; matching is Min <= x < Max.
type NumericBracket struct {
	Name       string   `yaml:"name" mapstructure:"name" json:"name"`
	Min        *float64 `yaml:"min,omitempty" mapstructure:"min" json:"min,omitempty"`
	Max        *float64 `yaml:"max,omitempty" mapstructure:"max" json:"max,omitempty"`
	Adjustment float64  `yaml:"adjustment" mapstructure:"adjustment" json:"adjustment"`
}

// Matches reports whether x falls inside the bracket.
func (b NumericBracket) Matches(x float64) bool {
	if b.Min != nil && x < *b.Min {
		return false
	}
	if b.Max != nil && x >= *b.Max {
		return false
	}
	return true
}

// NumericTable is an ordered list of brackets evaluated first-match.
type NumericTable []NumericBracket

// Lookup returns the first bracket containing x.
func (t NumericTable) Lookup(x float64) (NumericBracket, bool) {
	for _, b := range t {
		if b.Matches(x) {
			return b, true
		}
	}
	return NumericBracket{}, false
}

// CategoryBracket maps a categorical attribute value onto an adjustment.
type CategoryBracket struct {
	Name       string  `yaml:"name,omitempty" mapstructure:"name" json:"name,omitempty"`
	Match      string  `yaml:"match" mapstructure:"match" json:"match"`
	Adjustment float64 `yaml:"adjustment" mapstructure:"adjustment" json:"adjustment"`
}

// CategoryTable is an ordered list of categorical brackets.
type CategoryTable []CategoryBracket

// Lookup returns the first bracket whose Match equals value, ignoring case.
func (t CategoryTable) Lookup(value string) (CategoryBracket, bool) {
	value = strings.TrimSpace(value)
	for _, b := range t {
		if strings.EqualFold(b.Match, value) {
			return b, true
		}
	}
	return CategoryBracket{}, false
}

// bracketSpec is the compact form used to build the built-in tables.
type bracketSpec struct {
	name     string
	min, max *float64
	adj      float64
}

func bound(v float64) *float64 { return &v }

func buildNumeric(specs []bracketSpec, scale func(float64) float64) NumericTable {
	table := make(NumericTable, 0, len(specs))
	for _, s := range specs {
		table = append(table, NumericBracket{Name: s.name, Min: s.min, Max: s.max, Adjustment: scale(s.adj)})
	}
	return table
}

func buildCategory(pairs [][2]string, adjustments []float64, scale func(float64) float64) CategoryTable {
	table := make(CategoryTable, 0, len(pairs))
	for i, p := range pairs {
		table = append(table, CategoryBracket{Name: p[0], Match: p[1], Adjustment: scale(adjustments[i])})
	}
	return table
}

// additive scales an additive adjustment by factor.
func additive(factor float64) func(float64) float64 {
	return func(v float64) float64 { return v * factor }
}

// multiplicative scales the deviation of a multiplier away from 1 by factor.
func multiplicative(factor float64) func(float64) float64 {
	return func(v float64) float64 { return 1 + (v-1)*factor }
}
