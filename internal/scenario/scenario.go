// Package scenario decodes the scenario documents read by the CLI and the HTTP
// API. A document names the facility, its comparables, an optional partial
// settings overlay and the inputs of the sensitivity, Monte Carlo and
// sale-leaseback analyses.
package scenario

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/iwvelando/facility-valuation/internal/leaseback"
	"github.com/iwvelando/facility-valuation/internal/montecarlo"
	"github.com/iwvelando/facility-valuation/internal/sensitivity"
	"github.com/iwvelando/facility-valuation/internal/settings"
	"github.com/iwvelando/facility-valuation/internal/valuation"
	"github.com/iwvelando/facility-valuation/pkg/validation"
)

// ErrEmptyDocument is returned when a scenario document has no content.
var ErrEmptyDocument = errors.New("scenario document is empty")

// File is one scenario document. JSON documents decode through the same YAML
// decoder.
type File struct {
	Facility      valuation.Facility        `yaml:"facility" json:"facility"`
	Comparables   []valuation.ComparableSale `yaml:"comparables,omitempty" json:"comparables,omitempty"`
	Settings      map[string]any            `yaml:"settings,omitempty" json:"settings,omitempty"`
	Parameters    []sensitivity.Parameter   `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Locked        []string                  `yaml:"locked,omitempty" json:"locked,omitempty"`
	Distributions []montecarlo.Distribution `yaml:"distributions,omitempty" json:"distributions,omitempty"`
	MonteCarlo    *montecarlo.Options       `yaml:"monteCarlo,omitempty" json:"monteCarlo,omitempty"`
	Leaseback     *LeasebackTerms           `yaml:"leaseback,omitempty" json:"leaseback,omitempty"`
}

// LeasebackTerms override the sale-leaseback inputs. Unset values come from
// the facility (NOI, EBITDAR) or the settings (cap and yield rates).
type LeasebackTerms struct {
	NOI       *float64 `yaml:"noi,omitempty" json:"noi,omitempty"`
	EBITDAR   *float64 `yaml:"ebitdar,omitempty" json:"ebitdar,omitempty"`
	CapRate   *float64 `yaml:"capRate,omitempty" json:"capRate,omitempty"`
	YieldRate *float64 `yaml:"yieldRate,omitempty" json:"yieldRate,omitempty"`
	// DebtService is the buyer's annual debt service; when set the result carries a DSCR.
	DebtService *float64 `yaml:"debtService,omitempty" json:"debtService,omitempty"`
}

// Load reads a scenario document from disk.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, eris.Wrapf(err, "scenario: read %s", path)
	}
	f, err := Decode(bytes.NewReader(data))
	if err != nil {
		return File{}, eris.Wrapf(err, "scenario: %s", path)
	}
	return f, nil
}

// Decode reads a YAML or JSON scenario document. Unknown keys are rejected so
// a misspelled attribute is not silently treated as missing.
func Decode(r io.Reader) (File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, ErrEmptyDocument
		}
		return File{}, eris.Wrap(err, "scenario: decode")
	}
	return f, nil
}

// Scenario overlays the document's settings on base and returns the
// valuation scenario.
func (f File) Scenario(base settings.Settings) (valuation.Scenario, error) {
	s, err := settings.Merge(base, f.Settings)
	if err != nil {
		return valuation.Scenario{}, eris.Wrap(err, "scenario: settings overlay")
	}
	return valuation.Scenario{Facility: f.Facility, Comparables: f.Comparables, Settings: s}, nil
}

// Warnings reports data-quality problems in the facility and comparables.
// They never block a valuation.
func (f File) Warnings() []string {
	warnings := validation.ValidateFacility(f.Facility)
	return append(warnings, validation.ValidateComparables(f.Comparables)...)
}

// LeasebackInput assembles the sale-leaseback input. A zero cap or yield rate
// tells the analysis to use the settings default.
func (f File) LeasebackInput() leaseback.Input {
	var terms LeasebackTerms
	if f.Leaseback != nil {
		terms = *f.Leaseback
	}
	return leaseback.Input{
		NOI:         decimalOf(terms.NOI, f.Facility.NOI),
		EBITDAR:     decimalOf(terms.EBITDAR, f.Facility.EBITDAR),
		CapRate:     decimalOf(terms.CapRate),
		YieldRate:   decimalOf(terms.YieldRate),
		DebtService: decimalOf(terms.DebtService),
	}
}

func decimalOf(candidates ...*float64) decimal.Decimal {
	for _, c := range candidates {
		if c != nil {
			return decimal.NewFromFloat(*c)
		}
	}
	return decimal.Zero
}
