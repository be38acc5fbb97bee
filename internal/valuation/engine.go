package valuation

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/iwvelando/facility-valuation/internal/settings"
	"github.com/iwvelando/facility-valuation/pkg/fieldpath"
)

// Engine runs the six calculators and the reconciliation for one facility.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	logger *zap.Logger
}

// NewEngine returns an engine that logs to logger, or nowhere if it is nil.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Scenario bundles everything a valuation depends on. Sensitivity and Monte
// Carlo runs address its fields with dotted paths rooted at "facility" and
// "settings".
type Scenario struct {
	Facility    Facility          `yaml:"facility" json:"facility"`
	Comparables []ComparableSale  `yaml:"comparables,omitempty" json:"comparables,omitempty"`
	Settings    settings.Settings `yaml:"settings" json:"settings"`
}

// With returns a copy of the scenario with the numeric value at path replaced.
func (sc Scenario) With(path string, value float64) (Scenario, error) {
	return fieldpath.Set(sc, path, value)
}

// Value returns the reconciled valuation of one facility.
func Value(f Facility, comps []ComparableSale, s settings.Settings) (ValuationResult, error) {
	return NewEngine(nil).Value(f, comps, s)
}

// ValueScenario values the scenario's facility against its comparables and settings.
func (e *Engine) ValueScenario(sc Scenario) (ValuationResult, error) {
	return e.Value(sc.Facility, sc.Comparables, sc.Settings)
}

// Value returns the reconciled valuation of one facility. Missing data is
// reported in the result; errors are reserved for invalid input.
func (e *Engine) Value(f Facility, comps []ComparableSale, s settings.Settings) (ValuationResult, error) {
	assetType, err := settings.ParseAssetType(string(f.AssetType))
	if err != nil {
		return ValuationResult{}, err
	}
	f.AssetType = assetType
	if f.Beds != nil && *f.Beds < 0 {
		return ValuationResult{}, eris.Wrapf(ErrNegativeBeds, "facility has %d beds", *f.Beds)
	}

	ats, err := settings.Resolve(s, assetType, f.State)
	if err != nil {
		return ValuationResult{}, err
	}
	sub := newSubject(f, s)

	var methods Methods
	if methods.CapRate, err = capRateValue(sub, s, ats); err != nil {
		return ValuationResult{}, err
	}
	methods.PricePerBed = pricePerBedValue(sub, ats)
	methods.DCF = dcfValue(sub, s, ats)
	methods.NOIMultiple = noiMultipleValue(sub, ats)
	if methods.ComparableSales, err = comparableSalesValue(sub, comps, s, ats); err != nil {
		return ValuationResult{}, err
	}
	methods.ReplacementCost = replacementCostValue(sub, ats)

	assignWeights(&methods, ats.MethodWeights)

	result, err := Reconcile(methods, s.Reconciliation)
	if err != nil {
		return ValuationResult{}, eris.Wrap(err, "reconcile")
	}

	e.logger.Debug("valued facility",
		zap.String("op", "valuation.Value"),
		zap.String("facility", f.Name),
		zap.String("assetType", string(assetType)),
		zap.Float64("reconciledValue", result.ReconciledValue),
		zap.String("confidence", string(result.OverallConfidence)),
	)
	return result, nil
}

func assignWeights(m *Methods, w settings.MethodWeights) {
	for _, pair := range []struct {
		result *MethodResult
		weight float64
	}{
		{&m.CapRate, w.CapRate},
		{&m.PricePerBed, w.PricePerBed},
		{&m.DCF, w.DCF},
		{&m.NOIMultiple, w.NOIMultiple},
		{&m.ComparableSales, w.ComparableSales},
		{&m.ReplacementCost, w.ReplacementCost},
	} {
		if pair.result.Applicable {
			pair.result.Weight = pair.weight
		}
	}
}
