package valuation

import (
	"fmt"
	"math"

	"github.com/iwvelando/facility-valuation/internal/settings"
	"github.com/iwvelando/facility-valuation/pkg/constants"
	"github.com/iwvelando/facility-valuation/pkg/mathutil"
)

// NoApplicableMethod is the confidence factor reported when nothing could be valued.
const NoApplicableMethod = "no valuation method was applicable"

// Reconcile merges the method results into one confidence-weighted value.
// Each result's Weight must hold its configured weight; the returned methods
// carry the effective weights. Methods that are not applicable or have zero
// weight are excluded.
func Reconcile(methods Methods, rs settings.ReconciliationSettings) (ValuationResult, error) {
	list := methods.List()
	result := ValuationResult{
		EffectiveWeights:  make(map[string]float64, len(list)),
		OverallConfidence: ConfidenceLow,
		ConfidenceFactors: []string{},
	}

	var candidates []int
	for i, m := range list {
		result.EffectiveWeights[m.Method] = 0
		switch {
		case !m.Applicable:
			result.ConfidenceFactors = append(result.ConfidenceFactors, notApplicableFactor(m))
		case m.Weight > 0:
			candidates = append(candidates, i)
		}
	}

	if len(candidates) == 0 {
		result.ConfidenceFactors = append(result.ConfidenceFactors, NoApplicableMethod)
		result.Methods = withWeights(list, nil)
		return result, nil
	}

	if rs.ExcludeOutliers {
		var notes []string
		candidates, notes = excludeOutliers(list, candidates, rs.OutlierThresholdPercent)
		result.ConfidenceFactors = append(result.ConfidenceFactors, notes...)
	}

	values := make([]float64, len(candidates))
	weights := make([]float64, len(candidates))
	for k, i := range candidates {
		values[k] = list[i].Value
		weights[k] = list[i].Weight
	}
	weights, err := mathutil.Normalize(weights)
	if err != nil {
		return ValuationResult{}, err
	}
	for k, i := range candidates {
		weights[k] *= confidenceMultiplier(list[i].Confidence, rs.ConfidenceMultipliers)
	}
	weights, err = mathutil.Normalize(weights)
	if err != nil {
		return ValuationResult{}, err
	}

	reconciled, err := mathutil.WeightedMean(values, weights)
	if err != nil {
		return ValuationResult{}, err
	}
	low, high := values[0], values[0]
	for _, v := range values[1:] {
		low = math.Min(low, v)
		high = math.Max(high, v)
	}

	effective := make(map[int]float64, len(candidates))
	tierWeight := make(map[Confidence]float64, 3)
	for k, i := range candidates {
		effective[i] = weights[k]
		result.EffectiveWeights[list[i].Method] = weights[k]
		tierWeight[list[i].Confidence] += weights[k]
		if list[i].Confidence == ConfidenceHigh {
			result.ConfidenceFactors = append(result.ConfidenceFactors, list[i].Method+" (high confidence)")
		}
	}

	result.ReconciledValue = mathutil.Clamp(reconciled, low, high)
	result.ValueLow = low
	result.ValueHigh = high
	result.OverallConfidence = dominantTier(tierWeight)
	result.Methods = withWeights(list, effective)
	return result, nil
}

// excludeOutliers drops candidates more than threshold percent from the
// median. It never drops every candidate.
func excludeOutliers(list []MethodResult, candidates []int, threshold float64) ([]int, []string) {
	if len(candidates) < 2 {
		return candidates, nil
	}
	if threshold <= 0 {
		threshold = constants.DefaultOutlierThresholdPercent
	}
	values := make([]float64, len(candidates))
	for k, i := range candidates {
		values[k] = list[i].Value
	}
	median := mathutil.Median(values)
	if mathutil.IsZero(median) {
		return candidates, nil
	}

	var kept []int
	var notes []string
	for _, i := range candidates {
		deviation := mathutil.CalculatePercentage(math.Abs(list[i].Value-median), math.Abs(median))
		if deviation > threshold {
			notes = append(notes, fmt.Sprintf("%s excluded as outlier (%.1f%% from median)", list[i].Method, deviation))
			continue
		}
		kept = append(kept, i)
	}
	if len(kept) == 0 {
		return candidates, []string{"outlier exclusion skipped: every method deviates from the median"}
	}
	return kept, notes
}

func confidenceMultiplier(c Confidence, m settings.ConfidenceMultipliers) float64 {
	var v, fallback float64
	switch c {
	case ConfidenceHigh:
		v, fallback = m.High, constants.HighConfidenceMultiplier
	case ConfidenceMedium:
		v, fallback = m.Medium, constants.MediumConfidenceMultiplier
	default:
		v, fallback = m.Low, constants.LowConfidenceMultiplier
	}
	if v <= 0 {
		return fallback
	}
	return v
}

// dominantTier returns the tier carrying the most effective weight; ties go
// to the lower tier.
func dominantTier(weights map[Confidence]float64) Confidence {
	best := ConfidenceLow
	for _, c := range []Confidence{ConfidenceMedium, ConfidenceHigh} {
		if weights[c] > weights[best]+constants.FloatTolerance {
			best = c
		}
	}
	return best
}

func notApplicableFactor(m MethodResult) string {
	if len(m.Notes) == 0 {
		return m.Method + " not applicable"
	}
	return m.Method + " not applicable: " + m.Notes[len(m.Notes)-1]
}

func withWeights(list []MethodResult, effective map[int]float64) Methods {
	for i := range list {
		list[i].Weight = effective[i]
	}
	return Methods{
		CapRate:         list[0],
		PricePerBed:     list[1],
		DCF:             list[2],
		NOIMultiple:     list[3],
		ComparableSales: list[4],
		ReplacementCost: list[5],
	}
}
