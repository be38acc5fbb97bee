package settings

import (
	"fmt"

	"github.com/iwvelando/facility-valuation/pkg/constants"
	"github.com/iwvelando/facility-valuation/pkg/mathutil"
)

// ValidationResult reports whether a settings object is usable and why not.
type ValidationResult struct {
	Valid  bool     `json:"valid" yaml:"valid"`
	Errors []string `json:"errors" yaml:"errors"`
}

// Validate checks the structural constraints a caller should enforce before
// using settings in production. It never panics and never stops at the first
// problem.
func Validate(s Settings) ValidationResult {
	var errs []string

	if !(s.GlobalMinCapRate < s.GlobalMaxCapRate) {
		errs = append(errs, fmt.Sprintf("globalMinCapRate %.4f must be less than globalMaxCapRate %.4f",
			s.GlobalMinCapRate, s.GlobalMaxCapRate))
	}

	for _, assetType := range AllAssetTypes {
		ats, _ := s.AssetTypes.Get(assetType)
		if !ats.Active {
			continue
		}
		if sum := ats.MethodWeights.Sum(); !sumsToOne(sum) {
			errs = append(errs, fmt.Sprintf("%s method weights sum to %.2f, expected 1.00", assetType, sum))
		}
		errs = append(errs, validateClamps(assetType, ats)...)
	}

	if sum := s.CMSScoring.Sum(); !sumsToOne(sum) {
		errs = append(errs, fmt.Sprintf("CMS scoring category weights sum to %.2f, expected 1.00", sum))
	}
	if sum := s.RiskWeights.Sum(); !sumsToOne(sum) {
		errs = append(errs, fmt.Sprintf("risk category weights sum to %.2f, expected 1.00", sum))
	}
	if sum := s.ComparableSales.Weighting.Sum(); !sumsToOne(sum) {
		errs = append(errs, fmt.Sprintf("comparable sales weighting factors sum to %.2f, expected 1.00", sum))
	}

	if s.Reconciliation.ExcludeOutliers && s.Reconciliation.OutlierThresholdPercent <= 0 {
		errs = append(errs, fmt.Sprintf("outlierThresholdPercent %.2f must be positive", s.Reconciliation.OutlierThresholdPercent))
	}
	m := s.Reconciliation.ConfidenceMultipliers
	if m.High <= 0 || m.Medium <= 0 || m.Low <= 0 {
		errs = append(errs, "confidence multipliers must all be positive")
	}

	if s.DCF.MaxProjectionYears > 0 && s.DCF.ProjectionYears > s.DCF.MaxProjectionYears {
		errs = append(errs, fmt.Sprintf("dcf projectionYears %d exceeds maxProjectionYears %d (it will be capped)",
			s.DCF.ProjectionYears, s.DCF.MaxProjectionYears))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func validateClamps(assetType AssetType, ats AssetTypeSettings) []string {
	ranges := []struct {
		name     string
		min, max float64
	}{
		{"capRate", ats.CapRate.Min, ats.CapRate.Max},
		{"pricePerBed", ats.PricePerBed.Min, ats.PricePerBed.Max},
		{"noiMultiple", ats.NOIMultiple.Min, ats.NOIMultiple.Max},
		{"dcf discount rate", ats.DCF.MinDiscountRate, ats.DCF.MaxDiscountRate},
		{"dcf per bed", ats.DCF.MinPerBed, ats.DCF.MaxPerBed},
		{"replacementCost per bed", ats.ReplacementCost.MinPerBed, ats.ReplacementCost.MaxPerBed},
		{"comparableSales per bed", ats.ComparableSales.MinPerBed, ats.ComparableSales.MaxPerBed},
	}

	var errs []string
	for _, r := range ranges {
		if r.min > r.max {
			errs = append(errs, fmt.Sprintf("%s %s clamp min %.4f exceeds max %.4f", assetType, r.name, r.min, r.max))
		}
	}
	return errs
}

func sumsToOne(sum float64) bool {
	return mathutil.WithinTolerance(sum, 1, constants.WeightSumTolerance+constants.FloatTolerance)
}
