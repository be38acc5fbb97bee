package validation

import (
	"fmt"
	"math"

	"github.com/iwvelando/facility-valuation/internal/settings"
	"github.com/iwvelando/facility-valuation/internal/valuation"
)

// payerMixTolerance is the allowed drift of payer shares away from 1.
const payerMixTolerance = 0.02

// ValidateFacility checks facility attributes before valuation. Missing
// attributes are allowed; values that are present must be in range.
func ValidateFacility(f valuation.Facility) []string {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if _, err := settings.ParseAssetType(string(f.AssetType)); err != nil {
		add("assetType %q must be one of SNF, ALF or ILF", f.AssetType)
	}
	if f.Beds != nil && *f.Beds < 0 {
		add("beds must not be negative, got %d", *f.Beds)
	}
	if f.BuildingAge != nil && *f.BuildingAge < 0 {
		add("buildingAge must not be negative, got %g", *f.BuildingAge)
	}
	if f.OccupancyRate != nil && !between(*f.OccupancyRate, 0, 1) {
		add("occupancyRate must be a fraction between 0 and 1, got %g", *f.OccupancyRate)
	}
	if f.QualityRating != nil && (*f.QualityRating < 0 || *f.QualityRating > 5) {
		add("qualityRating must be between 0 (unrated) and 5, got %d", *f.QualityRating)
	}
	if f.CMSRatings != nil {
		for name, r := range map[string]*int{
			"healthInspection": f.CMSRatings.HealthInspection,
			"staffing":         f.CMSRatings.Staffing,
			"qualityMeasures":  f.CMSRatings.QualityMeasures,
		} {
			if r != nil && (*r < 0 || *r > 5) {
				add("cmsRatings.%s must be between 0 and 5, got %d", name, *r)
			}
		}
	}
	if p := f.PayerMix; p != nil {
		for _, share := range []float64{p.Medicare, p.Medicaid, p.Private, p.Other} {
			if !between(share, 0, 1) {
				add("payerMix shares must be fractions between 0 and 1")
				break
			}
		}
		if total := p.Medicare + p.Medicaid + p.Private + p.Other; math.Abs(total-1) > payerMixTolerance {
			add("payerMix shares sum to %.2f, expected 1.00", total)
		}
	}
	if f.AcuityIndex != nil && *f.AcuityIndex <= 0 {
		add("acuityIndex must be positive, got %g", *f.AcuityIndex)
	}
	if f.Revenue != nil && *f.Revenue < 0 {
		add("revenue must not be negative, got %g", *f.Revenue)
	}
	return problems
}

// ValidateComparables checks the comparable sales supplied with a facility.
func ValidateComparables(comps []valuation.ComparableSale) []string {
	var problems []string
	for i, c := range comps {
		id := c.ID
		if id == "" {
			id = fmt.Sprintf("#%d", i+1)
		}
		if c.Beds <= 0 {
			problems = append(problems, fmt.Sprintf("comparable %s: beds must be positive, got %d", id, c.Beds))
		}
		if c.PricePerBed <= 0 {
			problems = append(problems, fmt.Sprintf("comparable %s: pricePerBed must be positive", id))
		}
		if c.DistanceMiles < 0 || c.SaleAgeMonths < 0 {
			problems = append(problems, fmt.Sprintf("comparable %s: distance and sale age must not be negative", id))
		}
	}
	return problems
}

func between(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}
