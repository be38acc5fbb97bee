package valuation

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/iwvelando/facility-valuation/internal/settings"
	"github.com/iwvelando/facility-valuation/pkg/mathutil"
)

// capRateValue capitalises NOI at an adjusted, clamped cap rate.
func capRateValue(sub subject, s settings.Settings, ats settings.AssetTypeSettings) (MethodResult, error) {
	f := sub.facility
	t := ats.CapRate
	b := newBuilder(MethodCapRate)

	if !b.require([]requirement{
		{name: "noi", present: has(f.NOI), essential: true},
		{name: "beds", present: has(f.Beds)},
		{name: "occupancyRate", present: has(f.OccupancyRate)},
		{name: "qualityRating", present: has(sub.quality)},
	}) {
		return b.notApplicable("insufficient data"), nil
	}
	noi := *f.NOI
	if noi <= 0 {
		return b.notApplicable("NOI is not positive"), nil
	}

	rate := t.Base + b.applyAdditive([]step{
		numericStep("quality", t.Quality, sub.quality),
		numericStep("size", t.Size, sub.beds),
		numericStep("age", t.Age, f.BuildingAge),
		numericStep("occupancy", t.Occupancy, f.OccupancyRate),
		numericStep("payer mix", t.PayerMix, sub.medicaid),
		numericStep("acuity", t.Acuity, f.AcuityIndex),
		categoryStep("ownership", t.Ownership, f.Ownership),
		categoryStep("chain", t.Chain, f.Chain),
		categoryStep("market", t.MarketCondition, f.MarketCondition),
		categoryStep("competition", t.Competition, f.Competition),
		categoryStep("condition", t.Renovation, f.Condition),
		categoryStep("regulatory", t.Regulatory, f.RegulatoryStatus),
	})
	if sub.hasRegion && sub.region.CapRateAdjustment != 0 {
		rate += sub.region.CapRateAdjustment
		b.adjust("region: "+sub.regionKey, sub.region.CapRateAdjustment)
	}

	rate = mathutil.Clamp(rate, math.Max(t.Min, s.GlobalMinCapRate), math.Min(t.Max, s.GlobalMaxCapRate))
	if rate <= 0 {
		return MethodResult{}, eris.Wrapf(ErrZeroDenominator, "%s cap rate %.4f", f.AssetType, rate)
	}

	b.number("noi", noi)
	b.number("baseCapRate", t.Base)
	b.number("capRate", rate)
	return b.done(noi / rate), nil
}
