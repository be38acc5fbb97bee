package valuation

import (
	"github.com/iwvelando/facility-valuation/internal/settings"
	"github.com/iwvelando/facility-valuation/pkg/mathutil"
)

// replacementCostValue is the cost approach: regional replacement cost per bed
// less obsolescence and age-based depreciation.
func replacementCostValue(sub subject, ats settings.AssetTypeSettings) MethodResult {
	f := sub.facility
	t := ats.ReplacementCost
	b := newBuilder(MethodReplacementCost)

	if !b.require([]requirement{
		{name: "beds", present: has(f.Beds), essential: true},
		{name: "buildingAge", present: has(f.BuildingAge)},
	}) {
		return b.notApplicable("insufficient data")
	}
	beds := *sub.beds
	if beds == 0 {
		return b.notApplicable("facility has no beds")
	}

	cost := t.CostPerBed
	if sub.hasRegion && multiplier(sub.region.CostMultiplier) != 1 {
		cost *= sub.region.CostMultiplier
		b.adjust("region: "+sub.regionKey, sub.region.CostMultiplier)
	}

	depreciation := 0.0
	if f.BuildingAge != nil && *f.BuildingAge > 0 {
		depreciation = *f.BuildingAge * t.DepreciationRateAnnual
		b.adjust("physical depreciation", -depreciation)
	}
	if t.FunctionalObsolescence != 0 {
		b.adjust("functional obsolescence", -t.FunctionalObsolescence)
	}
	if t.EconomicObsolescence != 0 {
		b.adjust("economic obsolescence", -t.EconomicObsolescence)
	}
	remaining := 1 - t.FunctionalObsolescence - t.EconomicObsolescence - depreciation
	if remaining <= 0 {
		return b.notApplicable("improvements are fully depreciated")
	}

	perBed := mathutil.Clamp(cost*remaining, t.MinPerBed, t.MaxPerBed)

	b.number("beds", beds)
	b.number("replacementCostPerBed", cost)
	b.number("remainingLife", remaining)
	b.number("depreciatedCostPerBed", perBed)
	return b.done(beds * perBed)
}
