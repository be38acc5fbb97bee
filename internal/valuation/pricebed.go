package valuation

import (
	"github.com/iwvelando/facility-valuation/internal/settings"
	"github.com/iwvelando/facility-valuation/pkg/mathutil"
)

// pricePerBedValue multiplies beds by an adjusted, clamped price per bed.
func pricePerBedValue(sub subject, ats settings.AssetTypeSettings) MethodResult {
	f := sub.facility
	t := ats.PricePerBed
	b := newBuilder(MethodPricePerBed)

	if !b.require([]requirement{
		{name: "beds", present: has(f.Beds), essential: true},
		{name: "occupancyRate", present: has(f.OccupancyRate)},
		{name: "qualityRating", present: has(sub.quality)},
		{name: "buildingAge", present: has(f.BuildingAge)},
	}) {
		return b.notApplicable("insufficient data")
	}
	beds := *sub.beds
	if beds == 0 {
		return b.notApplicable("facility has no beds")
	}

	perBed := t.Base * b.applyMultiplicative([]step{
		numericStep("quality", t.Quality, sub.quality),
		numericStep("size", t.Size, sub.beds),
		numericStep("age", t.Age, f.BuildingAge),
		numericStep("occupancy", t.Occupancy, f.OccupancyRate),
		numericStep("payer mix", t.PayerMix, sub.medicaid),
		categoryStep("condition", t.Renovation, f.Condition),
		categoryStep("regulatory", t.Regulatory, f.RegulatoryStatus),
	})
	if sub.hasRegion && multiplier(sub.region.PriceMultiplier) != 1 {
		perBed *= sub.region.PriceMultiplier
		b.adjust("region: "+sub.regionKey, sub.region.PriceMultiplier)
	}
	perBed = mathutil.Clamp(perBed, t.Min, t.Max)

	b.number("beds", beds)
	b.number("basePricePerBed", t.Base)
	b.number("pricePerBed", perBed)
	return b.done(beds * perBed)
}
