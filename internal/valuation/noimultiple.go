package valuation

import (
	"github.com/iwvelando/facility-valuation/internal/settings"
	"github.com/iwvelando/facility-valuation/pkg/mathutil"
)

func noiMultipleValue(sub subject, ats settings.AssetTypeSettings) MethodResult {
	f := sub.facility
	t := ats.NOIMultiple
	b := newBuilder(MethodNOIMultiple)

	if !b.require([]requirement{
		{name: "noi", present: has(f.NOI), essential: true},
		{name: "occupancyRate", present: has(f.OccupancyRate)},
		{name: "qualityRating", present: has(sub.quality)},
		{name: "beds", present: has(f.Beds)},
	}) {
		return b.notApplicable("insufficient data")
	}
	noi := *f.NOI
	if noi <= 0 {
		return b.notApplicable("NOI is not positive")
	}

	multiple := t.Base + b.applyAdditive([]step{
		numericStep("growth", t.Growth, f.NOIGrowthRate),
		numericStep("stability", t.Stability, f.OccupancyRate),
		numericStep("market position", t.MarketPosition, sub.beds),
		numericStep("quality", t.Quality, sub.quality),
	})
	multiple = mathutil.Clamp(multiple, t.Min, t.Max)

	b.number("noi", noi)
	b.number("baseMultiple", t.Base)
	b.number("multiple", multiple)
	return b.done(noi * multiple)
}
