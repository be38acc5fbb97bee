package valuation

import (
	"errors"
	"fmt"
	"math"

	"github.com/rotisserie/eris"

	"github.com/iwvelando/facility-valuation/internal/settings"
	"github.com/iwvelando/facility-valuation/pkg/mathutil"
)

// adjustedComparable is a qualifying comparable after adjustment.
type adjustedComparable struct {
	sale        ComparableSale
	adjustment  float64
	pricePerBed float64
	weight      float64
}

func comparableSalesValue(sub subject, comps []ComparableSale, s settings.Settings, ats settings.AssetTypeSettings) (MethodResult, error) {
	f := sub.facility
	cfg := s.ComparableSales
	b := newBuilder(MethodComparableSales)

	comps, err := normalizeComparables(comps)
	if err != nil {
		return MethodResult{}, err
	}

	if !b.require([]requirement{
		{name: "beds", present: has(f.Beds), essential: true},
		{name: "occupancyRate", present: has(f.OccupancyRate)},
		{name: "qualityRating", present: has(sub.quality)},
		{name: "buildingAge", present: has(f.BuildingAge)},
	}) {
		return b.notApplicable("insufficient data"), nil
	}
	missing := 0
	for _, present := range []bool{has(f.OccupancyRate), has(sub.quality), has(f.BuildingAge)} {
		if !present {
			missing++
		}
	}
	beds := *sub.beds
	if beds == 0 {
		return b.notApplicable("facility has no beds"), nil
	}

	var used []adjustedComparable
	rejected := 0
	for _, c := range comps {
		if !qualifies(c, f.AssetType, beds, cfg) {
			rejected++
			continue
		}
		adj := adjustComparable(sub, c, cfg)
		used = append(used, adjustedComparable{
			sale:        c,
			adjustment:  adj,
			pricePerBed: c.PricePerBed * (1 + adj),
			weight:      comparableWeight(sub, c, cfg),
		})
	}
	b.number("comparablesUsed", float64(len(used)))
	b.number("comparablesRejected", float64(rejected))
	if len(used) == 0 {
		return b.notApplicable("no qualifying comparable sales"), nil
	}

	prices := make([]float64, len(used))
	weights := make([]float64, len(used))
	absAdjustments := make([]float64, len(used))
	for i, u := range used {
		prices[i] = u.pricePerBed
		weights[i] = u.weight
		absAdjustments[i] = math.Abs(u.adjustment)
		b.adjust(fmt.Sprintf("comparable %s", comparableLabel(u.sale, i)), u.adjustment)
	}
	perBed, err := mathutil.WeightedMean(prices, weights)
	if errors.Is(err, mathutil.ErrZeroWeight) {
		perBed = mathutil.Mean(prices)
	} else if err != nil {
		return MethodResult{}, eris.Wrap(err, "comparable sales weighting")
	}
	perBed = mathutil.Clamp(perBed, ats.ComparableSales.MinPerBed, ats.ComparableSales.MaxPerBed)

	meanAdjustment := mathutil.Mean(absAdjustments)
	b.result.Confidence = comparableConfidence(len(used), meanAdjustment, cfg.Confidence)
	for i := 0; i < missing; i++ {
		b.downgrade()
	}

	b.number("beds", beds)
	b.number("weightedPricePerBed", perBed)
	b.number("meanAbsoluteAdjustment", meanAdjustment)
	return b.done(beds * perBed), nil
}

// normalizeComparables checks every comparable and returns copies whose asset
// type is in canonical form. An empty asset type matches any facility.
func normalizeComparables(comps []ComparableSale) ([]ComparableSale, error) {
	out := make([]ComparableSale, len(comps))
	for i, c := range comps {
		if c.Beds < 0 {
			return nil, eris.Wrapf(ErrNegativeBeds, "comparable %s has %d beds", c.ID, c.Beds)
		}
		if c.AssetType != "" {
			assetType, err := settings.ParseAssetType(string(c.AssetType))
			if err != nil {
				return nil, eris.Wrapf(err, "comparable %s", comparableLabel(c, i))
			}
			c.AssetType = assetType
		}
		out[i] = c
	}
	return out, nil
}

func comparableLabel(c ComparableSale, i int) string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	}
	return fmt.Sprintf("#%d", i+1)
}

// qualifies applies the asset type, radius, recency and bed variance filters.
// A zero limit disables that filter.
func qualifies(c ComparableSale, assetType settings.AssetType, beds float64, cfg settings.ComparableSalesSettings) bool {
	if c.AssetType != "" && c.AssetType != assetType {
		return false
	}
	if c.Beds <= 0 || c.PricePerBed <= 0 {
		return false
	}
	if cfg.MaxDistanceMiles > 0 && c.DistanceMiles > cfg.MaxDistanceMiles {
		return false
	}
	if cfg.MaxSaleAgeMonths > 0 && c.SaleAgeMonths > cfg.MaxSaleAgeMonths {
		return false
	}
	if cfg.MaxBedVariancePercent > 0 && math.Abs(float64(c.Beds)-beds) > mathutil.ApplyPercentage(beds, cfg.MaxBedVariancePercent) {
		return false
	}
	return true
}

func bedVariancePercent(compBeds, beds float64) float64 {
	return mathutil.CalculatePercentage(math.Abs(compBeds-beds), beds)
}

// adjustComparable returns the total fractional price adjustment that moves
// the comparable's price per bed towards the subject.
func adjustComparable(sub subject, c ComparableSale, cfg settings.ComparableSalesSettings) float64 {
	f := sub.facility
	rates := cfg.AdjustmentRates
	parts := []float64{-rates.DistancePerMile * c.DistanceMiles}
	if f.BuildingAge != nil && c.BuildingAge != nil {
		parts = append(parts, (*c.BuildingAge-*f.BuildingAge)*rates.AgePerYear)
	}
	if f.OccupancyRate != nil && c.OccupancyRate != nil {
		parts = append(parts, (*f.OccupancyRate-*c.OccupancyRate)*100*rates.OccupancyPerPoint)
	}
	if sub.quality != nil && c.QualityRating != nil && *c.QualityRating > 0 {
		parts = append(parts, (*sub.quality-float64(*c.QualityRating))*rates.QualityPerStar)
	}
	if sub.medicaid != nil && c.MedicaidShare != nil {
		parts = append(parts, (*c.MedicaidShare-*sub.medicaid)*100*rates.PayerMixPerPoint)
	}
	parts = append(parts, (*sub.beds-float64(c.Beds))/10*rates.BedsPerTen)

	total := 0.0
	for _, p := range parts {
		total += capAbs(p, cfg.MaxAdjustments.Individual)
	}
	return capAbs(total, cfg.MaxAdjustments.Total)
}

func capAbs(v, limit float64) float64 {
	if limit <= 0 {
		return v
	}
	return mathutil.Clamp(v, -limit, limit)
}

// comparableWeight scores similarity in [0, 1] per factor and combines the
// factors with the configured weighting.
func comparableWeight(sub subject, c ComparableSale, cfg settings.ComparableSalesSettings) float64 {
	w := cfg.Weighting
	distance := similarity(c.DistanceMiles, cfg.MaxDistanceMiles)
	recency := similarity(c.SaleAgeMonths, cfg.MaxSaleAgeMonths)
	size := similarity(bedVariancePercent(float64(c.Beds), *sub.beds), cfg.MaxBedVariancePercent)
	quality := 0.5
	if sub.quality != nil && c.QualityRating != nil && *c.QualityRating > 0 {
		quality = mathutil.Clamp(1-math.Abs(*sub.quality-float64(*c.QualityRating))/5, 0, 1)
	}
	return w.Distance*distance + w.Recency*recency + w.Size*size + w.Quality*quality
}

func similarity(gap, limit float64) float64 {
	if limit <= 0 {
		return 1
	}
	return mathutil.Clamp(1-gap/limit, 0, 1)
}

func comparableConfidence(count int, meanAdjustment float64, cut settings.ComparableConfidenceCut) Confidence {
	switch {
	case count >= cut.HighMinCount && meanAdjustment <= cut.HighMaxAdjustment:
		return ConfidenceHigh
	case count >= cut.MediumMinCount && meanAdjustment <= cut.MediumMaxAdjustment:
		return ConfidenceMedium
	}
	return ConfidenceLow
}
