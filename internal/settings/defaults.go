package settings

import "github.com/iwvelando/facility-valuation/pkg/constants"

// DefaultVersion labels the built-in settings.
const DefaultVersion = "default"

// Shared bracket skeletons. Adjustments are SNF-calibrated and scaled per asset type.
var (
	qualitySpecs = []bracketSpec{
		{"1 star", bound(1), bound(2), 0},
		{"2 star", bound(2), bound(3), 0},
		{"3 star", bound(3), bound(4), 0},
		{"4 star", bound(4), bound(5), 0},
		{"5 star", bound(5), nil, 0},
	}
	sizeSpecs = []bracketSpec{
		{"under 60 beds", nil, bound(60), 0},
		{"60-99 beds", bound(60), bound(100), 0},
		{"100-149 beds", bound(100), bound(150), 0},
		{"150-199 beds", bound(150), bound(200), 0},
		{"200+ beds", bound(200), nil, 0},
	}
	ageSpecs = []bracketSpec{
		{"under 10 years", nil, bound(10), 0},
		{"10-24 years", bound(10), bound(25), 0},
		{"25-39 years", bound(25), bound(40), 0},
		{"40+ years", bound(40), nil, 0},
	}
	occupancySpecs = []bracketSpec{
		{"below 75%", nil, bound(0.75), 0},
		{"75-85%", bound(0.75), bound(0.85), 0},
		{"85-92%", bound(0.85), bound(0.92), 0},
		{"92%+", bound(0.92), nil, 0},
	}
	medicaidSpecs = []bracketSpec{
		{"medicaid below 50%", nil, bound(0.5), 0},
		{"medicaid 50-70%", bound(0.5), bound(0.7), 0},
		{"medicaid 70%+", bound(0.7), nil, 0},
	}
	acuitySpecs = []bracketSpec{
		{"low acuity", nil, bound(0.9), 0},
		{"average acuity", bound(0.9), bound(1.1), 0},
		{"high acuity", bound(1.1), nil, 0},
	}

	ownershipPairs   = [][2]string{{"for-profit", "for_profit"}, {"non-profit", "non_profit"}, {"government", "government"}}
	chainPairs       = [][2]string{{"independent", "independent"}, {"regional chain", "regional"}, {"national chain", "national"}}
	marketPairs      = [][2]string{{"strong market", "strong"}, {"stable market", "stable"}, {"soft market", "soft"}}
	competitionPairs = [][2]string{{"low competition", "low"}, {"moderate competition", "moderate"}, {"high competition", "high"}}
	renovationPairs  = [][2]string{{"recently renovated", "renovated"}, {"good condition", "good"}, {"fair condition", "fair"}, {"poor condition", "poor"}}
	regulatoryPairs  = [][2]string{{"clean survey history", "clean"}, {"survey deficiencies", "deficiencies"}, {"special focus facility", "special_focus"}}
)

func withAdjustments(specs []bracketSpec, adjustments ...float64) []bracketSpec {
	out := make([]bracketSpec, len(specs))
	copy(out, specs)
	for i := range out {
		out[i].adj = adjustments[i]
	}
	return out
}

func capRateTable(base, min, max, scale float64) CapRateTable {
	s := additive(scale)
	return CapRateTable{
		Base:            base,
		Min:             min,
		Max:             max,
		Quality:         buildNumeric(withAdjustments(qualitySpecs, 0.015, 0.0075, 0, -0.005, -0.01), s),
		Size:            buildNumeric(withAdjustments(sizeSpecs, 0.01, 0.005, 0, -0.0025, -0.005), s),
		Age:             buildNumeric(withAdjustments(ageSpecs, -0.005, 0, 0.005, 0.01), s),
		Occupancy:       buildNumeric(withAdjustments(occupancySpecs, 0.015, 0.0075, 0, -0.005), s),
		PayerMix:        buildNumeric(withAdjustments(medicaidSpecs, -0.005, 0, 0.01), s),
		Acuity:          buildNumeric(withAdjustments(acuitySpecs, 0.0025, 0, -0.0025), s),
		Ownership:       buildCategory(ownershipPairs, []float64{0, 0.0025, 0.005}, s),
		Chain:           buildCategory(chainPairs, []float64{0.0025, 0, -0.0025}, s),
		MarketCondition: buildCategory(marketPairs, []float64{-0.005, 0, 0.0075}, s),
		Competition:     buildCategory(competitionPairs, []float64{-0.0025, 0, 0.005}, s),
		Renovation:      buildCategory(renovationPairs, []float64{-0.005, 0, 0.005, 0.01}, s),
		Regulatory:      buildCategory(regulatoryPairs, []float64{0, 0.005, 0.02}, s),
	}
}

func pricePerBedTable(base, min, max, scale float64) PricePerBedTable {
	m := multiplicative(scale)
	return PricePerBedTable{
		Base:       base,
		Min:        min,
		Max:        max,
		Quality:    buildNumeric(withAdjustments(qualitySpecs, 0.80, 0.90, 1.0, 1.08, 1.15), m),
		Size:       buildNumeric(withAdjustments(sizeSpecs, 0.92, 0.97, 1.0, 1.03, 1.05), m),
		Age:        buildNumeric(withAdjustments(ageSpecs, 1.10, 1.0, 0.92, 0.85), m),
		Occupancy:  buildNumeric(withAdjustments(occupancySpecs, 0.85, 0.93, 1.0, 1.05), m),
		PayerMix:   buildNumeric(withAdjustments(medicaidSpecs, 1.05, 1.0, 0.92), m),
		Renovation: buildCategory(renovationPairs, []float64{1.08, 1.0, 0.94, 0.85}, m),
		Regulatory: buildCategory(regulatoryPairs, []float64{1.0, 0.95, 0.80}, m),
	}
}

func noiMultipleTable(base, min, max float64) NOIMultipleTable {
	s := additive(1)
	return NOIMultipleTable{
		Base: base,
		Min:  min,
		Max:  max,
		Growth: buildNumeric([]bracketSpec{
			{"declining NOI", nil, bound(0), -1.0},
			{"flat NOI", bound(0), bound(0.02), 0},
			{"growing NOI", bound(0.02), bound(0.05), 0.5},
			{"strong NOI growth", bound(0.05), nil, 1.0},
		}, s),
		Stability:      buildNumeric(withAdjustments(occupancySpecs, -1.0, -0.5, 0, 0.5), s),
		MarketPosition: buildNumeric([]bracketSpec{{"small operator", nil, bound(60), -0.5}, {"mid-size", bound(60), bound(150), 0}, {"large operator", bound(150), nil, 0.5}}, s),
		Quality:        buildNumeric(withAdjustments(qualitySpecs, -1.0, -0.5, 0, 0.5, 1.0), s),
	}
}

// Default returns the built-in settings. Every call returns a fresh value.
func Default() Settings {
	return Settings{
		Version:          DefaultVersion,
		GlobalMinCapRate: 0.04,
		GlobalMaxCapRate: 0.20,
		AssetTypes: AssetTypeTables{
			SNF: AssetTypeSettings{
				Active:        true,
				MethodWeights: MethodWeights{CapRate: 0.30, PricePerBed: 0.15, DCF: 0.20, NOIMultiple: 0.15, ComparableSales: 0.15, ReplacementCost: 0.05},
				CapRate:       capRateTable(0.125, 0.09, 0.16, 1.0),
				PricePerBed:   pricePerBedTable(95000, 40000, 200000, 1.0),
				NOIMultiple:   noiMultipleTable(7.5, 5, 11),
				DCF: DCFTable{
					RevenueGrowth: 0.025, ExpenseGrowth: 0.03, TargetOccupancy: 0.88, OccupancyRampPerYear: 0.02,
					DefaultExpenseRatio: 0.85, RoutineCapexPerBed: 500, MajorCapexPercent: 0.01,
					MinDiscountRate: 0.09, MaxDiscountRate: 0.20, MinPerBed: 30000, MaxPerBed: 250000,
				},
				ReplacementCost: ReplacementCostTable{CostPerBed: 210000, FunctionalObsolescence: 0.05, EconomicObsolescence: 0.03, DepreciationRateAnnual: 0.02, MinPerBed: 20000, MaxPerBed: 300000},
				ComparableSales: ComparableSalesClamp{MinPerBed: 30000, MaxPerBed: 250000},
			},
			ALF: AssetTypeSettings{
				Active:        true,
				MethodWeights: MethodWeights{CapRate: 0.25, PricePerBed: 0.15, DCF: 0.20, NOIMultiple: 0.15, ComparableSales: 0.20, ReplacementCost: 0.05},
				CapRate:       capRateTable(0.07, 0.055, 0.095, 0.6),
				PricePerBed:   pricePerBedTable(180000, 80000, 400000, 0.8),
				NOIMultiple:   noiMultipleTable(12, 8, 16),
				DCF: DCFTable{
					RevenueGrowth: 0.03, ExpenseGrowth: 0.03, TargetOccupancy: 0.92, OccupancyRampPerYear: 0.02,
					DefaultExpenseRatio: 0.70, RoutineCapexPerBed: 600, MajorCapexPercent: 0.01,
					MinDiscountRate: 0.07, MaxDiscountRate: 0.16, MinPerBed: 60000, MaxPerBed: 450000,
				},
				ReplacementCost: ReplacementCostTable{CostPerBed: 250000, FunctionalObsolescence: 0.04, EconomicObsolescence: 0.02, DepreciationRateAnnual: 0.02, MinPerBed: 40000, MaxPerBed: 450000},
				ComparableSales: ComparableSalesClamp{MinPerBed: 60000, MaxPerBed: 450000},
			},
			ILF: AssetTypeSettings{
				Active:        true,
				MethodWeights: MethodWeights{CapRate: 0.25, PricePerBed: 0.15, DCF: 0.25, NOIMultiple: 0.10, ComparableSales: 0.20, ReplacementCost: 0.05},
				CapRate:       capRateTable(0.06, 0.045, 0.085, 0.5),
				PricePerBed:   pricePerBedTable(230000, 100000, 500000, 0.7),
				NOIMultiple:   noiMultipleTable(14, 10, 18),
				DCF: DCFTable{
					RevenueGrowth: 0.03, ExpenseGrowth: 0.028, TargetOccupancy: 0.94, OccupancyRampPerYear: 0.015,
					DefaultExpenseRatio: 0.60, RoutineCapexPerBed: 700, MajorCapexPercent: 0.012,
					MinDiscountRate: 0.065, MaxDiscountRate: 0.15, MinPerBed: 80000, MaxPerBed: 550000,
				},
				ReplacementCost: ReplacementCostTable{CostPerBed: 280000, FunctionalObsolescence: 0.03, EconomicObsolescence: 0.02, DepreciationRateAnnual: 0.015, MinPerBed: 50000, MaxPerBed: 550000},
				ComparableSales: ComparableSalesClamp{MinPerBed: 80000, MaxPerBed: 550000},
			},
		},
		Regions: map[string]Region{
			"northeast": {CapRateAdjustment: -0.0025, PriceMultiplier: 1.10, CostMultiplier: 1.15},
			"southeast": {CapRateAdjustment: 0.0025, PriceMultiplier: 0.95, CostMultiplier: 0.92},
			"midwest":   {CapRateAdjustment: 0.005, PriceMultiplier: 0.90, CostMultiplier: 0.95},
			"southwest": {CapRateAdjustment: 0, PriceMultiplier: 0.97, CostMultiplier: 0.95},
			"west":      {CapRateAdjustment: -0.005, PriceMultiplier: 1.15, CostMultiplier: 1.20},
		},
		StateRegions: defaultStateRegions(),
		Reconciliation: ReconciliationSettings{
			ExcludeOutliers:         true,
			OutlierThresholdPercent: constants.DefaultOutlierThresholdPercent,
			ConfidenceMultipliers: ConfidenceMultipliers{
				High:   constants.HighConfidenceMultiplier,
				Medium: constants.MediumConfidenceMultiplier,
				Low:    constants.LowConfidenceMultiplier,
			},
		},
		CMSScoring:  CMSScoringWeights{HealthInspection: 0.5, Staffing: 0.3, QualityMeasures: 0.2},
		RiskWeights: RiskWeights{Quality: 0.3, Occupancy: 0.3, PayerMix: 0.2, Regulatory: 0.2},
		ComparableSales: ComparableSalesSettings{
			MaxDistanceMiles:      50,
			MaxSaleAgeMonths:      36,
			MaxBedVariancePercent: 50,
			AdjustmentRates: ComparableAdjustments{
				DistancePerMile:   0.001,
				AgePerYear:        0.005,
				OccupancyPerPoint: 0.005,
				QualityPerStar:    0.03,
				PayerMixPerPoint:  0.003,
				BedsPerTen:        0.005,
			},
			MaxAdjustments: MaxAdjustments{Individual: 0.15, Total: 0.30},
			Weighting:      ComparableWeighting{Distance: 0.3, Recency: 0.3, Size: 0.2, Quality: 0.2},
			Confidence:     ComparableConfidenceCut{HighMinCount: 5, HighMaxAdjustment: 0.10, MediumMinCount: 3, MediumMaxAdjustment: 0.20},
		},
		DCF: DCFSettings{
			ProjectionYears:    constants.DefaultProjectionYears,
			MaxProjectionYears: constants.DefaultMaxProjectionYears,
			Periodicity:        constants.PeriodicityAnnual,
			RiskFreeRate:       0.0425,
			EquityRiskPremium:  0.055,
			SizePremium:        0.015,
			IndustryPremium:    0.01,
			CompanyPremium:     0.01,
			RiskTiers: NumericTable{
				{Name: "low", Max: bound(25), Adjustment: 0},
				{Name: "moderate", Min: bound(25), Max: bound(50), Adjustment: 0.01},
				{Name: "elevated", Min: bound(50), Max: bound(75), Adjustment: 0.025},
				{Name: "high", Min: bound(75), Adjustment: 0.04},
			},
			TerminalValue:         TerminalValue{UseExitCapRate: true, ExitCapRateSpread: 0.005, PerpetuityGrowth: 0.025},
			WorkingCapitalPercent: 0.02,
		},
		SaleLeaseback: SaleLeasebackSettings{
			CapRate:    0.075,
			YieldRate:  0.085,
			Thresholds: CoverageThresholds{Healthy: 1.40, Adequate: 1.20, Watch: 1.00},
		},
	}
}

func defaultStateRegions() map[string]string {
	byRegion := map[string][]string{
		"northeast": {"CT", "DC", "DE", "MA", "MD", "ME", "NH", "NJ", "NY", "PA", "RI", "VT"},
		"southeast": {"AL", "AR", "FL", "GA", "KY", "LA", "MS", "NC", "SC", "TN", "VA", "WV"},
		"midwest":   {"IA", "IL", "IN", "KS", "MI", "MN", "MO", "ND", "NE", "OH", "SD", "WI"},
		"southwest": {"AZ", "NM", "OK", "TX"},
		"west":      {"AK", "CA", "CO", "HI", "ID", "MT", "NV", "OR", "UT", "WA", "WY"},
	}
	out := make(map[string]string, 51)
	for region, states := range byRegion {
		for _, state := range states {
			out[state] = region
		}
	}
	return out
}
