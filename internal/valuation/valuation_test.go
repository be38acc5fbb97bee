package valuation

import (
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwvelando/facility-valuation/internal/settings"
)

func ptr[T any](v T) *T { return &v }

// capRateOnly returns settings with an SNF base cap rate of 10% and every other
// method weighted out.
func capRateOnly() settings.Settings {
	s := settings.Default()
	s.AssetTypes.SNF.CapRate.Base = 0.10
	s.AssetTypes.SNF.MethodWeights = settings.MethodWeights{CapRate: 1}
	return s
}

func minimalSNF() Facility {
	return Facility{Name: "Minimal", AssetType: settings.SNF, Beds: ptr(120), NOI: ptr(1_800_000.0)}
}

func fullSNF() Facility {
	return Facility{
		Name:             "Lakeside Care Center",
		AssetType:        settings.SNF,
		State:            "OH",
		Beds:             ptr(120),
		BuildingAge:      ptr(20.0),
		OccupancyRate:    ptr(0.86),
		QualityRating:    ptr(3),
		PayerMix:         &PayerMix{Medicare: 0.15, Medicaid: 0.60, Private: 0.20, Other: 0.05},
		AcuityIndex:      ptr(1.0),
		NOI:              ptr(1_800_000.0),
		NOIGrowthRate:    ptr(0.01),
		Revenue:          ptr(14_000_000.0),
		Ownership:        "for_profit",
		Chain:            "regional",
		Condition:        "good",
		RegulatoryStatus: "clean",
		MarketCondition:  "stable",
		Competition:      "moderate",
	}
}

func sampleComparables() []ComparableSale {
	return []ComparableSale{
		{ID: "c1", AssetType: settings.SNF, DistanceMiles: 12, SaleAgeMonths: 10, Beds: 110, PricePerBed: 100_000, OccupancyRate: ptr(0.84), QualityRating: ptr(3), BuildingAge: ptr(25.0)},
		{ID: "c2", AssetType: settings.SNF, DistanceMiles: 25, SaleAgeMonths: 18, Beds: 130, PricePerBed: 110_000, OccupancyRate: ptr(0.88), QualityRating: ptr(4)},
		{ID: "c3", AssetType: settings.SNF, DistanceMiles: 30, SaleAgeMonths: 24, Beds: 100, PricePerBed: 95_000, QualityRating: ptr(3)},
		{ID: "far", AssetType: settings.SNF, DistanceMiles: 400, SaleAgeMonths: 6, Beds: 120, PricePerBed: 300_000},
		{ID: "alf", AssetType: settings.ALF, DistanceMiles: 5, SaleAgeMonths: 6, Beds: 120, PricePerBed: 250_000},
	}
}

func TestValueSingleCapRateMethod(t *testing.T) {
	result, err := Value(minimalSNF(), nil, capRateOnly())
	require.NoError(t, err)

	assert.InDelta(t, 18_000_000, result.ReconciledValue, 1e-6)
	assert.InDelta(t, 18_000_000, result.ValueLow, 1e-6)
	assert.InDelta(t, 18_000_000, result.ValueHigh, 1e-6)
	assert.InDelta(t, 1.0, result.EffectiveWeights[MethodCapRate], 1e-12)
	assert.True(t, result.Methods.CapRate.Applicable)
	assert.Equal(t, ConfidenceLow, result.Methods.CapRate.Confidence, "occupancy and quality are missing")
	assert.Equal(t, ConfidenceLow, result.OverallConfidence)
	for _, m := range result.Methods.List() {
		if m.Method != MethodCapRate {
			assert.Zero(t, m.Weight, m.Method)
		}
	}
}

func TestValueFullFacilityInvariants(t *testing.T) {
	result, err := Value(fullSNF(), sampleComparables(), settings.Default())
	require.NoError(t, err)

	assert.LessOrEqual(t, result.ValueLow, result.ReconciledValue)
	assert.LessOrEqual(t, result.ReconciledValue, result.ValueHigh)

	total := 0.0
	for _, w := range result.EffectiveWeights {
		total += w
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	capRate := result.Methods.CapRate
	assert.Equal(t, ConfidenceHigh, capRate.Confidence)
	assert.InDelta(t, 1_800_000/0.13, capRate.Value, 1e-6, "midwest adds 50bp to the 12.5% base")

	comps := result.Methods.ComparableSales
	require.True(t, comps.Applicable, "notes: %v", comps.Notes)
	assert.Len(t, comps.Adjustments, 3)

	for _, m := range result.Methods.List() {
		if !m.Applicable {
			assert.Zero(t, m.Value, m.Method)
			assert.Zero(t, m.Weight, m.Method)
		}
	}
}

func TestValueIsDeterministicAndConcurrent(t *testing.T) {
	f, comps, s := fullSNF(), sampleComparables(), settings.Default()
	want, err := Value(f, comps, s)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]float64, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := Value(f, comps, s)
			if err == nil {
				results[i] = got.ReconciledValue
			}
		}(i)
	}
	wg.Wait()
	for _, v := range results {
		assert.Equal(t, want.ReconciledValue, v)
	}
}

func TestCapRateClampIsSilent(t *testing.T) {
	s := capRateOnly()
	s.AssetTypes.SNF.CapRate.Base = 0.50

	result, err := Value(minimalSNF(), nil, s)
	require.NoError(t, err)

	assert.InDelta(t, 1_800_000/0.16, result.ReconciledValue, 1e-6)
	for _, note := range result.Methods.CapRate.Notes {
		assert.NotContains(t, strings.ToLower(note), "clamp")
	}
	for _, factor := range result.ConfidenceFactors {
		assert.NotContains(t, strings.ToLower(factor), "clamp")
	}
}

func TestNoApplicableMethod(t *testing.T) {
	result, err := Value(Facility{AssetType: settings.SNF}, nil, settings.Default())
	require.NoError(t, err)

	assert.Zero(t, result.ReconciledValue)
	assert.Equal(t, ConfidenceLow, result.OverallConfidence)
	assert.Contains(t, result.ConfidenceFactors, NoApplicableMethod)
	for _, m := range result.Methods.List() {
		assert.False(t, m.Applicable, m.Method)
	}
}

func TestMissingAttributes(t *testing.T) {
	s := capRateOnly()

	t.Run("one missing attribute downgrades one tier", func(t *testing.T) {
		f := minimalSNF()
		f.OccupancyRate = ptr(0.9)
		result, err := Value(f, nil, s)
		require.NoError(t, err)
		assert.Equal(t, ConfidenceMedium, result.Methods.CapRate.Confidence)
	})

	t.Run("fewer than half present is not applicable", func(t *testing.T) {
		f := Facility{AssetType: settings.SNF, NOI: ptr(1_800_000.0)}
		result, err := Value(f, nil, s)
		require.NoError(t, err)
		assert.False(t, result.Methods.CapRate.Applicable)
		assert.Zero(t, result.ReconciledValue)
	})

	t.Run("non-positive NOI disables income methods", func(t *testing.T) {
		f := fullSNF()
		f.NOI = ptr(-50_000.0)
		result, err := Value(f, nil, settings.Default())
		require.NoError(t, err)
		assert.False(t, result.Methods.CapRate.Applicable)
		assert.False(t, result.Methods.NOIMultiple.Applicable)
		assert.True(t, result.Methods.PricePerBed.Applicable)
	})
}

func TestValueErrors(t *testing.T) {
	_, err := Value(Facility{AssetType: "HOSPITAL"}, nil, settings.Default())
	assert.ErrorIs(t, err, settings.ErrUnknownAssetType)

	f := minimalSNF()
	f.Beds = ptr(-1)
	_, err = Value(f, nil, settings.Default())
	assert.ErrorIs(t, err, ErrNegativeBeds)

	_, err = Value(minimalSNF(), []ComparableSale{{ID: "bad", Beds: -10, PricePerBed: 1}}, settings.Default())
	assert.ErrorIs(t, err, ErrNegativeBeds)

	s := capRateOnly()
	s.AssetTypes.SNF.CapRate.Min, s.AssetTypes.SNF.CapRate.Max = 0, 0
	s.GlobalMinCapRate, s.GlobalMaxCapRate = 0, 0
	_, err = Value(minimalSNF(), nil, s)
	assert.ErrorIs(t, err, ErrZeroDenominator)
}

func TestQualityRatingFallsBackToCMSComposite(t *testing.T) {
	weights := settings.Default().CMSScoring

	f := Facility{CMSRatings: &CMSRatings{HealthInspection: ptr(4), Staffing: ptr(3), QualityMeasures: ptr(5)}}
	q := qualityRating(f, weights)
	require.NotNil(t, q)
	assert.Equal(t, 4.0, *q)

	f.QualityRating = ptr(2)
	assert.Equal(t, 2.0, *qualityRating(f, weights))

	assert.Nil(t, qualityRating(Facility{QualityRating: ptr(0)}, weights), "zero means unrated")
}

func TestDCFPerpetuityGrowth(t *testing.T) {
	s := settings.Default()
	s.DCF.TerminalValue.UseExitCapRate = false

	result, err := Value(fullSNF(), nil, s)
	require.NoError(t, err)
	dcf := result.Methods.DCF
	require.True(t, dcf.Applicable, "notes: %v", dcf.Notes)
	assert.Greater(t, dcf.Value, 0.0)

	s.DCF.TerminalValue.PerpetuityGrowth = 0.50
	result, err = Value(fullSNF(), nil, s)
	require.NoError(t, err)
	assert.False(t, result.Methods.DCF.Applicable)
	assert.Contains(t, strings.Join(result.Methods.DCF.Notes, " "), "perpetuity growth")
}

func TestDCFMonthlyAndCappedHorizon(t *testing.T) {
	s := settings.Default()
	annual, err := Value(fullSNF(), nil, s)
	require.NoError(t, err)

	s.DCF.Periodicity = "monthly"
	monthly, err := Value(fullSNF(), nil, s)
	require.NoError(t, err)
	assert.Greater(t, monthly.Methods.DCF.Value, annual.Methods.DCF.Value, "mid-year flows discount less")

	s = settings.Default()
	s.DCF.ProjectionYears = 40
	capped, err := Value(fullSNF(), nil, s)
	require.NoError(t, err)
	assert.Contains(t, strings.Join(capped.Methods.DCF.Notes, " "), "capped at 20 years")
}

func TestComparableSalesFiltering(t *testing.T) {
	s := settings.Default()
	sub := newSubject(fullSNF(), s)
	ats, err := settings.Resolve(s, settings.SNF, "OH")
	require.NoError(t, err)

	result, err := comparableSalesValue(sub, sampleComparables(), s, ats)
	require.NoError(t, err)
	require.True(t, result.Applicable)
	assert.Equal(t, ConfidenceMedium, result.Confidence, "three comparables with small adjustments")

	var used, rejected float64
	for _, in := range result.Inputs {
		switch in.Name {
		case "comparablesUsed":
			used = in.Number
		case "comparablesRejected":
			rejected = in.Number
		}
	}
	assert.Equal(t, 3.0, used)
	assert.Equal(t, 2.0, rejected)

	none, err := comparableSalesValue(sub, sampleComparables()[3:], s, ats)
	require.NoError(t, err)
	assert.False(t, none.Applicable)
}

func TestComparableAdjustmentCaps(t *testing.T) {
	s := settings.Default()
	f := fullSNF()
	sub := newSubject(f, s)
	comp := ComparableSale{AssetType: settings.SNF, DistanceMiles: 1, Beds: 120, PricePerBed: 100_000, QualityRating: ptr(1), OccupancyRate: ptr(0.40)}

	adj := adjustComparable(sub, comp, s.ComparableSales)
	assert.LessOrEqual(t, math.Abs(adj), s.ComparableSales.MaxAdjustments.Total+1e-12)
	assert.Greater(t, adj, 0.0, "a weaker comparable is adjusted upwards")
}

func TestComparableAssetTypeIsCaseInsensitive(t *testing.T) {
	f := fullSNF()
	f.AssetType = "snf"
	comps := sampleComparables()[:3]
	for i := range comps {
		comps[i].AssetType = "snf"
	}

	result, err := Value(f, comps, settings.Default())
	require.NoError(t, err)
	assert.True(t, result.Methods.ComparableSales.Applicable, result.Methods.ComparableSales.Notes)
	assert.Equal(t, settings.AssetType("snf"), comps[0].AssetType, "caller's comparables are left alone")

	comps[0].AssetType = "alf"
	mixed, err := Value(f, comps, settings.Default())
	require.NoError(t, err)
	assert.True(t, mixed.Methods.ComparableSales.Applicable)

	comps[0].AssetType = "hospital"
	_, err = Value(f, comps, settings.Default())
	assert.ErrorIs(t, err, settings.ErrUnknownAssetType)
}

func TestScenarioWith(t *testing.T) {
	sc := Scenario{Facility: minimalSNF(), Settings: capRateOnly()}

	changed, err := sc.With("facility.noi", 2_000_000)
	require.NoError(t, err)
	assert.Equal(t, 2_000_000.0, *changed.Facility.NOI)
	assert.Equal(t, 1_800_000.0, *sc.Facility.NOI, "original scenario is untouched")

	changed, err = sc.With("settings.assetTypes.snf.capRate.base", 0.12)
	require.NoError(t, err)
	assert.InDelta(t, 0.12, changed.Settings.AssetTypes.SNF.CapRate.Base, 1e-12)
	assert.InDelta(t, 0.10, sc.Settings.AssetTypes.SNF.CapRate.Base, 1e-12)

	result, err := NewEngine(nil).ValueScenario(changed)
	require.NoError(t, err)
	assert.InDelta(t, 15_000_000, result.ReconciledValue, 1e-6)

	_, err = sc.With("facility.nothing", 1)
	assert.Error(t, err)
}
