// Package settings defines the versioned valuation settings object: per-asset-type
// adjustment tables, regional multipliers, state overrides, method weights and the
// global clamps. Settings are read-only inputs to every calculation; helpers in this
// package return new values instead of mutating their arguments.
package settings

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
)

// AssetType identifies the facility class being valued.
type AssetType string

const (
	SNF AssetType = "SNF"
	ALF AssetType = "ALF"
	ILF AssetType = "ILF"
)

// AllAssetTypes lists every supported asset type in reporting order.
var AllAssetTypes = []AssetType{SNF, ALF, ILF}

// ErrUnknownAssetType is returned for anything other than SNF, ALF or ILF.
var ErrUnknownAssetType = errors.New("unknown asset type")

// ParseAssetType converts a case-insensitive name into an AssetType.
func ParseAssetType(value string) (AssetType, error) {
	switch AssetType(strings.ToUpper(strings.TrimSpace(value))) {
	case SNF:
		return SNF, nil
	case ALF:
		return ALF, nil
	case ILF:
		return ILF, nil
	}
	return "", eris.Wrapf(ErrUnknownAssetType, "asset type %q", value)
}

// Key returns the lower-case settings key for the asset type.
func (a AssetType) Key() string {
	return strings.ToLower(string(a))
}

// Settings holds every table and constant consulted by the valuation engine.
type Settings struct {
	Version          string                   `yaml:"version" mapstructure:"version" json:"version"`
	GlobalMinCapRate float64                  `yaml:"globalMinCapRate" mapstructure:"globalMinCapRate" json:"globalMinCapRate"`
	GlobalMaxCapRate float64                  `yaml:"globalMaxCapRate" mapstructure:"globalMaxCapRate" json:"globalMaxCapRate"`
	AssetTypes       AssetTypeTables          `yaml:"assetTypes" mapstructure:"assetTypes" json:"assetTypes"`
	Regions          map[string]Region        `yaml:"regions" mapstructure:"regions" json:"regions"`
	StateRegions     map[string]string        `yaml:"stateRegions" mapstructure:"stateRegions" json:"stateRegions"`
	StateOverrides   map[string]StateOverride `yaml:"stateOverrides,omitempty" mapstructure:"stateOverrides" json:"stateOverrides,omitempty"`
	Reconciliation   ReconciliationSettings   `yaml:"reconciliation" mapstructure:"reconciliation" json:"reconciliation"`
	CMSScoring       CMSScoringWeights        `yaml:"cmsScoring" mapstructure:"cmsScoring" json:"cmsScoring"`
	RiskWeights      RiskWeights              `yaml:"riskWeights" mapstructure:"riskWeights" json:"riskWeights"`
	ComparableSales  ComparableSalesSettings  `yaml:"comparableSales" mapstructure:"comparableSales" json:"comparableSales"`
	DCF              DCFSettings              `yaml:"dcf" mapstructure:"dcf" json:"dcf"`
	SaleLeaseback    SaleLeasebackSettings    `yaml:"saleLeaseback" mapstructure:"saleLeaseback" json:"saleLeaseback"`
}

// AssetTypeTables holds the per-asset-type settings.
type AssetTypeTables struct {
	SNF AssetTypeSettings `yaml:"snf" mapstructure:"snf" json:"snf"`
	ALF AssetTypeSettings `yaml:"alf" mapstructure:"alf" json:"alf"`
	ILF AssetTypeSettings `yaml:"ilf" mapstructure:"ilf" json:"ilf"`
}

// Get returns the settings for one asset type.
func (t AssetTypeTables) Get(a AssetType) (AssetTypeSettings, error) {
	switch a {
	case SNF:
		return t.SNF, nil
	case ALF:
		return t.ALF, nil
	case ILF:
		return t.ILF, nil
	}
	return AssetTypeSettings{}, eris.Wrapf(ErrUnknownAssetType, "asset type %q", string(a))
}

// AssetTypeSettings holds the method tables for one asset type.
type AssetTypeSettings struct {
	Active          bool                 `yaml:"active" mapstructure:"active" json:"active"`
	MethodWeights   MethodWeights        `yaml:"methodWeights" mapstructure:"methodWeights" json:"methodWeights"`
	CapRate         CapRateTable         `yaml:"capRate" mapstructure:"capRate" json:"capRate"`
	PricePerBed     PricePerBedTable     `yaml:"pricePerBed" mapstructure:"pricePerBed" json:"pricePerBed"`
	NOIMultiple     NOIMultipleTable     `yaml:"noiMultiple" mapstructure:"noiMultiple" json:"noiMultiple"`
	DCF             DCFTable             `yaml:"dcf" mapstructure:"dcf" json:"dcf"`
	ReplacementCost ReplacementCostTable `yaml:"replacementCost" mapstructure:"replacementCost" json:"replacementCost"`
	ComparableSales ComparableSalesClamp `yaml:"comparableSales" mapstructure:"comparableSales" json:"comparableSales"`
}

// MethodWeights are the configured reconciliation weights for the six methods.
type MethodWeights struct {
	CapRate         float64 `yaml:"capRate" mapstructure:"capRate" json:"capRate"`
	PricePerBed     float64 `yaml:"pricePerBed" mapstructure:"pricePerBed" json:"pricePerBed"`
	DCF             float64 `yaml:"dcf" mapstructure:"dcf" json:"dcf"`
	NOIMultiple     float64 `yaml:"noiMultiple" mapstructure:"noiMultiple" json:"noiMultiple"`
	ComparableSales float64 `yaml:"comparableSales" mapstructure:"comparableSales" json:"comparableSales"`
	ReplacementCost float64 `yaml:"replacementCost" mapstructure:"replacementCost" json:"replacementCost"`
}

// Sum returns the total of all six weights.
func (w MethodWeights) Sum() float64 {
	return w.CapRate + w.PricePerBed + w.DCF + w.NOIMultiple + w.ComparableSales + w.ReplacementCost
}

// CapRateTable holds the base cap rate, its clamp and the additive brackets.
type CapRateTable struct {
	Base            float64       `yaml:"base" mapstructure:"base" json:"base"`
	Min             float64       `yaml:"min" mapstructure:"min" json:"min"`
	Max             float64       `yaml:"max" mapstructure:"max" json:"max"`
	Quality         NumericTable  `yaml:"quality" mapstructure:"quality" json:"quality"`
	Size            NumericTable  `yaml:"size" mapstructure:"size" json:"size"`
	Age             NumericTable  `yaml:"age" mapstructure:"age" json:"age"`
	Occupancy       NumericTable  `yaml:"occupancy" mapstructure:"occupancy" json:"occupancy"`
	PayerMix        NumericTable  `yaml:"payerMix" mapstructure:"payerMix" json:"payerMix"`
	Acuity          NumericTable  `yaml:"acuity" mapstructure:"acuity" json:"acuity"`
	Ownership       CategoryTable `yaml:"ownership" mapstructure:"ownership" json:"ownership"`
	Chain           CategoryTable `yaml:"chain" mapstructure:"chain" json:"chain"`
	MarketCondition CategoryTable `yaml:"marketCondition" mapstructure:"marketCondition" json:"marketCondition"`
	Competition     CategoryTable `yaml:"competition" mapstructure:"competition" json:"competition"`
	Renovation      CategoryTable `yaml:"renovation" mapstructure:"renovation" json:"renovation"`
	Regulatory      CategoryTable `yaml:"regulatory" mapstructure:"regulatory" json:"regulatory"`
}

// PricePerBedTable holds the base price per bed, its clamp and the multiplicative brackets.
type PricePerBedTable struct {
	Base       float64       `yaml:"base" mapstructure:"base" json:"base"`
	Min        float64       `yaml:"min" mapstructure:"min" json:"min"`
	Max        float64       `yaml:"max" mapstructure:"max" json:"max"`
	Quality    NumericTable  `yaml:"quality" mapstructure:"quality" json:"quality"`
	Size       NumericTable  `yaml:"size" mapstructure:"size" json:"size"`
	Age        NumericTable  `yaml:"age" mapstructure:"age" json:"age"`
	Occupancy  NumericTable  `yaml:"occupancy" mapstructure:"occupancy" json:"occupancy"`
	PayerMix   NumericTable  `yaml:"payerMix" mapstructure:"payerMix" json:"payerMix"`
	Renovation CategoryTable `yaml:"renovation" mapstructure:"renovation" json:"renovation"`
	Regulatory CategoryTable `yaml:"regulatory" mapstructure:"regulatory" json:"regulatory"`
}

// NOIMultipleTable holds the base NOI multiple, its clamp and the additive brackets.
type NOIMultipleTable struct {
	Base           float64      `yaml:"base" mapstructure:"base" json:"base"`
	Min            float64      `yaml:"min" mapstructure:"min" json:"min"`
	Max            float64      `yaml:"max" mapstructure:"max" json:"max"`
	Growth         NumericTable `yaml:"growth" mapstructure:"growth" json:"growth"`
	Stability      NumericTable `yaml:"stability" mapstructure:"stability" json:"stability"`
	MarketPosition NumericTable `yaml:"marketPosition" mapstructure:"marketPosition" json:"marketPosition"`
	Quality        NumericTable `yaml:"quality" mapstructure:"quality" json:"quality"`
}

// DCFTable holds the asset-type growth and operating assumptions for the DCF.
type DCFTable struct {
	RevenueGrowth        float64 `yaml:"revenueGrowth" mapstructure:"revenueGrowth" json:"revenueGrowth"`
	ExpenseGrowth        float64 `yaml:"expenseGrowth" mapstructure:"expenseGrowth" json:"expenseGrowth"`
	TargetOccupancy      float64 `yaml:"targetOccupancy" mapstructure:"targetOccupancy" json:"targetOccupancy"`
	OccupancyRampPerYear float64 `yaml:"occupancyRampPerYear" mapstructure:"occupancyRampPerYear" json:"occupancyRampPerYear"`
	DefaultExpenseRatio  float64 `yaml:"defaultExpenseRatio" mapstructure:"defaultExpenseRatio" json:"defaultExpenseRatio"`
	RoutineCapexPerBed   float64 `yaml:"routineCapexPerBed" mapstructure:"routineCapexPerBed" json:"routineCapexPerBed"`
	MajorCapexPercent    float64 `yaml:"majorCapexPercent" mapstructure:"majorCapexPercent" json:"majorCapexPercent"`
	MinDiscountRate      float64 `yaml:"minDiscountRate" mapstructure:"minDiscountRate" json:"minDiscountRate"`
	MaxDiscountRate      float64 `yaml:"maxDiscountRate" mapstructure:"maxDiscountRate" json:"maxDiscountRate"`
	MinPerBed            float64 `yaml:"minPerBed" mapstructure:"minPerBed" json:"minPerBed"`
	MaxPerBed            float64 `yaml:"maxPerBed" mapstructure:"maxPerBed" json:"maxPerBed"`
}

// ReplacementCostTable holds the cost approach assumptions.
type ReplacementCostTable struct {
	CostPerBed             float64 `yaml:"costPerBed" mapstructure:"costPerBed" json:"costPerBed"`
	FunctionalObsolescence float64 `yaml:"functionalObsolescence" mapstructure:"functionalObsolescence" json:"functionalObsolescence"`
	EconomicObsolescence   float64 `yaml:"economicObsolescence" mapstructure:"economicObsolescence" json:"economicObsolescence"`
	DepreciationRateAnnual float64 `yaml:"depreciationRateAnnual" mapstructure:"depreciationRateAnnual" json:"depreciationRateAnnual"`
	MinPerBed              float64 `yaml:"minPerBed" mapstructure:"minPerBed" json:"minPerBed"`
	MaxPerBed              float64 `yaml:"maxPerBed" mapstructure:"maxPerBed" json:"maxPerBed"`
}

// ComparableSalesClamp bounds the reconciled comparable price per bed.
type ComparableSalesClamp struct {
	MinPerBed float64 `yaml:"minPerBed" mapstructure:"minPerBed" json:"minPerBed"`
	MaxPerBed float64 `yaml:"maxPerBed" mapstructure:"maxPerBed" json:"maxPerBed"`
}

// Region carries the regional multipliers applied after the bracket lookups.
// A zero multiplier is treated as neutral.
type Region struct {
	CapRateAdjustment float64 `yaml:"capRateAdjustment" mapstructure:"capRateAdjustment" json:"capRateAdjustment"`
	PriceMultiplier   float64 `yaml:"priceMultiplier" mapstructure:"priceMultiplier" json:"priceMultiplier"`
	CostMultiplier    float64 `yaml:"costMultiplier" mapstructure:"costMultiplier" json:"costMultiplier"`
}

// StateOverride is a partial asset-type settings tree keyed by asset type key
// ("snf", "alf", "ilf"), merged over the asset-type defaults.
type StateOverride map[string]map[string]any

// ReconciliationSettings controls outlier exclusion and confidence weighting.
type ReconciliationSettings struct {
	ExcludeOutliers         bool                  `yaml:"excludeOutliers" mapstructure:"excludeOutliers" json:"excludeOutliers"`
	OutlierThresholdPercent float64               `yaml:"outlierThresholdPercent" mapstructure:"outlierThresholdPercent" json:"outlierThresholdPercent"`
	ConfidenceMultipliers   ConfidenceMultipliers `yaml:"confidenceMultipliers" mapstructure:"confidenceMultipliers" json:"confidenceMultipliers"`
}

// ConfidenceMultipliers scale each method's weight by its confidence tier.
type ConfidenceMultipliers struct {
	High   float64 `yaml:"high" mapstructure:"high" json:"high"`
	Medium float64 `yaml:"medium" mapstructure:"medium" json:"medium"`
	Low    float64 `yaml:"low" mapstructure:"low" json:"low"`
}

// CMSScoringWeights combine the CMS sub-ratings into a composite star rating.
type CMSScoringWeights struct {
	HealthInspection float64 `yaml:"healthInspection" mapstructure:"healthInspection" json:"healthInspection"`
	Staffing         float64 `yaml:"staffing" mapstructure:"staffing" json:"staffing"`
	QualityMeasures  float64 `yaml:"qualityMeasures" mapstructure:"qualityMeasures" json:"qualityMeasures"`
}

// Sum returns the total of the category weights.
func (w CMSScoringWeights) Sum() float64 {
	return w.HealthInspection + w.Staffing + w.QualityMeasures
}

// RiskWeights combine the risk categories into the DCF risk score.
type RiskWeights struct {
	Quality    float64 `yaml:"quality" mapstructure:"quality" json:"quality"`
	Occupancy  float64 `yaml:"occupancy" mapstructure:"occupancy" json:"occupancy"`
	PayerMix   float64 `yaml:"payerMix" mapstructure:"payerMix" json:"payerMix"`
	Regulatory float64 `yaml:"regulatory" mapstructure:"regulatory" json:"regulatory"`
}

// Sum returns the total of the risk category weights.
func (w RiskWeights) Sum() float64 {
	return w.Quality + w.Occupancy + w.PayerMix + w.Regulatory
}

// ComparableSalesSettings controls comparable selection, adjustment and weighting.
type ComparableSalesSettings struct {
	MaxDistanceMiles      float64                 `yaml:"maxDistanceMiles" mapstructure:"maxDistanceMiles" json:"maxDistanceMiles"`
	MaxSaleAgeMonths      float64                 `yaml:"maxSaleAgeMonths" mapstructure:"maxSaleAgeMonths" json:"maxSaleAgeMonths"`
	MaxBedVariancePercent float64                 `yaml:"maxBedVariancePercent" mapstructure:"maxBedVariancePercent" json:"maxBedVariancePercent"`
	AdjustmentRates       ComparableAdjustments   `yaml:"adjustmentRates" mapstructure:"adjustmentRates" json:"adjustmentRates"`
	MaxAdjustments        MaxAdjustments          `yaml:"maxAdjustments" mapstructure:"maxAdjustments" json:"maxAdjustments"`
	Weighting             ComparableWeighting     `yaml:"weighting" mapstructure:"weighting" json:"weighting"`
	Confidence            ComparableConfidenceCut `yaml:"confidence" mapstructure:"confidence" json:"confidence"`
}

// ComparableAdjustments are the per-unit price adjustment rates.
type ComparableAdjustments struct {
	DistancePerMile   float64 `yaml:"distancePerMile" mapstructure:"distancePerMile" json:"distancePerMile"`
	AgePerYear        float64 `yaml:"agePerYear" mapstructure:"agePerYear" json:"agePerYear"`
	OccupancyPerPoint float64 `yaml:"occupancyPerPoint" mapstructure:"occupancyPerPoint" json:"occupancyPerPoint"`
	QualityPerStar    float64 `yaml:"qualityPerStar" mapstructure:"qualityPerStar" json:"qualityPerStar"`
	PayerMixPerPoint  float64 `yaml:"payerMixPerPoint" mapstructure:"payerMixPerPoint" json:"payerMixPerPoint"`
	BedsPerTen        float64 `yaml:"bedsPerTen" mapstructure:"bedsPerTen" json:"bedsPerTen"`
}

// MaxAdjustments cap individual and total comparable adjustments (fractions).
type MaxAdjustments struct {
	Individual float64 `yaml:"individual" mapstructure:"individual" json:"individual"`
	Total      float64 `yaml:"total" mapstructure:"total" json:"total"`
}

// ComparableWeighting are the factors combined into each comparable's weight.
type ComparableWeighting struct {
	Distance float64 `yaml:"distance" mapstructure:"distance" json:"distance"`
	Recency  float64 `yaml:"recency" mapstructure:"recency" json:"recency"`
	Size     float64 `yaml:"size" mapstructure:"size" json:"size"`
	Quality  float64 `yaml:"quality" mapstructure:"quality" json:"quality"`
}

// Sum returns the total of the weighting factors.
func (w ComparableWeighting) Sum() float64 {
	return w.Distance + w.Recency + w.Size + w.Quality
}

// ComparableConfidenceCut sets the comparable count and adjustment thresholds.
type ComparableConfidenceCut struct {
	HighMinCount        int     `yaml:"highMinCount" mapstructure:"highMinCount" json:"highMinCount"`
	HighMaxAdjustment   float64 `yaml:"highMaxAdjustment" mapstructure:"highMaxAdjustment" json:"highMaxAdjustment"`
	MediumMinCount      int     `yaml:"mediumMinCount" mapstructure:"mediumMinCount" json:"mediumMinCount"`
	MediumMaxAdjustment float64 `yaml:"mediumMaxAdjustment" mapstructure:"mediumMaxAdjustment" json:"mediumMaxAdjustment"`
}

// DCFSettings hold the discounting and horizon assumptions shared by asset types.
type DCFSettings struct {
	ProjectionYears       int           `yaml:"projectionYears" mapstructure:"projectionYears" json:"projectionYears"`
	MaxProjectionYears    int           `yaml:"maxProjectionYears" mapstructure:"maxProjectionYears" json:"maxProjectionYears"`
	Periodicity           string        `yaml:"periodicity" mapstructure:"periodicity" json:"periodicity"`
	RiskFreeRate          float64       `yaml:"riskFreeRate" mapstructure:"riskFreeRate" json:"riskFreeRate"`
	EquityRiskPremium     float64       `yaml:"equityRiskPremium" mapstructure:"equityRiskPremium" json:"equityRiskPremium"`
	SizePremium           float64       `yaml:"sizePremium" mapstructure:"sizePremium" json:"sizePremium"`
	IndustryPremium       float64       `yaml:"industryPremium" mapstructure:"industryPremium" json:"industryPremium"`
	CompanyPremium        float64       `yaml:"companyPremium" mapstructure:"companyPremium" json:"companyPremium"`
	RiskTiers             NumericTable  `yaml:"riskTiers" mapstructure:"riskTiers" json:"riskTiers"`
	TerminalValue         TerminalValue `yaml:"terminalValue" mapstructure:"terminalValue" json:"terminalValue"`
	WorkingCapitalPercent float64       `yaml:"workingCapitalPercent" mapstructure:"workingCapitalPercent" json:"workingCapitalPercent"`
}

// TerminalValue selects and parameterizes the DCF terminal value.
type TerminalValue struct {
	UseExitCapRate    bool    `yaml:"useExitCapRate" mapstructure:"useExitCapRate" json:"useExitCapRate"`
	ExitCapRateSpread float64 `yaml:"exitCapRateSpread" mapstructure:"exitCapRateSpread" json:"exitCapRateSpread"`
	PerpetuityGrowth  float64 `yaml:"perpetuityGrowth" mapstructure:"perpetuityGrowth" json:"perpetuityGrowth"`
}

// SaleLeasebackSettings are the defaults for the rent coverage calculation.
type SaleLeasebackSettings struct {
	CapRate    float64            `yaml:"capRate" mapstructure:"capRate" json:"capRate"`
	YieldRate  float64            `yaml:"yieldRate" mapstructure:"yieldRate" json:"yieldRate"`
	Thresholds CoverageThresholds `yaml:"thresholds" mapstructure:"thresholds" json:"thresholds"`
}

// CoverageThresholds are the minimum coverage ratios for each status tier.
type CoverageThresholds struct {
	Healthy  float64 `yaml:"healthy" mapstructure:"healthy" json:"healthy"`
	Adequate float64 `yaml:"adequate" mapstructure:"adequate" json:"adequate"`
	Watch    float64 `yaml:"watch" mapstructure:"watch" json:"watch"`
}

// RegionFor returns the region for a state, preferring an explicit region name.
func (s Settings) RegionFor(region, state string) (Region, string, bool) {
	name := strings.ToLower(strings.TrimSpace(region))
	if name == "" && state != "" {
		name = lookupFold(s.StateRegions, state)
	}
	if name == "" {
		return Region{}, "", false
	}
	for key, r := range s.Regions {
		if strings.EqualFold(key, name) {
			return r, key, true
		}
	}
	return Region{}, name, false
}

func lookupFold(m map[string]string, key string) string {
	key = strings.TrimSpace(key)
	if v, ok := m[key]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
