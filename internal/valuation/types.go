// Package valuation implements the six facility valuation methods and the
// reconciliation engine that merges them into one confidence-weighted estimate.
//
// Every calculator is a pure function of its inputs. Missing facility data is a
// reportable condition carried in the returned results; only invariant
// violations (unknown asset type, negative beds, zero denominators) are errors.
package valuation

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/iwvelando/facility-valuation/internal/settings"
)

var (
	// ErrNegativeBeds is returned when a facility or comparable reports fewer than zero beds.
	ErrNegativeBeds = errors.New("bed count cannot be negative")

	// ErrZeroDenominator is returned when a ratio would divide by zero.
	ErrZeroDenominator = errors.New("ratio denominator is zero")
)

// Method names, in reporting order.
const (
	MethodCapRate         = "capRate"
	MethodPricePerBed     = "pricePerBed"
	MethodDCF             = "dcf"
	MethodNOIMultiple     = "noiMultiple"
	MethodComparableSales = "comparableSales"
	MethodReplacementCost = "replacementCost"
)

// MethodNames lists the six methods in reporting order.
var MethodNames = []string{
	MethodCapRate,
	MethodPricePerBed,
	MethodDCF,
	MethodNOIMultiple,
	MethodComparableSales,
	MethodReplacementCost,
}

// Confidence is the reliability tier of a method or result.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Downgrade lowers the confidence by one tier, stopping at low.
func (c Confidence) Downgrade() Confidence {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// PayerMix holds the census share of each payer class as fractions of 1.
type PayerMix struct {
	Medicare float64 `yaml:"medicare" json:"medicare"`
	Medicaid float64 `yaml:"medicaid" json:"medicaid"`
	Private  float64 `yaml:"private" json:"private"`
	Other    float64 `yaml:"other" json:"other"`
}

// CMSRatings are the CMS five-star component ratings.
type CMSRatings struct {
	HealthInspection *int `yaml:"healthInspection,omitempty" json:"healthInspection,omitempty"`
	Staffing         *int `yaml:"staffing,omitempty" json:"staffing,omitempty"`
	QualityMeasures  *int `yaml:"qualityMeasures,omitempty" json:"qualityMeasures,omitempty"`
}

// Facility holds the attributes of the facility being valued. Optional values
// are pointers; nil means the attribute was not provided.
type Facility struct {
	Name             string             `yaml:"name,omitempty" json:"name,omitempty"`
	AssetType        settings.AssetType `yaml:"assetType" json:"assetType"`
	State            string             `yaml:"state,omitempty" json:"state,omitempty"`
	Region           string             `yaml:"region,omitempty" json:"region,omitempty"`
	Beds             *int               `yaml:"beds,omitempty" json:"beds,omitempty"`
	BuildingAge      *float64           `yaml:"buildingAge,omitempty" json:"buildingAge,omitempty"`
	OccupancyRate    *float64           `yaml:"occupancyRate,omitempty" json:"occupancyRate,omitempty"`
	QualityRating    *int               `yaml:"qualityRating,omitempty" json:"qualityRating,omitempty"`
	CMSRatings       *CMSRatings        `yaml:"cmsRatings,omitempty" json:"cmsRatings,omitempty"`
	PayerMix         *PayerMix          `yaml:"payerMix,omitempty" json:"payerMix,omitempty"`
	AcuityIndex      *float64           `yaml:"acuityIndex,omitempty" json:"acuityIndex,omitempty"`
	NOI              *float64           `yaml:"noi,omitempty" json:"noi,omitempty"`
	NOIGrowthRate    *float64           `yaml:"noiGrowthRate,omitempty" json:"noiGrowthRate,omitempty"`
	EBITDAR          *float64           `yaml:"ebitdar,omitempty" json:"ebitdar,omitempty"`
	Revenue          *float64           `yaml:"revenue,omitempty" json:"revenue,omitempty"`
	Ownership        string             `yaml:"ownership,omitempty" json:"ownership,omitempty"`
	Chain            string             `yaml:"chain,omitempty" json:"chain,omitempty"`
	Condition        string             `yaml:"condition,omitempty" json:"condition,omitempty"`
	RegulatoryStatus string             `yaml:"regulatoryStatus,omitempty" json:"regulatoryStatus,omitempty"`
	MarketCondition  string             `yaml:"marketCondition,omitempty" json:"marketCondition,omitempty"`
	Competition      string             `yaml:"competition,omitempty" json:"competition,omitempty"`
}

// ComparableSale is an externally selected comparable transaction.
type ComparableSale struct {
	ID            string             `yaml:"id,omitempty" json:"id,omitempty"`
	Name          string             `yaml:"name,omitempty" json:"name,omitempty"`
	AssetType     settings.AssetType `yaml:"assetType" json:"assetType"`
	DistanceMiles float64            `yaml:"distanceMiles" json:"distanceMiles"`
	SaleAgeMonths float64            `yaml:"saleAgeMonths" json:"saleAgeMonths"`
	Beds          int                `yaml:"beds" json:"beds"`
	PricePerBed   float64            `yaml:"pricePerBed" json:"pricePerBed"`
	OccupancyRate *float64           `yaml:"occupancyRate,omitempty" json:"occupancyRate,omitempty"`
	QualityRating *int               `yaml:"qualityRating,omitempty" json:"qualityRating,omitempty"`
	MedicaidShare *float64           `yaml:"medicaidShare,omitempty" json:"medicaidShare,omitempty"`
	BuildingAge   *float64           `yaml:"buildingAge,omitempty" json:"buildingAge,omitempty"`
}

// InputKind tags the type carried by an Input.
type InputKind string

const (
	InputNumber InputKind = "number"
	InputText   InputKind = "text"
)

// Input is one named calculator input, kept for display. It is either a
// number or text, never both.
type Input struct {
	Name   string    `yaml:"name" json:"name"`
	Kind   InputKind `yaml:"kind" json:"kind"`
	Number float64   `yaml:"number,omitempty" json:"-"`
	Text   string    `yaml:"text,omitempty" json:"-"`
}

// NumberInput builds a numeric input.
func NumberInput(name string, v float64) Input {
	return Input{Name: name, Kind: InputNumber, Number: v}
}

// TextInput builds a text input.
func TextInput(name, v string) Input {
	return Input{Name: name, Kind: InputText, Text: v}
}

// MarshalJSON encodes the value as a JSON number or string according to Kind.
func (i Input) MarshalJSON() ([]byte, error) {
	var value json.RawMessage
	if i.Kind == InputNumber {
		value = json.RawMessage(strconv.FormatFloat(i.Number, 'f', -1, 64))
	} else {
		encoded, err := json.Marshal(i.Text)
		if err != nil {
			return nil, err
		}
		value = encoded
	}
	return json.Marshal(struct {
		Name  string          `json:"name"`
		Kind  InputKind       `json:"kind"`
		Value json.RawMessage `json:"value"`
	}{i.Name, i.Kind, value})
}

// Adjustment records one applied bracket or override and its impact on the
// method's driving quantity (rate, multiple or multiplier).
type Adjustment struct {
	Description string  `yaml:"description" json:"description"`
	Impact      float64 `yaml:"impact" json:"impact"`
}

// MethodResult is the output of a single valuation method.
type MethodResult struct {
	Method      string       `yaml:"method" json:"method"`
	Value       float64      `yaml:"value" json:"value"`
	Confidence  Confidence   `yaml:"confidence" json:"confidence"`
	Applicable  bool         `yaml:"applicable" json:"applicable"`
	Inputs      []Input      `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Adjustments []Adjustment `yaml:"adjustments,omitempty" json:"adjustments,omitempty"`
	Weight      float64      `yaml:"weight" json:"weight"`
	Notes       []string     `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Methods holds the six method results by name.
type Methods struct {
	CapRate         MethodResult `yaml:"capRate" json:"capRate"`
	PricePerBed     MethodResult `yaml:"pricePerBed" json:"pricePerBed"`
	DCF             MethodResult `yaml:"dcf" json:"dcf"`
	NOIMultiple     MethodResult `yaml:"noiMultiple" json:"noiMultiple"`
	ComparableSales MethodResult `yaml:"comparableSales" json:"comparableSales"`
	ReplacementCost MethodResult `yaml:"replacementCost" json:"replacementCost"`
}

// List returns the results in reporting order.
func (m Methods) List() []MethodResult {
	return []MethodResult{m.CapRate, m.PricePerBed, m.DCF, m.NOIMultiple, m.ComparableSales, m.ReplacementCost}
}

// ValuationResult is the reconciled valuation of one facility.
type ValuationResult struct {
	Methods           Methods            `yaml:"methods" json:"methods"`
	ReconciledValue   float64            `yaml:"reconciledValue" json:"reconciledValue"`
	ValueLow          float64            `yaml:"valueLow" json:"valueLow"`
	ValueHigh         float64            `yaml:"valueHigh" json:"valueHigh"`
	OverallConfidence Confidence         `yaml:"overallConfidence" json:"overallConfidence"`
	ConfidenceFactors []string           `yaml:"confidenceFactors" json:"confidenceFactors"`
	EffectiveWeights  map[string]float64 `yaml:"effectiveWeights" json:"effectiveWeights"`
}
