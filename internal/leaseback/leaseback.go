// Package leaseback sizes a sale-leaseback: the purchase price a buyer pays
// for the real estate, the rent the operator owes back, and how comfortably
// the operator's EBITDAR covers that rent.
package leaseback

import (
	"errors"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/iwvelando/facility-valuation/internal/settings"
)

// ErrZeroDenominator is returned when a rate or payment that divides is not positive.
var ErrZeroDenominator = errors.New("leaseback denominator must be positive")

// Status is the rent coverage tier.
type Status string

const (
	Healthy    Status = "healthy"
	Adequate   Status = "adequate"
	Watch      Status = "watch"
	Distressed Status = "distressed"
)

// Input describes one sale-leaseback. A zero cap or yield rate falls back to
// the settings defaults. DebtService is the buyer's annual debt service on the
// purchase; zero means the purchase is unlevered.
type Input struct {
	NOI         decimal.Decimal `yaml:"noi" json:"noi"`
	EBITDAR     decimal.Decimal `yaml:"ebitdar" json:"ebitdar"`
	CapRate     decimal.Decimal `yaml:"capRate" json:"capRate"`
	YieldRate   decimal.Decimal `yaml:"yieldRate" json:"yieldRate"`
	DebtService decimal.Decimal `yaml:"debtService,omitempty" json:"debtService,omitempty"`
}

// Result is the sized transaction. Currency is rounded to cents and the
// coverage ratio to two places.
type Result struct {
	PurchasePrice decimal.Decimal `yaml:"purchasePrice" json:"purchasePrice"`
	AnnualRent    decimal.Decimal `yaml:"annualRent" json:"annualRent"`
	CoverageRatio decimal.Decimal `yaml:"coverageRatio" json:"coverageRatio"`
	CapRate       decimal.Decimal `yaml:"capRate" json:"capRate"`
	YieldRate     decimal.Decimal `yaml:"yieldRate" json:"yieldRate"`
	Status        Status          `yaml:"status" json:"status"`
	// DSCR is the rent over the buyer's debt service, set when debt service is given.
	DSCR *decimal.Decimal `yaml:"dscr,omitempty" json:"dscr,omitempty"`
}

// Analyze computes purchase price = NOI / cap rate, rent = price × yield and
// coverage = EBITDAR / rent.
func Analyze(in Input, cfg settings.SaleLeasebackSettings) (Result, error) {
	capRate := orDefault(in.CapRate, cfg.CapRate)
	yield := orDefault(in.YieldRate, cfg.YieldRate)
	if !capRate.IsPositive() {
		return Result{}, eris.Wrapf(ErrZeroDenominator, "cap rate %s", capRate)
	}
	if !yield.IsPositive() {
		return Result{}, eris.Wrapf(ErrZeroDenominator, "yield rate %s", yield)
	}

	price := in.NOI.Div(capRate).Round(2)
	rent := price.Mul(yield).Round(2)
	if !rent.IsPositive() {
		return Result{}, eris.Wrapf(ErrZeroDenominator, "annual rent %s", rent)
	}
	coverage := in.EBITDAR.Div(rent)

	result := Result{
		PurchasePrice: price,
		AnnualRent:    rent,
		CoverageRatio: coverage.Round(2),
		CapRate:       capRate,
		YieldRate:     yield,
		Status:        Classify(coverage, cfg.Thresholds),
	}
	if !in.DebtService.IsZero() {
		dscr, err := DSCR(rent, in.DebtService)
		if err != nil {
			return Result{}, err
		}
		result.DSCR = &dscr
	}
	return result, nil
}

// Classify maps a coverage ratio onto its tier.
func Classify(coverage decimal.Decimal, t settings.CoverageThresholds) Status {
	switch {
	case coverage.GreaterThanOrEqual(decimal.NewFromFloat(t.Healthy)):
		return Healthy
	case coverage.GreaterThanOrEqual(decimal.NewFromFloat(t.Adequate)):
		return Adequate
	case coverage.GreaterThanOrEqual(decimal.NewFromFloat(t.Watch)):
		return Watch
	}
	return Distressed
}

// DSCR is NOI divided by annual debt service, rounded to two places.
func DSCR(noi, debtService decimal.Decimal) (decimal.Decimal, error) {
	if !debtService.IsPositive() {
		return decimal.Zero, eris.Wrapf(ErrZeroDenominator, "debt service %s", debtService)
	}
	return noi.Div(debtService).Round(2), nil
}

func orDefault(v decimal.Decimal, fallback float64) decimal.Decimal {
	if v.IsZero() {
		return decimal.NewFromFloat(fallback)
	}
	return v
}
