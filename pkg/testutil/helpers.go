// Package testutil provides common utility functions and fixtures for testing.
package testutil

import (
	"github.com/iwvelando/facility-valuation/internal/settings"
	"github.com/iwvelando/facility-valuation/internal/valuation"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// FindMethod finds a method result by name.
// Returns a pointer to the result if found, nil otherwise.
func FindMethod(results []valuation.MethodResult, name string) *valuation.MethodResult {
	for i := range results {
		if results[i].Method == name {
			return &results[i]
		}
	}
	return nil
}

// CapRateScenario is a 120-bed SNF with $1.8M NOI valued by the cap rate
// method alone at a 10% base rate, so its reconciled value is $18M.
func CapRateScenario() valuation.Scenario {
	s := settings.Default()
	s.AssetTypes.SNF.CapRate.Base = 0.10
	s.AssetTypes.SNF.MethodWeights = settings.MethodWeights{CapRate: 1}
	return valuation.Scenario{
		Facility: valuation.Facility{
			Name:      "Single Method SNF",
			AssetType: settings.SNF,
			Beds:      Ptr(120),
			NOI:       Ptr(1_800_000.0),
		},
		Settings: s,
	}
}

// FullScenario is a fully described SNF in Ohio with three qualifying
// comparables, valued with the default settings.
func FullScenario() valuation.Scenario {
	return valuation.Scenario{
		Facility: valuation.Facility{
			Name:             "Lakeside Care Center",
			AssetType:        settings.SNF,
			State:            "OH",
			Beds:             Ptr(120),
			BuildingAge:      Ptr(20.0),
			OccupancyRate:    Ptr(0.86),
			QualityRating:    Ptr(3),
			PayerMix:         &valuation.PayerMix{Medicare: 0.15, Medicaid: 0.60, Private: 0.20, Other: 0.05},
			NOI:              Ptr(1_800_000.0),
			NOIGrowthRate:    Ptr(0.01),
			EBITDAR:          Ptr(2_300_000.0),
			Revenue:          Ptr(14_000_000.0),
			Ownership:        "for_profit",
			Condition:        "good",
			RegulatoryStatus: "clean",
		},
		Comparables: []valuation.ComparableSale{
			{ID: "c1", AssetType: settings.SNF, DistanceMiles: 12, SaleAgeMonths: 10, Beds: 110, PricePerBed: 100_000, QualityRating: Ptr(3)},
			{ID: "c2", AssetType: settings.SNF, DistanceMiles: 25, SaleAgeMonths: 18, Beds: 130, PricePerBed: 110_000, QualityRating: Ptr(4)},
			{ID: "c3", AssetType: settings.SNF, DistanceMiles: 30, SaleAgeMonths: 24, Beds: 100, PricePerBed: 95_000},
		},
		Settings: settings.Default(),
	}
}
