// Package constants provides shared constants for the facility-valuation application.
package constants

// Numeric tolerances
const (
	// WeightSumTolerance is the allowed drift of a weight set away from 1.
	WeightSumTolerance = 0.01

	// FloatTolerance is used for comparisons of computed ratios and weights.
	FloatTolerance = 1e-9

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12
)

// Reconciliation defaults
const (
	// DefaultOutlierThresholdPercent is the median deviation above which a method is dropped.
	DefaultOutlierThresholdPercent = 25.0

	// HighConfidenceMultiplier scales the weight of a high-confidence method.
	HighConfidenceMultiplier = 1.2

	// MediumConfidenceMultiplier scales the weight of a medium-confidence method.
	MediumConfidenceMultiplier = 1.0

	// LowConfidenceMultiplier scales the weight of a low-confidence method.
	LowConfidenceMultiplier = 0.8
)

// DCF defaults
const (
	// DefaultProjectionYears is the DCF horizon used when none is configured.
	DefaultProjectionYears = 10

	// DefaultMaxProjectionYears caps any configured DCF horizon.
	DefaultMaxProjectionYears = 20

	// PeriodicityAnnual projects one cash flow per year.
	PeriodicityAnnual = "annual"

	// PeriodicityMonthly projects twelve cash flows per year.
	PeriodicityMonthly = "monthly"
)

// Monte Carlo defaults
const (
	// DefaultIterations is the number of Monte Carlo iterations when unset.
	DefaultIterations = 1000

	// MinIterations is the lower bound accepted from user input.
	MinIterations = 100

	// MaxIterations is the upper bound accepted from user input.
	MaxIterations = 10000

	// DefaultHistogramBuckets is the number of fixed-width histogram buckets.
	DefaultHistogramBuckets = 25

	// DefaultProgressInterval is the number of iterations between progress reports.
	DefaultProgressInterval = 250
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "VALUATION"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum request body size (1 MB)
	DefaultMaxBodySizeBytes int64 = 1024 * 1024
)
