// Package validation provides common validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/facility-valuation/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	switch format {
	case constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatJSON:
		return nil
	}
	return fmt.Errorf("expected output format of %s, %s or %s, got %s",
		constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatJSON, format)
}

// ValidateIterations checks a Monte Carlo iteration count against the supported bounds.
func ValidateIterations(n int) error {
	if n < constants.MinIterations || n > constants.MaxIterations {
		return fmt.Errorf("iterations must be between %d and %d, got %d",
			constants.MinIterations, constants.MaxIterations, n)
	}
	return nil
}
