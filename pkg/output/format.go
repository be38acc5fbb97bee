// Package output provides utilities for formatting and displaying valuation results.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/iwvelando/facility-valuation/internal/leaseback"
	"github.com/iwvelando/facility-valuation/internal/montecarlo"
	"github.com/iwvelando/facility-valuation/internal/sensitivity"
	"github.com/iwvelando/facility-valuation/internal/valuation"
	"github.com/iwvelando/facility-valuation/pkg/constants"
	"github.com/iwvelando/facility-valuation/pkg/format"
)

// Write renders v in the named format. v must be one of the result types
// produced by the valuation, sensitivity, montecarlo or leaseback packages.
func Write(w io.Writer, outputFormat string, v any) error {
	if outputFormat == constants.OutputFormatJSON {
		return JSONFormat(w, v)
	}
	csv := outputFormat == constants.OutputFormatCSV
	switch r := v.(type) {
	case valuation.ValuationResult:
		if csv {
			return CsvValuation(w, r)
		}
		return PrettyValuation(w, r)
	case sensitivity.Report:
		if csv {
			return CsvSensitivity(w, r)
		}
		return PrettySensitivity(w, r)
	case []sensitivity.Point:
		if csv {
			return CsvCurve(w, r)
		}
		return PrettyCurve(w, r)
	case montecarlo.Result:
		if csv {
			return CsvMonteCarlo(w, r)
		}
		return PrettyMonteCarlo(w, r)
	case leaseback.Result:
		if csv {
			return CsvLeaseback(w, r)
		}
		return PrettyLeaseback(w, r)
	}
	return eris.Errorf("no %s renderer for %T", outputFormat, v)
}

// JSONFormat writes v as indented JSON.
func JSONFormat(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrettyValuation outputs a human-readable rather than machine-readable table.
func PrettyValuation(w io.Writer, r valuation.ValuationResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "--- Reconciled value %s (%s confidence) ---\n", format.WholeCurrency(r.ReconciledValue), r.OverallConfidence)
	fmt.Fprintf(&b, "Range   | %s - %s\n\n", format.WholeCurrency(r.ValueLow), format.WholeCurrency(r.ValueHigh))
	fmt.Fprintf(&b, "Method          | Value           | Confidence | Weight  | Notes\n")
	fmt.Fprintf(&b, "______          | _____           | __________ | ______  | _____\n")
	for _, m := range r.Methods.List() {
		value := "n/a"
		if m.Applicable {
			value = format.WholeCurrency(m.Value)
		}
		fmt.Fprintf(&b, "%-15s | %-15s | %-10s | %6.2f%% | %s\n", m.Method, value, m.Confidence, m.Weight*100, strings.Join(m.Notes, "; "))
	}
	if len(r.ConfidenceFactors) > 0 {
		fmt.Fprintf(&b, "\nConfidence factors:\n")
		for _, f := range r.ConfidenceFactors {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// CsvValuation outputs one row per method in comma-separated value format.
func CsvValuation(w io.Writer, r valuation.ValuationResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, `"method","applicable","value","confidence","weight","notes"`+"\n")
	for _, m := range r.Methods.List() {
		fmt.Fprintf(&b, `"%s","%t","%.2f","%s","%.6f","%s"`+"\n", m.Method, m.Applicable, m.Value, m.Confidence, m.Weight, csvEscape(strings.Join(m.Notes, "; ")))
	}
	fmt.Fprintf(&b, `"reconciled","true","%.2f","%s","1.000000","%s"`+"\n", r.ReconciledValue, r.OverallConfidence, csvEscape(strings.Join(r.ConfidenceFactors, "; ")))
	_, err := io.WriteString(w, b.String())
	return err
}

// PrettySensitivity outputs the tornado rows largest first.
func PrettySensitivity(w io.Writer, report sensitivity.Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Parameter            | Low             | High            | Range\n")
	fmt.Fprintf(&b, "_________            | ___             | ____            | _____\n")
	for _, r := range report.Results {
		fmt.Fprintf(&b, "%-20s | %-15s | %-15s | %s\n", label(r), format.WholeCurrency(r.LowValue), format.WholeCurrency(r.HighValue), format.WholeCurrency(r.Range))
	}
	fmt.Fprintf(&b, "\nBaseline: %s\n", format.WholeCurrency(report.BaselineValue))
	if report.Cancelled {
		fmt.Fprintf(&b, "Cancelled after %d of %d parameters\n", len(report.Results), report.Requested)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// CsvSensitivity outputs the tornado rows in comma-separated value format.
func CsvSensitivity(w io.Writer, report sensitivity.Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, `"parameter","path","min","max","lowValue","highValue","range","baselineValue"`+"\n")
	for _, r := range report.Results {
		fmt.Fprintf(&b, `"%s","%s","%g","%g","%.2f","%.2f","%.2f","%.2f"`+"\n", csvEscape(r.Parameter), csvEscape(r.Path), r.Min, r.Max, r.LowValue, r.HighValue, r.Range, r.BaselineValue)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// PrettyCurve outputs one line per evaluated input.
func PrettyCurve(w io.Writer, points []sensitivity.Point) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Input        | Reconciled value\n")
	fmt.Fprintf(&b, "_____        | ________________\n")
	for _, p := range points {
		fmt.Fprintf(&b, "%-12g | %s\n", p.Input, format.WholeCurrency(p.ReconciledValue))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// CsvCurve outputs the curve in comma-separated value format.
func CsvCurve(w io.Writer, points []sensitivity.Point) error {
	var b strings.Builder
	fmt.Fprintf(&b, `"input","reconciledValue"`+"\n")
	for _, p := range points {
		fmt.Fprintf(&b, `"%g","%.2f"`+"\n", p.Input, p.ReconciledValue)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// PrettyMonteCarlo outputs the summary statistics and the histogram.
func PrettyMonteCarlo(w io.Writer, r montecarlo.Result) error {
	var b strings.Builder
	status := ""
	if r.Cancelled {
		status = " (cancelled)"
	}
	fmt.Fprintf(&b, "--- Monte Carlo: %d of %d iterations, seed %d%s ---\n", r.Iterations, r.Requested, r.Seed, status)
	fmt.Fprintf(&b, "Mean    | %s\n", format.WholeCurrency(r.Mean))
	fmt.Fprintf(&b, "Median  | %s\n", format.WholeCurrency(r.Median))
	fmt.Fprintf(&b, "StdDev  | %s\n", format.WholeCurrency(r.StdDev))
	fmt.Fprintf(&b, "Range   | %s - %s\n", format.WholeCurrency(r.Min), format.WholeCurrency(r.Max))
	fmt.Fprintf(&b, "P5/P95  | %s - %s\n", format.WholeCurrency(r.Percentiles.P5), format.WholeCurrency(r.Percentiles.P95))
	fmt.Fprintf(&b, "P25/P75 | %s - %s\n", format.WholeCurrency(r.Percentiles.P25), format.WholeCurrency(r.Percentiles.P75))
	fmt.Fprintf(&b, "Time    | %s\n\n", r.CalculationTime)
	for _, bucket := range r.Distribution {
		fmt.Fprintf(&b, "%15s - %-15s | %5.1f%% | %s\n", format.WholeCurrency(bucket.Min), format.WholeCurrency(bucket.Max),
			bucket.Percentage, strings.Repeat("#", int(bucket.Percentage+0.5)))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// CsvMonteCarlo outputs the histogram in comma-separated value format.
func CsvMonteCarlo(w io.Writer, r montecarlo.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, `"bucketMin","bucketMax","count","percentage"`+"\n")
	for _, bucket := range r.Distribution {
		fmt.Fprintf(&b, `"%.2f","%.2f","%d","%.4f"`+"\n", bucket.Min, bucket.Max, bucket.Count, bucket.Percentage)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// PrettyLeaseback outputs the sized sale-leaseback.
func PrettyLeaseback(w io.Writer, r leaseback.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Purchase price | %s\n", format.Currency(r.PurchasePrice.InexactFloat64()))
	fmt.Fprintf(&b, "Annual rent    | %s\n", format.Currency(r.AnnualRent.InexactFloat64()))
	fmt.Fprintf(&b, "Coverage       | %s (%s)\n", format.Ratio(r.CoverageRatio.InexactFloat64()), r.Status)
	if r.DSCR != nil {
		fmt.Fprintf(&b, "DSCR           | %s\n", format.Ratio(r.DSCR.InexactFloat64()))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// CsvLeaseback outputs the sized sale-leaseback in comma-separated value format.
func CsvLeaseback(w io.Writer, r leaseback.Result) error {
	_, err := fmt.Fprintf(w, "\"purchasePrice\",\"annualRent\",\"coverageRatio\",\"status\"\n\"%s\",\"%s\",\"%s\",\"%s\"\n",
		r.PurchasePrice.StringFixed(2), r.AnnualRent.StringFixed(2), r.CoverageRatio.StringFixed(2), r.Status)
	return err
}

func label(r sensitivity.Result) string {
	if r.Label != "" {
		return r.Label
	}
	return r.Parameter
}

func csvEscape(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}
