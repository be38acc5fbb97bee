// Package format renders currency, rates and ratios for display.
package format

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	formatted := NumericCurrency(math.Abs(amount))
	if amount < 0 {
		return "-$" + formatted
	}
	return "$" + formatted
}

// NumericCurrency returns a currency string without a currency symbol but with separators (e.g., "-1,234.56").
func NumericCurrency(amount float64) string {
	return printer.Sprintf("%.2f", amount)
}

// WholeCurrency rounds to whole dollars (e.g., "$18,000,000").
func WholeCurrency(amount float64) string {
	formatted := printer.Sprintf("%.0f", math.Abs(math.Round(amount)))
	if amount <= -0.5 {
		return "-$" + formatted
	}
	return "$" + formatted
}

// Percent renders a fraction as a percentage with two decimals (0.075 -> "7.50%").
func Percent(fraction float64) string {
	return printer.Sprintf("%.2f%%", fraction*100)
}

// Ratio renders a coverage style multiple (1.4118 -> "1.41x").
func Ratio(v float64) string {
	return printer.Sprintf("%.2fx", v)
}
