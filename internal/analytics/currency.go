package analytics

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatCompact renders an amount for stage headers: $1.2M, $450K, $950.
func FormatCompact(amount float64) string {
	switch {
	case amount >= 1_000_000:
		return fmt.Sprintf("$%.1fM", roundTo(amount/1_000_000, 1))
	case amount >= 1_000:
		return fmt.Sprintf("$%.0fK", roundTo(amount/1_000, 0))
	default:
		return "$" + printer.Sprint(number.Decimal(amount, number.MaxFractionDigits(3)))
	}
}

// FormatCurrency renders a whole-dollar amount with grouping: $12,500.
func FormatCurrency(value int64) string {
	if value < 0 {
		return printer.Sprintf("-$%d", -value)
	}
	return printer.Sprintf("$%d", value)
}

// FormatRate renders a conversion rate with one decimal: 66.7%.
func FormatRate(rate float64) string {
	return fmt.Sprintf("%.1f%%", roundTo(rate, 1))
}

// roundTo rounds half away from zero at the given number of decimals.
func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
