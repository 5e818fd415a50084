// Package decimalx wraps shopspring/decimal with the handful of helpers the
// classification core needs: nothing here ever downgrades to float64. All
// thresholds, concentrations, and sums travel as decimal.Decimal from parse
// to output so rounding mode and precision stay exact throughout.
package decimalx

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DivisionPrecision governs every decimal.Div call across the module.
// Set once here to the 28-significant-digit mantissa spec §9 requires,
// rather than relying on shopspring/decimal's 16-digit package default.
func init() {
	decimal.DivisionPrecision = 28
}

// MustFromString parses a canonical (dot-separated, already normalized)
// decimal literal used for built-in ruleset/dossier data. Panics on
// malformed literals: these strings are compiled-in data, a parse failure
// here is a program integrity bug, not user input.
func MustFromString(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("decimalx: invalid compiled-in literal " + s + ": " + err.Error())
	}
	return d
}

// ParseUserLiteral parses a decimal literal that may use a comma as the
// decimal separator, as Swedish lab reports commonly do. Only the first
// comma is converted; input with a unit suffix fails to parse. Callers in
// internal/valueparse reject thousands separators before calling it.
func ParseUserLiteral(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.Replace(s, ",", ".", 1)
	return decimal.NewFromString(s)
}

// Exceeds reports whether value is strictly greater than threshold. Kept
// as a named helper so every comparison on the classification path reads
// the same way and none of them accidentally round-trips through float64.
func Exceeds(value, threshold decimal.Decimal) bool {
	return value.GreaterThan(threshold)
}

// AtLeast reports whether value is greater than or equal to threshold.
func AtLeast(value, threshold decimal.Decimal) bool {
	return value.GreaterThanOrEqual(threshold)
}

// SumAll adds a slice of decimals left to right. Order does not affect the
// result; decimal.Decimal addition is associative and exact.
func SumAll(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
