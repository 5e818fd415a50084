// Package valueparse turns raw lab-report strings into typed
// domain.AnalysisValue, and normalizes units to mg/kg TS (spec §4.2).
package valueparse

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wastecat/classify/internal/decimalx"
	"github.com/wastecat/classify/internal/domain"
)

var (
	belowDetectionPattern = regexp.MustCompile(`^<\s*([0-9]+[.,]?[0-9]*)$`)
	saturatedPattern      = regexp.MustCompile(`^>\s*([0-9]+[.,]?[0-9]*)$`)
	bareNumberPattern     = regexp.MustCompile(`^[0-9]+([.,][0-9]+)?$`)
	thousandsSeparator    = regexp.MustCompile(`[0-9]{1,3}[ '][0-9]{3}`)
)

var missingSentinels = map[string]bool{
	"":     true,
	"n.a.": true,
	"n/a":  true,
	"-":    true,
	"–":    true,
}

// unitConversionToMgKgTS maps a recognized unit to the decimal factor that
// converts a reading in that unit to mg/kg TS. "mg/kg" and "mg/kg TS" are
// treated as equivalent per spec §4.2.
var unitConversionToMgKgTS = map[string]decimal.Decimal{
	"mg/kg":    decimal.NewFromInt(1),
	"mg/kg ts": decimal.NewFromInt(1),
	"µg/kg":    decimal.NewFromInt(1).Div(decimal.NewFromInt(1000)),
	"ug/kg":    decimal.NewFromInt(1).Div(decimal.NewFromInt(1000)),
	"%":        decimal.NewFromInt(10000),
}

// Result is the outcome of parsing one raw (value, unit) pair: the typed
// value already converted to mg/kg TS, the normalized unit label, and any
// diagnostic raised along the way.
type Result struct {
	Value      domain.AnalysisValue
	Unit       string
	Diagnostic *domain.Diagnostic
}

// Parse implements spec §4.2's recognized forms: bare numbers, `< X` /
// `<X` (below detection), `> X` (saturating, treated as Exact(X) with a
// diagnostic per the spec's documented open question), and the missing
// sentinels (empty, "n.a.", "-"). Unit conversion to mg/kg TS happens
// here so every downstream consumer sees a single internal unit.
func Parse(raw, unit string) Result {
	trimmed := strings.TrimSpace(raw)

	factor, unitOK := lookupUnitFactor(unit)
	if !unitOK {
		diag := domain.Diagnostic{Code: domain.DiagUnrecognizedUnit, Message: "unrecognized unit \"" + unit + "\": value discarded"}
		return Result{Value: domain.Missing(), Unit: unit, Diagnostic: &diag}
	}
	normalizedUnit := "mg/kg TS"

	if missingSentinels[strings.ToLower(trimmed)] {
		return Result{Value: domain.Missing(), Unit: normalizedUnit}
	}

	if thousandsSeparator.MatchString(trimmed) {
		diag := domain.NewDiagnostic(domain.DiagUnparseableValue, "thousands separators are not accepted: \""+raw+"\"")
		return Result{Value: domain.Missing(), Unit: normalizedUnit, Diagnostic: &diag}
	}

	if m := belowDetectionPattern.FindStringSubmatch(trimmed); m != nil {
		limit, err := decimalx.ParseUserLiteral(m[1])
		if err != nil {
			diag := domain.NewDiagnostic(domain.DiagUnparseableValue, "unparseable below-detection limit: \""+raw+"\"")
			return Result{Value: domain.Missing(), Unit: normalizedUnit, Diagnostic: &diag}
		}
		return Result{Value: domain.BelowDetection(limit.Mul(factor)), Unit: normalizedUnit}
	}

	if m := saturatedPattern.FindStringSubmatch(trimmed); m != nil {
		value, err := decimalx.ParseUserLiteral(m[1])
		if err != nil {
			diag := domain.NewDiagnostic(domain.DiagUnparseableValue, "unparseable saturated value: \""+raw+"\"")
			return Result{Value: domain.Missing(), Unit: normalizedUnit, Diagnostic: &diag}
		}
		diag := domain.NewDiagnostic(domain.DiagSaturatedValue, "saturated value \""+raw+"\" treated as exact "+value.String())
		return Result{Value: domain.Exact(value.Mul(factor)), Unit: normalizedUnit, Diagnostic: &diag}
	}

	normalizedBare := strings.Replace(trimmed, ",", ".", 1)
	if bareNumberPattern.MatchString(normalizedBare) {
		value, err := decimalx.ParseUserLiteral(normalizedBare)
		if err == nil {
			return Result{Value: domain.Exact(value.Mul(factor)), Unit: normalizedUnit}
		}
	}

	diag := domain.NewDiagnostic(domain.DiagUnparseableValue, "unrecognized value form: \""+raw+"\"")
	return Result{Value: domain.Missing(), Unit: normalizedUnit, Diagnostic: &diag}
}

func lookupUnitFactor(unit string) (decimal.Decimal, bool) {
	factor, ok := unitConversionToMgKgTS[strings.ToLower(strings.TrimSpace(unit))]
	return factor, ok
}
