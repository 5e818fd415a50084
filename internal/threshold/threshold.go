// Package threshold implements the ordered-category classification
// engine (spec §4.6): per-substance and per-group classification against
// a ruleset's category ladder, with decimal-exact comparisons and
// below-detection-conservative group sums.
package threshold

import (
	"github.com/shopspring/decimal"

	"github.com/wastecat/classify/internal/domain"
	"github.com/wastecat/classify/internal/rules"
)

// Classify runs one ruleset against one report, per spec §4.6.
func Classify(report domain.AnalysisReport, ruleset *rules.Ruleset) domain.RuleSetResult {
	if ruleset.MatrixFilter != nil && *ruleset.MatrixFilter != report.Header.Matrix {
		return domain.RuleSetResult{
			RulesetName:   ruleset.Name,
			NotApplicable: true,
		}
	}

	rowsByKey := make(map[domain.CanonicalKey]domain.AnalysisRow, len(report.Rows))
	for _, row := range report.Rows {
		rowsByKey[row.CanonicalKey] = row
	}

	results := make([]domain.SubstanceResult, 0, len(ruleset.Rules))
	for _, rule := range ruleset.Rules {
		results = append(results, classifyRule(ruleset, rule, rowsByKey))
	}

	overall, lowest := ruleset.CleanestCategory(), ruleset.CleanestCategory()
	if len(results) > 0 {
		worstRank, bestRank := -1, len(ruleset.Categories)+1
		for _, r := range results {
			rank := rankOf(ruleset, r.AssignedCategory)
			if rank > worstRank {
				worstRank = rank
				overall = r.AssignedCategory
			}
			if rank < bestRank {
				bestRank = rank
				lowest = r.AssignedCategory
			}
		}
	}

	var determining []domain.CanonicalKey
	for _, r := range results {
		if r.AssignedCategory == overall {
			determining = append(determining, r.Substance)
		}
	}

	return domain.RuleSetResult{
		RulesetName:           ruleset.Name,
		OverallCategory:       overall,
		LowestCategory:        lowest,
		DeterminingSubstances: determining,
		SubstanceResults:      results,
	}
}

func classifyRule(ruleset *rules.Ruleset, rule rules.Rule, rowsByKey map[domain.CanonicalKey]domain.AnalysisRow) domain.SubstanceResult {
	value, measured, rawRow, rawValue, unit := resolveSubjectValue(rule.Subject, rowsByKey)

	base := domain.SubstanceResult{
		Substance: rule.Subject,
		RawName:   rawRow.RawName,
		RawValue:  rawValue,
		Unit:      unit,
	}

	if !measured {
		base.AssignedCategory = ruleset.CleanestCategory()
		base.Reason = "not detected / not reported"
		return base
	}

	category, crossedThreshold := walkCategories(ruleset, rule, value)
	base.AssignedCategory = category
	base.ThresholdCrossed = decimal.NewNullDecimal(crossedThreshold)

	if rankOf(ruleset, category) > 0 {
		base.Reason = value.String() + " " + unit + " ≥ " + crossedThreshold.String() + " (" + ruleset.Name + "/" + category + ")"
	} else {
		base.Reason = value.String() + " ≤ " + crossedThreshold.String() + " (" + ruleset.Name + "/" + category + ")"
	}
	return base
}

// resolveSubjectValue resolves a rule's subject to a value (spec §4.6
// step 2): a single substance's exact value, or a group's sum of exact
// member values. It returns whether there is a measurement at all, plus
// display metadata for the first relevant row.
func resolveSubjectValue(subject domain.CanonicalKey, rowsByKey map[domain.CanonicalKey]domain.AnalysisRow) (decimal.Decimal, bool, domain.AnalysisRow, string, string) {
	if members, ok := rules.GroupMembers(subject); ok {
		sum := decimal.Zero
		measured := false
		var firstRow domain.AnalysisRow
		for _, member := range members {
			row, present := rowsByKey[member]
			if !present {
				continue
			}
			if firstRow.CanonicalKey == "" {
				firstRow = row
			}
			if row.Value.IsMeasured() {
				measured = true
				sum = sum.Add(row.Value.Amount())
			}
		}
		if !measured {
			return decimal.Zero, false, firstRow, "", ""
		}
		return sum, true, firstRow, sum.String(), firstRow.Unit
	}

	row, present := rowsByKey[subject]
	if !present || !row.Value.IsMeasured() {
		return decimal.Zero, false, row, valueDisplay(row), row.Unit
	}
	return row.Value.Amount(), true, row, row.Value.String(), row.Unit
}

func valueDisplay(row domain.AnalysisRow) string {
	if row.CanonicalKey == "" {
		return ""
	}
	return row.Value.String()
}

// walkCategories implements spec §4.6 step 2's second half: find the
// highest category whose threshold is <= value, among the prefix of
// categories the rule declares thresholds for. If that highest category
// is the last one the rule declares and value strictly exceeds its
// threshold, the overflow sentinel "> Ck" is assigned instead (spec's
// "> Cn" notation, generalized to whatever category the rule's
// declared ladder tops out at).
func walkCategories(ruleset *rules.Ruleset, rule rules.Rule, value decimal.Decimal) (string, decimal.Decimal) {
	lastDeclaredIdx := -1
	for i, category := range ruleset.Categories {
		if _, ok := rule.Thresholds[category]; ok {
			lastDeclaredIdx = i
		}
	}

	foundIdx := -1
	for i := 0; i <= lastDeclaredIdx; i++ {
		threshold := rule.Thresholds[ruleset.Categories[i]]
		if threshold.LessThanOrEqual(value) {
			foundIdx = i
		}
	}

	if foundIdx == -1 {
		return ruleset.CleanestCategory(), rule.Thresholds[ruleset.Categories[0]]
	}

	threshold := rule.Thresholds[ruleset.Categories[foundIdx]]
	if foundIdx == lastDeclaredIdx && value.GreaterThan(threshold) {
		return "> " + ruleset.Categories[lastDeclaredIdx], threshold
	}
	return ruleset.Categories[foundIdx], threshold
}

func rankOf(ruleset *rules.Ruleset, category string) int {
	if idx := ruleset.CategoryIndex(category); idx >= 0 {
		return idx
	}
	// Overflow sentinels ("> Ck") rank one above every declared category.
	return len(ruleset.Categories)
}
