// Package trace assembles the evidence trail (spec §4.8): a flat,
// per-row entry list plus a per-(sample, ruleset, subject) decision
// list, both carrying forward the opaque evidence spans the extraction
// layer attached to each analysis row.
package trace

import (
	"strings"

	"github.com/google/uuid"

	"github.com/wastecat/classify/internal/domain"
)

// Assemble builds the trace for one sample from its analysis report and
// the ruleset results computed against it (threshold rulesets and the
// HP engine's fa result alike).
func Assemble(sampleID string, report domain.AnalysisReport, rulesetResults []domain.RuleSetResult) domain.Trace {
	contributors := contributorSet(rulesetResults)
	reasonsByKey := reasonsByCanonicalKey(rulesetResults)

	entries := make([]domain.TraceEntry, 0, len(report.Rows))
	for _, row := range report.Rows {
		entries = append(entries, domain.TraceEntry{
			ID:           uuid.New().String(),
			SampleID:     sampleID,
			RawName:      row.RawName,
			CanonicalKey: row.CanonicalKey,
			Unit:         row.Unit,
			Value:        row.Value.String(),
			EvidenceSpan: row.EvidenceSpan,
			Reason:       strings.Join(reasonsByKey[row.CanonicalKey], "; "),
			Contributor:  contributors[row.CanonicalKey],
			Diagnostics:  row.Diagnostics,
		})
	}

	decisions := make([]domain.TraceDecision, 0)
	for _, rs := range rulesetResults {
		if rs.NotApplicable {
			continue
		}
		for _, sr := range rs.SubstanceResults {
			decisions = append(decisions, domain.TraceDecision{
				ID:          uuid.New().String(),
				SampleID:    sampleID,
				RulesetName: rs.RulesetName,
				Subject:     sr.Substance,
				Category:    sr.AssignedCategory,
				Reason:      sr.Reason,
			})
		}
	}

	return domain.Trace{Entries: entries, Decisions: decisions}
}

// contributorSet marks a substance a contributor if it determined a
// ruleset's overall category where that category is worse than the
// ruleset's lowest category, or if it participated (with Triggers=true)
// in any triggered HP criterion.
func contributorSet(rulesetResults []domain.RuleSetResult) map[domain.CanonicalKey]bool {
	contributors := make(map[domain.CanonicalKey]bool)
	for _, rs := range rulesetResults {
		if rs.NotApplicable {
			continue
		}
		if rs.OverallCategory != rs.LowestCategory {
			for _, key := range rs.DeterminingSubstances {
				contributors[key] = true
			}
		}
		if rs.HpDetails == nil {
			continue
		}
		for _, criterion := range rs.HpDetails.CriteriaResults {
			if !criterion.Triggered {
				continue
			}
			for _, c := range criterion.Contributions {
				if c.Triggers {
					contributors[c.Substance] = true
				}
			}
		}
	}
	return contributors
}

// reasonsByCanonicalKey collects every ruleset's stated reason for each
// substance, so a row touched by more than one ruleset carries the full
// aggregated explanation.
func reasonsByCanonicalKey(rulesetResults []domain.RuleSetResult) map[domain.CanonicalKey][]string {
	reasons := make(map[domain.CanonicalKey][]string)
	for _, rs := range rulesetResults {
		if rs.NotApplicable {
			continue
		}
		for _, sr := range rs.SubstanceResults {
			if sr.Reason == "" {
				continue
			}
			reasons[sr.Substance] = append(reasons[sr.Substance], sr.Reason)
		}
	}
	return reasons
}
