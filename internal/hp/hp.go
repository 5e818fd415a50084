// Package hp implements the HP (hazardous-property) engine of spec §4.7:
// nine independent EU Regulation 1357/2014 (+2017/997 for HP14) criteria,
// each evaluated over speciated CLP views, OR-combined into a single
// FA / Icke FA verdict.
package hp

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/wastecat/classify/internal/clp"
	"github.com/wastecat/classify/internal/domain"
	"github.com/wastecat/classify/internal/speciation"
)

// RulesetName is the fixed name the HP engine's RuleSetResult is
// reported under, matching the built-in "fa" ruleset's category labels.
const RulesetName = "fa"

const (
	categoryFA     = "FA"
	categoryIckeFA = "Icke FA"
)

// criterionDef mirrors the teacher engine's rule-registration pattern:
// each HP criterion is an independently evaluable unit held in a map and
// invoked in a fixed declared order.
type criterionDef struct {
	hpID      string
	evaluator func(inputs []hpInput) domain.HpCriterionDetail
}

// Engine evaluates all nine HP criteria against a report.
type Engine struct {
	logger   *logrus.Logger
	criteria map[string]*criterionDef
	order    []string
}

// NewEngine builds an Engine and registers its criteria.
func NewEngine(logger *logrus.Logger) *Engine {
	e := &Engine{
		logger:   logger,
		criteria: make(map[string]*criterionDef),
	}
	e.initializeCriteria()
	return e
}

func (e *Engine) addCriterion(hpID string, evaluator func(inputs []hpInput) domain.HpCriterionDetail) {
	e.criteria[hpID] = &criterionDef{hpID: hpID, evaluator: evaluator}
	e.order = append(e.order, hpID)
}

// initializeCriteria registers the nine criteria spec §4.7 names, in the
// fixed HP-id order spec §5 requires for deterministic output: HP4, HP5,
// HP6, HP7, HP8, HP10, HP11, HP13, HP14.
func (e *Engine) initializeCriteria() {
	e.addCriterion("HP4", evaluateHP4)
	e.addCriterion("HP5", evaluateHP5)
	e.addCriterion("HP6", evaluateHP6)
	e.addCriterion("HP7", evaluateHP7)
	e.addCriterion("HP8", evaluateHP8)
	e.addCriterion("HP10", evaluateHP10)
	e.addCriterion("HP11", evaluateHP11)
	e.addCriterion("HP13", evaluateHP13)
	e.addCriterion("HP14", evaluateHP14)
}

// hpInput is a row that has a speciated, exact (non-below-detection)
// view: below-detection and missing rows are excluded upstream, since
// spec §4.7 excludes them from individual-limit criteria and zeroes
// their contribution to every summation criterion — the two rules
// collapse to "omit from evaluation entirely".
type hpInput struct {
	Key  domain.CanonicalKey
	Row  domain.AnalysisRow
	View speciation.View
}

// Evaluate runs all nine HP criteria over report and returns the
// combined FA/Icke FA verdict (spec §4.7).
func (e *Engine) Evaluate(report domain.AnalysisReport) domain.RuleSetResult {
	inputs := make([]hpInput, 0, len(report.Rows))
	for _, row := range report.Rows {
		view, ok := speciation.Resolve(row.CanonicalKey, row.Value)
		if !ok || view.BelowDetection || view.Entry == nil {
			continue
		}
		inputs = append(inputs, hpInput{Key: row.CanonicalKey, Row: row, View: view})
	}

	criteriaResults := make([]domain.HpCriterionDetail, 0, len(e.order))
	isHazardous := false
	triggeredSubstances := make(map[domain.CanonicalKey]string) // key -> triggering h_code
	for _, hpID := range e.order {
		def := e.criteria[hpID]
		detail := def.evaluator(inputs)
		if detail.Triggered {
			isHazardous = true
		}
		for _, c := range detail.Contributions {
			if c.Triggers {
				if _, already := triggeredSubstances[c.Substance]; !already {
					triggeredSubstances[c.Substance] = c.HCode
				}
			}
		}
		criteriaResults = append(criteriaResults, detail)
	}

	substanceResults := make([]domain.SubstanceResult, 0, len(report.Rows))
	determining := make([]domain.CanonicalKey, 0)
	for _, row := range report.Rows {
		sr := domain.SubstanceResult{
			Substance: row.CanonicalKey,
			RawName:   row.RawName,
			RawValue:  row.Value.String(),
			Unit:      row.Unit,
		}
		if hcode, triggered := triggeredSubstances[row.CanonicalKey]; triggered {
			sr.AssignedCategory = categoryFA
			sr.Reason = hcode + " contributes to hazardous-property classification (fa/" + hcode + ")"
			determining = append(determining, row.CanonicalKey)
		} else {
			sr.AssignedCategory = categoryIckeFA
			sr.Reason = "no HP criterion triggered"
		}
		substanceResults = append(substanceResults, sr)
	}

	lowest := categoryFA
	overall := categoryIckeFA
	if isHazardous {
		overall = categoryFA
	}
	for _, sr := range substanceResults {
		if sr.AssignedCategory == categoryIckeFA {
			lowest = categoryIckeFA
			break
		}
	}
	if len(substanceResults) == 0 {
		lowest = categoryIckeFA
	}

	return domain.RuleSetResult{
		RulesetName:           RulesetName,
		OverallCategory:       overall,
		LowestCategory:        lowest,
		DeterminingSubstances: determining,
		SubstanceResults:      substanceResults,
		HpDetails: &domain.HpDetails{
			IsHazardous:     isHazardous,
			CriteriaResults: criteriaResults,
		},
	}
}

// sortContributions enforces spec §5's stable-output ordering:
// contributions for a criterion are sorted by (canonical_key, h_code).
func sortContributions(contributions []domain.HpContribution) {
	sort.Slice(contributions, func(i, j int) bool {
		if contributions[i].Substance != contributions[j].Substance {
			return contributions[i].Substance < contributions[j].Substance
		}
		return contributions[i].HCode < contributions[j].HCode
	})
}

// effectiveThreshold returns the generic threshold, or a stricter SCL
// for (entry, headCode) if one is declared (spec §4.7: "SCLs ... take
// priority over the generic threshold only if more strict").
func effectiveThreshold(entry *clp.Entry, headCode string, generic decimal.Decimal) decimal.Decimal {
	if scl, ok := entry.SCLFor(headCode); ok && scl.LessThan(generic) {
		return scl
	}
	return generic
}

// evaluateIndividual builds an individual-limit criterion (spec §4.7):
// any single substance whose concentration for headCode meets or
// exceeds its effective threshold triggers the criterion.
func evaluateIndividual(hpID string, codeThresholds map[string]decimal.Decimal, inputs []hpInput) domain.HpCriterionDetail {
	var contributions []domain.HpContribution
	triggered := false

	for _, in := range inputs {
		for headCode, generic := range codeThresholds {
			if !in.View.Entry.HasHeadCode(headCode) {
				continue
			}
			threshold := effectiveThreshold(in.View.Entry, headCode, generic)
			triggers := in.View.ConcentrationPct.GreaterThanOrEqual(threshold)
			if triggers {
				triggered = true
			}
			contributions = append(contributions, domain.HpContribution{
				Substance:        in.Key,
				Compound:         in.View.Compound,
				CAS:              in.View.CAS,
				HCode:            in.View.Entry.DisplayCode(headCode),
				ConcentrationPct: in.View.ConcentrationPct,
				ThresholdPct:     threshold,
				Triggers:         triggers,
			})
		}
	}

	sortContributions(contributions)
	return domain.HpCriterionDetail{HpID: hpID, Triggered: triggered, Contributions: contributions}
}

// evaluateSummation builds a plain (unweighted) summation criterion:
// the concentrations of every substance carrying headCode are summed
// and compared once against threshold; every contributing substance's
// Triggers flag mirrors whether that group sum met the threshold.
func evaluateSummation(hpID string, headCode string, threshold decimal.Decimal, inputs []hpInput) domain.HpCriterionDetail {
	sum := decimal.Zero
	type member struct {
		in     hpInput
		code   string
		amount decimal.Decimal
	}
	var members []member
	for _, in := range inputs {
		if !in.View.Entry.HasHeadCode(headCode) {
			continue
		}
		sum = sum.Add(in.View.ConcentrationPct)
		members = append(members, member{in: in, code: in.View.Entry.DisplayCode(headCode), amount: in.View.ConcentrationPct})
	}

	triggered := sum.GreaterThanOrEqual(threshold)
	contributions := make([]domain.HpContribution, 0, len(members))
	for _, m := range members {
		contributions = append(contributions, domain.HpContribution{
			Substance:        m.in.Key,
			Compound:         m.in.View.Compound,
			CAS:              m.in.View.CAS,
			HCode:            m.code,
			ConcentrationPct: m.amount,
			ThresholdPct:     threshold,
			Triggers:         triggered,
		})
	}

	sortContributions(contributions)
	return domain.HpCriterionDetail{HpID: hpID, Triggered: triggered, Contributions: contributions}
}

// mergeCriteria OR-combines several criterion evaluations computed for
// the same hpID (used by HP4, HP5, and HP6, each of which is built from
// several independent sub-checks) into a single HpCriterionDetail.
func mergeCriteria(hpID string, parts ...domain.HpCriterionDetail) domain.HpCriterionDetail {
	merged := domain.HpCriterionDetail{HpID: hpID}
	for _, p := range parts {
		if p.Triggered {
			merged.Triggered = true
		}
		merged.Contributions = append(merged.Contributions, p.Contributions...)
	}
	sortContributions(merged.Contributions)
	return merged
}

func pct(literal string) decimal.Decimal {
	return decimal.RequireFromString(literal)
}

func evaluateHP4(inputs []hpInput) domain.HpCriterionDetail {
	h315 := evaluateSummation("HP4", "H315", pct("20"), inputs)
	h319 := evaluateSummation("HP4", "H319", pct("20"), inputs)
	return mergeCriteria("HP4", h315, h319)
}

func evaluateHP5(inputs []hpInput) domain.HpCriterionDetail {
	h370 := evaluateIndividual("HP5", map[string]decimal.Decimal{"H370": pct("1")}, inputs)
	h371 := evaluateIndividual("HP5", map[string]decimal.Decimal{"H371": pct("10")}, inputs)
	h372 := evaluateSummation("HP5", "H372", pct("1"), inputs)
	h373 := evaluateSummation("HP5", "H373", pct("10"), inputs)
	return mergeCriteria("HP5", h370, h371, h372, h373)
}

func evaluateHP6(inputs []hpInput) domain.HpCriterionDetail {
	parts := []domain.HpCriterionDetail{
		evaluateSummation("HP6", "H300", pct("0.1"), inputs),
		evaluateSummation("HP6", "H301", pct("5"), inputs),
		evaluateSummation("HP6", "H302", pct("25"), inputs),
		evaluateSummation("HP6", "H310", pct("0.1"), inputs),
		evaluateSummation("HP6", "H311", pct("5"), inputs),
		evaluateSummation("HP6", "H312", pct("25"), inputs),
		evaluateSummation("HP6", "H330", pct("0.1"), inputs),
		evaluateSummation("HP6", "H331", pct("5"), inputs),
		evaluateSummation("HP6", "H332", pct("25"), inputs),
	}
	return mergeCriteria("HP6", parts...)
}

func evaluateHP7(inputs []hpInput) domain.HpCriterionDetail {
	return evaluateIndividual("HP7", map[string]decimal.Decimal{
		"H350": pct("0.1"),
		"H351": pct("1"),
	}, inputs)
}

func evaluateHP8(inputs []hpInput) domain.HpCriterionDetail {
	return evaluateSummation("HP8", "H314", pct("5"), inputs)
}

func evaluateHP10(inputs []hpInput) domain.HpCriterionDetail {
	return evaluateIndividual("HP10", map[string]decimal.Decimal{
		"H360": pct("0.3"),
		"H361": pct("0.3"),
	}, inputs)
}

func evaluateHP11(inputs []hpInput) domain.HpCriterionDetail {
	return evaluateIndividual("HP11", map[string]decimal.Decimal{
		"H340": pct("0.1"),
		"H341": pct("1"),
	}, inputs)
}

func evaluateHP13(inputs []hpInput) domain.HpCriterionDetail {
	return evaluateIndividual("HP13", map[string]decimal.Decimal{
		"H317": pct("10"),
		"H334": pct("10"),
	}, inputs)
}

// evaluateHP14 implements spec §4.7's four parallel aquatic-toxicity
// checks (EU 2017/997), each an independent OR-trigger weighted by
// M-factor.
func evaluateHP14(inputs []hpInput) domain.HpCriterionDetail {
	type weighted struct {
		in     hpInput
		amount decimal.Decimal
	}

	collect := func(headCode string, weight func(hpInput) decimal.Decimal) ([]weighted, decimal.Decimal) {
		var members []weighted
		sum := decimal.Zero
		for _, in := range inputs {
			if !in.View.Entry.HasHeadCode(headCode) {
				continue
			}
			amount := in.View.ConcentrationPct.Mul(weight(in))
			members = append(members, weighted{in: in, amount: amount})
			sum = sum.Add(amount)
		}
		return members, sum
	}

	acuteM := func(in hpInput) decimal.Decimal { return in.View.Entry.MAcute }
	chronicM := func(in hpInput) decimal.Decimal { return in.View.Entry.MChronic }
	unweighted := func(hpInput) decimal.Decimal { return decimal.NewFromInt(1) }

	h400Members, acuteSum := collect("H400", acuteM)
	acuteTriggered := acuteSum.GreaterThanOrEqual(pct("25"))

	h410Members, h410ChronicSum := collect("H410", chronicM)
	chronic1Triggered := h410ChronicSum.Mul(pct("100")).GreaterThanOrEqual(pct("25"))

	h411Members, h411Sum := collect("H411", unweighted)
	combinedChronic := h410ChronicSum.Mul(pct("10")).Add(h411Sum).GreaterThanOrEqual(pct("2.5"))

	h412Members, h412Sum := collect("H412", unweighted)
	h413Members, h413Sum := collect("H413", unweighted)
	allAquatic := h410ChronicSum.Mul(pct("100")).
		Add(h411Sum.Mul(pct("10"))).
		Add(h412Sum).
		Add(h413Sum.Mul(pct("0.1"))).
		GreaterThanOrEqual(pct("25"))

	triggered := acuteTriggered || chronic1Triggered || combinedChronic || allAquatic

	var contributions []domain.HpContribution
	appendMembers := func(members []weighted, headCode string, thresholdPct decimal.Decimal, memberTriggered bool) {
		for _, m := range members {
			contributions = append(contributions, domain.HpContribution{
				Substance:        m.in.Key,
				Compound:         m.in.View.Compound,
				CAS:              m.in.View.CAS,
				HCode:            m.in.View.Entry.DisplayCode(headCode),
				ConcentrationPct: m.amount,
				ThresholdPct:     thresholdPct,
				Triggers:         memberTriggered,
			})
		}
	}

	// Each H-code can feed more than one of the four checks, each with
	// its own threshold, so a substance gets one contribution row per
	// check it actually participates in rather than one row reused
	// across checks with a single threshold.
	appendMembers(h400Members, "H400", pct("25"), acuteTriggered)
	appendMembers(h410Members, "H410", pct("25"), chronic1Triggered)
	appendMembers(h410Members, "H410", pct("2.5"), combinedChronic)
	appendMembers(h411Members, "H411", pct("2.5"), combinedChronic)
	appendMembers(h410Members, "H410", pct("25"), allAquatic)
	appendMembers(h411Members, "H411", pct("25"), allAquatic)
	appendMembers(h412Members, "H412", pct("25"), allAquatic)
	appendMembers(h413Members, "H413", pct("25"), allAquatic)

	sortContributions(contributions)
	return domain.HpCriterionDetail{HpID: "HP14", Triggered: triggered, Contributions: contributions}
}
