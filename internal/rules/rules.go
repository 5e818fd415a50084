// Package rules holds the typed representation of threshold rulesets
// (spec §3, §4.3): an ordered category ladder plus per-subject threshold
// tables, loaded from JSON and validated before any classification runs.
package rules

import (
	"encoding/json"
	"regexp"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/wastecat/classify/internal/clp"
	"github.com/wastecat/classify/internal/domain"
)

// Rule binds one subject (a single canonical key or a recognized group
// identifier) to its per-category thresholds.
type Rule struct {
	Subject    domain.CanonicalKey
	Thresholds map[string]decimal.Decimal // category name -> threshold, mg/kg TS
}

// Ruleset is the loaded, validated form of spec §3's Ruleset entity.
type Ruleset struct {
	Name         string
	Version      string
	MatrixFilter *domain.Matrix // nil means applicable to every matrix
	Categories   []string       // ordered cleanest (index 0) to dirtiest
	Rules        []Rule
}

// CategoryIndex returns the position of category in the ruleset's
// cleanest-to-dirtiest order, or -1 if category is not one of its
// categories.
func (r *Ruleset) CategoryIndex(category string) int {
	for i, c := range r.Categories {
		if c == category {
			return i
		}
	}
	return -1
}

// CleanestCategory is C0, the category assigned to a subject with no
// measurement.
func (r *Ruleset) CleanestCategory() string {
	return r.Categories[0]
}

// OverflowCategory is the sentinel assigned when a value exceeds every
// declared category's threshold (spec §4.6's "> Cn").
func (r *Ruleset) OverflowCategory() string {
	return "> " + r.Categories[len(r.Categories)-1]
}

var subjectPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// rulesetJSON mirrors the wire format documented in spec §6: a rule names
// its subject under either "substance" (single canonical key) or "group"
// (recognized group identifier), never both.
type rulesetJSON struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	MatrixFilter string            `json:"matrix_filter,omitempty"`
	Categories   []string          `json:"categories"`
	Rules        []ruleJSON        `json:"rules"`
}

type ruleJSON struct {
	Substance  string            `json:"substance,omitempty"`
	Group      string            `json:"group,omitempty"`
	Thresholds map[string]string `json:"thresholds"`
}

// Load parses and validates a ruleset document. Any schema violation,
// non-monotonic threshold, or unknown subject/matrix is reported as a
// *domain.ClassificationError with Kind ErrInvalidRuleset (spec §7): this
// is always surfaced at load time, never postponed to classify time.
func Load(data []byte) (*Ruleset, error) {
	var raw rulesetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, domain.NewInvalidRulesetError(raw.Name, "malformed JSON: "+err.Error())
	}

	if raw.Name == "" {
		return nil, domain.NewInvalidRulesetError(raw.Name, "ruleset name is required")
	}

	if len(raw.Categories) == 0 {
		return nil, domain.NewInvalidRulesetError(raw.Name, "categories must be non-empty")
	}
	seenCategory := make(map[string]bool, len(raw.Categories))
	for _, c := range raw.Categories {
		if seenCategory[c] {
			return nil, domain.NewInvalidRulesetError(raw.Name, "duplicate category \""+c+"\"")
		}
		seenCategory[c] = true
	}

	var matrixFilter *domain.Matrix
	if raw.MatrixFilter != "" {
		m := domain.Matrix(raw.MatrixFilter)
		if !m.IsValid() {
			return nil, domain.NewInvalidRulesetError(raw.Name, "unknown matrix_filter \""+raw.MatrixFilter+"\"")
		}
		matrixFilter = &m
	}

	rs := &Ruleset{
		Name:         raw.Name,
		Version:      raw.Version,
		MatrixFilter: matrixFilter,
		Categories:   raw.Categories,
	}

	for _, rr := range raw.Rules {
		rule, err := buildRule(rs, rr)
		if err != nil {
			return nil, err
		}
		rs.Rules = append(rs.Rules, rule)
	}

	return rs, nil
}

func buildRule(rs *Ruleset, rr ruleJSON) (Rule, error) {
	var subject string
	switch {
	case rr.Substance != "" && rr.Group != "":
		return Rule{}, domain.NewInvalidRulesetError(rs.Name, "rule names both substance and group")
	case rr.Substance != "":
		subject = rr.Substance
	case rr.Group != "":
		subject = rr.Group
	default:
		return Rule{}, domain.NewInvalidRulesetError(rs.Name, "rule names neither substance nor group")
	}

	if !subjectPattern.MatchString(subject) {
		return Rule{}, domain.NewInvalidRulesetError(rs.Name, "subject \""+subject+"\" is not a valid canonical key")
	}
	key := domain.CanonicalKey(subject)
	if rr.Group != "" {
		if !IsGroup(key) {
			return Rule{}, domain.NewInvalidRulesetError(rs.Name, "unrecognized group identifier \""+subject+"\"")
		}
	} else if _, ok := clp.Lookup(key); !ok {
		return Rule{}, domain.NewInvalidRulesetError(rs.Name, "unknown canonical key \""+subject+"\": no CLP dossier entry")
	}

	thresholds := make(map[string]decimal.Decimal, len(rr.Thresholds))
	var presentCategories []string
	for category, literal := range rr.Thresholds {
		if rs.CategoryIndex(category) < 0 {
			return Rule{}, domain.NewInvalidRulesetError(rs.Name, "rule for \""+subject+"\" references unknown category \""+category+"\"")
		}
		value, err := decimal.NewFromString(literal)
		if err != nil {
			return Rule{}, domain.NewInvalidRulesetError(rs.Name, "rule for \""+subject+"\" has unparseable threshold \""+literal+"\"")
		}
		thresholds[category] = value
		presentCategories = append(presentCategories, category)
	}

	if len(presentCategories) == 0 {
		return Rule{}, domain.NewInvalidRulesetError(rs.Name, "rule for \""+subject+"\" has no thresholds")
	}

	sort.Slice(presentCategories, func(i, j int) bool {
		return rs.CategoryIndex(presentCategories[i]) < rs.CategoryIndex(presentCategories[j])
	})
	// Categories with thresholds must be a prefix C0..Ck of the ladder
	// (spec §3 invariant 2): no gaps, and monotonically non-decreasing
	// (spec §3 invariant 2).
	for i, category := range presentCategories {
		if rs.CategoryIndex(category) != i {
			return Rule{}, domain.NewInvalidRulesetError(rs.Name, "rule for \""+subject+"\" must specify thresholds for a contiguous prefix of categories starting at "+rs.Categories[0])
		}
		if i > 0 {
			prev := thresholds[presentCategories[i-1]]
			cur := thresholds[category]
			if cur.LessThan(prev) {
				return Rule{}, domain.NewInvalidRulesetError(rs.Name, "thresholds for \""+subject+"\" are not monotonically non-decreasing between \""+presentCategories[i-1]+"\" and \""+category+"\"")
			}
		}
	}

	return Rule{Subject: key, Thresholds: thresholds}, nil
}

// mustParseBuiltin parses a compiled-in ruleset blob, panicking on any
// failure per spec §4.3 and §9: built-in data is a program invariant.
func mustParseBuiltin(name string, data []byte) *Ruleset {
	rs, err := Load(data)
	if err != nil {
		panic("rules: built-in ruleset " + name + " failed validation: " + err.Error())
	}
	return rs
}
