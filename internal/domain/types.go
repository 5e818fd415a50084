// Package domain contains the shared data model for solid-waste analytical
// classification: parsed lab rows, samples, and the classification results
// produced by the threshold and HP engines.
//
// Reference: EU Regulation 1357/2014 (+2017/997 for HP14) on hazardous
// properties; Swedish Naturvårdsverket guidance on KM/MKM soil thresholds.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Matrix identifies the physical waste type a sample was drawn from.
type Matrix string

const (
	MatrixJord     Matrix = "Jord"
	MatrixAsfalt   Matrix = "Asfalt"
	MatrixBetong   Matrix = "Betong"
	MatrixSediment Matrix = "Sediment"
	MatrixSlam     Matrix = "Slam"
)

// IsValid reports whether m is a matrix this module recognizes.
func (m Matrix) IsValid() bool {
	switch m {
	case MatrixJord, MatrixAsfalt, MatrixBetong, MatrixSediment, MatrixSlam:
		return true
	default:
		return false
	}
}

func (m Matrix) String() string { return string(m) }

// CanonicalKey is a lowercase snake_case identifier uniquely keying the
// substance dictionary, produced by the normalizer (C2).
type CanonicalKey string

func (k CanonicalKey) String() string { return string(k) }

// ValueKind tags the three AnalysisValue variants.
type ValueKind int

const (
	ValueMissing ValueKind = iota
	ValueExact
	ValueBelowDetection
)

func (k ValueKind) String() string {
	switch k {
	case ValueExact:
		return "exact"
	case ValueBelowDetection:
		return "below_detection"
	default:
		return "missing"
	}
}

// AnalysisValue is the sum type described in spec §3: an exact reading, a
// below-detection-limit reading, or a missing measurement. It is modeled as
// a tagged struct rather than an interface hierarchy so the zero value is
// meaningful (the zero AnalysisValue is Missing).
type AnalysisValue struct {
	kind   ValueKind
	amount decimal.Decimal // meaningful only when kind != ValueMissing
}

// Exact constructs an AnalysisValue carrying a measured concentration.
// d must be non-negative; this precondition is enforced by callers in
// internal/valueparse, not re-validated here.
func Exact(d decimal.Decimal) AnalysisValue {
	return AnalysisValue{kind: ValueExact, amount: d}
}

// BelowDetection constructs an AnalysisValue known only to be at or below
// the reported detection limit d. d must be strictly positive.
func BelowDetection(d decimal.Decimal) AnalysisValue {
	return AnalysisValue{kind: ValueBelowDetection, amount: d}
}

// Missing is the absent-measurement variant.
func Missing() AnalysisValue { return AnalysisValue{kind: ValueMissing} }

func (v AnalysisValue) Kind() ValueKind { return v.kind }

// IsMeasured reports whether the row carries an exact reading.
func (v AnalysisValue) IsMeasured() bool { return v.kind == ValueExact }

// IsBelowDetection reports whether the row is a detection-limit reading.
func (v AnalysisValue) IsBelowDetection() bool { return v.kind == ValueBelowDetection }

// IsMissing reports whether no measurement is present.
func (v AnalysisValue) IsMissing() bool { return v.kind == ValueMissing }

// Amount returns the carried decimal for Exact and BelowDetection values,
// and the zero decimal for Missing.
func (v AnalysisValue) Amount() decimal.Decimal { return v.amount }

// SumContribution returns the value this reading contributes to a
// group-sum rule: the exact amount if measured, zero otherwise. This
// implements the below-detection conservatism invariant of spec §8 —
// BelowDetection and Missing both contribute exactly zero to a sum.
func (v AnalysisValue) SumContribution() decimal.Decimal {
	if v.kind == ValueExact {
		return v.amount
	}
	return decimal.Zero
}

// String renders the value the way trace reasons quote it.
func (v AnalysisValue) String() string {
	switch v.kind {
	case ValueExact:
		return v.amount.String()
	case ValueBelowDetection:
		return "<" + v.amount.String()
	default:
		return "n.a."
	}
}

// EvidenceSpan is an opaque back-reference to the source location (page,
// line, bounding box) supplied by the extraction layer. The classification
// core never interprets it, only propagates it unchanged into the trace.
type EvidenceSpan struct {
	Page int    `json:"page,omitempty"`
	Line int    `json:"line,omitempty"`
	BBox *BBox  `json:"bbox,omitempty"`
	Note string `json:"note,omitempty"`
}

// BBox is a bounding box on the source page. Units and origin are defined
// by the extraction layer, not by this module.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// Diagnostic records a non-fatal observation about lab data: an unknown
// substance, an unparseable value, an unrecognized unit, or a duplicate
// canonical key within one report. These never abort classification
// (spec §7): the row degrades to Missing/Unknown and the diagnostic rides
// along in the trace.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Diagnostic codes, mirrored onto spec §7's non-fatal error kinds.
const (
	DiagUnknownSubstance = "UNKNOWN_SUBSTANCE"
	DiagUnparseableValue = "UNPARSEABLE_VALUE"
	DiagUnrecognizedUnit = "UNRECOGNIZED_UNIT"
	DiagDuplicateKey     = "DUPLICATE_CANONICAL_KEY"
	DiagSaturatedValue   = "SATURATED_VALUE"
)

// AnalysisRow is one substance reading within a report.
type AnalysisRow struct {
	RawName      string
	CanonicalKey CanonicalKey
	Value        AnalysisValue
	Unit         string // normalized unit after C3 conversion; "mg/kg TS"
	EvidenceSpan *EvidenceSpan
	Unknown      bool
	Diagnostics  []Diagnostic
}

// ReportHeader identifies the sample a report belongs to.
type ReportHeader struct {
	SampleID   string
	Matrix     Matrix
	Lab        string
	ReportDate time.Time
}

// AnalysisReport is a parsed lab report: a header plus its rows. Callers
// own reports; engines only borrow them read-only (spec §5).
type AnalysisReport struct {
	Header ReportHeader
	Rows   []AnalysisRow
}

// Dedup returns a copy of the report with canonical-key collisions
// resolved by keeping the first row and recording DiagDuplicateKey on the
// kept row's Diagnostics, per spec §3's AnalysisReport invariant: engines
// must see each substance at most once per sample.
func (r AnalysisReport) Dedup() AnalysisReport {
	seen := make(map[CanonicalKey]int, len(r.Rows))
	out := make([]AnalysisRow, 0, len(r.Rows))
	for _, row := range r.Rows {
		if idx, ok := seen[row.CanonicalKey]; ok && row.CanonicalKey != "" {
			out[idx].Diagnostics = append(out[idx].Diagnostics, Diagnostic{
				Code:    DiagDuplicateKey,
				Message: "duplicate canonical key \"" + string(row.CanonicalKey) + "\": row ignored, first occurrence kept",
			})
			continue
		}
		seen[row.CanonicalKey] = len(out)
		out = append(out, row)
	}
	return AnalysisReport{Header: r.Header, Rows: out}
}

// RowByKey returns the row for key and whether it was found.
func (r AnalysisReport) RowByKey(key CanonicalKey) (AnalysisRow, bool) {
	for _, row := range r.Rows {
		if row.CanonicalKey == key {
			return row, true
		}
	}
	return AnalysisRow{}, false
}

// SubstanceResult is a single subject's outcome under one ruleset.
type SubstanceResult struct {
	Substance        CanonicalKey        `json:"substance"`
	RawName          string              `json:"raw_name"`
	RawValue         string              `json:"raw_value"`
	Unit             string              `json:"unit"`
	AssignedCategory string              `json:"assigned_category"`
	ThresholdCrossed decimal.NullDecimal `json:"threshold_crossed,omitempty"`
	Reason           string              `json:"reason"`
}

// HpContribution is one substance's contribution to one HP criterion.
type HpContribution struct {
	Substance        CanonicalKey    `json:"substance"`
	Compound         string          `json:"compound"`
	CAS              string          `json:"cas"`
	HCode            string          `json:"h_code"`
	ConcentrationPct decimal.Decimal `json:"concentration_pct"`
	ThresholdPct     decimal.Decimal `json:"threshold_pct"`
	Triggers         bool            `json:"triggers"`
}

// HpCriterionDetail is the full evaluation record for one HP criterion.
type HpCriterionDetail struct {
	HpID          string           `json:"hp_id"`
	Triggered     bool             `json:"triggered"`
	Contributions []HpContribution `json:"contributions"`
}

// HpDetails wraps the HP engine's verdict for a RuleSetResult.
type HpDetails struct {
	IsHazardous     bool                `json:"is_hazardous"`
	CriteriaResults []HpCriterionDetail `json:"criteria_results"`
}

// RuleSetResult is the classification outcome of one ruleset against one
// sample.
type RuleSetResult struct {
	RulesetName           string            `json:"ruleset_name"`
	NotApplicable         bool              `json:"not_applicable,omitempty"`
	OverallCategory       string            `json:"overall_category"`
	LowestCategory        string            `json:"lowest_category"`
	DeterminingSubstances []CanonicalKey    `json:"determining_substances"`
	SubstanceResults      []SubstanceResult `json:"substance_results"`
	HpDetails             *HpDetails        `json:"hp_details,omitempty"`
}

// SampleResult bundles every ruleset's verdict for one sample.
type SampleResult struct {
	SampleID       string          `json:"sample_id"`
	Matrix         Matrix          `json:"matrix"`
	RulesetResults []RuleSetResult `json:"ruleset_results"`
}

// TraceEntry is the per-row record in the flat evidence trail.
type TraceEntry struct {
	ID           string        `json:"id"`
	SampleID     string        `json:"sample_id"`
	RawName      string        `json:"raw_name"`
	CanonicalKey CanonicalKey  `json:"canonical_key"`
	Unit         string        `json:"unit"`
	Value        string        `json:"value"`
	EvidenceSpan *EvidenceSpan `json:"evidence_span,omitempty"`
	Reason       string        `json:"reason"`
	Contributor  bool          `json:"contributor"`
	Diagnostics  []Diagnostic  `json:"diagnostics,omitempty"`
}

// TraceDecision is the per-(sample,ruleset,subject) record.
type TraceDecision struct {
	ID          string       `json:"id"`
	SampleID    string       `json:"sample_id"`
	RulesetName string       `json:"ruleset_name"`
	Subject     CanonicalKey `json:"subject"`
	Category    string       `json:"category"`
	Reason      string       `json:"reason"`
}

// Trace is the evidence trail woven by the trace assembler (C9).
type Trace struct {
	Entries   []TraceEntry    `json:"entries"`
	Decisions []TraceDecision `json:"decisions"`
}

// ClassificationResult is the top-level output of the classification core.
type ClassificationResult struct {
	Samples []SampleResult `json:"samples"`
	Trace   Trace          `json:"trace"`
}
