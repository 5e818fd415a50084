package hp

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/wastecat/classify/internal/domain"
)

func newTestEngine() *Engine {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewEngine(logger)
}

func rowExact(key domain.CanonicalKey, amount int64) domain.AnalysisRow {
	return domain.AnalysisRow{
		RawName:      string(key),
		CanonicalKey: key,
		Value:        domain.Exact(decimal.NewFromInt(amount)),
		Unit:         "mg/kg TS",
	}
}

// TestEvaluateArsenikTriggersHP7 mirrors spec scenario S2: a high
// arsenik reading carries H350, individually over HP7's 0.1% threshold.
func TestEvaluateArsenikTriggersHP7(t *testing.T) {
	engine := newTestEngine()
	report := domain.AnalysisReport{
		Header: domain.ReportHeader{SampleID: "S2", Matrix: domain.MatrixJord},
		Rows:   []domain.AnalysisRow{rowExact("arsenik", 1200)},
	}

	result := engine.Evaluate(report)
	if result.OverallCategory != categoryFA {
		t.Fatalf("OverallCategory = %q, want FA", result.OverallCategory)
	}
	if !result.HpDetails.IsHazardous {
		t.Fatalf("expected IsHazardous = true")
	}

	var hp7 *domain.HpCriterionDetail
	for i := range result.HpDetails.CriteriaResults {
		if result.HpDetails.CriteriaResults[i].HpID == "HP7" {
			hp7 = &result.HpDetails.CriteriaResults[i]
		}
	}
	if hp7 == nil || !hp7.Triggered {
		t.Fatalf("expected HP7 to trigger, got %+v", hp7)
	}
	if len(hp7.Contributions) != 1 {
		t.Fatalf("expected 1 contribution, got %d", len(hp7.Contributions))
	}
	c := hp7.Contributions[0]
	if c.Substance != "arsenik" || c.HCode != "H350" {
		t.Errorf("unexpected contribution: %+v", c)
	}
	want := decimal.RequireFromString("0.1584")
	if !c.ConcentrationPct.Equal(want) {
		t.Errorf("ConcentrationPct = %s, want %s", c.ConcentrationPct, want)
	}
	if !c.ThresholdPct.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("ThresholdPct = %s, want 0.1", c.ThresholdPct)
	}
	if !c.Triggers {
		t.Errorf("expected contribution to trigger")
	}
}

// TestEvaluateCopperTriggersHP14Acute mirrors spec scenario S3: copper's
// M-acute-weighted H400 concentration crosses the 25% weighted-sum
// threshold on its own (0.565% x M=100 = 56.5).
func TestEvaluateCopperTriggersHP14Acute(t *testing.T) {
	engine := newTestEngine()
	report := domain.AnalysisReport{
		Header: domain.ReportHeader{SampleID: "S3", Matrix: domain.MatrixJord},
		Rows:   []domain.AnalysisRow{rowExact("koppar", 5000)},
	}

	result := engine.Evaluate(report)
	if !result.HpDetails.IsHazardous {
		t.Fatalf("expected IsHazardous = true")
	}

	var hp14 *domain.HpCriterionDetail
	for i := range result.HpDetails.CriteriaResults {
		if result.HpDetails.CriteriaResults[i].HpID == "HP14" {
			hp14 = &result.HpDetails.CriteriaResults[i]
		}
	}
	if hp14 == nil || !hp14.Triggered {
		t.Fatalf("expected HP14 to trigger, got %+v", hp14)
	}
	if len(hp14.Contributions) != 4 {
		t.Fatalf("expected 4 contributions, got %d", len(hp14.Contributions))
	}
	c := hp14.Contributions[0]
	want := decimal.RequireFromString("56.5")
	if !c.ConcentrationPct.Equal(want) {
		t.Errorf("weighted ConcentrationPct = %s, want %s", c.ConcentrationPct, want)
	}
}

// TestEvaluateLeadTriggersHP10ViaSCL mirrors spec scenario S4: lead's
// SCL (0.03%) is stricter than the generic H360 threshold (0.3%), so a
// 300 mg/kg reading (factor 1.077 -> 0.03231%) crosses the SCL.
func TestEvaluateLeadTriggersHP10ViaSCL(t *testing.T) {
	engine := newTestEngine()
	report := domain.AnalysisReport{
		Header: domain.ReportHeader{SampleID: "S4", Matrix: domain.MatrixJord},
		Rows:   []domain.AnalysisRow{rowExact("bly", 300)},
	}

	result := engine.Evaluate(report)
	if !result.HpDetails.IsHazardous {
		t.Fatalf("expected IsHazardous = true")
	}

	var hp10 *domain.HpCriterionDetail
	for i := range result.HpDetails.CriteriaResults {
		if result.HpDetails.CriteriaResults[i].HpID == "HP10" {
			hp10 = &result.HpDetails.CriteriaResults[i]
		}
	}
	if hp10 == nil || !hp10.Triggered {
		t.Fatalf("expected HP10 to trigger via SCL, got %+v", hp10)
	}
	found := false
	for _, c := range hp10.Contributions {
		if c.Substance == "bly" && c.HCode == "H360" {
			found = true
			if !c.ThresholdPct.Equal(decimal.RequireFromString("0.03")) {
				t.Errorf("ThresholdPct = %s, want 0.03 (SCL should override generic 0.3)", c.ThresholdPct)
			}
			if !c.Triggers {
				t.Errorf("expected H360 contribution to trigger")
			}
		}
	}
	if !found {
		t.Fatalf("expected an H360 contribution for bly")
	}
}

// TestEvaluateCleanSampleIsNotHazardous covers a low, unremarkable
// reading that should not cross any HP criterion.
func TestEvaluateCleanSampleIsNotHazardous(t *testing.T) {
	engine := newTestEngine()
	report := domain.AnalysisReport{
		Header: domain.ReportHeader{SampleID: "S1", Matrix: domain.MatrixJord},
		Rows:   []domain.AnalysisRow{rowExact("arsenik", 5), rowExact("bly", 20)},
	}

	result := engine.Evaluate(report)
	if result.HpDetails.IsHazardous {
		t.Fatalf("expected IsHazardous = false for a clean sample")
	}
	if result.OverallCategory != categoryIckeFA {
		t.Errorf("OverallCategory = %q, want Icke FA", result.OverallCategory)
	}
}

// TestEvaluateBelowDetectionNeverTriggers covers below-detection
// exclusion: a below-detection reading, even at a large nominal amount,
// never contributes to any criterion.
func TestEvaluateBelowDetectionNeverTriggers(t *testing.T) {
	engine := newTestEngine()
	report := domain.AnalysisReport{
		Header: domain.ReportHeader{SampleID: "S6", Matrix: domain.MatrixJord},
		Rows: []domain.AnalysisRow{{
			CanonicalKey: "arsenik",
			Value:        domain.BelowDetection(decimal.NewFromInt(1200)),
			Unit:         "mg/kg TS",
		}},
	}

	result := engine.Evaluate(report)
	if result.HpDetails.IsHazardous {
		t.Fatalf("expected below-detection reading to never trigger a criterion")
	}
}

// TestEvaluateMissingRowIsIdempotent covers HP idempotence directly: a
// Missing-value row appended to an already-hazardous report must never
// change is_hazardous or any criterion's Triggered flag.
func TestEvaluateMissingRowIsIdempotent(t *testing.T) {
	engine := newTestEngine()
	base := domain.AnalysisReport{
		Header: domain.ReportHeader{SampleID: "S2", Matrix: domain.MatrixJord},
		Rows:   []domain.AnalysisRow{rowExact("arsenik", 1200)},
	}
	withMissing := domain.AnalysisReport{
		Header: base.Header,
		Rows:   append(append([]domain.AnalysisRow{}, base.Rows...), domain.AnalysisRow{CanonicalKey: "kadmium", Unit: "mg/kg TS"}),
	}

	baseResult := engine.Evaluate(base)
	withMissingResult := engine.Evaluate(withMissing)
	if baseResult.HpDetails.IsHazardous != withMissingResult.HpDetails.IsHazardous {
		t.Fatalf("adding a Missing-value row changed is_hazardous: %v vs %v",
			baseResult.HpDetails.IsHazardous, withMissingResult.HpDetails.IsHazardous)
	}
}

// TestEvaluateHP8SummationAcrossSubstances covers a pure summation
// criterion where no single substance crosses the threshold alone:
// kromtrioxid (H314, factor 1.462) at 25000 mg/kg (3.655%) and
// natriumhydroxid (H314, factor 1.0) at 20000 mg/kg (2%) each sit under
// HP8's 5% threshold individually but cross it combined (5.655%).
func TestEvaluateHP8SummationAcrossSubstances(t *testing.T) {
	engine := newTestEngine()
	report := domain.AnalysisReport{
		Header: domain.ReportHeader{SampleID: "S7", Matrix: domain.MatrixJord},
		Rows:   []domain.AnalysisRow{rowExact("kromtrioxid", 25000), rowExact("natriumhydroxid", 20000)},
	}

	result := engine.Evaluate(report)
	var hp8 *domain.HpCriterionDetail
	for i := range result.HpDetails.CriteriaResults {
		if result.HpDetails.CriteriaResults[i].HpID == "HP8" {
			hp8 = &result.HpDetails.CriteriaResults[i]
		}
	}
	if hp8 == nil || !hp8.Triggered {
		t.Fatalf("expected HP8 to trigger via combined H314 concentration, got %+v", hp8)
	}
	if len(hp8.Contributions) != 2 {
		t.Fatalf("expected 2 contributions, got %d", len(hp8.Contributions))
	}
	for _, c := range hp8.Contributions {
		if c.ConcentrationPct.GreaterThanOrEqual(decimal.RequireFromString("5")) {
			t.Errorf("substance %s crossed the threshold alone (%s), test should exercise summation", c.Substance, c.ConcentrationPct)
		}
		if !c.Triggers {
			t.Errorf("expected contribution for %s to report Triggers = true once the group sum crosses threshold", c.Substance)
		}
	}
}

// TestEvaluateHP4IndividualHCodesTrigger covers HP4's H315/H319 checks
// with xylen, which carries both.
func TestEvaluateHP4IndividualHCodesTrigger(t *testing.T) {
	engine := newTestEngine()
	report := domain.AnalysisReport{
		Header: domain.ReportHeader{SampleID: "S8", Matrix: domain.MatrixJord},
		Rows:   []domain.AnalysisRow{rowExact("xylen", 300000)},
	}

	result := engine.Evaluate(report)
	var hp4 *domain.HpCriterionDetail
	for i := range result.HpDetails.CriteriaResults {
		if result.HpDetails.CriteriaResults[i].HpID == "HP4" {
			hp4 = &result.HpDetails.CriteriaResults[i]
		}
	}
	if hp4 == nil || !hp4.Triggered {
		t.Fatalf("expected HP4 to trigger, got %+v", hp4)
	}
	codes := map[string]bool{}
	for _, c := range hp4.Contributions {
		codes[c.HCode] = true
	}
	if !codes["H315"] || !codes["H319"] {
		t.Fatalf("expected both H315 and H319 contributions, got %+v", hp4.Contributions)
	}
}

// TestEvaluateHP6AcuteDermalAndInhalationTrigger covers HP6's dermal
// (H310/H311) sums, which had no built-in carrier before akrylnitril.
func TestEvaluateHP6AcuteDermalAndInhalationTrigger(t *testing.T) {
	engine := newTestEngine()
	report := domain.AnalysisReport{
		Header: domain.ReportHeader{SampleID: "S9", Matrix: domain.MatrixJord},
		Rows:   []domain.AnalysisRow{rowExact("akrylnitril", 100000)},
	}

	result := engine.Evaluate(report)
	var hp6 *domain.HpCriterionDetail
	for i := range result.HpDetails.CriteriaResults {
		if result.HpDetails.CriteriaResults[i].HpID == "HP6" {
			hp6 = &result.HpDetails.CriteriaResults[i]
		}
	}
	if hp6 == nil || !hp6.Triggered {
		t.Fatalf("expected HP6 to trigger, got %+v", hp6)
	}
	codes := map[string]bool{}
	for _, c := range hp6.Contributions {
		if c.Triggers {
			codes[c.HCode] = true
		}
	}
	if !codes["H310"] || !codes["H311"] || !codes["H331"] {
		t.Fatalf("expected H310, H311 and H331 to trigger, got %+v", hp6.Contributions)
	}
}
