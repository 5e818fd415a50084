package classify

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/wastecat/classify/internal/domain"
	"github.com/wastecat/classify/internal/rules"
)

func newTestService() *ClassifierService {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewClassifierService(logger, 4)
}

func rowExact(key domain.CanonicalKey, amount int64) domain.AnalysisRow {
	return domain.AnalysisRow{
		RawName:      string(key),
		CanonicalKey: key,
		Value:        domain.Exact(decimal.NewFromInt(amount)),
		Unit:         "mg/kg TS",
	}
}

func nvRuleset(t *testing.T) *rules.Ruleset {
	t.Helper()
	rs, err := rules.Load([]byte(`{
		"name": "nv", "version": "1.0", "matrix_filter": "Jord",
		"categories": ["KM", "MKM"],
		"rules": [{"substance": "arsenik", "thresholds": {"KM": "0", "MKM": "25"}}]
	}`))
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	return rs
}

func faRuleset() *rules.Ruleset {
	return &rules.Ruleset{Name: FARulesetName, Categories: []string{"Icke FA", "FA"}}
}

func TestClassifyBatchRunsThresholdAndHPRulesets(t *testing.T) {
	svc := newTestService()
	reports := []domain.AnalysisReport{
		{
			Header: domain.ReportHeader{SampleID: "S2", Matrix: domain.MatrixJord},
			Rows:   []domain.AnalysisRow{rowExact("arsenik", 1200)},
		},
	}

	result, err := svc.ClassifyBatch(context.Background(), BatchParams{
		Reports:  reports,
		Rulesets: []*rules.Ruleset{nvRuleset(t), faRuleset()},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(result.Samples))
	}
	sample := result.Samples[0]
	if len(sample.RulesetResults) != 2 {
		t.Fatalf("got %d ruleset results, want 2", len(sample.RulesetResults))
	}
	if sample.RulesetResults[0].RulesetName != "nv" || sample.RulesetResults[1].RulesetName != FARulesetName {
		t.Errorf("ruleset order not preserved: %+v", sample.RulesetResults)
	}
	if !sample.RulesetResults[1].HpDetails.IsHazardous {
		t.Errorf("expected the fa ruleset to report IsHazardous = true for arsenik at 1200 mg/kg")
	}
}

func TestClassifyBatchProcessesSamplesIndependently(t *testing.T) {
	svc := newTestService()
	reports := []domain.AnalysisReport{
		{Header: domain.ReportHeader{SampleID: "clean", Matrix: domain.MatrixJord}, Rows: []domain.AnalysisRow{rowExact("arsenik", 5)}},
		{Header: domain.ReportHeader{SampleID: "dirty", Matrix: domain.MatrixJord}, Rows: []domain.AnalysisRow{rowExact("arsenik", 1200)}},
	}

	result, err := svc.ClassifyBatch(context.Background(), BatchParams{
		Reports:  reports,
		Rulesets: []*rules.Ruleset{nvRuleset(t)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(result.Samples))
	}

	bySampleID := make(map[string]domain.SampleResult, 2)
	for _, s := range result.Samples {
		bySampleID[s.SampleID] = s
	}
	if bySampleID["clean"].RulesetResults[0].OverallCategory != "KM" {
		t.Errorf("clean sample overall category = %q, want KM", bySampleID["clean"].RulesetResults[0].OverallCategory)
	}
	if bySampleID["dirty"].RulesetResults[0].OverallCategory != "> MKM" {
		t.Errorf("dirty sample overall category = %q, want \"> MKM\"", bySampleID["dirty"].RulesetResults[0].OverallCategory)
	}
}

func TestClassifyBatchTraceCoversEveryRow(t *testing.T) {
	svc := newTestService()
	reports := []domain.AnalysisReport{
		{Header: domain.ReportHeader{SampleID: "S1", Matrix: domain.MatrixJord}, Rows: []domain.AnalysisRow{rowExact("arsenik", 5), rowExact("bly", 20)}},
	}

	result, err := svc.ClassifyBatch(context.Background(), BatchParams{
		Reports:  reports,
		Rulesets: []*rules.Ruleset{nvRuleset(t)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Trace.Entries) != 2 {
		t.Fatalf("got %d trace entries, want 2", len(result.Trace.Entries))
	}
}
