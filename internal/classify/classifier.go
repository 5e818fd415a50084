// Package classify wires the classification core's components
// (threshold engine, HP engine, trace assembler) into the orchestrated
// workflow spec §5 describes: deduplicate each report's rows, classify
// every ruleset against every sample, assemble the evidence trail,
// combine into one result.
//
// The core itself is synchronous and CPU-bound; concurrency is applied
// only at the sample/report boundary, via a bounded worker pool, so
// within one sample processing stays deterministic: rulesets run in
// caller-supplied order, and the "fa" ruleset is routed to the HP engine
// at its position in that order. The HP engine reads only the report,
// not the other rulesets' results.
package classify

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wastecat/classify/internal/domain"
	"github.com/wastecat/classify/internal/hp"
	"github.com/wastecat/classify/internal/rules"
	"github.com/wastecat/classify/internal/threshold"
	"github.com/wastecat/classify/internal/trace"
)

// FARulesetName is the reserved ruleset name routed to the HP engine
// instead of the generic threshold walker (spec §4.7).
const FARulesetName = hp.RulesetName

// DefaultConcurrency bounds how many samples classify concurrently when
// no explicit limit is supplied.
const DefaultConcurrency = 8

// ClassifierService is the classification core's entry point.
type ClassifierService struct {
	logger      *logrus.Logger
	hpEngine    *hp.Engine
	concurrency int
}

// NewClassifierService builds a ClassifierService. concurrency <= 0
// falls back to DefaultConcurrency.
func NewClassifierService(logger *logrus.Logger, concurrency int) *ClassifierService {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &ClassifierService{
		logger:      logger,
		hpEngine:    hp.NewEngine(logger),
		concurrency: concurrency,
	}
}

// BatchParams is one invocation of the classification core: a set of
// analysis reports (one per sample) classified against a common set of
// rulesets.
type BatchParams struct {
	Reports  []domain.AnalysisReport
	Rulesets []*rules.Ruleset
}

// ClassifyBatch classifies every report in params.Reports against every
// ruleset in params.Rulesets, in parallel across reports bounded by the
// service's concurrency limit, and returns one combined result (spec §5,
// §6).
func (c *ClassifierService) ClassifyBatch(ctx context.Context, params BatchParams) (*domain.ClassificationResult, error) {
	start := time.Now()
	c.logger.WithFields(logrus.Fields{
		"sample_count":  len(params.Reports),
		"ruleset_count": len(params.Rulesets),
	}).Info("starting classification batch")

	samples := make([]domain.SampleResult, len(params.Reports))
	traces := make([]domain.Trace, len(params.Reports))

	group, groupCtx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, c.concurrency)

	for i, report := range params.Reports {
		i, report := i, report
		group.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
			defer func() { <-sem }()

			sampleResult, sampleTrace, err := c.classifySample(report, params.Rulesets)
			if err != nil {
				return fmt.Errorf("sample %q: %w", report.Header.SampleID, err)
			}
			samples[i] = sampleResult
			traces[i] = sampleTrace
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	combined := domain.Trace{}
	for _, t := range traces {
		combined.Entries = append(combined.Entries, t.Entries...)
		combined.Decisions = append(combined.Decisions, t.Decisions...)
	}

	c.logger.WithFields(logrus.Fields{
		"sample_count":    len(samples),
		"processing_time": time.Since(start),
	}).Info("classification batch complete")

	return &domain.ClassificationResult{Samples: samples, Trace: combined}, nil
}

// classifySample runs every ruleset against one report, in the caller's
// declared order, and assembles its trace.
func (c *ClassifierService) classifySample(report domain.AnalysisReport, rulesets []*rules.Ruleset) (domain.SampleResult, domain.Trace, error) {
	report = report.Dedup()

	results := make([]domain.RuleSetResult, 0, len(rulesets))
	for _, ruleset := range rulesets {
		if ruleset.Name == FARulesetName {
			results = append(results, c.hpEngine.Evaluate(report))
			continue
		}
		results = append(results, threshold.Classify(report, ruleset))
	}

	sampleResult := domain.SampleResult{
		SampleID:       report.Header.SampleID,
		Matrix:         report.Header.Matrix,
		RulesetResults: results,
	}

	sampleTrace := trace.Assemble(report.Header.SampleID, report, results)
	return sampleResult, sampleTrace, nil
}
