// Package engine orchestrates a batch analysis: shared aggregates and the
// transaction graph first, then parallel per-record scoring, then the join.
package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/technoKC/fraud-shield/internal/aggregate"
	"github.com/technoKC/fraud-shield/internal/batch"
	"github.com/technoKC/fraud-shield/internal/composite"
	"github.com/technoKC/fraud-shield/internal/domain"
	"github.com/technoKC/fraud-shield/internal/graph"
	"github.com/technoKC/fraud-shield/internal/rules"
)

// Screener attaches analyst screening hits to results. The hits annotate
// entries only; scores are never affected.
type Screener interface {
	Evaluate(rec domain.TransactionRecord) []domain.ScreeningHit
}

// Engine runs the full analysis pipeline over one batch of records. It
// performs no I/O and imposes no timeouts of its own; cancellation comes
// from the caller's context.
type Engine struct {
	ruleScorer *rules.Scorer
	builder    *graph.Builder
	aggregator *aggregate.Aggregator
	screener   Screener
	maxWorkers int
}

// New creates an engine. screener may be nil when no screening rules are
// loaded.
func New(cfg domain.EngineConfig, screener Screener) *Engine {
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 32
	}
	return &Engine{
		ruleScorer: rules.NewScorer(),
		builder:    graph.NewBuilder(),
		aggregator: aggregate.NewAggregator(),
		screener:   screener,
		maxWorkers: maxWorkers,
	}
}

// Analyze scores every record and returns the complete batch report.
// Phase 1 computes the batch aggregates and the graph; Phase 2 scores
// records in parallel against the read-only aggregates, writing results by
// index so the positional join stays aligned.
func (e *Engine) Analyze(ctx context.Context, records []domain.TransactionRecord) (*domain.BatchReport, error) {
	var (
		b *batch.Batch
		g domain.Graph
	)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		b = batch.Build(records)
	}()
	go func() {
		defer wg.Done()
		g = e.builder.Build(records)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	compositeScorer := composite.NewScorer(b)
	ruleResults := make([]domain.RuleResult, len(records))
	compositeResults := make([]domain.CompositeResult, len(records))
	screeningHits := make([][]domain.ScreeningHit, len(records))

	sem := make(chan struct{}, e.maxWorkers)
	wg.Add(len(records))
	for i := range records {
		go func(idx int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			rec := records[idx]
			ruleResults[idx] = e.ruleScorer.Score(rec)
			compositeResults[idx] = compositeScorer.Score(rec)
			if e.screener != nil {
				screeningHits[idx] = e.screener.Evaluate(rec)
			}
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := composite.Summarize(b, compositeResults)
	report := e.aggregator.Join(records, ruleResults, compositeResults, g, summary)
	for i := range report.Results {
		report.Results[i].ScreeningHits = screeningHits[i]
	}
	report.ReportID = uuid.NewString()

	return &report, nil
}
