// Package app wires the curation stages into a single run.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/newscurator/internal/metrics"
	"github.com/deusflow/newscurator/internal/news"
	"github.com/deusflow/newscurator/internal/selection"
	"github.com/deusflow/newscurator/internal/storage"
	"github.com/deusflow/newscurator/internal/topics"
)

// ErrNoCandidates means no keyword produced a single search result.
var ErrNoCandidates = errors.New("no candidates collected")

type Collector interface {
	Collect(ctx context.Context, keywords []string) []news.RawItem
}

type Enricher interface {
	Enrich(ctx context.Context, items []news.RawItem) []news.EnrichedItem
}

type Analyzer interface {
	Analyze(ctx context.Context, items []news.EnrichedItem) []news.ScoredItem
}

// Pipeline runs keywords -> collect -> crawl -> analyze -> select -> save.
type Pipeline struct {
	Keywords  topics.Generator
	Static    []string
	Collector Collector
	Crawler   Enricher
	Analyzer  Analyzer

	// Sink is optional; a nil Sink skips persistence.
	Sink storage.Sink
	// History is optional; links saved within HistoryWindow are not crawled again.
	History       storage.LinkHistory
	HistoryWindow time.Duration

	PerCategory int
	Logger      *slog.Logger
	Metrics     *metrics.Metrics

	now func() time.Time
}

// Report summarizes one run.
type Report struct {
	RunID       string              `json:"run_id"`
	Keywords    []string            `json:"keywords"`
	Collected   int                 `json:"collected"`
	Excluded    int                 `json:"excluded"`
	Enriched    int                 `json:"enriched"`
	Scored      int                 `json:"scored"`
	Selected    []news.EnrichedItem `json:"selected"`
	Interrupted bool                `json:"interrupted"`
	Duration    time.Duration       `json:"duration"`
}

// Run executes one curation pass. Stage-level failures only shrink the
// result; ErrNoCandidates is returned when collection yields nothing.
// If ctx ends mid-run, the report so far is returned without an error.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}
	m := p.Metrics
	if m == nil {
		m = metrics.Global
	}
	now := p.now
	if now == nil {
		now = time.Now
	}

	start := now()
	report := &Report{RunID: storage.NewRunID()}
	log = log.With("run_id", report.RunID)
	defer func() {
		report.Duration = now().Sub(start)
		m.RecordProcessingTime(report.Duration)
	}()

	report.Keywords = p.keywords(ctx, log)
	if len(report.Keywords) == 0 {
		err := errors.New("no search keywords")
		m.SetError(err.Error())
		return report, err
	}
	log.Info("run started", "keywords", len(report.Keywords))

	candidates := p.Collector.Collect(ctx, report.Keywords)
	report.Collected = len(candidates)
	if p.interrupted(ctx, report, log, "collect") {
		return report, nil
	}
	if len(candidates) == 0 {
		m.SetError(ErrNoCandidates.Error())
		return report, ErrNoCandidates
	}

	candidates, report.Excluded = p.excludeSaved(ctx, candidates, now(), log)

	enriched := p.Crawler.Enrich(ctx, candidates)
	report.Enriched = len(enriched)
	if p.interrupted(ctx, report, log, "crawl") {
		return report, nil
	}

	scored := p.Analyzer.Analyze(ctx, enriched)
	report.Scored = len(scored)
	if p.interrupted(ctx, report, log, "analyze") {
		return report, nil
	}

	report.Selected = selection.Select(scored, p.PerCategory)
	m.AddItemsSelected(len(report.Selected))

	if p.Sink != nil && len(report.Selected) > 0 {
		if err := p.Sink.Save(ctx, report.RunID, report.Selected); err != nil {
			m.SetError(err.Error())
			return report, fmt.Errorf("failed to save curated items: %w", err)
		}
	}

	m.SetLastRun()
	log.Info("run finished",
		"collected", report.Collected,
		"excluded", report.Excluded,
		"enriched", report.Enriched,
		"scored", report.Scored,
		"selected", len(report.Selected))
	return report, nil
}

func (p *Pipeline) keywords(ctx context.Context, log *slog.Logger) []string {
	var generated []string
	if p.Keywords != nil {
		kw, err := p.Keywords.Generate(ctx)
		if err != nil {
			log.Warn("keyword generation failed, using static keywords only", "error", err)
		}
		generated = kw
	}
	return topics.Merge(generated, p.Static)
}

func (p *Pipeline) excludeSaved(ctx context.Context, items []news.RawItem, now time.Time, log *slog.Logger) ([]news.RawItem, int) {
	if p.History == nil || p.HistoryWindow <= 0 {
		return items, 0
	}
	links, err := p.History.RecentLinks(ctx, now.Add(-p.HistoryWindow))
	if err != nil {
		log.Warn("failed to load saved links, crawling everything", "error", err)
		return items, 0
	}
	saved := make(map[string]struct{}, len(links))
	for _, l := range links {
		saved[l] = struct{}{}
	}

	fresh := items[:0:0]
	for _, it := range items {
		if _, ok := saved[it.Link]; ok {
			continue
		}
		fresh = append(fresh, it)
	}
	return fresh, len(items) - len(fresh)
}

func (p *Pipeline) interrupted(ctx context.Context, r *Report, log *slog.Logger, stage string) bool {
	if ctx.Err() == nil {
		return false
	}
	r.Interrupted = true
	log.Warn("run interrupted, returning partial report", "stage", stage, "error", ctx.Err())
	return true
}
