// Package pipeline runs harvest, enrichment, deduplication and rendering
// for a single source.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/amishk599/vacancywatch/internal/metrics"
	"github.com/amishk599/vacancywatch/internal/model"
)

// Enricher fills in detail fields of a harvested batch.
type Enricher interface {
	Enrich(ctx context.Context, batch []model.Vacancy) []model.Vacancy
}

// Persister drops known vacancies and stores the rest.
type Persister interface {
	FilterAndPersist(ctx context.Context, src model.SourceType, windowDays int, candidates []model.Vacancy) ([]model.StoredVacancy, error)
}

// Result counts what one pipeline run did.
type Result struct {
	Source    model.SourceType
	Harvested int
	Inserted  int
}

// Pipeline owns the full run for one source:
// harvest → enrich → dedup and persist → render.
type Pipeline struct {
	Source     model.SourceType
	harvester  model.Harvester
	enricher   Enricher
	persister  Persister
	sink       model.ResultSink
	console    sync.Locker
	windowDays int
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

// New creates a pipeline wired with all its dependencies. console guards
// the shared output; it is held for the whole of one render.
func New(
	src model.SourceType,
	windowDays int,
	harvester model.Harvester,
	enricher Enricher,
	persister Persister,
	sink model.ResultSink,
	console sync.Locker,
	rec *metrics.Recorder,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		Source:     src,
		harvester:  harvester,
		enricher:   enricher,
		persister:  persister,
		sink:       sink,
		console:    console,
		windowDays: windowDays,
		metrics:    rec,
		logger:     logger,
	}
}

// Run executes one pass. Only persistence failures are returned; harvest
// and detail problems are logged and leave partial data.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	res := Result{Source: p.Source}

	batch := p.harvester.Harvest(ctx, p.windowDays)
	res.Harvested = len(batch)
	p.metrics.ObserveHarvest(string(p.Source), len(batch))
	if len(batch) == 0 {
		p.logger.Info("nothing harvested", "source", p.Source, "window_days", p.windowDays)
		return res, nil
	}

	batch = p.enricher.Enrich(ctx, batch)

	inserted, err := p.persister.FilterAndPersist(ctx, p.Source, p.windowDays, batch)
	if err != nil {
		return res, fmt.Errorf("pipeline %s: %w", p.Source, err)
	}
	res.Inserted = len(inserted)

	p.logger.Info("pipeline finished",
		"source", p.Source,
		"harvested", res.Harvested,
		"inserted", res.Inserted,
	)

	if len(inserted) > 0 {
		p.render(ctx, inserted)
	}
	return res, nil
}

func (p *Pipeline) render(ctx context.Context, rows []model.StoredVacancy) {
	p.console.Lock()
	defer p.console.Unlock()
	if err := p.sink.Render(ctx, rows); err != nil {
		p.logger.Warn("rendering results failed", "source", p.Source, "rows", len(rows), "error", err)
	}
}
