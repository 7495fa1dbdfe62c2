// Package enrich fills in vacancy fields from each vacancy's detail page
// using a fixed-size pool of workers.
package enrich

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/vacancywatch/internal/metrics"
	"github.com/amishk599/vacancywatch/internal/model"
	"github.com/amishk599/vacancywatch/internal/workqueue"
)

// Parsers resolves the detail parser for a source.
type Parsers interface {
	DetailParser(src model.SourceType) (model.DetailParser, bool)
}

// MaxWorkers caps concurrent detail fetches per source.
const MaxWorkers = 5

// Options tunes the worker pool.
type Options struct {
	Workers      int           // concurrent detail fetches
	FetchTimeout time.Duration // per fetch, no retries
	Pause        time.Duration // per-worker pause after each item
	RunDate      time.Time     // fallback posting date
}

// Enricher runs detail fetches for a batch of vacancies.
type Enricher struct {
	fetcher model.DetailFetcher
	parsers Parsers
	opts    Options
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// New creates an Enricher. A non-positive worker count is treated as one and
// counts above MaxWorkers are clamped to MaxWorkers.
func New(fetcher model.DetailFetcher, parsers Parsers, opts Options, rec *metrics.Recorder, logger *slog.Logger) *Enricher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Workers > MaxWorkers {
		opts.Workers = MaxWorkers
	}
	return &Enricher{
		fetcher: fetcher,
		parsers: parsers,
		opts:    opts,
		metrics: rec,
		logger:  logger,
	}
}

// Enrich fetches details for every vacancy in batch and merges them in
// place. It returns only after every vacancy has been processed (or ctx is
// done), then stops the idle workers. Every returned vacancy has a date.
func (e *Enricher) Enrich(ctx context.Context, batch []model.Vacancy) []model.Vacancy {
	if len(batch) == 0 {
		return batch
	}

	q := workqueue.New[*model.Vacancy](len(batch))
	for i := range batch {
		// Capacity equals the batch size, Put cannot fail.
		_ = q.Put(&batch[i])
	}

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var g errgroup.Group
	for i := 0; i < e.opts.Workers; i++ {
		g.Go(func() error {
			e.work(workerCtx, q)
			return nil
		})
	}

	if err := q.Join(ctx); err != nil {
		e.logger.Warn("enrichment interrupted",
			"unfinished", q.Unfinished(),
			"total", len(batch),
			"error", err,
		)
	}
	stopWorkers()
	_ = g.Wait()

	for i := range batch {
		batch[i].ResolveDate(e.opts.RunDate)
	}

	e.logger.Debug("enrichment complete", "total", len(batch))
	return batch
}

// work pulls vacancies until the queue is cancelled.
func (e *Enricher) work(ctx context.Context, q *workqueue.Queue[*model.Vacancy]) {
	for {
		v, err := q.Get(ctx)
		if err != nil {
			return
		}
		e.enrichOne(ctx, v)
		q.Done()

		select {
		case <-ctx.Done():
			return
		case <-time.After(e.opts.Pause):
		}
	}
}

func (e *Enricher) enrichOne(ctx context.Context, v *model.Vacancy) {
	defer v.ResolveDate(e.opts.RunDate)

	if v.Link == "" || v.Link == model.NoLink {
		e.logger.Debug("vacancy has no link, skipping detail fetch", "source", v.Source, "title", v.Title)
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.opts.FetchTimeout)
	defer cancel()

	payload, err := e.fetcher.FetchDetail(fetchCtx, v.Link, v.Source)
	if err != nil {
		e.metrics.ObserveDetailFetch(string(v.Source), "failed")
		e.logger.Warn("detail fetch failed", "source", v.Source, "link", v.Link, "error", err)
		return
	}

	parser, ok := e.parsers.DetailParser(v.Source)
	if !ok {
		e.metrics.ObserveDetailFetch(string(v.Source), "failed")
		e.logger.Warn("no detail parser for source", "source", v.Source, "link", v.Link)
		return
	}

	fields, err := parser.ParseDetail(payload)
	if err != nil {
		e.metrics.ObserveDetailFetch(string(v.Source), "failed")
		e.logger.Warn("detail parse failed", "source", v.Source, "link", v.Link, "error", err)
		return
	}

	v.Merge(fields)
	e.metrics.ObserveDetailFetch(string(v.Source), "ok")
}
