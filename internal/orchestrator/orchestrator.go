// Package orchestrator runs one isolated pipeline per enabled source and
// joins them.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/amishk599/vacancywatch/internal/config"
	"github.com/amishk599/vacancywatch/internal/logfunnel"
	"github.com/amishk599/vacancywatch/internal/metrics"
	"github.com/amishk599/vacancywatch/internal/model"
	"github.com/amishk599/vacancywatch/internal/pipeline"
)

// Runner executes the pipeline described by w. It must not touch anything
// outside w except the console gate.
type Runner func(ctx context.Context, w config.Worker, console sync.Locker) (pipeline.Result, error)

// SourceResult is the outcome of one pipeline.
type SourceResult struct {
	Source    string
	Harvested int
	Inserted  int
	Err       error
	TimedOut  bool
	Duration  time.Duration
}

// Summary lists pipeline outcomes in registration order.
type Summary struct {
	Results []SourceResult
}

// Failed reports whether any pipeline returned an error.
func (s Summary) Failed() bool {
	for _, r := range s.Results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Inserted is the total number of inserted vacancies.
func (s Summary) Inserted() int {
	n := 0
	for _, r := range s.Results {
		n += r.Inserted
	}
	return n
}

// Orchestrator owns the console gate and the join of all pipelines.
type Orchestrator struct {
	cfg     *config.Config
	run     Runner
	funnel  *logfunnel.Funnel
	console sync.Mutex
	now     func() time.Time
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// New creates an orchestrator for the enabled sources of cfg. funnel may be
// nil; when set it is shut down once every pipeline has been joined.
func New(cfg *config.Config, run Runner, funnel *logfunnel.Funnel, rec *metrics.Recorder, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		run:     run,
		funnel:  funnel,
		now:     time.Now,
		metrics: rec,
		logger:  logger,
	}
}

type running struct {
	source string
	cancel context.CancelFunc
	done   chan SourceResult
}

// Run starts every enabled pipeline with a window of windowDays, then joins
// them in registration order, waiting at most the join timeout for each.
func (o *Orchestrator) Run(ctx context.Context, windowDays int) Summary {
	runDate := o.now()
	sources := o.cfg.EnabledSources()
	o.logger.Info("starting pipelines",
		"sources", len(sources),
		"window_days", windowDays,
		"run_date", runDate.Format(model.DateLayout),
	)

	started := make([]running, 0, len(sources))
	for _, src := range sources {
		w := o.cfg.WorkerFor(src, windowDays, runDate)
		started = append(started, o.start(ctx, w))
	}

	var summary Summary
	for _, r := range started {
		res := o.join(r)
		o.metrics.ObservePipeline(res.Source, status(res))
		summary.Results = append(summary.Results, res)
	}

	o.logger.Info("all pipelines joined",
		"inserted", summary.Inserted(),
		"failed", summary.Failed(),
	)
	if o.funnel != nil {
		if err := o.funnel.Shutdown(o.cfg.Orchestrator.FunnelGrace); err != nil {
			o.logger.Warn("log funnel force-stopped", "error", err)
		}
	}
	return summary
}

func (o *Orchestrator) start(parent context.Context, w config.Worker) running {
	ctx, cancel := context.WithCancel(parent)
	r := running{source: w.Source.Type, cancel: cancel, done: make(chan SourceResult, 1)}

	go func() {
		defer cancel()
		begin := time.Now()
		res := SourceResult{Source: w.Source.Type}
		defer func() {
			if p := recover(); p != nil {
				res.Err = fmt.Errorf("pipeline %s panicked: %v", w.Source.Type, p)
			}
			res.Duration = time.Since(begin)
			r.done <- res
		}()

		out, err := o.run(ctx, w, &o.console)
		res.Harvested = out.Harvested
		res.Inserted = out.Inserted
		res.Err = err
	}()
	return r
}

func (o *Orchestrator) join(r running) SourceResult {
	timer := time.NewTimer(o.cfg.Orchestrator.JoinTimeout)
	defer timer.Stop()

	select {
	case res := <-r.done:
		if res.Err != nil {
			o.logger.Error("pipeline failed", "source", r.source, "error", res.Err)
		}
		return res
	case <-timer.C:
	}

	if o.cfg.Orchestrator.AbandonPolicy == config.PolicyCancel {
		r.cancel()
		o.logger.Warn("pipeline timed out, cancelled", "source", r.source, "timeout", o.cfg.Orchestrator.JoinTimeout)
	} else {
		o.logger.Warn("pipeline timed out, abandoned", "source", r.source, "timeout", o.cfg.Orchestrator.JoinTimeout)
	}
	return SourceResult{Source: r.source, TimedOut: true, Duration: o.cfg.Orchestrator.JoinTimeout}
}

func status(r SourceResult) string {
	switch {
	case r.TimedOut:
		return "timeout"
	case r.Err != nil:
		return "failed"
	default:
		return "ok"
	}
}
