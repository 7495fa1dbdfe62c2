package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/amishk599/vacancywatch/internal/config"
	"github.com/amishk599/vacancywatch/internal/dedup"
	"github.com/amishk599/vacancywatch/internal/enrich"
	"github.com/amishk599/vacancywatch/internal/metrics"
	"github.com/amishk599/vacancywatch/internal/model"
	"github.com/amishk599/vacancywatch/internal/pipeline"
	"github.com/amishk599/vacancywatch/internal/source"
	"github.com/amishk599/vacancywatch/internal/store"
)

// Deps are the collaborators every pipeline built by NewRunner uses.
type Deps struct {
	// Open overrides the store opener; nil opens w.Store.
	Open func(ctx context.Context, cfg config.StoreConfig) (model.Store, error)
	// DryRun makes the default opener hand out a NopStore.
	DryRun bool
	// HTTPClient overrides the per-pipeline client; nil builds a fresh one.
	HTTPClient func() *http.Client
	Sink       model.ResultSink
	Metrics    *metrics.Recorder
	Logger     *slog.Logger
}

// NewRunner returns the production Runner: it builds the source, opens its
// own store, runs harvest → enrich → dedup → render and closes the store.
func NewRunner(d Deps) Runner {
	return func(ctx context.Context, w config.Worker, console sync.Locker) (pipeline.Result, error) {
		logger := d.Logger.With("source", w.Source.Type)

		client := &http.Client{}
		if d.HTTPClient != nil {
			client = d.HTTPClient()
		}
		src, err := source.New(w, client, d.Logger)
		if err != nil {
			return pipeline.Result{Source: model.SourceType(w.Source.Type)}, err
		}

		st, err := openStore(ctx, d, w)
		if err != nil {
			return pipeline.Result{Source: src.Type}, fmt.Errorf("pipeline %s: open store: %w", src.Type, err)
		}
		defer func() {
			if err := st.Close(); err != nil {
				logger.Warn("closing store failed", "error", err)
			}
		}()

		enricher := enrich.New(src.Fetcher, source.NewRegistry(src), enrich.Options{
			Workers:      w.Enrich.Workers,
			FetchTimeout: w.Enrich.FetchTimeout,
			Pause:        w.Enrich.Pause,
			RunDate:      w.RunDate,
		}, d.Metrics, d.Logger)
		dd := dedup.New(st, w.RunDate, d.Metrics, d.Logger)

		p := pipeline.New(src.Type, w.WindowDays, src.Harvester, enricher, dd, d.Sink, console, d.Metrics, d.Logger)
		return p.Run(ctx)
	}
}

func openStore(ctx context.Context, d Deps, w config.Worker) (model.Store, error) {
	if d.Open != nil {
		return d.Open(ctx, w.Store)
	}
	return store.NewOpener(w.Store, d.DryRun)(ctx)
}
