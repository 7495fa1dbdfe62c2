// Package source harvests vacancy listings from the supported job sites and
// parses their detail pages.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/amishk599/vacancywatch/internal/config"
	"github.com/amishk599/vacancywatch/internal/model"
	"github.com/amishk599/vacancywatch/internal/ratelimit"
)

// Source bundles what a pipeline needs from one site.
type Source struct {
	Type      model.SourceType
	Harvester model.Harvester
	Fetcher   model.DetailFetcher
	Parser    model.DetailParser
}

// Types lists the supported sources in the order pipelines are started.
func Types() []model.SourceType {
	return []model.SourceType{
		model.SourceHH,
		model.SourceTrudvsem,
		model.SourceSuperjob,
		model.SourceTrudkirov,
	}
}

// constructor wires the harvester, fetcher and parser of one site around a
// paced client.
type constructor func(c *Client, w config.Worker, today time.Time, logger *slog.Logger) *Source

var constructors = map[model.SourceType]constructor{
	model.SourceHH: func(c *Client, w config.Worker, today time.Time, logger *slog.Logger) *Source {
		return &Source{
			Harvester: NewHHHarvester(c, w.Source.ListURL, logger),
			Fetcher:   c,
			Parser:    NewHHParser(today),
		}
	},
	model.SourceTrudvsem: func(c *Client, w config.Worker, _ time.Time, logger *slog.Logger) *Source {
		return &Source{
			Harvester: NewTrudvsemHarvester(c, w.Source.ListURL, logger),
			Fetcher:   NewTrudvsemFetcher(c, w.Source.DetailURL),
			Parser:    NewTrudvsemParser(logger),
		}
	},
	model.SourceSuperjob: func(c *Client, w config.Worker, today time.Time, logger *slog.Logger) *Source {
		return &Source{
			Harvester: NewSuperjobHarvester(c, w.Source.ListURL, w.Source.Region, today, logger),
			Fetcher:   c,
			Parser:    NewSuperjobParser(),
		}
	},
	model.SourceTrudkirov: func(c *Client, w config.Worker, today time.Time, logger *slog.Logger) *Source {
		return &Source{
			Harvester: NewTrudkirovHarvester(c, w.Source.ListURL, today, logger),
			Fetcher:   c,
			Parser:    NewTrudkirovParser(),
		}
	},
}

// New builds the source described by w. Every call creates its own client
// and limiter, so sources built for different pipelines share nothing but
// the underlying transport.
func New(w config.Worker, httpClient *http.Client, logger *slog.Logger) (*Source, error) {
	src := model.SourceType(w.Source.Type)
	build, ok := constructors[src]
	if !ok {
		return nil, fmt.Errorf("unknown source type %q", w.Source.Type)
	}
	client := NewClient(httpClient, w.Source.Headers, ratelimit.NewHostLimiter(w.Source.PageRate),
		w.Enrich.FetchTimeout)

	s := build(client, w, model.Day(w.RunDate), logger.With("source", src))
	s.Type = src
	return s, nil
}

// Registry maps source types to sources and dispatches detail parsing.
type Registry struct {
	sources map[model.SourceType]*Source
}

// NewRegistry creates a Registry holding sources.
func NewRegistry(sources ...*Source) *Registry {
	r := &Registry{sources: make(map[model.SourceType]*Source, len(sources))}
	for _, s := range sources {
		r.sources[s.Type] = s
	}
	return r
}

// Get returns the source registered for t.
func (r *Registry) Get(t model.SourceType) (*Source, bool) {
	s, ok := r.sources[t]
	return s, ok
}

// DetailParser returns the detail parser registered for t.
func (r *Registry) DetailParser(t model.SourceType) (model.DetailParser, bool) {
	s, ok := r.Get(t)
	if !ok || s.Parser == nil {
		return nil, false
	}
	return s.Parser, true
}

// LoadDetail fetches and parses the detail page of v and merges the result
// into a copy of v.
func (r *Registry) LoadDetail(ctx context.Context, v model.Vacancy) (model.Vacancy, error) {
	s, ok := r.Get(v.Source)
	if !ok || s.Fetcher == nil || s.Parser == nil {
		return v, fmt.Errorf("no detail loader for source %q", v.Source)
	}
	if v.Link == "" || v.Link == model.NoLink {
		return v, fmt.Errorf("vacancy %q has no link", v.Title)
	}
	payload, err := s.Fetcher.FetchDetail(ctx, v.Link, v.Source)
	if err != nil {
		return v, fmt.Errorf("fetch detail: %w", err)
	}
	fields, err := s.Parser.ParseDetail(payload)
	if err != nil {
		return v, fmt.Errorf("parse detail: %w", err)
	}
	v.Merge(fields)
	return v, nil
}

// logFetchError logs a skipped listing page.
func logFetchError(logger *slog.Logger, url string, err error) {
	logger.Warn("listing fetch failed",
		"url", url,
		"status", statusOf(err),
		"error", err,
	)
}

// dayBefore returns the day n days before today.
func dayBefore(today time.Time, n int) time.Time {
	return model.Day(today).AddDate(0, 0, -n)
}
