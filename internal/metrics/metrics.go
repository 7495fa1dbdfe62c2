// Package metrics counts what a harvesting run did and writes the counters
// to a node-exporter textfile at the end of the run.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the run counters on a private registry. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	harvested     *prometheus.CounterVec
	detailFetches *prometheus.CounterVec
	duplicates    *prometheus.CounterVec
	inserted      *prometheus.CounterVec
	pipelines     *prometheus.CounterVec
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		harvested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vw_vacancies_harvested_total",
			Help: "Vacancies returned by harvesters, labeled by source.",
		}, []string{"source"}),
		detailFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vw_detail_fetches_total",
			Help: "Detail fetches, labeled by source and outcome.",
		}, []string{"source", "outcome"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vw_vacancies_duplicate_total",
			Help: "Harvested vacancies dropped as duplicates of stored ones.",
		}, []string{"source"}),
		inserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vw_vacancies_inserted_total",
			Help: "Vacancies inserted into the store.",
		}, []string{"source"}),
		pipelines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vw_pipelines_total",
			Help: "Finished pipelines, labeled by source and status.",
		}, []string{"source", "status"}),
	}
	r.registry.MustRegister(r.harvested, r.detailFetches, r.duplicates, r.inserted, r.pipelines)
	return r
}

// ObserveHarvest records how many vacancies a harvester returned.
func (r *Recorder) ObserveHarvest(source string, n int) {
	if r == nil {
		return
	}
	r.harvested.WithLabelValues(source).Add(float64(n))
}

// ObserveDetailFetch records one detail fetch outcome ("ok", "failed").
func (r *Recorder) ObserveDetailFetch(source, outcome string) {
	if r == nil {
		return
	}
	r.detailFetches.WithLabelValues(source, outcome).Inc()
}

// ObserveDedup records duplicates dropped and vacancies inserted.
func (r *Recorder) ObserveDedup(source string, duplicates, inserted int) {
	if r == nil {
		return
	}
	r.duplicates.WithLabelValues(source).Add(float64(duplicates))
	r.inserted.WithLabelValues(source).Add(float64(inserted))
}

// ObservePipeline records a finished pipeline ("ok", "failed", "timeout").
func (r *Recorder) ObservePipeline(source, status string) {
	if r == nil {
		return
	}
	r.pipelines.WithLabelValues(source, status).Inc()
}

// Gatherer exposes the registry, mainly for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes all counters to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
