// Package dedup drops harvested vacancies that are already stored and
// persists the rest.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/amishk599/vacancywatch/internal/metrics"
	"github.com/amishk599/vacancywatch/internal/model"
)

// Canonical converts a field value to the string form used for equality,
// so a numeric salary and its string spelling compare equal.
func Canonical(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case model.SourceType:
		return string(v)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(model.DateLayout)
	case *time.Time:
		if v == nil {
			return ""
		}
		return Canonical(*v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// key is the canonical form of every non-identity field.
type key [9]string

func keyOf(v model.Vacancy) key {
	return key{
		Canonical(v.Source),
		Canonical(v.Title),
		Canonical(v.Company),
		Canonical(v.Salary),
		Canonical(v.ShortDesc),
		Canonical(v.Link),
		Canonical(v.Date),
		Canonical(v.Experience),
		Canonical(v.FullDesc),
	}
}

// Equal reports whether a and b are duplicates: all fields except the
// store identity are equal after canonicalisation.
func Equal(a, b model.Vacancy) bool {
	return keyOf(a) == keyOf(b)
}

// Deduplicator filters candidates against the stored lookback window.
type Deduplicator struct {
	store   model.Store
	runDate time.Time
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// New creates a Deduplicator over store. runDate anchors the lookback window.
func New(store model.Store, runDate time.Time, rec *metrics.Recorder, logger *slog.Logger) *Deduplicator {
	return &Deduplicator{
		store:   store,
		runDate: model.Day(runDate),
		metrics: rec,
		logger:  logger,
	}
}

// FilterAndPersist drops every candidate equal to a vacancy stored within
// the last windowDays days and writes the survivors in one batch. Candidates
// equal to an earlier candidate of the same batch are dropped too, so each
// vacancy is inserted once, keeping its first occurrence. It returns exactly
// the inserted vacancies. Empty input never touches the store.
func (d *Deduplicator) FilterAndPersist(ctx context.Context, src model.SourceType, windowDays int, candidates []model.Vacancy) ([]model.StoredVacancy, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	since := d.runDate.AddDate(0, 0, -windowDays)
	stored, err := d.store.Read(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("dedup %s: reading stored window: %w", src, err)
	}

	seen := make(map[key]struct{}, len(stored)+len(candidates))
	for _, s := range stored {
		seen[keyOf(s.Vacancy)] = struct{}{}
	}

	fresh := make([]model.Vacancy, 0, len(candidates))
	for _, c := range candidates {
		c.ResolveDate(d.runDate)
		k := keyOf(c)
		if _, dup := seen[k]; dup {
			continue
		}
		// Later equal candidates in this batch are duplicates of this one.
		seen[k] = struct{}{}
		fresh = append(fresh, c)
	}

	duplicates := len(candidates) - len(fresh)
	d.logger.Info("filtered duplicates",
		"source", src,
		"candidates", len(candidates),
		"window_records", len(stored),
		"duplicates", duplicates,
	)

	if len(fresh) == 0 {
		d.metrics.ObserveDedup(string(src), duplicates, 0)
		return nil, nil
	}

	inserted, err := d.store.WriteBatch(ctx, fresh)
	if err != nil {
		return nil, fmt.Errorf("dedup %s: writing batch: %w", src, err)
	}
	d.metrics.ObserveDedup(string(src), duplicates, len(inserted))
	return inserted, nil
}
