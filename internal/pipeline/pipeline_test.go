package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/amishk599/vacancywatch/internal/model"
)

// --- Fakes ---

type fakeHarvester struct {
	batch  []model.Vacancy
	window int
}

func (h *fakeHarvester) Harvest(_ context.Context, windowDays int) []model.Vacancy {
	h.window = windowDays
	return h.batch
}

type countingEnricher struct {
	calls int
}

func (e *countingEnricher) Enrich(_ context.Context, batch []model.Vacancy) []model.Vacancy {
	e.calls++
	for i := range batch {
		batch[i].Experience = "enriched"
	}
	return batch
}

type fakePersister struct {
	calls int
	got   []model.Vacancy
	err   error
}

func (p *fakePersister) FilterAndPersist(_ context.Context, _ model.SourceType, _ int, candidates []model.Vacancy) ([]model.StoredVacancy, error) {
	p.calls++
	p.got = candidates
	if p.err != nil {
		return nil, p.err
	}
	out := make([]model.StoredVacancy, len(candidates))
	for i, c := range candidates {
		out[i] = model.StoredVacancy{ID: int64(i + 1), Vacancy: c}
	}
	return out, nil
}

type recordingSink struct {
	rendered [][]model.StoredVacancy
	err      error
}

func (s *recordingSink) Render(_ context.Context, rows []model.StoredVacancy) error {
	s.rendered = append(s.rendered, rows)
	return s.err
}

// lockSpy is a sync.Locker that records lock/unlock pairs.
type lockSpy struct {
	mu      sync.Mutex
	locks   int
	unlocks int
}

func (l *lockSpy) Lock()   { l.mu.Lock(); l.locks++ }
func (l *lockSpy) Unlock() { l.unlocks++; l.mu.Unlock() }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func twoVacancies() []model.Vacancy {
	return []model.Vacancy{
		{Source: model.SourceHH, Title: "Go developer", Link: "https://hh.ru/vacancy/1"},
		{Source: model.SourceHH, Title: "SRE", Link: "https://hh.ru/vacancy/2"},
	}
}

// --- Tests ---

func TestRun_FullPass(t *testing.T) {
	h := &fakeHarvester{batch: twoVacancies()}
	e := &countingEnricher{}
	p := &fakePersister{}
	s := &recordingSink{}
	gate := &lockSpy{}

	pl := New(model.SourceHH, 3, h, e, p, s, gate, nil, discardLogger())
	res, err := pl.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Harvested != 2 || res.Inserted != 2 {
		t.Errorf("expected 2 harvested 2 inserted, got %+v", res)
	}
	if h.window != 3 {
		t.Errorf("expected window 3, got %d", h.window)
	}
	if p.got[0].Experience != "enriched" {
		t.Error("expected the persister to receive the enriched batch")
	}
	if len(s.rendered) != 1 || len(s.rendered[0]) != 2 {
		t.Fatalf("expected one render of 2 rows, got %v", s.rendered)
	}
	if gate.locks != 1 || gate.unlocks != 1 {
		t.Errorf("expected the console gate to be held once, got %d locks %d unlocks", gate.locks, gate.unlocks)
	}
}

func TestRun_EmptyHarvest(t *testing.T) {
	e := &countingEnricher{}
	p := &fakePersister{}
	s := &recordingSink{}

	pl := New(model.SourceTrudvsem, 1, &fakeHarvester{}, e, p, s, &sync.Mutex{}, nil, discardLogger())
	res, err := pl.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Harvested != 0 || res.Inserted != 0 {
		t.Errorf("expected zero counts, got %+v", res)
	}
	if e.calls != 0 {
		t.Errorf("expected no enrichment, got %d calls", e.calls)
	}
	if p.calls != 0 {
		t.Errorf("expected no store access, got %d calls", p.calls)
	}
	if len(s.rendered) != 0 {
		t.Errorf("expected nothing rendered, got %d renders", len(s.rendered))
	}
}

func TestRun_PersistenceErrorIsReturned(t *testing.T) {
	commitErr := errors.New("disk full")
	s := &recordingSink{}

	pl := New(model.SourceHH, 1, &fakeHarvester{batch: twoVacancies()}, &countingEnricher{},
		&fakePersister{err: commitErr}, s, &sync.Mutex{}, nil, discardLogger())
	res, err := pl.Run(context.Background())
	if !errors.Is(err, commitErr) {
		t.Fatalf("expected wrapped persistence error, got %v", err)
	}
	if res.Harvested != 2 || res.Inserted != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if len(s.rendered) != 0 {
		t.Error("expected nothing rendered after a persistence failure")
	}
}

func TestRun_RenderErrorIsNotFatal(t *testing.T) {
	s := &recordingSink{err: errors.New("broken pipe")}
	gate := &lockSpy{}

	pl := New(model.SourceHH, 1, &fakeHarvester{batch: twoVacancies()}, &countingEnricher{},
		&fakePersister{}, s, gate, nil, discardLogger())
	res, err := pl.Run(context.Background())
	if err != nil {
		t.Fatalf("expected render failure to be logged only, got %v", err)
	}
	if res.Inserted != 2 {
		t.Errorf("expected 2 inserted, got %d", res.Inserted)
	}
	if gate.unlocks != 1 {
		t.Error("expected the console gate to be released after a failed render")
	}
}
