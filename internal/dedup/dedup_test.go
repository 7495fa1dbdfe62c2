package dedup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/vacancywatch/internal/model"
)

var runDate = time.Date(2026, 3, 10, 15, 4, 0, 0, time.UTC)

// memStore is an in-memory model.Store that records how it was used.
type memStore struct {
	rows      []model.StoredVacancy
	nextID    int64
	reads     int
	writes    int
	lastSince time.Time
	writeErr  error
}

func (s *memStore) Read(ctx context.Context, since time.Time) ([]model.StoredVacancy, error) {
	s.reads++
	s.lastSince = since
	var out []model.StoredVacancy
	for _, r := range s.rows {
		if !r.Date.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) WriteBatch(ctx context.Context, vs []model.Vacancy) ([]model.StoredVacancy, error) {
	s.writes++
	if s.writeErr != nil {
		return nil, s.writeErr
	}
	out := make([]model.StoredVacancy, 0, len(vs))
	for _, v := range vs {
		s.nextID++
		row := model.StoredVacancy{ID: s.nextID, Vacancy: v}
		out = append(out, row)
	}
	s.rows = append(s.rows, out...)
	return out, nil
}

func (s *memStore) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func vacancy(title, link string) model.Vacancy {
	return model.Vacancy{
		Source:  model.SourceHH,
		Title:   title,
		Company: "ООО Ромашка",
		Salary:  "100000",
		Link:    link,
		Date:    model.Day(runDate),
	}
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "abc", "abc"},
		{"int", 100000, "100000"},
		{"int64", int64(42), "42"},
		{"float", 1.5, "1.5"},
		{"date", time.Date(2026, 1, 2, 13, 0, 0, 0, time.UTC), "2026-01-02"},
		{"zero date", time.Time{}, ""},
		{"source", model.SourceTrudvsem, "trudvsem"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Canonical(tt.value); got != tt.want {
				t.Errorf("Canonical(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
	if Canonical(100000) != Canonical("100000") {
		t.Error("expected numeric and string salary to canonicalise equally")
	}
}

func TestEqual_Symmetric(t *testing.T) {
	a := vacancy("Go developer", "https://hh.ru/vacancy/1")
	b := a
	c := a
	c.Experience = "1-3 года"

	if !Equal(a, b) || !Equal(b, a) {
		t.Error("expected identical vacancies to be equal both ways")
	}
	if Equal(a, c) || Equal(c, a) {
		t.Error("expected vacancies differing in experience to be unequal both ways")
	}
}

func TestFilterAndPersist_EmptyInputTouchesNoStore(t *testing.T) {
	st := &memStore{}
	d := New(st, runDate, nil, discardLogger())

	got, err := d.FilterAndPersist(context.Background(), model.SourceHH, 3, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no inserted rows, got %d", len(got))
	}
	if st.reads != 0 || st.writes != 0 {
		t.Errorf("expected no store access, got %d reads %d writes", st.reads, st.writes)
	}
}

func TestFilterAndPersist_InsertsNewAndReturnsIDs(t *testing.T) {
	st := &memStore{}
	d := New(st, runDate, nil, discardLogger())

	in := []model.Vacancy{
		vacancy("Go developer", "https://hh.ru/vacancy/1"),
		vacancy("SRE", "https://hh.ru/vacancy/2"),
	}
	got, err := d.FilterAndPersist(context.Background(), model.SourceHH, 3, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 inserted, got %d", len(got))
	}
	if got[0].ID == 0 || got[1].ID == 0 || got[0].ID == got[1].ID {
		t.Errorf("expected distinct assigned IDs, got %d and %d", got[0].ID, got[1].ID)
	}
	if st.writes != 1 {
		t.Errorf("expected one batch write, got %d", st.writes)
	}
	wantSince := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	if !st.lastSince.Equal(wantSince) {
		t.Errorf("expected window start %v, got %v", wantSince, st.lastSince)
	}
}

func TestFilterAndPersist_Idempotent(t *testing.T) {
	st := &memStore{}
	d := New(st, runDate, nil, discardLogger())
	in := []model.Vacancy{
		vacancy("Go developer", "https://hh.ru/vacancy/1"),
		vacancy("SRE", "https://hh.ru/vacancy/2"),
	}

	first, err := d.FilterAndPersist(context.Background(), model.SourceHH, 3, in)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 inserted on first run, got %d", len(first))
	}

	second, err := d.FilterAndPersist(context.Background(), model.SourceHH, 3, in)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("expected 0 inserted on second run, got %d", len(second))
	}
	if st.writes != 1 {
		t.Errorf("expected no write for an all-duplicate batch, got %d writes", st.writes)
	}
}

func TestFilterAndPersist_EqualToStoredRecord(t *testing.T) {
	existing := vacancy("Go developer", "https://hh.ru/vacancy/1")
	st := &memStore{
		rows:   []model.StoredVacancy{{ID: 7, Vacancy: existing}},
		nextID: 7,
	}
	d := New(st, runDate, nil, discardLogger())

	got, err := d.FilterAndPersist(context.Background(), model.SourceHH, 1, []model.Vacancy{existing})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected zero insertions, got %d", len(got))
	}
}

func TestFilterAndPersist_OutsideWindowIsNew(t *testing.T) {
	old := vacancy("Go developer", "https://hh.ru/vacancy/1")
	old.Date = model.Day(runDate.AddDate(0, 0, -30))
	st := &memStore{rows: []model.StoredVacancy{{ID: 1, Vacancy: old}}, nextID: 1}
	d := New(st, runDate, nil, discardLogger())

	got, err := d.FilterAndPersist(context.Background(), model.SourceHH, 3, []model.Vacancy{old})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected record outside the window to be inserted, got %d", len(got))
	}
}

func TestFilterAndPersist_CollapsesEqualCandidates(t *testing.T) {
	st := &memStore{}
	d := New(st, runDate, nil, discardLogger())
	v := vacancy("Go developer", "https://hh.ru/vacancy/1")

	got, err := d.FilterAndPersist(context.Background(), model.SourceHH, 3, []model.Vacancy{v, v, v})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 inserted, got %d", len(got))
	}
}

func TestFilterAndPersist_CollapseKeepsFirstOccurrence(t *testing.T) {
	st := &memStore{}
	d := New(st, runDate, nil, discardLogger())
	a := vacancy("Go developer", "https://hh.ru/vacancy/1")
	b := vacancy("QA engineer", "https://hh.ru/vacancy/2")

	got, err := d.FilterAndPersist(context.Background(), model.SourceHH, 3, []model.Vacancy{a, b, a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 inserted, got %d", len(got))
	}
	if got[0].Title != a.Title || got[1].Title != b.Title {
		t.Errorf("inserted %q, %q; want first occurrences in order", got[0].Title, got[1].Title)
	}
	if len(st.rows) != 2 {
		t.Errorf("store holds %d rows, want 2", len(st.rows))
	}
}

func TestFilterAndPersist_ResolvesMissingDate(t *testing.T) {
	st := &memStore{}
	d := New(st, runDate, nil, discardLogger())
	v := vacancy("Go developer", "https://hh.ru/vacancy/1")
	v.Date = time.Time{}

	got, err := d.FilterAndPersist(context.Background(), model.SourceHH, 3, []model.Vacancy{v})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || !got[0].Date.Equal(model.Day(runDate)) {
		t.Errorf("expected stored date to be the run date, got %+v", got)
	}
}

func TestFilterAndPersist_WriteFailurePropagates(t *testing.T) {
	commitErr := errors.New("commit failed")
	st := &memStore{writeErr: commitErr}
	d := New(st, runDate, nil, discardLogger())

	got, err := d.FilterAndPersist(context.Background(), model.SourceHH, 3,
		[]model.Vacancy{vacancy("Go developer", "https://hh.ru/vacancy/1")})
	if !errors.Is(err, commitErr) {
		t.Fatalf("expected wrapped commit error, got %v", err)
	}
	if got != nil {
		t.Errorf("expected no rows on failure, got %d", len(got))
	}
}
