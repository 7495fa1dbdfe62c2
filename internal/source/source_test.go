package source

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amishk599/vacancywatch/internal/config"
	"github.com/amishk599/vacancywatch/internal/model"
)

var today = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient returns a Client talking to srv without pacing.
func newTestClient(srv *httptest.Server) *Client {
	return NewClient(srv.Client(), nil, nil, 5*time.Second)
}

// roundTripFunc adapts a function into an http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestNew_BuildsEverySource(t *testing.T) {
	cfg := config.Default()
	for _, sc := range cfg.Sources {
		w := cfg.WorkerFor(sc, 1, today)
		s, err := New(w, http.DefaultClient, discardLogger())
		if err != nil {
			t.Fatalf("New(%s): %v", sc.Type, err)
		}
		if s.Type != model.SourceType(sc.Type) {
			t.Errorf("expected type %s, got %s", sc.Type, s.Type)
		}
		if s.Harvester == nil || s.Fetcher == nil || s.Parser == nil {
			t.Errorf("source %s is missing a component: %+v", sc.Type, s)
		}
	}
}

func TestNew_UnknownType(t *testing.T) {
	w := config.Worker{Source: config.SourceConfig{Type: "avito"}, RunDate: today}
	if _, err := New(w, http.DefaultClient, discardLogger()); err == nil {
		t.Fatal("expected error for unknown source type")
	}
}

func TestNew_TrudvsemUsesAPIFetcher(t *testing.T) {
	cfg := config.Default()
	for _, sc := range cfg.Sources {
		s, err := New(cfg.WorkerFor(sc, 1, today), http.DefaultClient, discardLogger())
		if err != nil {
			t.Fatalf("New(%s): %v", sc.Type, err)
		}
		_, isAPI := s.Fetcher.(*TrudvsemFetcher)
		if want := s.Type == model.SourceTrudvsem; isAPI != want {
			t.Errorf("source %s: fetcher %T", sc.Type, s.Fetcher)
		}
	}
}

func TestTypes_HaveConstructors(t *testing.T) {
	for _, st := range Types() {
		if _, ok := constructors[st]; !ok {
			t.Errorf("no constructor for %s", st)
		}
	}
	if len(constructors) != len(Types()) {
		t.Errorf("constructors = %d, types = %d", len(constructors), len(Types()))
	}
}

func TestTypes_MatchesDefaultConfig(t *testing.T) {
	cfg := config.Default()
	types := Types()
	if len(types) != len(cfg.Sources) {
		t.Fatalf("expected %d types, got %d", len(cfg.Sources), len(types))
	}
	for i, sc := range cfg.Sources {
		if string(types[i]) != sc.Type {
			t.Errorf("types[%d] = %s, want %s", i, types[i], sc.Type)
		}
	}
}

func TestRegistry_DetailParser(t *testing.T) {
	hh := &Source{Type: model.SourceHH, Parser: NewHHParser(today)}
	noParser := &Source{Type: model.SourceSuperjob}
	r := NewRegistry(hh, noParser)

	if p, ok := r.DetailParser(model.SourceHH); !ok || p == nil {
		t.Error("expected hh parser to be registered")
	}
	if _, ok := r.DetailParser(model.SourceSuperjob); ok {
		t.Error("expected no parser for a source registered without one")
	}
	if _, ok := r.DetailParser(model.SourceTrudkirov); ok {
		t.Error("expected no parser for an unregistered source")
	}
	if s, ok := r.Get(model.SourceHH); !ok || s != hh {
		t.Error("expected Get to return the registered source")
	}
}

func TestRegistry_LoadDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<dl><dt>Стаж</dt><dd>3 года</dd><dt>Должностные обязанности</dt><dd>Код</dd></dl>`))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	r := NewRegistry(&Source{Type: model.SourceTrudkirov, Fetcher: client, Parser: NewTrudkirovParser()})

	v := model.Vacancy{Source: model.SourceTrudkirov, Title: "Программист", Link: srv.URL + "/vacancy/1"}
	got, err := r.LoadDetail(context.Background(), v)
	if err != nil {
		t.Fatalf("LoadDetail() error: %v", err)
	}
	if got.Experience != "3 года" {
		t.Errorf("Experience = %q, want 3 года", got.Experience)
	}
	if v.Experience != "" {
		t.Error("LoadDetail modified its argument")
	}
}

func TestRegistry_LoadDetail_NoLink(t *testing.T) {
	r := NewRegistry(&Source{Type: model.SourceHH, Fetcher: &Client{}, Parser: NewHHParser(today)})
	if _, err := r.LoadDetail(context.Background(), model.Vacancy{Source: model.SourceHH, Link: model.NoLink}); err == nil {
		t.Error("LoadDetail() = nil error, want error for a vacancy without link")
	}
	if _, err := r.LoadDetail(context.Background(), model.Vacancy{Source: model.SourceSuperjob, Link: "x"}); err == nil {
		t.Error("LoadDetail() = nil error, want error for an unregistered source")
	}
}
