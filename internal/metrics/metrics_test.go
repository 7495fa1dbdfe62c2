package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_Counts(t *testing.T) {
	r := New()
	r.ObserveHarvest("hh", 3)
	r.ObserveDetailFetch("hh", "ok")
	r.ObserveDetailFetch("hh", "failed")
	r.ObserveDetailFetch("hh", "ok")
	r.ObserveDedup("hh", 1, 2)
	r.ObservePipeline("hh", "ok")

	if got := testutil.ToFloat64(r.harvested.WithLabelValues("hh")); got != 3 {
		t.Errorf("harvested = %v, want 3", got)
	}
	if got := testutil.ToFloat64(r.detailFetches.WithLabelValues("hh", "ok")); got != 2 {
		t.Errorf("detail ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.inserted.WithLabelValues("hh")); got != 2 {
		t.Errorf("inserted = %v, want 2", got)
	}
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.ObserveHarvest("hh", 1)
	r.ObserveDetailFetch("hh", "ok")
	r.ObserveDedup("hh", 1, 1)
	r.ObservePipeline("hh", "ok")
	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatalf("WriteTextfile on nil recorder: %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.ObserveDedup("trudvsem", 0, 4)

	path := filepath.Join(t.TempDir(), "vw.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `vw_vacancies_inserted_total{source="trudvsem"} 4`) {
		t.Errorf("textfile missing inserted counter:\n%s", data)
	}
}
