package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amishk599/vacancywatch/internal/model"
	"github.com/amishk599/vacancywatch/internal/ratelimit"
)

func TestClient_Page_SendsHeaders(t *testing.T) {
	var gotCookie, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	headers := map[string]string{"cookie": "forceRemoteWorkDisabled=1", "user-agent": "vw-test"}
	c := NewClient(srv.Client(), headers, ratelimit.NewHostLimiter(0), time.Second)

	body, err := c.Page(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("expected body ok, got %q", body)
	}
	if gotCookie != "forceRemoteWorkDisabled=1" {
		t.Errorf("expected cookie header, got %q", gotCookie)
	}
	if gotUA != "vw-test" {
		t.Errorf("expected user agent vw-test, got %q", gotUA)
	}
}

func TestClient_Page_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Page(context.Background(), srv.URL)
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *model.HTTPError, got %T: %v", err, err)
	}
	if httpErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", httpErr.StatusCode)
	}
	if statusOf(err) != http.StatusForbidden {
		t.Errorf("expected statusOf 403, got %d", statusOf(err))
	}
}

func TestClient_FetchDetail_DoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/moved" {
			w.Write([]byte("should not be reached"))
			return
		}
		http.Redirect(w, r, "/moved", http.StatusFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchDetail(context.Background(), srv.URL+"/vacancy/1", model.SourceHH)
	if statusOf(err) != http.StatusFound {
		t.Fatalf("expected 302 to be reported, got %v", err)
	}
}

func TestClient_Page_RespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), nil, nil, 50*time.Millisecond)
	start := time.Now()
	if _, err := c.Page(context.Background(), srv.URL); err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("expected page timeout to cut the request short, took %v", elapsed)
	}
}
