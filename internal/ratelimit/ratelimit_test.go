package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWait_SameHost_EnforcesRate(t *testing.T) {
	limiter := NewHostLimiter(10) // one page per 100ms
	ctx := context.Background()

	// First call uses the burst and returns immediately.
	if err := limiter.Wait(ctx, "https://kirov.hh.ru/search/vacancy?page=0"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "https://kirov.hh.ru/search/vacancy?page=1"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Allow 20ms for timer jitter.
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentHosts_NoCrossBlocking(t *testing.T) {
	limiter := NewHostLimiter(5)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://kirov.hh.ru/search/vacancy"); err != nil {
		t.Fatalf("hh wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "https://trudvsem.ru/iblocks/data"); err != nil {
		t.Fatalf("trudvsem wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected other host to be near-instant, got %v", elapsed)
	}
}

func TestWait_Unlimited(t *testing.T) {
	limiter := NewHostLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := limiter.Wait(ctx, "https://trudkirov.ru/vacancy/"); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected unlimited waits to be instant, got %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewHostLimiter(0.2) // one page per 5s
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://kirov.superjob.ru/"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "https://kirov.superjob.ru/"); err == nil {
		t.Fatal("expected error when context expires before the next token")
	}
}

func TestWait_UnparseableURLSharesFallbackHost(t *testing.T) {
	limiter := NewHostLimiter(10)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "::not a url"); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	start := time.Now()
	if err := limiter.Wait(ctx, "relative/path"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected hostless URLs to share one limiter, got %v", elapsed)
	}
}
