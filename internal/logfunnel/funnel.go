// Package logfunnel serialises log records from concurrent pipelines
// through a single consumer goroutine that owns the log sink.
package logfunnel

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrKilled is returned by Shutdown when the consumer had to be stopped
// forcibly.
var ErrKilled = errors.New("log funnel killed before draining")

// message is one funnel entry. A message with stop set is the sentinel.
type message struct {
	handler slog.Handler
	record  slog.Record
	stop    bool
}

// Funnel carries records from any number of producers to one sink handler.
type Funnel struct {
	sink    slog.Handler
	records chan message
	kill    chan struct{}
	done    chan struct{}

	// mu orders the sentinel after every record accepted before Stop.
	mu       sync.RWMutex
	stopOnce sync.Once
	killOnce sync.Once
	stopped  atomic.Bool
	dropped  atomic.Int64
	failed   atomic.Int64
}

// New creates a Funnel writing to sink. buffer bounds how many records may
// wait for the consumer before producers block.
func New(sink slog.Handler, buffer int) *Funnel {
	if buffer < 0 {
		buffer = 0
	}
	return &Funnel{
		sink:    sink,
		records: make(chan message, buffer),
		kill:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the consumer goroutine.
func (f *Funnel) Start() {
	go f.consume()
}

func (f *Funnel) consume() {
	defer close(f.done)
	for {
		select {
		case <-f.kill:
			return
		case m := <-f.records:
			if m.stop {
				return
			}
			if err := m.handler.Handle(context.Background(), m.record); err != nil {
				f.failed.Add(1)
			}
		}
	}
}

// Handler returns the producer side of the funnel.
func (f *Funnel) Handler() slog.Handler {
	return &handler{funnel: f, sink: f.sink}
}

// Logger is shorthand for slog.New(f.Handler()).
func (f *Funnel) Logger() *slog.Logger {
	return slog.New(f.Handler())
}

func (f *Funnel) send(h slog.Handler, r slog.Record) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.stopped.Load() {
		f.dropped.Add(1)
		return
	}
	select {
	case f.records <- message{handler: h, record: r.Clone()}:
	case <-f.done:
		f.dropped.Add(1)
	}
}

// Stop enqueues the sentinel. Records already queued are still written;
// records sent afterwards are dropped.
func (f *Funnel) Stop() {
	f.stopOnce.Do(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.stopped.Store(true)
		select {
		case f.records <- message{stop: true}:
		case <-f.done:
		}
	})
}

// Kill terminates the consumer without draining the queue.
func (f *Funnel) Kill() {
	f.killOnce.Do(func() {
		f.stopped.Store(true)
		close(f.kill)
	})
}

// Done is closed once the consumer has exited.
func (f *Funnel) Done() <-chan struct{} {
	return f.done
}

// Shutdown sends the sentinel and waits up to grace for the consumer to
// drain. If it is still running after grace it is killed and ErrKilled is
// returned.
func (f *Funnel) Shutdown(grace time.Duration) error {
	go f.Stop()

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-f.done:
		return nil
	case <-timer.C:
		f.Kill()
		return ErrKilled
	}
}

// Dropped reports how many records arrived after the funnel stopped.
func (f *Funnel) Dropped() int64 {
	return f.dropped.Load()
}

// Failed reports how many records the sink refused.
func (f *Funnel) Failed() int64 {
	return f.failed.Load()
}

// handler is the slog.Handler producers log through. Attributes and groups
// are applied to a derived sink handler, which only the consumer invokes.
type handler struct {
	funnel *Funnel
	sink   slog.Handler
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.sink.Enabled(ctx, level)
}

func (h *handler) Handle(_ context.Context, r slog.Record) error {
	h.funnel.send(h.sink, r)
	return nil
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &handler{funnel: h.funnel, sink: h.sink.WithAttrs(attrs)}
}

func (h *handler) WithGroup(name string) slog.Handler {
	return &handler{funnel: h.funnel, sink: h.sink.WithGroup(name)}
}
