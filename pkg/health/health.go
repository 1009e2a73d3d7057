// Package health serves liveness and readiness probes.
//
// Checks run together on a fixed interval. A check turns unhealthy after
// FailureThreshold consecutive failures and healthy again after one success.
package health

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"
)

// CheckFunc returns nil when the checked component works.
type CheckFunc func(ctx context.Context) error

// Kind selects the probe a check contributes to.
type Kind uint8

const (
	Liveness Kind = iota
	Readiness
)

// DefaultFailureThreshold applies when Check.FailureThreshold is zero.
const DefaultFailureThreshold = 3

// Check describes one health check.
type Check struct {
	Name             string
	Kind             Kind
	Timeout          time.Duration
	FailureThreshold int
	Run              CheckFunc
}

type checkState struct {
	Check

	healthy atomic.Bool
	lastErr atomic.Pointer[string]

	// Only touched by the runner goroutine.
	fails int
}

func (s *checkState) probe(ctx context.Context) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	if err := s.Run(ctx); err != nil {
		msg := err.Error()
		s.lastErr.Store(&msg)
		s.fails++
		if s.fails >= s.FailureThreshold {
			s.healthy.Store(false)
		}
		return
	}
	s.lastErr.Store(nil)
	s.fails = 0
	s.healthy.Store(true)
}

func (s *checkState) failure() string {
	if p := s.lastErr.Load(); p != nil {
		return *p
	}
	return "unhealthy"
}

// Health tracks registered checks and the manual readiness gate.
type Health struct {
	ready atomic.Bool

	mu     sync.Mutex
	checks []*checkState
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Health that is not ready until SetReady(true).
func New() *Health {
	return &Health{}
}

// Add registers c. Checks start out healthy.
func (h *Health) Add(c Check) {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	s := &checkState{Check: c}
	s.healthy.Store(true)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, s)
	slices.SortStableFunc(h.checks, func(a, b *checkState) int {
		return cmp.Compare(a.Name, b.Name)
	})
}

// AddLivenessCheck registers a liveness check.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.Add(Check{Name: name, Kind: Liveness, Timeout: timeout, Run: fn})
}

// AddReadinessCheck registers a readiness check.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.Add(Check{Name: name, Kind: Readiness, Timeout: timeout, Run: fn})
}

func (h *Health) snapshot(kind Kind) []*checkState {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []*checkState
	for _, s := range h.checks {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// RunOnce probes every check concurrently and waits for all of them.
// It must not be called while the background runner is active.
func (h *Health) RunOnce(ctx context.Context) {
	h.mu.Lock()
	checks := slices.Clone(h.checks)
	h.mu.Unlock()

	var g errgroup.Group
	for _, s := range checks {
		g.Go(func() error {
			s.probe(ctx)
			return nil
		})
	}
	_ = g.Wait()
}

// Start probes all checks immediately and then every interval until Stop is
// called or ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	h.mu.Lock()
	if h.cancel != nil {
		h.mu.Unlock()
		cancel()
		return
	}
	h.cancel, h.done = cancel, done
	h.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			h.RunOnce(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the background runner and waits for it to exit.
func (h *Health) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel, h.done = nil, nil
	h.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// SetReady flips the manual readiness gate. It is set after startup and
// cleared at the beginning of a graceful shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the gate is open and all readiness checks pass.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	for _, s := range h.snapshot(Readiness) {
		if !s.healthy.Load() {
			return false
		}
	}
	return true
}

type failure struct {
	name, message string
}

func failures(checks []*checkState) []failure {
	var out []failure
	for _, s := range checks {
		if !s.healthy.Load() {
			out = append(out, failure{name: s.Name, message: s.failure()})
		}
	}
	return out
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, failures(h.snapshot(Liveness)))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failed := failures(h.snapshot(Readiness))
	if !h.ready.Load() {
		failed = append(failed, failure{name: "_readiness", message: "service is not ready"})
	}
	writeStatus(w, failed)
}

// writeStatus renders {"status":"ok"} or
// {"status":"unhealthy","checks":{"name":"error"}}.
func writeStatus(w http.ResponseWriter, failed []failure) {
	var e jx.Encoder
	status := http.StatusOK
	e.ObjStart()
	e.FieldStart("status")
	if len(failed) == 0 {
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.Str("unhealthy")
		e.FieldStart("checks")
		e.ObjStart()
		for _, f := range failed {
			e.FieldStart(f.name)
			e.Str(f.message)
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
