// Package health serves liveness and readiness checks.
//
// Checks run on demand, all of a kind concurrently, each bounded by its own
// timeout. Readiness additionally requires the service to be marked ready,
// which lets graceful shutdown drain traffic before the listener closes.
package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Health holds the registered liveness and readiness checks.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []check
	readiness []check
}

// New creates a Health in the not-ready state.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check of process health (goroutine leaks and
// the like). It should not depend on external services.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, check{name: name, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a check of a dependency required to serve
// traffic, e.g. the database.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, check{name: name, timeout: timeout, fn: fn})
}

// SetReady toggles the manual readiness flag.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Ready runs the readiness checks and returns the failures by check name.
// The result is empty when the service may receive traffic.
func (h *Health) Ready(ctx context.Context) map[string]string {
	h.mu.RLock()
	checks := h.readiness
	h.mu.RUnlock()

	failures := run(ctx, checks)
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	return failures
}

// Live runs the liveness checks and returns the failures by check name.
func (h *Health) Live(ctx context.Context) map[string]string {
	h.mu.RLock()
	checks := h.liveness
	h.mu.RUnlock()
	return run(ctx, checks)
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.Live(r.Context()))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.Ready(r.Context()))
}

func run(ctx context.Context, checks []check) map[string]string {
	errs := make([]error, len(checks))

	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			errs[i] = c.fn(checkCtx)
			return nil
		})
	}
	_ = g.Wait()

	failures := make(map[string]string)
	for i, err := range errs {
		if err != nil {
			failures[checks[i].name] = err.Error()
		}
	}
	return failures
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func respond(w http.ResponseWriter, r *http.Request, failures map[string]string) {
	if len(failures) > 0 {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, statusResponse{Status: "unhealthy", Checks: failures})
		return
	}
	render.JSON(w, r, statusResponse{Status: "ok"})
}
