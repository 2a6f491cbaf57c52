// Package adapters turns resolved query definitions into backend requests.
//
// Each backend gets one Adapter. Adapters are registered once at startup in
// a Registry keyed by service identifier, so the orchestrator never
// switches on service names.
package adapters

import (
	"context"
	"sort"
	"sync"

	"crossquery/internal/models"
)

// Adapter executes one query definition against one backend and returns the
// decoded response payload (JSON value, or raw text when the body is not JSON).
type Adapter interface {
	Service() string
	Execute(ctx context.Context, def models.QueryDefinition, params models.ParameterSet) (interface{}, error)
}

// Sender is the request primitive adapters funnel through.
type Sender interface {
	Send(ctx context.Context, desc models.RequestDescription) (interface{}, error)
}

// Registry maps service identifiers to adapters. It is safe for concurrent
// reads once built.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for a.Service().
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Service()] = a
}

func (r *Registry) Get(service string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[service]
	return a, ok
}

// Services returns the registered identifiers, sorted.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
