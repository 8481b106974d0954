// Package registry maps backend names to live backend instances and owns
// their health records.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"parlaygen/internal/health"
	"parlaygen/internal/provider"
)

// Registry is the name->backend map with lifecycle independent of health
// state. A health record exists if and only if its backend is registered.
// All operations are safe for concurrent use; runtime registration is
// synchronized against in-flight orchestration reads.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]provider.Backend
	records  map[string]*health.Record
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		backends: make(map[string]provider.Backend),
		records:  make(map[string]*health.Record),
	}
}

// Register adds a backend under name and initializes its health record as
// healthy. Registering an existing name replaces it and resets its record.
func (r *Registry) Register(name string, backend provider.Backend) error {
	if name == "" {
		return fmt.Errorf("backend name is required")
	}
	if backend == nil {
		return fmt.Errorf("backend is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = backend
	r.records[name] = health.NewRecord(name)
	return nil
}

// Unregister removes a backend and its health record.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.backends, name)
	delete(r.records, name)
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (provider.Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	return b, ok
}

// ListNames returns all registered names, sorted.
func (r *Registry) ListNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered backends.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.backends)
}

// UpdateHealth records the outcome of a real attempt or probe. Updates for
// names no longer registered are dropped, preserving the record invariant.
// Last write wins.
func (r *Registry) UpdateHealth(name string, healthy bool, latency time.Duration, lastErr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.backends[name]; !ok {
		return
	}
	r.records[name] = &health.Record{
		Name:        name,
		Healthy:     healthy,
		Latency:     latency,
		LastError:   lastErr,
		LastChecked: time.Now(),
	}
}

// HealthFor returns a copy of the health record for name.
func (r *Registry) HealthFor(name string) (health.Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[name]
	if !ok {
		return health.Record{}, false
	}
	return *rec, true
}

// HealthSnapshot returns copies of every health record, sorted by name.
func (r *Registry) HealthSnapshot() []health.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]health.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ProbeTargets returns the current backends as probe targets for the
// health monitor.
func (r *Registry) ProbeTargets() []health.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]health.Target, 0, len(r.backends))
	for _, b := range r.backends {
		out = append(out, b)
	}
	return out
}
