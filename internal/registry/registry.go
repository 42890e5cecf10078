package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"Quorum/internal/domain/models"
)

// ErrProviderNotFound is returned for operations on unknown provider ids.
var ErrProviderNotFound = fmt.Errorf("registry: provider not found")

const (
	latencyAlpha  = 0.2 // EWMA smoothing for average latency
	accuracyAlpha = 0.2 // EWMA smoothing for accuracy updates
)

type entry struct {
	p        models.Provider
	failures int // consecutive failures since last success
}

// Registry holds the configured decision sources. It is the only state
// shared across concurrent rounds; every mutation happens under the lock
// and each provider's counters are touched once per round, after its task
// has settled.
type Registry struct {
	mu               sync.RWMutex
	entries          map[string]*entry
	order            []string // stable iteration order for snapshots
	failureThreshold int      // consecutive failures before status flips to error
}

// New builds a registry from configured providers. Weights are taken as
// given; the aggregator normalizes by the responding weight sum, so they
// need not sum to 1.
func New(providers []models.Provider, failureThreshold int) *Registry {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	r := &Registry{
		entries:          make(map[string]*entry, len(providers)),
		failureThreshold: failureThreshold,
	}
	for _, p := range providers {
		if p.Status == "" {
			p.Status = models.StatusActive
		}
		r.entries[p.ID] = &entry{p: p}
		r.order = append(r.order, p.ID)
	}
	sort.Strings(r.order)
	return r
}

// ListActive returns a snapshot of the currently active providers. The
// snapshot is not re-validated mid-round; a provider going inactive after
// round start keeps its in-flight task.
func (r *Registry) ListActive() []models.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Provider, 0, len(r.order))
	for _, id := range r.order {
		if e := r.entries[id]; e.p.Status == models.StatusActive {
			out = append(out, e.p)
		}
	}
	return out
}

// List returns a snapshot of every configured provider.
func (r *Registry) List() []models.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].p)
	}
	return out
}

// Weights returns the configured weight per provider id.
func (r *Registry) Weights() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w := make(map[string]float64, len(r.entries))
	for id, e := range r.entries {
		w[id] = e.p.Weight
	}
	return w
}

// RecordUsage updates a provider's call counters after its task settled.
// A failed call counts toward the consecutive-failure streak; reaching the
// threshold flips status to error. A successful call resets the streak and
// recovers a provider previously flipped to error.
func (r *Registry) RecordUsage(id string, latency time.Duration, ok bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, found := r.entries[id]
	if !found {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}
	e.p.Calls++
	if e.p.AvgLatency == 0 {
		e.p.AvgLatency = latency
	} else {
		e.p.AvgLatency = time.Duration((1-latencyAlpha)*float64(e.p.AvgLatency) + latencyAlpha*float64(latency))
	}
	if ok {
		e.failures = 0
		if e.p.Status == models.StatusError {
			e.p.Status = models.StatusActive
		}
		return nil
	}
	e.p.Failures++
	e.failures++
	// a single timeout never flips status; only a streak does
	if e.failures >= r.failureThreshold && e.p.Status == models.StatusActive {
		e.p.Status = models.StatusError
	}
	return nil
}

// RecordOutcome applies an exponentially-weighted accuracy update once the
// realized outcome of a past decision is known.
func (r *Registry) RecordOutcome(id string, correct bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, found := r.entries[id]
	if !found {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}
	hit := 0.0
	if correct {
		hit = 1.0
	}
	if e.p.Calls <= 1 && e.p.Accuracy == 0 {
		e.p.Accuracy = hit
	} else {
		e.p.Accuracy = (1-accuracyAlpha)*e.p.Accuracy + accuracyAlpha*hit
	}
	return nil
}

// SetStatus changes a provider's operational status. Providers are never
// deleted; disabling sets status to inactive.
func (r *Registry) SetStatus(id string, status models.ProviderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("registry: invalid status %q", status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, found := r.entries[id]
	if !found {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}
	e.p.Status = status
	if status == models.StatusActive {
		e.failures = 0
	}
	return nil
}

// Get returns a snapshot of a single provider.
func (r *Registry) Get(id string) (models.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, found := r.entries[id]
	if !found {
		return models.Provider{}, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}
	return e.p, nil
}
