package preferences

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

const standardFlightKey = "\x00standard"

// Registry caches the backends a Provider opens so every Store built on the
// same identifier shares one handle for the life of the process. Concurrent
// first opens of the same suite are collapsed into a single call.
// Failed opens are not cached.
type Registry struct {
	provider Provider
	flight   singleflight.Group

	mu       sync.RWMutex
	standard Backend
	suites   map[string]Backend
}

var _ Provider = (*Registry)(nil)

// NewRegistry wraps p.
func NewRegistry(p Provider) *Registry {
	return &Registry{
		provider: p,
		suites:   make(map[string]Backend),
	}
}

func (r *Registry) Standard() (Backend, error) {
	r.mu.RLock()
	b := r.standard
	r.mu.RUnlock()
	if b != nil {
		return b, nil
	}

	v, err, _ := r.flight.Do(standardFlightKey, func() (any, error) {
		r.mu.RLock()
		cached := r.standard
		r.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
		b, err := r.provider.Standard()
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.standard = b
		r.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Backend), nil
}

func (r *Registry) Suite(name string) (Backend, error) {
	r.mu.RLock()
	b, ok := r.suites[name]
	r.mu.RUnlock()
	if ok {
		return b, nil
	}

	v, err, _ := r.flight.Do(name, func() (any, error) {
		r.mu.RLock()
		cached, ok := r.suites[name]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}
		b, err := r.provider.Suite(name)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.suites[name] = b
		r.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Backend), nil
}

// Open returns a store for g backed by the registry.
func (r *Registry) Open(g Group) *Store {
	return New(NewConfiguration(g), r)
}
