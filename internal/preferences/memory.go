package preferences

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryBackend is a loosely typed in-process backend. It is safe for
// concurrent use and never returns errors.
type MemoryBackend struct {
	data *xsync.MapOf[string, any]
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: xsync.NewMapOf[string, any]()}
}

func (m *MemoryBackend) Get(key string) (any, bool, error) {
	v, ok := m.data.Load(key)
	return v, ok, nil
}

func (m *MemoryBackend) Set(key, val string) error {
	m.data.Store(key, val)
	return nil
}

// Put stores a value of any type, the way other writers of a shared platform
// store may.
func (m *MemoryBackend) Put(key string, val any) {
	m.data.Store(key, val)
}

func (m *MemoryBackend) Remove(key string) error {
	m.data.Delete(key)
	return nil
}

func (m *MemoryBackend) Keys() ([]string, error) {
	keys := make([]string, 0, m.data.Size())
	m.data.Range(func(k string, _ any) bool {
		keys = append(keys, k)
		return true
	})
	return keys, nil
}

// MemoryProvider hands out MemoryBackends: one standard backend and one per
// suite name.
type MemoryProvider struct {
	standard *MemoryBackend
	suites   *xsync.MapOf[string, *MemoryBackend]
	reserved map[string]struct{}
}

var _ Provider = (*MemoryProvider)(nil)

// NewMemoryProvider returns a provider that refuses to open the reserved
// suite names.
func NewMemoryProvider(reserved ...string) *MemoryProvider {
	p := &MemoryProvider{
		standard: NewMemoryBackend(),
		suites:   xsync.NewMapOf[string, *MemoryBackend](),
		reserved: make(map[string]struct{}, len(reserved)),
	}
	for _, name := range reserved {
		p.reserved[name] = struct{}{}
	}
	return p
}

func (p *MemoryProvider) Standard() (Backend, error) {
	return p.standard, nil
}

// StandardBackend returns the standard backend with its concrete type.
func (p *MemoryProvider) StandardBackend() *MemoryBackend {
	return p.standard
}

func (p *MemoryProvider) Suite(name string) (Backend, error) {
	b, err := p.SuiteBackend(name)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// SuiteBackend returns the suite backend with its concrete type, creating it
// on first use.
func (p *MemoryProvider) SuiteBackend(name string) (*MemoryBackend, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty suite name", ErrSuiteUnavailable)
	}
	if _, ok := p.reserved[name]; ok {
		return nil, fmt.Errorf("%w: %q is reserved", ErrSuiteUnavailable, name)
	}
	b, _ := p.suites.LoadOrCompute(name, NewMemoryBackend)
	return b, nil
}
