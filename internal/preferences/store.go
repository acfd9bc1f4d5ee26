package preferences

import (
	"fmt"
	"strings"
)

// Store is a view over one backend restricted to the keys of a single group.
// It holds no state besides its configuration and is cheap to construct.
//
// Individual Get, Set and Remove calls are as safe for concurrent use as the
// backend. RemoveAll and Keys enumerate and then act without isolation: a key
// written by another caller after enumeration may survive RemoveAll, and a key
// removed concurrently results in a harmless no-op delete.
type Store struct {
	cfg      Configuration
	provider Provider
}

// New returns a store for cfg. Backends are resolved through p on each call,
// so no I/O happens here; wrap p in a Registry to cache handles.
func New(cfg Configuration, p Provider) *Store {
	return &Store{cfg: cfg, provider: p}
}

// Configuration returns the store's configuration.
func (s *Store) Configuration() Configuration { return s.cfg }

func (s *Store) backend() (Backend, error) {
	if s.cfg.usesStandard() {
		b, err := s.provider.Standard()
		if err != nil {
			return nil, fmt.Errorf("opening standard store: %w", err)
		}
		return b, nil
	}
	suite, _ := s.cfg.group.layout()
	b, err := s.provider.Suite(suite)
	if err != nil {
		return nil, fmt.Errorf("opening suite %q: %w", suite, err)
	}
	return b, nil
}

// MustResolve resolves the store's backend and panics if the provider
// rejects it. Hosts call it at startup to surface misconfigured groups early.
func (s *Store) MustResolve() {
	if _, err := s.backend(); err != nil {
		panic(err)
	}
}

func (s *Store) physical(key string) string {
	return s.cfg.Prefix() + key
}

// Get returns the string stored under key. ok is false when the key is unset
// or holds a value that is not a string.
func (s *Store) Get(key string) (string, bool, error) {
	b, err := s.backend()
	if err != nil {
		return "", false, err
	}
	raw, ok, err := b.Get(s.physical(key))
	if err != nil {
		return "", false, fmt.Errorf("getting %q: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	val, ok := raw.(string)
	return val, ok, nil
}

// Set stores val under key, overwriting any previous value.
func (s *Store) Set(key, val string) error {
	b, err := s.backend()
	if err != nil {
		return err
	}
	if err := b.Set(s.physical(key), val); err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return nil
}

// Remove deletes key. Missing keys are ignored.
func (s *Store) Remove(key string) error {
	b, err := s.backend()
	if err != nil {
		return err
	}
	if err := b.Remove(s.physical(key)); err != nil {
		return fmt.Errorf("removing %q: %w", key, err)
	}
	return nil
}

// RemoveAll deletes every key of the group. Keys of other groups sharing the
// same backend are left alone.
func (s *Store) RemoveAll() error {
	b, err := s.backend()
	if err != nil {
		return err
	}
	raw, err := s.rawKeys(b)
	if err != nil {
		return err
	}
	for _, k := range raw {
		if err := b.Remove(k); err != nil {
			return fmt.Errorf("removing %q: %w", k, err)
		}
	}
	return nil
}

// Keys returns the group's logical keys in backend enumeration order.
func (s *Store) Keys() ([]string, error) {
	b, err := s.backend()
	if err != nil {
		return nil, err
	}
	raw, err := s.rawKeys(b)
	if err != nil {
		return nil, err
	}
	prefix := s.cfg.Prefix()
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, strings.TrimPrefix(k, prefix))
	}
	return keys, nil
}

// rawKeys returns the physical keys in b that belong to the group.
func (s *Store) rawKeys(b Backend) ([]string, error) {
	all, err := b.Keys()
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	prefix := s.cfg.Prefix()
	var matched []string
	for _, k := range all {
		if strings.HasPrefix(k, prefix) {
			matched = append(matched, k)
		}
	}
	return matched, nil
}
