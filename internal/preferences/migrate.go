package preferences

import (
	"fmt"
	"strings"
)

// LegacyKeyPrefix marks keys the 1.x Capacitor Storage plugin wrote to the
// standard store.
const LegacyKeyPrefix = "_cap_"

// MigrationResult lists the logical keys handled by Migrate.
type MigrationResult struct {
	// Migrated holds keys copied into the group.
	Migrated []string `json:"migrated"`
	// Existing holds keys skipped because the group already had a value.
	Existing []string `json:"existing"`
}

// Migrate copies every LegacyKeyPrefix key of the standard store into the
// store's group, dropping the prefix. Keys already set in the group are left
// untouched and reported as existing. The legacy keys are not removed; see
// RemoveOld.
func (s *Store) Migrate() (MigrationResult, error) {
	res := MigrationResult{Migrated: []string{}, Existing: []string{}}

	std, err := s.provider.Standard()
	if err != nil {
		return res, fmt.Errorf("opening standard store: %w", err)
	}
	oldKeys, err := legacyKeys(std)
	if err != nil {
		return res, err
	}

	for _, oldKey := range oldKeys {
		key := strings.TrimPrefix(oldKey, LegacyKeyPrefix)

		raw, ok, err := std.Get(oldKey)
		if err != nil {
			return res, fmt.Errorf("reading legacy key %q: %w", oldKey, err)
		}
		val, _ := raw.(string)
		if !ok {
			continue
		}

		_, exists, err := s.Get(key)
		if err != nil {
			return res, err
		}
		if exists {
			res.Existing = append(res.Existing, key)
			continue
		}
		if err := s.Set(key, val); err != nil {
			return res, err
		}
		res.Migrated = append(res.Migrated, key)
	}
	return res, nil
}

// RemoveOld deletes every LegacyKeyPrefix key from the standard store.
func (s *Store) RemoveOld() error {
	std, err := s.provider.Standard()
	if err != nil {
		return fmt.Errorf("opening standard store: %w", err)
	}
	oldKeys, err := legacyKeys(std)
	if err != nil {
		return err
	}
	for _, k := range oldKeys {
		if err := std.Remove(k); err != nil {
			return fmt.Errorf("removing legacy key %q: %w", k, err)
		}
	}
	return nil
}

func legacyKeys(b Backend) ([]string, error) {
	all, err := b.Keys()
	if err != nil {
		return nil, fmt.Errorf("listing legacy keys: %w", err)
	}
	var keys []string
	for _, k := range all {
		if strings.HasPrefix(k, LegacyKeyPrefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
