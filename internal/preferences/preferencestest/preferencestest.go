// Package preferencestest provides a conformance suite for preferences.Provider
// implementations. Every backend shipped with prefs runs it from its own
// tests:
//
//	preferencestest.RunProviderTests(t, "sqlite", func(t *testing.T) preferences.Provider {
//		return openTestStore(t)
//	})
package preferencestest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/prefs/internal/preferences"
)

// ProviderFactory returns a fresh, empty provider. Cleanup should be
// registered on t.
type ProviderFactory func(t *testing.T) preferences.Provider

// RunProviderTests runs the conformance suite against providers built by factory.
func RunProviderTests(t *testing.T, name string, factory ProviderFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, factory(t)) })
		t.Run("Overwrite", func(t *testing.T) { testOverwrite(t, factory(t)) })
		t.Run("Remove", func(t *testing.T) { testRemove(t, factory(t)) })
		t.Run("Isolation", func(t *testing.T) { testIsolation(t, factory(t)) })
		t.Run("RemoveAll", func(t *testing.T) { testRemoveAll(t, factory(t)) })
		t.Run("PrefixFidelity", func(t *testing.T) { testPrefixFidelity(t, factory(t)) })
		t.Run("LiteralPrefix", func(t *testing.T) { testLiteralPrefix(t, factory(t)) })
		t.Run("LegacyAndEmptyGroup", func(t *testing.T) { testLegacyAndEmptyGroup(t, factory(t)) })
		t.Run("SuiteSeparateFromStandard", func(t *testing.T) { testSuiteSeparateFromStandard(t, factory(t)) })
		t.Run("Scenario", func(t *testing.T) { testScenario(t, factory(t)) })
		t.Run("Migrate", func(t *testing.T) { testMigrate(t, factory(t)) })
	})
}

func uniqueGroup() preferences.Group {
	return preferences.Named("group-" + uuid.New().String())
}

func open(p preferences.Provider, g preferences.Group) *preferences.Store {
	return preferences.New(preferences.NewConfiguration(g), p)
}

func mustGet(t *testing.T, s *preferences.Store, key string) (string, bool) {
	t.Helper()
	v, ok, err := s.Get(key)
	require.NoError(t, err)
	return v, ok
}

func mustKeys(t *testing.T, s *preferences.Store) []string {
	t.Helper()
	keys, err := s.Keys()
	require.NoError(t, err)
	return keys
}

func testRoundTrip(t *testing.T, p preferences.Provider) {
	s := open(p, uniqueGroup())

	cases := map[string]string{
		"theme":        "dark",
		"":             "empty key",
		"with space":   "",
		"unicode.ключ": "значение",
	}
	for k, v := range cases {
		require.NoError(t, s.Set(k, v))
	}
	for k, want := range cases {
		got, ok := mustGet(t, s, k)
		assert.True(t, ok, "key %q", k)
		assert.Equal(t, want, got, "key %q", k)
	}
}

func testOverwrite(t *testing.T, p preferences.Provider) {
	s := open(p, uniqueGroup())

	require.NoError(t, s.Set("k", "one"))
	require.NoError(t, s.Set("k", "two"))

	got, ok := mustGet(t, s, "k")
	assert.True(t, ok)
	assert.Equal(t, "two", got)
	assert.Equal(t, []string{"k"}, mustKeys(t, s))
}

func testRemove(t *testing.T, p preferences.Provider) {
	s := open(p, uniqueGroup())

	require.NoError(t, s.Remove("never-set"))
	_, ok := mustGet(t, s, "never-set")
	assert.False(t, ok)

	require.NoError(t, s.Set("k", "v"))
	require.NoError(t, s.Remove("k"))
	_, ok = mustGet(t, s, "k")
	assert.False(t, ok)

	require.NoError(t, s.Remove("k"))
}

func testIsolation(t *testing.T, p preferences.Provider) {
	a := open(p, uniqueGroup())
	b := open(p, uniqueGroup())

	require.NoError(t, a.Set("shared", "from-a"))
	require.NoError(t, b.Set("only-b", "from-b"))

	_, ok := mustGet(t, b, "shared")
	assert.False(t, ok)
	_, ok = mustGet(t, a, "only-b")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"shared"}, mustKeys(t, a))
	assert.ElementsMatch(t, []string{"only-b"}, mustKeys(t, b))

	require.NoError(t, b.Set("shared", "from-b"))
	got, _ := mustGet(t, a, "shared")
	assert.Equal(t, "from-a", got)
}

func testRemoveAll(t *testing.T, p preferences.Provider) {
	g := uniqueGroup()
	s := open(p, g)
	other := open(p, uniqueGroup())

	require.NoError(t, s.RemoveAll())
	assert.Empty(t, mustKeys(t, s))

	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Set(k, k))
	}
	require.NoError(t, other.Set("a", "keep"))

	// A key in the same suite that does not carry the group's prefix.
	suite, err := p.Suite(g.Name())
	require.NoError(t, err)
	require.NoError(t, suite.Set("foreign", "keep"))

	require.NoError(t, s.RemoveAll())
	assert.Empty(t, mustKeys(t, s))

	got, ok := mustGet(t, other, "a")
	assert.True(t, ok)
	assert.Equal(t, "keep", got)

	raw, ok, err := suite.Get("foreign")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "keep", raw)
}

func testPrefixFidelity(t *testing.T, p preferences.Provider) {
	s := open(p, uniqueGroup())
	other := open(p, uniqueGroup())

	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("b", "2"))
	require.NoError(t, other.Set("c", "3"))

	assert.ElementsMatch(t, []string{"a", "b"}, mustKeys(t, s))
}

func testLiteralPrefix(t *testing.T, p preferences.Provider) {
	s := open(p, preferences.Named("foo"))

	suite, err := p.Suite("foo")
	require.NoError(t, err)
	require.NoError(t, suite.Set("foo.bar", "1"))
	require.NoError(t, suite.Set("foobar", "2"))
	require.NoError(t, suite.Set("fo.o", "3"))

	assert.ElementsMatch(t, []string{"bar"}, mustKeys(t, s))

	require.NoError(t, s.RemoveAll())
	keys, err := suite.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"foobar", "fo.o"}, keys)
}

func testLegacyAndEmptyGroup(t *testing.T, p preferences.Provider) {
	legacy := open(p, preferences.LegacyNativeStorage)
	empty := open(p, preferences.Named(""))

	require.NoError(t, legacy.Set("x", "legacy"))
	require.NoError(t, empty.Set("x", "empty"))

	std, err := p.Standard()
	require.NoError(t, err)

	raw, ok, err := std.Get("x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "legacy", raw)

	raw, ok, err = std.Get(".x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "empty", raw)

	got, _ := mustGet(t, legacy, "x")
	assert.Equal(t, "legacy", got)
	got, _ = mustGet(t, empty, "x")
	assert.Equal(t, "empty", got)

	assert.ElementsMatch(t, []string{"x"}, mustKeys(t, empty))

	// The legacy prefix is empty, so it sees every standard key.
	assert.ElementsMatch(t, []string{"x", ".x"}, mustKeys(t, legacy))

	require.NoError(t, empty.RemoveAll())
	got, ok = mustGet(t, legacy, "x")
	assert.True(t, ok)
	assert.Equal(t, "legacy", got)
}

func testSuiteSeparateFromStandard(t *testing.T, p preferences.Provider) {
	g := uniqueGroup()
	s := open(p, g)
	require.NoError(t, s.Set("k", "v"))

	std, err := p.Standard()
	require.NoError(t, err)
	keys, err := std.Keys()
	require.NoError(t, err)
	assert.NotContains(t, keys, g.Name()+".k")
}

func testScenario(t *testing.T, p preferences.Provider) {
	s := open(p, preferences.Named("CapacitorStorage"))

	require.NoError(t, s.Set("theme", "dark"))

	got, ok := mustGet(t, s, "theme")
	require.True(t, ok)
	assert.Equal(t, "dark", got)
	assert.Equal(t, []string{"theme"}, mustKeys(t, s))

	require.NoError(t, s.Remove("theme"))
	_, ok = mustGet(t, s, "theme")
	assert.False(t, ok)
	assert.Empty(t, mustKeys(t, s))
}

func testMigrate(t *testing.T, p preferences.Provider) {
	std, err := p.Standard()
	require.NoError(t, err)
	require.NoError(t, std.Set(preferences.LegacyKeyPrefix+"token", "abc"))
	require.NoError(t, std.Set(preferences.LegacyKeyPrefix+"theme", "light"))
	require.NoError(t, std.Set("unrelated", "x"))

	s := open(p, uniqueGroup())
	require.NoError(t, s.Set("theme", "dark"))

	res, err := s.Migrate()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"token"}, res.Migrated)
	assert.ElementsMatch(t, []string{"theme"}, res.Existing)

	got, _ := mustGet(t, s, "token")
	assert.Equal(t, "abc", got)
	got, _ = mustGet(t, s, "theme")
	assert.Equal(t, "dark", got)

	require.NoError(t, s.RemoveOld())
	keys, err := std.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"unrelated"}, keys)
}
