package preferences_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/prefs/internal/preferences"
	"github.com/kalambet/prefs/internal/preferences/preferencestest"
)

func TestMemoryProvider(t *testing.T) {
	preferencestest.RunProviderTests(t, "memory", func(t *testing.T) preferences.Provider {
		return preferences.NewMemoryProvider()
	})
}

func TestRegistryProvider(t *testing.T) {
	preferencestest.RunProviderTests(t, "registry", func(t *testing.T) preferences.Provider {
		return preferences.NewRegistry(preferences.NewMemoryProvider())
	})
}

func TestPrefix(t *testing.T) {
	tests := []struct {
		group preferences.Group
		want  string
	}{
		{preferences.Named("CapacitorStorage"), "CapacitorStorage."},
		{preferences.Named("a.b"), "a.b."},
		{preferences.Named(""), "."},
		{preferences.LegacyNativeStorage, ""},
	}
	for _, tt := range tests {
		got := preferences.NewConfiguration(tt.group).Prefix()
		assert.Equal(t, tt.want, got, "group %q", tt.group)
	}
}

func TestParseGroup(t *testing.T) {
	assert.Equal(t, preferences.LegacyNativeStorage, preferences.ParseGroup("NativeStorage"))
	assert.Equal(t, preferences.Named("settings"), preferences.ParseGroup("settings"))
	assert.Equal(t, preferences.Named(""), preferences.ParseGroup(""))
	assert.True(t, preferences.ParseGroup("NativeStorage").IsLegacy())
	assert.Equal(t, "NativeStorage", preferences.LegacyNativeStorage.Name())
}

func TestConfigurationEquality(t *testing.T) {
	assert.Equal(t, preferences.DefaultConfiguration(), preferences.NewConfiguration(preferences.Named("CapacitorStorage")))
	assert.True(t, preferences.NewConfiguration(preferences.Named("a")) == preferences.NewConfiguration(preferences.Named("a")))
	assert.False(t, preferences.NewConfiguration(preferences.Named("")) == preferences.NewConfiguration(preferences.LegacyNativeStorage))
}

func TestGetNonStringValue(t *testing.T) {
	p := preferences.NewMemoryProvider()
	s := preferences.New(preferences.NewConfiguration(preferences.Named("app")), p)

	suite, err := p.SuiteBackend("app")
	require.NoError(t, err)
	suite.Put("app.count", 42)
	suite.Put("app.flag", true)

	_, ok, err := s.Get("count")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"count", "flag"}, keys)

	require.NoError(t, s.Set("count", "43"))
	got, ok, err := s.Get("count")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "43", got)
}

func TestSuiteUnavailable(t *testing.T) {
	p := preferences.NewMemoryProvider("NSGlobalDomain")
	s := preferences.New(preferences.NewConfiguration(preferences.Named("NSGlobalDomain")), p)

	_, _, err := s.Get("k")
	assert.True(t, errors.Is(err, preferences.ErrSuiteUnavailable))

	err = s.Set("k", "v")
	assert.True(t, errors.Is(err, preferences.ErrSuiteUnavailable))

	// Nothing leaked into the standard store.
	keys, err := p.StandardBackend().Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	assert.Panics(t, s.MustResolve)
	assert.NotPanics(t, preferences.New(preferences.DefaultConfiguration(), p).MustResolve)
}

type failingBackend struct{ err error }

func (f failingBackend) Get(string) (any, bool, error) { return nil, false, f.err }
func (f failingBackend) Set(string, string) error { return f.err }
func (f failingBackend) Remove(string) error { return f.err }
func (f failingBackend) Keys() ([]string, error) { return nil, f.err }

type staticProvider struct{ b preferences.Backend }

func (p staticProvider) Standard() (preferences.Backend, error) { return p.b, nil }
func (p staticProvider) Suite(string) (preferences.Backend, error) { return p.b, nil }

func TestBackendErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	s := preferences.New(preferences.DefaultConfiguration(), staticProvider{failingBackend{boom}})

	_, _, err := s.Get("k")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.Set("k", "v"), boom)
	assert.ErrorIs(t, s.Remove("k"), boom)
	assert.ErrorIs(t, s.RemoveAll(), boom)
	_, err = s.Keys()
	assert.ErrorIs(t, err, boom)
	_, err = s.Migrate()
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.RemoveOld(), boom)
}

func TestMigrateNonStringLegacyValue(t *testing.T) {
	p := preferences.NewMemoryProvider()
	p.StandardBackend().Put(preferences.LegacyKeyPrefix+"n", 7)

	s := preferences.New(preferences.DefaultConfiguration(), p)
	res, err := s.Migrate()
	require.NoError(t, err)
	assert.Equal(t, []string{"n"}, res.Migrated)

	got, ok, err := s.Get("n")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", got)
}
