package platform

import (
	"fmt"
	"os/exec"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"howett.net/plist"

	"github.com/kalambet/prefs/internal/preferences"
	"github.com/kalambet/prefs/internal/preferences/preferencestest"
)

// fakeDefaults emulates the subset of the defaults tool the backend uses.
type fakeDefaults struct {
	mu      sync.Mutex
	domains map[string]map[string]any
	calls   [][]string
}

func newFakeDefaults() *fakeDefaults {
	return &fakeDefaults{domains: make(map[string]map[string]any)}
}

// exitOne returns a real *exec.ExitError with exit status 1.
func exitOne(t *testing.T) error {
	t.Helper()
	err := exec.Command("sh", "-c", "exit 1").Run()
	require.Error(t, err)
	return err
}

func (f *fakeDefaults) runner(t *testing.T) runner {
	return func(args ...string) ([]byte, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls = append(f.calls, args)

		switch args[0] {
		case "export":
			d, ok := f.domains[args[1]]
			if !ok {
				return []byte(fmt.Sprintf("Domain %s does not exist", args[1])), exitOne(t)
			}
			return plist.Marshal(d, plist.XMLFormat)
		case "write":
			if args[3] != "-string" {
				return nil, fmt.Errorf("unexpected write type %q", args[3])
			}
			d, ok := f.domains[args[1]]
			if !ok {
				d = make(map[string]any)
				f.domains[args[1]] = d
			}
			d[args[2]] = args[4]
			return nil, nil
		case "delete":
			d := f.domains[args[1]]
			if _, ok := d[args[2]]; !ok {
				return []byte("Domain (" + args[1] + ") not found."), exitOne(t)
			}
			delete(d, args[2])
			return nil, nil
		}
		return nil, fmt.Errorf("unexpected command %v", args)
	}
}

func newTestDefaultsProvider(t *testing.T, f *fakeDefaults) *DefaultsProvider {
	p := NewDefaultsProvider("com.kalambet.prefs.test")
	p.run = f.runner(t)
	return p
}

func TestDefaultsProvider(t *testing.T) {
	preferencestest.RunProviderTests(t, "defaults", func(t *testing.T) preferences.Provider {
		return newTestDefaultsProvider(t, newFakeDefaults())
	})
}

func TestDefaultsWritesDomains(t *testing.T) {
	f := newFakeDefaults()
	p := newTestDefaultsProvider(t, f)

	require.NoError(t, preferences.New(preferences.NewConfiguration(preferences.Named("app")), p).Set("theme", "dark"))
	require.NoError(t, preferences.New(preferences.NewConfiguration(preferences.LegacyNativeStorage), p).Set("x", "y"))

	assert.Equal(t, map[string]any{"app.theme": "dark"}, f.domains["app"])
	assert.Equal(t, map[string]any{"x": "y"}, f.domains["com.kalambet.prefs.test"])
	assert.Contains(t, f.calls, []string{"write", "app", "app.theme", "-string", "dark"})
}

func TestDefaultsNonStringValues(t *testing.T) {
	f := newFakeDefaults()
	f.domains["app"] = map[string]any{"app.count": int64(3), "app.name": "n"}
	s := preferences.New(preferences.NewConfiguration(preferences.Named("app")), newTestDefaultsProvider(t, f))

	_, ok, err := s.Get("count")
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := s.Get("name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "n", got)
}

func TestDefaultsRejectsReservedDomains(t *testing.T) {
	p := newTestDefaultsProvider(t, newFakeDefaults())
	for _, name := range []string{"", "NSGlobalDomain", "com.kalambet.prefs.test"} {
		_, err := p.Suite(name)
		assert.ErrorIs(t, err, preferences.ErrSuiteUnavailable, "name %q", name)
	}
}

func TestDefaultsCommandFailure(t *testing.T) {
	p := NewDefaultsProvider("com.kalambet.prefs.test")
	p.run = func(args ...string) ([]byte, error) {
		return []byte("boom"), fmt.Errorf("exec failed")
	}
	s := preferences.New(preferences.DefaultConfiguration(), p)

	_, _, err := s.Get("k")
	assert.ErrorContains(t, err, "boom")
	assert.Error(t, s.Set("k", "v"))
	assert.Error(t, s.Remove("k"))
}
