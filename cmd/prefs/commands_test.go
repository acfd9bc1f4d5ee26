package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/prefs/internal/api"
	"github.com/kalambet/prefs/internal/config"
	"github.com/kalambet/prefs/internal/preferences"
)

type cliEnv struct {
	provider *preferences.MemoryProvider
	status   bytes.Buffer
	cfg      config.Config
}

// newCLIEnv points every command at one shared in-memory provider.
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	env := &cliEnv{
		provider: preferences.NewMemoryProvider("NSGlobalDomain"),
		cfg: config.Config{
			Storage:     config.StorageConfig{Backend: config.BackendMemory, DataDir: t.TempDir()},
			Preferences: config.PreferencesConfig{Group: preferences.DefaultGroupName},
			Server:      config.ServerConfig{Port: 4100},
			Log:         config.LogConfig{Level: "info"},
		},
	}

	origLoad, origProvider, origClient, origSettings, origStatus := loadConfig, newProvider, newAPIClient, newSettings, statusOut
	t.Cleanup(func() {
		loadConfig, newProvider, newAPIClient, newSettings, statusOut = origLoad, origProvider, origClient, origSettings, origStatus
	})

	loadConfig = func() (config.Config, error) { return env.cfg, nil }
	newProvider = func(config.Config) (preferences.Provider, func() error, error) {
		return env.provider, func() error { return nil }, nil
	}
	statusOut = &env.status
	noColor = true
	return env
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	flagGroup, flagBackend, flagDataDir, flagRemote = "", "", "", false
	clearCmd.Flags().Set("confirm", "false")
	removeOldCmd.Flags().Set("confirm", "false")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestSetAndGet(t *testing.T) {
	env := newCLIEnv(t)

	_, err := runCLI(t, "set", "theme", "dark")
	require.NoError(t, err)
	assert.Contains(t, env.status.String(), "Set theme")

	out, err := runCLI(t, "get", "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", out)

	suite, err := env.provider.SuiteBackend(preferences.DefaultGroupName)
	require.NoError(t, err)
	raw, ok, err := suite.Get("CapacitorStorage.theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", raw)
}

func TestGetUnset(t *testing.T) {
	newCLIEnv(t)

	_, err := runCLI(t, "get", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing is not set")
}

func TestSetRequiresArgs(t *testing.T) {
	newCLIEnv(t)

	_, err := runCLI(t, "set", "only-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestGroupFlag(t *testing.T) {
	env := newCLIEnv(t)

	_, err := runCLI(t, "--group", "NativeStorage", "set", "token", "abc")
	require.NoError(t, err)
	raw, ok, err := env.provider.StandardBackend().Get("token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", raw)

	_, err = runCLI(t, "--group", "other", "set", "token", "xyz")
	require.NoError(t, err)

	out, err := runCLI(t, "--group", "NativeStorage", "get", "token")
	require.NoError(t, err)
	assert.Equal(t, "abc\n", out)

	// The configured group stays untouched.
	out, err = runCLI(t, "keys")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestKeysSortedAndRemove(t *testing.T) {
	newCLIEnv(t)

	for _, k := range []string{"zeta", "alpha", "mid"} {
		_, err := runCLI(t, "set", k, "v")
		require.NoError(t, err)
	}

	out, err := runCLI(t, "keys")
	require.NoError(t, err)
	assert.Equal(t, "alpha\nmid\nzeta\n", out)

	_, err = runCLI(t, "rm", "mid")
	require.NoError(t, err)
	out, err = runCLI(t, "keys")
	require.NoError(t, err)
	assert.Equal(t, "alpha\nzeta\n", out)
}

func TestClearRequiresConfirm(t *testing.T) {
	env := newCLIEnv(t)

	_, err := runCLI(t, "set", "a", "1")
	require.NoError(t, err)

	_, err = runCLI(t, "clear")
	require.NoError(t, err)
	assert.Contains(t, env.status.String(), "Use --confirm to proceed")

	out, err := runCLI(t, "keys")
	require.NoError(t, err)
	assert.Equal(t, "a\n", out)

	_, err = runCLI(t, "clear", "--confirm")
	require.NoError(t, err)
	out, err = runCLI(t, "keys")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMigrateAndRemoveOld(t *testing.T) {
	env := newCLIEnv(t)
	std := env.provider.StandardBackend()
	require.NoError(t, std.Set("_cap_theme", "dark"))
	require.NoError(t, std.Set("unrelated", "keep"))

	_, err := runCLI(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, env.status.String(), "Migrated 1 keys, 0 already set")

	out, err := runCLI(t, "get", "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", out)

	_, err = runCLI(t, "remove-old", "--confirm")
	require.NoError(t, err)

	keys, err := std.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"unrelated"}, keys)
}

func TestUnavailableGroup(t *testing.T) {
	newCLIEnv(t)

	_, err := runCLI(t, "--group", "NSGlobalDomain", "set", "a", "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, preferences.ErrSuiteUnavailable)
}

func TestConfigSet(t *testing.T) {
	newCLIEnv(t)
	settings := preferences.New(preferences.NewConfiguration(preferences.Named("prefs")), preferences.NewMemoryProvider())
	newSettings = func() config.Settings { return settings }

	_, err := runCLI(t, "config", "set", "server.port", "4321")
	require.NoError(t, err)
	got, ok, err := settings.Get("server.port")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "4321", got)

	_, err = runCLI(t, "config", "set", "server.port", "abc")
	assert.ErrorContains(t, err, "invalid integer")
}

func TestConfigShow(t *testing.T) {
	newCLIEnv(t)

	out, err := runCLI(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "preferences.group = CapacitorStorage")
	assert.NotContains(t, out, "server.token")
}

func TestVersion(t *testing.T) {
	newCLIEnv(t)

	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "prefs version dev\n", out)
}

// newRemoteServer serves env's provider through the HTTP bridge and points
// the --remote client at it.
func newRemoteServer(t *testing.T, env *cliEnv) {
	t.Helper()
	srv := httptest.NewServer(api.NewHandler(api.Deps{
		Stores: preferences.NewRegistry(env.provider),
		Group:  preferences.Named(preferences.DefaultGroupName),
		Token:  "test-token",
	}))
	t.Cleanup(srv.Close)

	newAPIClient = func(config.Config) (*apiClient, error) {
		return &apiClient{baseURL: srv.URL, token: "test-token", httpClient: srv.Client()}, nil
	}
}

func TestRemoteCommands(t *testing.T) {
	env := newCLIEnv(t)
	newRemoteServer(t, env)

	_, err := runCLI(t, "--remote", "set", "a/b c", "value")
	require.NoError(t, err)

	out, err := runCLI(t, "--remote", "get", "a/b c")
	require.NoError(t, err)
	assert.Equal(t, "value\n", out)

	out, err = runCLI(t, "get", "a/b c")
	require.NoError(t, err)
	assert.Equal(t, "value\n", out, "remote write visible locally")

	out, err = runCLI(t, "--remote", "keys")
	require.NoError(t, err)
	assert.Equal(t, "a/b c\n", out)

	_, err = runCLI(t, "--remote", "remove", "a/b c")
	require.NoError(t, err)
	_, err = runCLI(t, "--remote", "get", "a/b c")
	assert.ErrorContains(t, err, "is not set")
}

func TestRemoteMigrate(t *testing.T) {
	env := newCLIEnv(t)
	newRemoteServer(t, env)
	require.NoError(t, env.provider.StandardBackend().Set("_cap_lang", "en"))

	_, err := runCLI(t, "--remote", "--group", "app", "migrate")
	require.NoError(t, err)
	assert.Contains(t, env.status.String(), "migrated lang")

	_, err = runCLI(t, "--remote", "remove-old", "--confirm")
	require.NoError(t, err)
	keys, err := env.provider.StandardBackend().Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRemoteErrorEnvelope(t *testing.T) {
	env := newCLIEnv(t)
	newRemoteServer(t, env)

	_, err := runCLI(t, "--remote", "--group", "NSGlobalDomain", "set", "a", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server returned 400")
	assert.Contains(t, err.Error(), "preference suite unavailable")
}

func TestRemoteUnauthorized(t *testing.T) {
	env := newCLIEnv(t)
	newRemoteServer(t, env)
	base := newAPIClient
	newAPIClient = func(cfg config.Config) (*apiClient, error) {
		c, err := base(cfg)
		if err == nil {
			c.token = "wrong"
		}
		return c, err
	}

	_, err := runCLI(t, "--remote", "keys")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server returned 401")
}

func TestCheckStatusPlainBody(t *testing.T) {
	rr := httptest.NewRecorder()
	rr.WriteHeader(http.StatusBadGateway)
	rr.WriteString("upstream down")

	err := checkStatus(rr.Result())
	require.Error(t, err)
	assert.True(t, strings.HasSuffix(err.Error(), "upstream down"))
}

func TestPIDFileRoundTrip(t *testing.T) {
	path := pidFilePath(t.TempDir())

	require.NoError(t, writePIDFile(path))
	pid, err := readPIDFile(path)
	require.NoError(t, err)
	assert.Positive(t, pid)

	removePIDFile(path)
	_, err = readPIDFile(path)
	assert.Error(t, err)
}
