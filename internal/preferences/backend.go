package preferences

import "errors"

// ErrSuiteUnavailable is returned when a provider cannot open the named suite
// a group resolves to. It signals a configuration error; the store never
// falls back to the standard store in that case.
var ErrSuiteUnavailable = errors.New("preference suite unavailable")

// Backend abstracts a platform key-value store.
// macOS uses UserDefaults (via `defaults` CLI), other platforms use a JSON
// file tree or SQLite. Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the raw value stored under key. Backends that are loosely
	// typed may return non-string values.
	Get(key string) (val any, ok bool, err error)
	// Set stores a string under key, replacing any value of any type.
	Set(key, val string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
	// Keys returns every key currently present, in no particular order.
	Keys() ([]string, error)
}

// Provider resolves backends by store identifier.
type Provider interface {
	// Standard returns the process-wide default store.
	Standard() (Backend, error)
	// Suite returns the store for a non-empty identifier. The suite's key
	// space must not overlap with Standard's. Rejected names yield an error
	// wrapping ErrSuiteUnavailable.
	Suite(name string) (Backend, error)
}
