// Package platform implements preferences.Provider on top of the stores an
// operating system offers: UserDefaults on macOS (driven through the
// `defaults` tool) and a tree of JSON files everywhere else.
package platform
