package preferences

// DefaultGroupName is the group used when a host does not configure one.
const DefaultGroupName = "CapacitorStorage"

// legacyGroupAlias is the group name hosts use to select LegacyNativeStorage.
const legacyGroupAlias = "NativeStorage"

// legacySuiteName is the store identifier of the legacy group. It is never
// opened as a suite: the legacy group always lives in the standard store.
const legacySuiteName = "CapacitorStorage"

// Group selects the namespace a Store operates in. The zero value is
// Named("").
type Group struct {
	name   string
	legacy bool
}

// Named returns a group that stores its keys in the suite called name,
// prefixed with name + ".".
func Named(name string) Group {
	return Group{name: name}
}

// LegacyNativeStorage is the unprefixed namespace shared with the
// predecessor native-storage plugin.
var LegacyNativeStorage = Group{legacy: true}

// ParseGroup maps a host-supplied group name to a Group. "NativeStorage"
// selects LegacyNativeStorage.
func ParseGroup(name string) Group {
	if name == legacyGroupAlias {
		return LegacyNativeStorage
	}
	return Named(name)
}

// IsLegacy reports whether g is LegacyNativeStorage.
func (g Group) IsLegacy() bool { return g.legacy }

// Name returns the group's name, or "NativeStorage" for the legacy group.
func (g Group) Name() string {
	if g.legacy {
		return legacyGroupAlias
	}
	return g.name
}

func (g Group) String() string { return g.Name() }

// layout returns the store identifier and key prefix for g.
// The prefix depends only on the group, never on which store the identifier
// resolves to: Named("") shares the standard store with the legacy group but
// keeps the "." prefix.
func (g Group) layout() (suite, prefix string) {
	switch {
	case g.legacy:
		return legacySuiteName, ""
	default:
		return g.name, g.name + "."
	}
}

// Configuration is the immutable set of options a Store is built from.
// Two configurations are equal when their groups are equal.
type Configuration struct {
	group Group
}

// NewConfiguration returns a configuration for g.
func NewConfiguration(g Group) Configuration {
	return Configuration{group: g}
}

// DefaultConfiguration returns the configuration for Named(DefaultGroupName).
func DefaultConfiguration() Configuration {
	return NewConfiguration(Named(DefaultGroupName))
}

// Group returns the configured group.
func (c Configuration) Group() Group { return c.group }

// Prefix returns the physical key prefix applied to every logical key.
func (c Configuration) Prefix() string {
	_, prefix := c.group.layout()
	return prefix
}

// usesStandard reports whether the configuration resolves to the
// provider's standard store.
func (c Configuration) usesStandard() bool {
	suite, _ := c.group.layout()
	return c.group.legacy || suite == ""
}
