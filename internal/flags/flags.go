// Package flags holds pyedit's feature flags. A Registry is read-only once
// built; unknown and unset flags read as disabled.
package flags

import (
	"maps"
	"slices"

	"github.com/zjrosen/pyedit/internal/log"
)

const (
	// FlagFullRehighlight makes every edit repaint the whole document
	// instead of the affected range plus propagation.
	FlagFullRehighlight = "full-rehighlight"

	// FlagSpanCache memoizes block results by (incoming state, text), so
	// reloads and undo-like edits skip the regex pass for unchanged lines.
	FlagSpanCache = "span-cache"
)

// Known lists every flag pyedit reads, sorted.
func Known() []string {
	return []string{FlagFullRehighlight, FlagSpanCache}
}

// IsKnown reports whether name is one of Known.
func IsKnown(name string) bool {
	return slices.Contains(Known(), name)
}

// Registry holds feature flag state loaded from configuration.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from a config map. The map is copied; nil gives
// an empty registry.
func New(flags map[string]bool) *Registry {
	r := &Registry{flags: make(map[string]bool, len(flags))}
	maps.Copy(r.flags, flags)
	for name := range flags {
		if !IsKnown(name) {
			log.Warn(log.CatConfig, "Unknown feature flag in config", "flag", name)
		}
	}
	log.Debug(log.CatConfig, "Feature flags initialized", "count", len(flags), "flags", r.All())
	return r
}

// Enabled returns true if the named flag is enabled.
// Returns false for unknown flags and on a nil registry.
func (r *Registry) Enabled(name string) bool {
	if r == nil || r.flags == nil {
		return false
	}
	value, exists := r.flags[name]
	if !exists {
		log.Debug(log.CatConfig, "Unknown flag accessed", "flag", name, "result", false)
		return false
	}
	return value
}

// All returns a copy of all flags.
// Returns an empty map if the registry is nil.
func (r *Registry) All() map[string]bool {
	if r == nil || r.flags == nil {
		return make(map[string]bool)
	}
	result := make(map[string]bool, len(r.flags))
	maps.Copy(result, r.flags)
	return result
}
