// Package namemap maps published Python distribution names to the top-level
// module names they make importable.
package namemap

import (
	"regexp"
	"strings"
)

// canonicalSeparators matches runs of the characters PEP 503 treats as equal.
var canonicalSeparators = regexp.MustCompile(`[-_.]+`)

// Canonical returns the PEP 503 normalized form of a distribution name.
func Canonical(name string) string {
	return strings.ToLower(canonicalSeparators.ReplaceAllString(name, "-"))
}

// Map is an immutable package-name to module-names table.
type Map struct {
	entries map[string][]string
}

// New builds a Map from table. Keys are canonicalized; module lists are
// copied and kept in the given order.
func New(table map[string][]string) *Map {
	entries := make(map[string][]string, len(table))

	for pkg, modules := range table {
		entries[Canonical(pkg)] = append([]string(nil), modules...)
	}

	return &Map{entries: entries}
}

// Merge returns a new Map where overrides replace base entries key by key.
func Merge(base, overrides map[string][]string) *Map {
	merged := make(map[string][]string, len(base)+len(overrides))

	for pkg, modules := range base {
		merged[Canonical(pkg)] = modules
	}

	for pkg, modules := range overrides {
		merged[Canonical(pkg)] = modules
	}

	return New(merged)
}

// Normalize returns the module names a declared package is importable as.
// A mapped package returns exactly its mapped set; anything else returns
// the name itself.
func (m *Map) Normalize(name string) []string {
	if m != nil {
		if modules, ok := m.entries[Canonical(name)]; ok {
			return append([]string(nil), modules...)
		}
	}

	return []string{name}
}

// NormalizeAll returns the union of Normalize over names.
func (m *Map) NormalizeAll(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))

	for _, name := range names {
		for _, module := range m.Normalize(name) {
			out[module] = struct{}{}
		}
	}

	return out
}

// Len returns the number of mapped packages.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}

	return len(m.entries)
}

// ModuleKey folds a module name for case- and separator-insensitive matching.
func ModuleKey(module string) string {
	return strings.ToLower(strings.ReplaceAll(module, "-", "_"))
}
