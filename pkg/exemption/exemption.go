// Package exemption resolves per-rule exemption lists into module-name sets.
//
// Exemption lists in configuration may name either distributions
// ("psycopg2-binary") or modules ("psycopg2"). Every entry is normalized
// through the package-name map when the set is built, so lookups only ever
// compare module keys.
package exemption

import (
	"sort"

	"github.com/Sumatoshi-tech/depcheck/pkg/namemap"
	"github.com/Sumatoshi-tech/depcheck/pkg/rule"
)

// Normalizer maps declared names to the union of their importable module names.
type Normalizer interface {
	NormalizeAll(names []string) map[string]struct{}
}

type keySet map[string]struct{}

func (k keySet) add(modules map[string]struct{}) {
	for m := range modules {
		k[namemap.ModuleKey(m)] = struct{}{}
	}
}

func (k keySet) has(module string) bool {
	_, ok := k[namemap.ModuleKey(module)]

	return ok
}

// Set is an immutable resolved exemption set for one scope.
type Set struct {
	anyRule keySet
	byRule  map[rule.Rule]keySet
}

// Builder accumulates exemption entries. It is not safe for concurrent use.
type Builder struct {
	normalizer Normalizer
	anyRule    keySet
	byRule     map[rule.Rule]keySet
}

// NewBuilder creates a Builder normalizing entries through normalizer.
// A nil normalizer keeps entries as they are.
func NewBuilder(normalizer Normalizer) *Builder {
	return &Builder{
		normalizer: normalizer,
		anyRule:    keySet{},
		byRule:     map[rule.Rule]keySet{},
	}
}

func (b *Builder) normalize(names []string) map[string]struct{} {
	if b.normalizer != nil {
		return b.normalizer.NormalizeAll(names)
	}

	out := make(map[string]struct{}, len(names))
	for _, name := range names {
		out[name] = struct{}{}
	}

	return out
}

// ExemptAll exempts names from every rule.
func (b *Builder) ExemptAll(names ...string) *Builder {
	b.anyRule.add(b.normalize(names))

	return b
}

// Exempt exempts names from a single rule.
func (b *Builder) Exempt(r rule.Rule, names ...string) *Builder {
	set, ok := b.byRule[r]
	if !ok {
		set = keySet{}
		b.byRule[r] = set
	}

	set.add(b.normalize(names))

	return b
}

// ExemptRules adds a rule-keyed table, the shape configuration uses.
func (b *Builder) ExemptRules(table map[rule.Rule][]string) *Builder {
	for r, names := range table {
		b.Exempt(r, names...)
	}

	return b
}

// Build freezes the accumulated entries. The builder may keep being used;
// later additions do not affect the returned Set.
func (b *Builder) Build() *Set {
	set := &Set{anyRule: keySet{}, byRule: make(map[rule.Rule]keySet, len(b.byRule))}

	for k := range b.anyRule {
		set.anyRule[k] = struct{}{}
	}

	for r, keys := range b.byRule {
		copied := make(keySet, len(keys))
		for k := range keys {
			copied[k] = struct{}{}
		}

		set.byRule[r] = copied
	}

	return set
}

// ExemptsModule reports whether module is exempt from r.
func (s *Set) ExemptsModule(r rule.Rule, module string) bool {
	if s == nil {
		return false
	}

	if s.anyRule.has(module) {
		return true
	}

	return s.byRule[r].has(module)
}

// ExemptsModules reports whether every module in modules is exempt from r.
// It is used for declared packages, which may expose several modules.
func (s *Set) ExemptsModules(r rule.Rule, modules []string) bool {
	if len(modules) == 0 {
		return false
	}

	for _, m := range modules {
		if !s.ExemptsModule(r, m) {
			return false
		}
	}

	return true
}

// Modules returns the sorted module keys exempt from r, including the
// all-rule entries.
func (s *Set) Modules(r rule.Rule) []string {
	if s == nil {
		return nil
	}

	merged := keySet{}

	for k := range s.anyRule {
		merged[k] = struct{}{}
	}

	for k := range s.byRule[r] {
		merged[k] = struct{}{}
	}

	out := make([]string, 0, len(merged))
	for k := range merged {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}
