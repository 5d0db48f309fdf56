// Package reconcile compares declared Python dependencies with the modules a
// source tree imports and reports the differences as rule violations.
package reconcile

import (
	"sort"

	"github.com/Sumatoshi-tech/depcheck/pkg/manifest"
	"github.com/Sumatoshi-tech/depcheck/pkg/rule"
)

// Kind says what a violation's Name refers to.
type Kind string

// Violation name kinds.
const (
	KindPackage Kind = "package"
	KindModule  Kind = "module"
	KindInclude Kind = "include"
)

// Violation is one non-exempted inconsistency.
type Violation struct {
	Rule     rule.Rule      `json:"rule"     yaml:"rule"`
	Scope    manifest.Scope `json:"scope"    yaml:"scope"`
	Name     string         `json:"name"     yaml:"name"`
	Kind     Kind           `json:"kind"     yaml:"kind"`
	Location string         `json:"location" yaml:"location"`
}

// ScopeResult is the outcome of reconciling one scope.
type ScopeResult struct {
	Scope       manifest.Scope `json:"scope"       yaml:"scope"`
	Root        string         `json:"root"        yaml:"root"`
	Manifests   []string       `json:"manifests"   yaml:"manifests"`
	Declared    int            `json:"declared"    yaml:"declared"`
	Imported    int            `json:"imported"    yaml:"imported"`
	Files       int            `json:"files"       yaml:"files"`
	Skipped     int            `json:"skipped"     yaml:"skipped"`
	Unparseable int            `json:"unparseable" yaml:"unparseable"`
	Violations  []Violation    `json:"violations"  yaml:"violations"`
}

// Clean reports whether the scope produced no violations.
func (s *ScopeResult) Clean() bool {
	return len(s.Violations) == 0
}

func (s *ScopeResult) add(r rule.Rule, name string, kind Kind, location string) {
	s.Violations = append(s.Violations, Violation{
		Rule:     r,
		Scope:    s.Scope,
		Name:     name,
		Kind:     kind,
		Location: location,
	})
}

func (s *ScopeResult) sortViolations() {
	sort.SliceStable(s.Violations, func(i, j int) bool {
		a, b := s.Violations[i], s.Violations[j]
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}

		return a.Name < b.Name
	})
}

// Result aggregates every scope of one run.
type Result struct {
	Root   string         `json:"root"   yaml:"root"`
	Scopes []*ScopeResult `json:"scopes" yaml:"scopes"`
}

// Clean is the logical AND of every scope's verdict.
func (r *Result) Clean() bool {
	for _, s := range r.Scopes {
		if !s.Clean() {
			return false
		}
	}

	return true
}

// Violations returns every violation in scope order.
func (r *Result) Violations() []Violation {
	var out []Violation

	for _, s := range r.Scopes {
		out = append(out, s.Violations...)
	}

	return out
}

// Counts returns the number of violations per rule.
func (r *Result) Counts() map[rule.Rule]int {
	out := map[rule.Rule]int{}

	for _, v := range r.Violations() {
		out[v.Rule]++
	}

	return out
}

// Scope returns the result for scope, or nil.
func (r *Result) Scope(scope manifest.Scope) *ScopeResult {
	for _, s := range r.Scopes {
		if s.Scope == scope {
			return s
		}
	}

	return nil
}
