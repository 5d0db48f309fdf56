// Package rule defines the closed set of violation rule identifiers.
package rule

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRule is returned by Parse for identifiers outside the closed set.
var ErrUnknownRule = errors.New("unknown rule")

// Rule identifies a violation kind.
type Rule string

// Dependency rules. The codes follow the deptry numbering.
const (
	DeclaredNotUsed    Rule = "DEP002"
	UsedNotDeclared    Rule = "DEP001"
	UsedViaTransitive  Rule = "DEP003"
	DeclaredWrongScope Rule = "DEP004"
	DuplicatedInMain   Rule = "REQ001"
	NonRelativeInclude Rule = "REQ002"
)

var names = map[Rule]string{
	DeclaredNotUsed:    "declared-not-used",
	UsedNotDeclared:    "used-not-declared",
	UsedViaTransitive:  "used-indirectly-via-transitive-dependency",
	DeclaredWrongScope: "declared-in-wrong-scope",
	DuplicatedInMain:   "duplicated-in-main",
	NonRelativeInclude: "non-relative-include",
}

var descriptions = map[Rule]string{
	DeclaredNotUsed:    "declared in a manifest but never imported",
	UsedNotDeclared:    "imported but not declared in any manifest of the scope",
	UsedViaTransitive:  "imported but only available as a transitive dependency",
	DeclaredWrongScope: "imported by runtime code but declared only as a development dependency",
	DuplicatedInMain:   "declared in a handler manifest and again in the main manifest",
	NonRelativeInclude: "handler manifest includes another manifest by a repository-root path",
}

// All returns every rule in report order.
func All() []Rule {
	return []Rule{
		UsedNotDeclared,
		DeclaredNotUsed,
		UsedViaTransitive,
		DeclaredWrongScope,
		DuplicatedInMain,
		NonRelativeInclude,
	}
}

// Name returns the human-readable slug of the rule.
func (r Rule) Name() string {
	if n, ok := names[r]; ok {
		return n
	}

	return string(r)
}

// Description returns a one-line explanation of the rule.
func (r Rule) Description() string {
	return descriptions[r]
}

// String implements fmt.Stringer.
func (r Rule) String() string { return string(r) }

// Parse accepts either a code ("DEP002") or a slug ("declared-not-used").
func Parse(s string) (Rule, error) {
	s = strings.TrimSpace(s)

	for _, r := range All() {
		if strings.EqualFold(s, string(r)) || strings.EqualFold(s, r.Name()) {
			return r, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownRule, s)
}
