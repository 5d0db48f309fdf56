package reconcile

import (
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/Sumatoshi-tech/depcheck/pkg/scan"
)

// ErrInvalidPattern is returned for an exclude pattern that does not compile.
var ErrInvalidPattern = errors.New("invalid exclude pattern")

const patternTimeout = time.Second

// Patterns matches repository-relative slash paths against Python-style
// regular expressions. A path is excluded when any pattern matches anywhere
// in it.
type Patterns struct {
	res []*regexp2.Regexp
}

// CompilePatterns compiles every expression.
func CompilePatterns(exprs []string) (*Patterns, error) {
	p := &Patterns{res: make([]*regexp2.Regexp, 0, len(exprs))}

	for _, expr := range exprs {
		re, err := regexp2.Compile(expr, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, expr, err)
		}

		re.MatchTimeout = patternTimeout
		p.res = append(p.res, re)
	}

	return p, nil
}

// Match reports whether rel is excluded. Patterns that time out do not match.
func (p *Patterns) Match(rel string) bool {
	if p == nil {
		return false
	}

	for _, re := range p.res {
		ok, err := re.MatchString(rel)
		if err == nil && ok {
			return true
		}
	}

	return false
}

// Len returns the number of patterns.
func (p *Patterns) Len() int {
	if p == nil {
		return 0
	}

	return len(p.res)
}

// ExcludeUnder adapts p to a scan rooted at prefix, a repository-relative
// slash path.
func (p *Patterns) ExcludeUnder(prefix string) scan.ExcludeFunc {
	if p.Len() == 0 {
		return nil
	}

	return func(rel string, _ bool) bool {
		return p.Match(path.Join(prefix, rel))
	}
}
