package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/Sumatoshi-tech/depcheck/pkg/reconcile"
	"github.com/Sumatoshi-tech/depcheck/pkg/rule"
)

var (
	ruleColors = map[rule.Rule]*color.Color{
		rule.UsedNotDeclared:    color.New(color.FgRed, color.Bold),
		rule.DeclaredNotUsed:    color.New(color.FgYellow, color.Bold),
		rule.UsedViaTransitive:  color.New(color.FgMagenta, color.Bold),
		rule.DeclaredWrongScope: color.New(color.FgCyan, color.Bold),
		rule.DuplicatedInMain:   color.New(color.FgYellow),
		rule.NonRelativeInclude: color.New(color.FgYellow),
	}
	scopeColor = color.New(color.Bold)
	okColor    = color.New(color.FgGreen)
	failColor  = color.New(color.FgRed)
	faintColor = color.New(color.Faint)
)

func ruleColor(r rule.Rule) *color.Color {
	if c, ok := ruleColors[r]; ok {
		return c
	}

	return color.New(color.Reset)
}

// writeText prints violations grouped by scope, then a one-line verdict.
func writeText(w io.Writer, res *reconcile.Result) error {
	dirty := 0

	for _, s := range res.Scopes {
		if s.Clean() {
			continue
		}

		dirty++

		scopeColor.Fprintf(w, "%s", s.Scope)
		faintColor.Fprintf(w, " (%s)\n", strings.Join(s.Manifests, ", "))

		for _, v := range s.Violations {
			writeViolation(w, v)
		}

		fmt.Fprintln(w)
	}

	total := len(res.Violations())
	if total == 0 {
		okColor.Fprintf(w, "No dependency issues found in %d %s.\n", len(res.Scopes), plural(len(res.Scopes), "scope", "scopes"))

		return nil
	}

	failColor.Fprintf(w, "Found %d dependency %s in %d of %d %s.\n",
		total, plural(total, "issue", "issues"), dirty, len(res.Scopes), plural(len(res.Scopes), "scope", "scopes"))

	counts := res.Counts()
	parts := make([]string, 0, len(counts))

	for _, r := range sortedRules(counts) {
		parts = append(parts, fmt.Sprintf("%s=%d", r, counts[r]))
	}

	faintColor.Fprintf(w, "  %s\n", strings.Join(parts, " "))

	return nil
}

func writeViolation(w io.Writer, v reconcile.Violation) {
	loc := v.Location
	if loc == "" {
		loc = "-"
	}

	fmt.Fprintf(w, "  %s: ", loc)
	ruleColor(v.Rule).Fprint(w, string(v.Rule))
	fmt.Fprintf(w, " '%s' %s\n", v.Name, v.Rule.Description())
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}

	return many
}
