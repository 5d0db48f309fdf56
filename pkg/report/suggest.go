package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/depcheck/pkg/reconcile"
	"github.com/Sumatoshi-tech/depcheck/pkg/rule"
)

// Suggestion is a proposed rewrite of one manifest.
type Suggestion struct {
	Path     string
	Original string
	Proposed string
}

// Diff renders the suggestion as a unified-style line diff.
func (s Suggestion) Diff() string {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToChars(s.Original, s.Proposed)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(src, dst, false), lines)

	var b strings.Builder

	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", s.Path, s.Path)

	for _, d := range diffs {
		prefix := " "

		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffEqual:
		}

		for _, line := range splitLines(d.Text) {
			b.WriteString(prefix)
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// manifestEdit collects the changes proposed for one manifest file.
type manifestEdit struct {
	remove map[int]bool
	add    []string
}

// Suggest proposes manifest edits that would clear the package-level
// violations of res: declared-but-unused entries are removed and modules
// imported without a declaration are appended to the scope's first manifest.
// Paths in res are resolved against root.
func Suggest(root string, res *reconcile.Result) ([]Suggestion, error) {
	edits := map[string]*manifestEdit{}

	edit := func(p string) *manifestEdit {
		e, ok := edits[p]
		if !ok {
			e = &manifestEdit{remove: map[int]bool{}}
			edits[p] = e
		}

		return e
	}

	for _, s := range res.Scopes {
		seen := map[string]bool{}

		for _, v := range s.Violations {
			switch v.Rule {
			case rule.DeclaredNotUsed:
				p, line, ok := splitLocation(v.Location)
				if ok && line > 0 {
					edit(p).remove[line] = true
				}
			case rule.UsedNotDeclared, rule.UsedViaTransitive, rule.DeclaredWrongScope:
				if len(s.Manifests) == 0 || seen[v.Name] {
					continue
				}

				seen[v.Name] = true
				e := edit(s.Manifests[0])
				e.add = append(e.add, v.Name)
			case rule.DuplicatedInMain, rule.NonRelativeInclude:
			}
		}
	}

	paths := make([]string, 0, len(edits))
	for p := range edits {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	out := make([]Suggestion, 0, len(paths))

	for _, p := range paths {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(p)))
		if err != nil {
			return nil, fmt.Errorf("read manifest for suggestion: %w", err)
		}

		original := string(data)
		out = append(out, Suggestion{Path: p, Original: original, Proposed: edits[p].apply(original)})
	}

	return out, nil
}

func (e *manifestEdit) apply(content string) string {
	lines := splitLines(content)
	kept := make([]string, 0, len(lines)+len(e.add))

	for i, line := range lines {
		if !e.remove[i+1] {
			kept = append(kept, line)
		}
	}

	added := append([]string(nil), e.add...)
	sort.Strings(added)

	kept = append(kept, added...)
	if len(kept) == 0 {
		return ""
	}

	return strings.Join(kept, "\n") + "\n"
}

// splitLocation parses "path:line". A location without a line yields line 0.
func splitLocation(loc string) (string, int, bool) {
	if loc == "" {
		return "", 0, false
	}

	idx := strings.LastIndexByte(loc, ':')
	if idx < 0 {
		return loc, 0, true
	}

	line, err := strconv.Atoi(loc[idx+1:])
	if err != nil {
		return loc, 0, true
	}

	return loc[:idx], line, true
}

// splitLines splits text into lines without their terminators.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}

	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
