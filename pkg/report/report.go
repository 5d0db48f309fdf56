// Package report renders reconciliation results as text, tables, JSON or
// YAML, validates stored JSON reports and suggests manifest fixes.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/depcheck/pkg/reconcile"
	"github.com/Sumatoshi-tech/depcheck/pkg/rule"
)

// Format names an output format.
type Format string

// Supported output formats.
const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ErrUnknownFormat is returned for format names outside Formats.
var ErrUnknownFormat = errors.New("unknown report format")

const (
	toolName   = "depcheck"
	yamlIndent = 2
)

// Formats returns every supported format name.
func Formats() []string {
	return []string{string(FormatText), string(FormatTable), string(FormatJSON), string(FormatYAML)}
}

// ParseFormat resolves a format name case-insensitively. Empty means text.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatText:
		return FormatText, nil
	case FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	}

	return "", fmt.Errorf("%w %q (want one of %s)", ErrUnknownFormat, name, strings.Join(Formats(), ", "))
}

// Document is the machine-readable report shared by the JSON and YAML formats.
type Document struct {
	Tool    string                   `json:"tool"    yaml:"tool"`
	Version string                   `json:"version" yaml:"version"`
	Root    string                   `json:"root"    yaml:"root"`
	Clean   bool                     `json:"clean"   yaml:"clean"`
	Counts  map[string]int           `json:"counts"  yaml:"counts"`
	Scopes  []*reconcile.ScopeResult `json:"scopes"  yaml:"scopes"`
}

// NewDocument builds the report document for res.
func NewDocument(res *reconcile.Result, version string) Document {
	counts := make(map[string]int, len(rule.All()))
	for r, n := range res.Counts() {
		counts[string(r)] = n
	}

	// Empty slices encode as [] so the document matches its schema.
	scopes := make([]*reconcile.ScopeResult, 0, len(res.Scopes))

	for _, s := range res.Scopes {
		sc := *s
		if sc.Violations == nil {
			sc.Violations = []reconcile.Violation{}
		}

		if sc.Manifests == nil {
			sc.Manifests = []string{}
		}

		scopes = append(scopes, &sc)
	}

	return Document{
		Tool:    toolName,
		Version: version,
		Root:    res.Root,
		Clean:   res.Clean(),
		Counts:  counts,
		Scopes:  scopes,
	}
}

// Writer renders results in one format.
type Writer struct {
	Format  Format
	Version string
}

// Write renders res to w.
func (rw Writer) Write(w io.Writer, res *reconcile.Result) error {
	switch rw.Format {
	case "", FormatText:
		return writeText(w, res)
	case FormatTable:
		return writeTable(w, res)
	case FormatJSON:
		return writeJSON(w, NewDocument(res, rw.Version))
	case FormatYAML:
		return writeYAML(w, NewDocument(res, rw.Version))
	}

	return fmt.Errorf("%w %q", ErrUnknownFormat, rw.Format)
}

func writeJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}

	return nil
}

func writeYAML(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(yamlIndent)

	err := enc.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}

	closeErr := enc.Close()
	if closeErr != nil {
		return fmt.Errorf("flush yaml report: %w", closeErr)
	}

	return nil
}

// sortedRules returns the rules present in counts in report order.
func sortedRules(counts map[rule.Rule]int) []rule.Rule {
	out := make([]rule.Rule, 0, len(counts))

	for r := range counts {
		out = append(out, r)
	}

	order := map[rule.Rule]int{}
	for i, r := range rule.All() {
		order[r] = i
	}

	sort.Slice(out, func(i, j int) bool { return order[out[i]] < order[out[j]] })

	return out
}
