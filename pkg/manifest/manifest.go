// Package manifest parses Python dependency manifests (requirements files and
// pyproject.toml) into ordered package-name entries.
package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrManifestNotFound is returned when a manifest path does not exist.
var ErrManifestNotFound = errors.New("manifest not found")

// ErrIncludeCycle is returned when -r includes form a cycle.
var ErrIncludeCycle = errors.New("manifest include cycle")

// Scope names the analysis unit a manifest entry belongs to.
type Scope string

// Fixed scopes. Handler scopes are built with HandlerScope.
const (
	ScopeMain     Scope = "main"
	ScopeDev      Scope = "dev"
	ScopeTest     Scope = "test"
	ScopeProtocol Scope = "protocol"
	ScopeDocker   Scope = "docker"
)

const (
	handlerScopePrefix    = "handler:"
	handlerManifestSuffix = "#"
)

// HandlerScope returns the scope of the handler rooted at dir.
func HandlerScope(dir string) Scope {
	return Scope(handlerScopePrefix + filepath.ToSlash(filepath.Clean(dir)))
}

// HandlerManifestScope returns the scope of one of several manifests in the
// handler directory dir, for example "handler:a/x_handler#requirements-extra.txt".
func HandlerManifestScope(dir, manifestName string) Scope {
	return HandlerScope(dir) + Scope(handlerManifestSuffix+manifestName)
}

// IsHandler reports whether the scope belongs to a handler subtree.
func (s Scope) IsHandler() bool {
	return strings.HasPrefix(string(s), handlerScopePrefix)
}

// HandlerDir returns the directory of a handler scope, or "" for fixed scopes.
func (s Scope) HandlerDir() string {
	dir, ok := strings.CutPrefix(string(s), handlerScopePrefix)
	if !ok {
		return ""
	}

	dir, _, _ = strings.Cut(dir, handlerManifestSuffix)

	return dir
}

// String implements fmt.Stringer.
func (s Scope) String() string { return string(s) }

// Entry is a package name as declared in a manifest.
type Entry struct {
	Name  string `json:"name"           yaml:"name"`
	Scope Scope  `json:"scope"          yaml:"scope"`
	Path  string `json:"path"           yaml:"path"`
	Line  int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// Directive is a pip option line such as "-r other.txt" or "--index-url ...".
type Directive struct {
	Option string
	Target string
	Path   string
	Line   int
}

// Pip options that pull in another requirements file.
const (
	optRequirementShort = "-r"
	optRequirementLong  = "--requirement"
)

// IsInclude reports whether the directive includes another requirements file.
func (d Directive) IsInclude() bool {
	return d.Option == optRequirementShort || d.Option == optRequirementLong
}

// UnparseableLine is a non-empty, non-comment line that yielded no package token.
type UnparseableLine struct {
	Path string
	Text string
	Line int
}

// Error implements error.
func (u UnparseableLine) Error() string {
	return fmt.Sprintf("%s:%d: unparseable requirement %q", u.Path, u.Line, u.Text)
}

// File is the parsed content of one manifest.
type File struct {
	Path        string
	Scope       Scope
	Entries     []Entry
	Directives  []Directive
	Unparseable []UnparseableLine
}

// Names returns the package names in file order, duplicates included.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Entries))
	for _, e := range f.Entries {
		names = append(names, e.Name)
	}

	return names
}

// Includes returns the -r directives of the file.
func (f *File) Includes() []Directive {
	var out []Directive

	for _, d := range f.Directives {
		if d.IsInclude() {
			out = append(out, d)
		}
	}

	return out
}

// Names flattens the entries of several files, preserving order.
func Names(files []*File) []string {
	var names []string
	for _, f := range files {
		names = append(names, f.Names()...)
	}

	return names
}

// Entries flattens the entries of several files, preserving order.
func Entries(files []*File) []Entry {
	var entries []Entry
	for _, f := range files {
		entries = append(entries, f.Entries...)
	}

	return entries
}
