package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// separators ends a package token: version operators, whitespace, comments,
// extras brackets, PEP 508 markers and direct references.
const separators = "=~><! \t\r\n#[;@,"

const (
	commentPrefix   = "#"
	directivePrefix = "-"
	pyprojectName   = "pyproject.toml"
)

// urlScheme marks a direct URL requirement, which names no package.
const urlScheme = "://"

// Tokenize returns the package token of a single requirement line: the text
// preceding the first separator. It returns "" when the line starts with one
// or is a bare URL such as https://host/pkg.whl.
func Tokenize(line string) string {
	token := line
	if idx := strings.IndexAny(line, separators); idx >= 0 {
		token = line[:idx]
	}

	if strings.Contains(token, urlScheme) {
		return ""
	}

	return token
}

// Parser reads manifests. The zero value logs to slog.Default.
type Parser struct {
	Logger *slog.Logger
}

// NewParser creates a Parser that reports skipped lines to logger.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{Logger: logger}
}

func (p *Parser) logger() *slog.Logger {
	if p == nil || p.Logger == nil {
		return slog.Default()
	}

	return p.Logger
}

// ParseFile parses the manifest at path. A missing file yields
// ErrManifestNotFound. pyproject.toml files are read as PEP 621 projects,
// anything else as a pip requirements file.
func (p *Parser) ParseFile(path string, scope Scope) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}

		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	defer fh.Close()

	if filepath.Base(path) == pyprojectName {
		return p.ParsePyProject(fh, path, scope)
	}

	return p.Parse(fh, path, scope)
}

// Parse reads a pip requirements file from r.
func (p *Parser) Parse(r io.Reader, path string, scope Scope) (*File, error) {
	file := &File{Path: path, Scope: scope}

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		raw := scanner.Text()
		trimmed := strings.TrimSpace(raw)

		if trimmed == "" || strings.HasPrefix(trimmed, commentPrefix) {
			continue
		}

		if strings.HasPrefix(trimmed, directivePrefix) {
			file.Directives = append(file.Directives, parseDirective(trimmed, path, lineNo))

			continue
		}

		name := Tokenize(raw)
		if name == "" {
			bad := UnparseableLine{Path: path, Line: lineNo, Text: raw}
			file.Unparseable = append(file.Unparseable, bad)
			p.logger().Warn("skipping unparseable manifest line",
				"path", path, "line", lineNo, "text", raw)

			continue
		}

		file.Entries = append(file.Entries, Entry{Name: name, Scope: scope, Path: path, Line: lineNo})
	}

	scanErr := scanner.Err()
	if scanErr != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, scanErr)
	}

	return file, nil
}

func parseDirective(line, path string, lineNo int) Directive {
	if idx := strings.Index(line, " "+commentPrefix); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}

	option, target, found := strings.Cut(line, "=")
	if !found || strings.ContainsAny(option, " \t") {
		fields := strings.Fields(line)
		option = fields[0]
		target = strings.Join(fields[1:], " ")
	}

	// "-rother.txt" is valid pip syntax.
	if strings.HasPrefix(option, optRequirementShort) && len(option) > len(optRequirementShort) &&
		!strings.HasPrefix(option, "--") {
		target = option[len(optRequirementShort):]
		option = optRequirementShort
	}

	return Directive{Option: option, Target: strings.TrimSpace(target), Path: path, Line: lineNo}
}

type pyProject struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
}

// ParsePyProject reads [project].dependencies and every optional-dependencies
// group from a pyproject.toml document. Groups are read in name order.
func (p *Parser) ParsePyProject(r io.Reader, path string, scope Scope) (*File, error) {
	var doc pyProject

	decodeErr := toml.NewDecoder(r).Decode(&doc)
	if decodeErr != nil {
		return nil, fmt.Errorf("decode %s: %w", path, decodeErr)
	}

	file := &File{Path: path, Scope: scope}
	file.addRequirements(p.logger(), doc.Project.Dependencies)

	groups := make([]string, 0, len(doc.Project.OptionalDependencies))
	for group := range doc.Project.OptionalDependencies {
		groups = append(groups, group)
	}

	sort.Strings(groups)

	for _, group := range groups {
		file.addRequirements(p.logger(), doc.Project.OptionalDependencies[group])
	}

	return file, nil
}

func (f *File) addRequirements(logger *slog.Logger, reqs []string) {
	for _, req := range reqs {
		name := Tokenize(strings.TrimSpace(req))
		if name == "" {
			f.Unparseable = append(f.Unparseable, UnparseableLine{Path: f.Path, Text: req})
			logger.Warn("skipping unparseable requirement", "path", f.Path, "text", req)

			continue
		}

		f.Entries = append(f.Entries, Entry{Name: name, Scope: f.Scope, Path: f.Path})
	}
}

// Resolve parses the manifest at path and every manifest it pulls in with -r,
// depth first. Include targets are looked up relative to the including file
// and then relative to root. Included entries take the scope of the top file.
func (p *Parser) Resolve(path, root string, scope Scope) ([]*File, error) {
	return p.resolve(path, root, scope, map[string]bool{})
}

func (p *Parser) resolve(path, root string, scope Scope, visiting map[string]bool) ([]*File, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	if visiting[key] {
		return nil, fmt.Errorf("%w: %s", ErrIncludeCycle, path)
	}

	visiting[key] = true
	defer delete(visiting, key)

	file, err := p.ParseFile(path, scope)
	if err != nil {
		return nil, err
	}

	files := []*File{file}

	for _, inc := range file.Includes() {
		target := includeTarget(path, root, inc.Target)

		included, incErr := p.resolve(target, root, scope, visiting)
		if incErr != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, inc.Line, incErr)
		}

		files = append(files, included...)
	}

	return files, nil
}

func includeTarget(from, root, target string) string {
	if filepath.IsAbs(target) {
		return target
	}

	local := filepath.Join(filepath.Dir(from), target)

	_, statErr := os.Stat(local)
	if statErr == nil || root == "" {
		return local
	}

	return filepath.Join(root, target)
}
