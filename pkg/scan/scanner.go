// Package scan finds the top-level modules a Python source tree imports.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/src-d/enry/v2"
)

// Defaults for Options.
const (
	DefaultMaxFileSize = "1MB"
	DefaultCacheSize   = 4096
)

const (
	enryPython  = "Python"
	extPython   = ".py"
	extStub     = ".pyi"
	initModule  = "__init__.py"
	pycacheDir  = "__pycache__"
	sniffLength = 512
)

// Options configures a Scanner.
type Options struct {
	Logger *slog.Logger
	// MaxFileSize skips files larger than this many bytes. Zero disables the limit.
	MaxFileSize uint64
	// CacheSize bounds the per-file import cache. Zero uses DefaultCacheSize.
	CacheSize int
}

// ParseSize parses a human size such as "1MB" or "512KiB".
func ParseSize(s string) (uint64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", s, err)
	}

	return n, nil
}

// Location is where an import was first seen.
type Location struct {
	File string `json:"file" yaml:"file"`
	Line int    `json:"line" yaml:"line"`
}

// String implements fmt.Stringer.
func (l Location) String() string {
	if l.Line == 0 {
		return l.File
	}

	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Result is the outcome of scanning one tree.
type Result struct {
	// Imports maps each imported top-level module to its first location.
	Imports map[string]Location
	// Local holds top-level modules and packages defined directly in the root.
	Local map[string]struct{}
	// Files is the number of Python files parsed.
	Files int
	// Skipped is the number of Python files skipped (size or parse failure).
	Skipped int
}

// Modules returns the imported module names, sorted.
func (r *Result) Modules() []string {
	out := make([]string, 0, len(r.Imports))
	for m := range r.Imports {
		out = append(out, m)
	}

	sort.Strings(out)

	return out
}

// ExcludeFunc reports whether a root-relative slash path should be skipped.
type ExcludeFunc func(rel string, isDir bool) bool

type cacheKey struct {
	path  string
	size  int64
	mtime int64
}

// Scanner walks source trees. A Scanner may be reused across scans; parsed
// files are cached by path, size and modification time.
type Scanner struct {
	logger      *slog.Logger
	parser      *importParser
	cache       *lru.Cache[cacheKey, []Import]
	maxFileSize uint64
}

// NewScanner creates a Scanner.
func NewScanner(opts Options) (*Scanner, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}

	cache, err := lru.New[cacheKey, []Import](size)
	if err != nil {
		return nil, fmt.Errorf("create import cache: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scanner{
		logger:      logger,
		parser:      newImportParser(),
		cache:       cache,
		maxFileSize: opts.MaxFileSize,
	}, nil
}

// Scan parses every Python file under root that exclude does not reject.
// Locations in the result are relative to root.
func (s *Scanner) Scan(ctx context.Context, root string, exclude ExcludeFunc) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: not a directory", root)
	}

	res := &Result{
		Imports: map[string]Location{},
		Local:   LocalModules(root),
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		ctxErr := ctx.Err()
		if ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return fmt.Errorf("relative path of %s: %w", path, relErr)
		}

		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && skipDir(d.Name(), rel, exclude) {
				return filepath.SkipDir
			}

			return nil
		}

		if exclude != nil && exclude(rel, false) {
			return nil
		}

		if !d.Type().IsRegular() || enry.IsVendor(rel) {
			return nil
		}

		s.scanFile(ctx, path, rel, d, res)

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scan %s: %w", root, walkErr)
	}

	return res, nil
}

func skipDir(name, rel string, exclude ExcludeFunc) bool {
	if strings.HasPrefix(name, ".") || name == pycacheDir {
		return true
	}

	if enry.IsVendor(rel + "/") {
		return true
	}

	return exclude != nil && exclude(rel, true)
}

func (s *Scanner) scanFile(ctx context.Context, path, rel string, d fs.DirEntry, res *Result) {
	info, err := d.Info()
	if err != nil {
		s.logger.Warn("skipping unreadable file", "path", rel, "error", err)

		return
	}

	if !isPython(path, info) {
		return
	}

	if s.maxFileSize > 0 && uint64(info.Size()) > s.maxFileSize {
		s.logger.Warn("skipping large file", "path", rel,
			"size", humanize.IBytes(uint64(info.Size())), "limit", humanize.IBytes(s.maxFileSize))

		res.Skipped++

		return
	}

	imports, err := s.fileImports(ctx, path, info)
	if err != nil {
		s.logger.Warn("skipping unparseable source file", "path", rel, "error", err)

		res.Skipped++

		return
	}

	res.Files++

	for _, imp := range imports {
		if imp.Module == "" {
			continue
		}

		if _, seen := res.Imports[imp.Module]; !seen {
			res.Imports[imp.Module] = Location{File: rel, Line: imp.Line}
		}
	}
}

func (s *Scanner) fileImports(ctx context.Context, path string, info fs.FileInfo) ([]Import, error) {
	key := cacheKey{path: path, size: info.Size(), mtime: info.ModTime().UnixNano()}

	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if enry.IsBinary(content) {
		return nil, fmt.Errorf("%w: binary content", ErrParse)
	}

	imports, err := s.ParseSource(ctx, content)
	if err != nil {
		return nil, err
	}

	s.cache.Add(key, imports)

	return imports, nil
}

// ParseSource returns the imports of a single in-memory Python source.
func (s *Scanner) ParseSource(ctx context.Context, content []byte) ([]Import, error) {
	return s.parser.Parse(ctx, content)
}

// isPython accepts .py/.pyi files and extension-less scripts enry detects as Python.
func isPython(path string, info fs.FileInfo) bool {
	switch filepath.Ext(path) {
	case extPython, extStub:
		return true
	case "":
	default:
		return false
	}

	if info.Size() == 0 {
		return false
	}

	fh, err := os.Open(path)
	if err != nil {
		return false
	}
	defer fh.Close()

	head := make([]byte, sniffLength)

	n, err := fh.Read(head)
	if n == 0 || (err != nil && !errors.Is(err, io.EOF)) {
		return false
	}

	return enry.GetLanguage(filepath.Base(path), head[:n]) == enryPython
}

// LocalModules lists the modules a root defines directly: *.py files and
// packages (directories holding __init__.py). The root itself counts when it
// is a package.
func LocalModules(root string) map[string]struct{} {
	out := map[string]struct{}{}

	entries, err := os.ReadDir(root)
	if err != nil {
		return out
	}

	for _, e := range entries {
		name := e.Name()

		switch {
		case e.IsDir():
			if isPackage(filepath.Join(root, name)) {
				out[name] = struct{}{}
			}
		case filepath.Ext(name) == extPython:
			out[strings.TrimSuffix(name, extPython)] = struct{}{}
		}
	}

	if isPackage(root) {
		abs, absErr := filepath.Abs(root)
		if absErr == nil {
			out[filepath.Base(abs)] = struct{}{}
		}
	}

	return out
}

func isPackage(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, initModule))

	return err == nil
}
