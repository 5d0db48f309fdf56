package codestyle_test

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode"
)

// projectRoot returns the repository root by walking up to go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	for {
		_, statErr := os.Stat(filepath.Join(dir, "go.mod"))
		if statErr == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (no go.mod found)")
		}

		dir = parent
	}
}

// skipDir reports directories the Go tool ignores or that hold foreign code.
func skipDir(name string) bool {
	if strings.HasPrefix(name, "_") || (strings.HasPrefix(name, ".") && name != ".") {
		return true
	}

	switch name {
	case "vendor", "testdata", "node_modules":
		return true
	default:
		return false
	}
}

// walkGoSources calls fn for every non-test Go file below root.
func walkGoSources(t *testing.T, root string, fn func(rel string, f *ast.File)) {
	t.Helper()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}

			return nil
		}

		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		parsed, parseErr := parser.ParseFile(token.NewFileSet(), path, nil, parser.SkipObjectResolution)
		if parseErr != nil {
			return fmt.Errorf("parse %s: %w", path, parseErr)
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return fmt.Errorf("relative path for %s: %w", path, relErr)
		}

		fn(filepath.ToSlash(rel), parsed)

		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
}

func report(t *testing.T, what string, violations []string) {
	t.Helper()

	if len(violations) > 0 {
		t.Errorf("found %d %s:\n\n%s", len(violations), what, strings.Join(violations, "\n\n"))
	}
}

// bannedFilenames maps grab-bag file names to the reason they are rejected.
var bannedFilenames = map[string]string{
	"types.go":     "types belong next to the code that uses them",
	"utils.go":     "each function belongs in the file that owns its domain",
	"helpers.go":   "each function belongs in the file that owns its domain",
	"common.go":    "if everything is common, nothing is",
	"constants.go": "constants live next to the code that uses them",
	"errors.go":    "sentinel errors live next to the functions that return them",
}

func TestNoBannedFilenames(t *testing.T) {
	t.Parallel()

	var violations []string

	walkGoSources(t, projectRoot(t), func(rel string, _ *ast.File) {
		if reason, banned := bannedFilenames[filepath.Base(rel)]; banned {
			violations = append(violations, fmt.Sprintf("VIOLATION: %s\n  Reason: %s", rel, reason))
		}
	})

	report(t, "banned filename(s)", violations)
}

const maxInterfaceMethods = 5

func TestNoFatInterfaces(t *testing.T) {
	t.Parallel()

	var violations []string

	walkGoSources(t, projectRoot(t), func(rel string, f *ast.File) {
		ast.Inspect(f, func(n ast.Node) bool {
			spec, ok := n.(*ast.TypeSpec)
			if !ok {
				return true
			}

			iface, ok := spec.Type.(*ast.InterfaceType)
			if !ok {
				return true
			}

			methods := 0

			for _, m := range iface.Methods.List {
				if _, isFunc := m.Type.(*ast.FuncType); isFunc {
					methods++
				}
			}

			if methods > maxInterfaceMethods {
				violations = append(violations, fmt.Sprintf(
					"VIOLATION: interface %q in %s has %d methods (max %d)",
					spec.Name.Name, rel, methods, maxInterfaceMethods))
			}

			return true
		})
	})

	report(t, "fat interface(s)", violations)
}

func TestNoGrabBagPackages(t *testing.T) {
	t.Parallel()

	banned := map[string]bool{"util": true, "utils": true, "misc": true, "shared": true, "base": true, "generic": true}

	var violations []string

	walkGoSources(t, projectRoot(t), func(rel string, f *ast.File) {
		if banned[f.Name.Name] {
			violations = append(violations, fmt.Sprintf("VIOLATION: package %q at %s", f.Name.Name, filepath.Dir(rel)))
		}
	})

	report(t, "grab-bag package(s)", violations)
}

// stutters reports whether exportedName repeats pkgName at a word boundary,
// returning the name without the prefix.
func stutters(pkgName, exportedName string) (string, bool) {
	titled := strings.ToUpper(pkgName[:1]) + pkgName[1:]

	rest, ok := strings.CutPrefix(exportedName, titled)
	if !ok || rest == "" {
		return "", false
	}

	first := rune(rest[0])
	if !unicode.IsUpper(first) && !unicode.IsDigit(first) {
		return "", false
	}

	return rest, true
}

func TestStutters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pkg, name string
		want      bool
	}{
		{"config", "ConfigLoader", true},
		{"config", "Config", false},
		{"scan", "Scanner", false},
		{"report", "Writer", false},
		{"checker", "Checker2", true},
	}

	for _, tt := range tests {
		_, got := stutters(tt.pkg, tt.name)
		if got != tt.want {
			t.Errorf("stutters(%q, %q) = %v, want %v", tt.pkg, tt.name, got, tt.want)
		}
	}
}

func TestNoStutteringExports(t *testing.T) {
	t.Parallel()

	var violations []string

	walkGoSources(t, projectRoot(t), func(rel string, f *ast.File) {
		for _, decl := range f.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.TYPE {
				continue
			}

			for _, spec := range gen.Specs {
				name := spec.(*ast.TypeSpec).Name.Name
				if !ast.IsExported(name) {
					continue
				}

				if trimmed, isStutter := stutters(f.Name.Name, name); isStutter {
					violations = append(violations, fmt.Sprintf(
						"VIOLATION: type %s.%s in %s stutters; rename to %q",
						f.Name.Name, name, rel, trimmed))
				}
			}
		}
	})

	report(t, "stuttering export(s)", violations)
}

// TestExitOnlyInMain keeps process exits in package main so library code
// always returns errors.
func TestExitOnlyInMain(t *testing.T) {
	t.Parallel()

	var violations []string

	walkGoSources(t, projectRoot(t), func(rel string, f *ast.File) {
		if f.Name.Name == "main" {
			return
		}

		ast.Inspect(f, func(n ast.Node) bool {
			sel, ok := n.(*ast.SelectorExpr)
			if !ok {
				return true
			}

			pkg, ok := sel.X.(*ast.Ident)
			if ok && pkg.Name == "os" && sel.Sel.Name == "Exit" {
				violations = append(violations, "VIOLATION: os.Exit in "+rel)
			}

			return true
		})
	})

	report(t, "os.Exit call(s) outside package main", violations)
}
