package reconcile

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// DefaultHandlerGlob matches every requirements manifest in the tree.
const DefaultHandlerGlob = "**/requirements*.txt"

// Discovery finds per-handler manifests under a repository root.
type Discovery struct {
	// Glob is a doublestar pattern matched against repository-relative slash paths.
	Glob string
	// SkipDirs are repository-relative directories never descended into.
	SkipDirs []string
	// Known are repository-relative manifests that belong to the main scope.
	Known []string
}

// Find returns the matching manifests as sorted repository-relative slash paths.
func (d Discovery) Find(ctx context.Context, root string) ([]string, error) {
	pattern := d.Glob
	if pattern == "" {
		pattern = DefaultHandlerGlob
	}

	skip := toSet(d.SkipDirs)
	known := toSet(d.Known)

	var found []string

	walkErr := filepath.WalkDir(root, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		ctxErr := ctx.Err()
		if ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return fmt.Errorf("relative path of %s: %w", p, relErr)
		}

		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if rel == "." {
				return nil
			}

			if strings.HasPrefix(entry.Name(), ".") || entry.Name() == "__pycache__" || skip[rel] {
				return filepath.SkipDir
			}

			return nil
		}

		if known[rel] {
			return nil
		}

		ok, matchErr := doublestar.Match(pattern, rel)
		if matchErr != nil {
			return fmt.Errorf("handler manifest glob %q: %w", pattern, matchErr)
		}

		if ok {
			found = append(found, rel)
		}

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("discover handler manifests in %s: %w", root, walkErr)
	}

	sort.Strings(found)

	return found, nil
}

func toSet(paths []string) map[string]bool {
	out := make(map[string]bool, len(paths))

	for _, p := range paths {
		if p == "" {
			continue
		}

		out[path.Clean(filepath.ToSlash(p))] = true
	}

	return out
}
