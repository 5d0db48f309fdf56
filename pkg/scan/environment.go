package scan

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/depcheck/pkg/namemap"
)

// Installed distribution metadata layout.
const (
	distInfoSuffix = ".dist-info"
	eggInfoSuffix  = ".egg-info"
	topLevelFile   = "top_level.txt"
	recordFile     = "RECORD"
	metadataFile   = "METADATA"
	pkgInfoFile    = "PKG-INFO"
	metadataName   = "Name:"
)

// Environment knows which installed distribution provides which module.
// It tells a transitive dependency (installed, not declared) apart from a
// missing one.
type Environment struct {
	providers map[string]string
}

// NewEnvironment builds an Environment from an explicit module → distribution table.
func NewEnvironment(providers map[string]string) *Environment {
	env := &Environment{providers: make(map[string]string, len(providers))}
	for module, dist := range providers {
		env.providers[namemap.ModuleKey(module)] = dist
	}

	return env
}

// LoadEnvironment reads *.dist-info and *.egg-info directories from each
// site-packages directory. Missing directories are an error.
func LoadEnvironment(sitePackages ...string) (*Environment, error) {
	env := &Environment{providers: map[string]string{}}

	for _, dir := range sitePackages {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read site-packages %s: %w", dir, err)
		}

		for _, e := range entries {
			name := e.Name()
			if !e.IsDir() || (!strings.HasSuffix(name, distInfoSuffix) && !strings.HasSuffix(name, eggInfoSuffix)) {
				continue
			}

			infoDir := filepath.Join(dir, name)
			dist := distributionName(infoDir, name)

			for _, module := range providedModules(infoDir) {
				key := namemap.ModuleKey(module)
				if _, taken := env.providers[key]; !taken {
					env.providers[key] = dist
				}
			}
		}
	}

	return env, nil
}

// Provider returns the distribution that provides module.
func (e *Environment) Provider(module string) (string, bool) {
	if e == nil {
		return "", false
	}

	dist, ok := e.providers[namemap.ModuleKey(module)]

	return dist, ok
}

// Len returns the number of known modules.
func (e *Environment) Len() int {
	if e == nil {
		return 0
	}

	return len(e.providers)
}

func distributionName(infoDir, dirName string) string {
	for _, meta := range []string{metadataFile, pkgInfoFile} {
		name, err := readMetadataName(filepath.Join(infoDir, meta))
		if err == nil && name != "" {
			return name
		}
	}

	base := strings.TrimSuffix(strings.TrimSuffix(dirName, distInfoSuffix), eggInfoSuffix)
	name, _, _ := strings.Cut(base, "-")

	return name
}

func readMetadataName(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fh.Close()

	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			break
		}

		if value, ok := strings.CutPrefix(line, metadataName); ok {
			return strings.TrimSpace(value), nil
		}
	}

	return "", sc.Err()
}

// providedModules prefers top_level.txt and falls back to the first path
// segment of every RECORD entry.
func providedModules(infoDir string) []string {
	lines, err := readLines(filepath.Join(infoDir, topLevelFile))
	if err == nil && len(lines) > 0 {
		return lines
	}

	records, err := readLines(filepath.Join(infoDir, recordFile))
	if err != nil {
		return nil
	}

	seen := map[string]bool{}

	var out []string

	for _, rec := range records {
		path, _, _ := strings.Cut(rec, ",")
		top, _, _ := strings.Cut(path, "/")

		if top == "" || top == ".." || top == pycacheDir ||
			strings.HasSuffix(top, distInfoSuffix) || strings.HasSuffix(top, eggInfoSuffix) {
			continue
		}

		top = strings.TrimSuffix(top, extPython)
		if strings.ContainsAny(top, ".-") || seen[top] {
			continue
		}

		seen[top] = true
		out = append(out, top)
	}

	return out
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}

		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var out []string

	for line := range strings.SplitSeq(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}

	return out, nil
}
