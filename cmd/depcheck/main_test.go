package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/depcheck/pkg/report"
)

const repoConfig = `manifests:
  main: [requirements/requirements.txt]
  dev: [requirements/requirements-dev.txt]
  test: []
  protocol: []
  docker: []
main:
  exclude_paths: ["app/handlers/.*_handler"]
checks:
  root_anchored_prefixes: ["app/"]
`

// Tests in this package run serially: each run initializes the global
// OpenTelemetry providers and the color setting.

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()

	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}

	return root
}

func cleanRepo(t *testing.T) string {
	t.Helper()

	return writeRepo(t, map[string]string{
		".depcheck.yaml":                           repoConfig,
		"requirements/requirements.txt":            "requests==2.31.0\n",
		"requirements/requirements-dev.txt":        "pytest\n",
		"app/api.py":                               "import os\nimport requests\n",
		"app/handlers/x_handler/requirements.txt":  "pymongo\n",
		"app/handlers/x_handler/x.py":              "import pymongo\nimport bson\nimport openai\n",
		"app/handlers/x_handler/tests/test_x.py":   "import tests\nimport unittest\n",
		"app/handlers/x_handler/__init__.py":       "",
		"app/handlers/x_handler/tests/__init__.py": "",
	})
}

func TestRun_Clean(t *testing.T) {
	root := cleanRepo(t)

	var stdout, stderr bytes.Buffer

	code := run([]string{"check", "--no-color", "--quiet", root}, &stdout, &stderr)

	assert.Equal(t, exitClean, code, stderr.String())
	assert.Contains(t, stdout.String(), "No dependency issues found in 2 scopes.")
}

func TestRun_ViolationsExitOne(t *testing.T) {
	root := cleanRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "cli.py"), []byte("import yaml\n"), 0o600))

	var stdout, stderr bytes.Buffer

	code := run([]string{"check", "--no-color", "--quiet", root}, &stdout, &stderr)

	assert.Equal(t, exitViolations, code)
	assert.Contains(t, stdout.String(), "app/cli.py:1: DEP001 'yaml'")
	assert.NotContains(t, stderr.String(), "Error:")
}

func TestRun_JSONReportValidates(t *testing.T) {
	root := cleanRepo(t)
	out := filepath.Join(t.TempDir(), "report.json")
	metrics := filepath.Join(t.TempDir(), "depcheck.prom")

	var stdout, stderr bytes.Buffer

	code := run([]string{
		"check", "--quiet", "--format", "json", "--output", out, "--metrics-file", metrics, root,
	}, &stdout, &stderr)
	require.Equal(t, exitClean, code, stderr.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var doc report.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.True(t, doc.Clean)
	require.Len(t, doc.Scopes, 2)

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "depcheck_scopes_checked")

	stdout.Reset()

	code = run([]string{"validate", "--no-color", out}, &stdout, &stderr)
	assert.Equal(t, exitClean, code)
	assert.Contains(t, stdout.String(), "Report is valid")
}

func TestRun_ValidateRejectsInvalidReport(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"tool":"other"}`), 0o600))

	var stdout, stderr bytes.Buffer

	code := run([]string{"validate", "--no-color", bad}, &stdout, &stderr)

	assert.Equal(t, exitViolations, code)
	assert.Contains(t, stdout.String(), "Report validation failed")
}

func TestRun_FatalErrorsExitTwo(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing manifest", []string{"check", "--quiet", t.TempDir()}},
		{"bad format", []string{"check", "--format", "xml", t.TempDir()}},
		{"bad selection", []string{"check", "--only", "everything", t.TempDir()}},
		{"missing report", []string{"validate", filepath.Join(t.TempDir(), "nope.json")}},
		{"unknown command", []string{"frobnicate"}},
	}

	for _, tt := range tests {
		var stdout, stderr bytes.Buffer

		code := run(tt.args, &stdout, &stderr)

		assert.Equal(t, exitFailure, code, tt.name)
		assert.True(t, strings.HasPrefix(stderr.String(), "Error: "), tt.name)
	}
}

func TestRun_ManifestFlagOverridesConfig(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"deps.txt": "requests\n",
		"main.py":  "import requests\n",
	})

	var stdout, stderr bytes.Buffer

	code := run([]string{
		"check", "--no-color", "--quiet", "--only", "main",
		"--main-manifest", "deps.txt",
		"--dev-manifest", "", "--test-manifest", "", "--protocol-manifest", "", "--docker-manifest", "",
		root,
	}, &stdout, &stderr)

	assert.Equal(t, exitClean, code, stderr.String())
}

func TestRun_Suggest(t *testing.T) {
	root := cleanRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "cli.py"), []byte("import yaml\n"), 0o600))

	var stdout, stderr bytes.Buffer

	code := run([]string{"check", "--no-color", "--quiet", "--suggest", root}, &stdout, &stderr)

	assert.Equal(t, exitViolations, code)
	assert.Contains(t, stdout.String(), "+++ b/requirements/requirements.txt\n")
	assert.Contains(t, stdout.String(), "+yaml\n")
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"version"}, &stdout, &stderr)

	assert.Equal(t, exitClean, code)
	assert.True(t, strings.HasPrefix(stdout.String(), "depcheck "))
}
