package report_test

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/depcheck/pkg/manifest"
	"github.com/Sumatoshi-tech/depcheck/pkg/reconcile"
	"github.com/Sumatoshi-tech/depcheck/pkg/report"
	"github.com/Sumatoshi-tech/depcheck/pkg/rule"
)

const handlerDir = "app/handlers/x_handler"

func TestMain(m *testing.M) {
	color.NoColor = true //nolint:reassign // deterministic output in tests

	os.Exit(m.Run())
}

func sampleResult() *reconcile.Result {
	handler := manifest.HandlerScope(handlerDir)

	return &reconcile.Result{
		Root: "/repo",
		Scopes: []*reconcile.ScopeResult{
			{
				Scope:     manifest.ScopeMain,
				Root:      ".",
				Manifests: []string{"requirements/requirements.txt", "requirements/requirements-dev.txt"},
				Declared:  3,
				Imported:  5,
				Files:     12,
				Violations: []reconcile.Violation{
					{Rule: rule.UsedNotDeclared, Scope: manifest.ScopeMain, Name: "requests", Kind: reconcile.KindModule, Location: "app/api.py:3"},
					{Rule: rule.DeclaredNotUsed, Scope: manifest.ScopeMain, Name: "flask", Kind: reconcile.KindPackage, Location: "requirements/requirements.txt:2"},
				},
			},
			{
				Scope:     handler,
				Root:      handlerDir,
				Manifests: []string{handlerDir + "/requirements.txt"},
				Declared:  1,
				Imported:  1,
				Files:     2,
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want report.Format
	}{
		{"", report.FormatText},
		{"TEXT", report.FormatText},
		{"table", report.FormatTable},
		{" json ", report.FormatJSON},
		{"yml", report.FormatYAML},
		{"yaml", report.FormatYAML},
	}

	for _, tt := range tests {
		got, err := report.ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := report.ParseFormat("xml")
	require.ErrorIs(t, err, report.ErrUnknownFormat)
}

func TestWriter_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, report.Writer{Format: report.FormatText}.Write(&buf, sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "main (requirements/requirements.txt, requirements/requirements-dev.txt)\n")
	assert.Contains(t, out, "  app/api.py:3: DEP001 'requests' imported but not declared in any manifest of the scope\n")
	assert.Contains(t, out, "  requirements/requirements.txt:2: DEP002 'flask' declared in a manifest but never imported\n")
	assert.NotContains(t, out, "handler:"+handlerDir+" (")
	assert.Contains(t, out, "Found 2 dependency issues in 1 of 2 scopes.\n")
	assert.Contains(t, out, "DEP001=1 DEP002=1")
}

func TestWriter_TextClean(t *testing.T) {
	t.Parallel()

	res := &reconcile.Result{Scopes: []*reconcile.ScopeResult{{Scope: manifest.ScopeMain}}}

	var buf bytes.Buffer
	require.NoError(t, report.Writer{}.Write(&buf, res))

	assert.Equal(t, "No dependency issues found in 1 scope.\n", buf.String())
}

func TestWriter_Table(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, report.Writer{Format: report.FormatTable}.Write(&buf, sampleResult()))

	out := buf.String()
	for _, want := range []string{"SCOPE", "VIOLATIONS", "handler:" + handlerDir, "RULE", "LOCATION", "requests", "app/api.py:3"} {
		assert.Contains(t, out, want)
	}
}

func TestWriter_JSONMatchesSchema(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, report.Writer{Format: report.FormatJSON, Version: "v1.0.0"}.Write(&buf, sampleResult()))

	assert.Contains(t, buf.String(), `"tool": "depcheck"`)
	assert.Contains(t, buf.String(), `"violations": []`)

	problems, err := report.Validate(&buf)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestWriter_YAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, report.Writer{Format: report.FormatYAML, Version: "v1.0.0"}.Write(&buf, sampleResult()))

	var doc struct {
		Clean  bool           `yaml:"clean"`
		Counts map[string]int `yaml:"counts"`
		Scopes []struct {
			Scope string `yaml:"scope"`
		} `yaml:"scopes"`
	}

	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.False(t, doc.Clean)
	assert.Equal(t, map[string]int{"DEP001": 1, "DEP002": 1}, doc.Counts)
	require.Len(t, doc.Scopes, 2)
	assert.Equal(t, "handler:"+handlerDir, doc.Scopes[1].Scope)
}

func TestNewDocument_DoesNotMutateResult(t *testing.T) {
	t.Parallel()

	res := sampleResult()
	doc := report.NewDocument(res, "dev")

	assert.Nil(t, res.Scopes[1].Violations)
	assert.NotNil(t, doc.Scopes[1].Violations)
	assert.True(t, report.NewDocument(&reconcile.Result{}, "dev").Clean)
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	problems, err := report.Validate(strings.NewReader(`{"tool":"depcheck","version":"x","root":"/","clean":true,"counts":{"DEP999":1},"scopes":[]}`))
	require.NoError(t, err)
	require.NotEmpty(t, problems)

	fields := make([]string, 0, len(problems))
	for _, p := range problems {
		fields = append(fields, p.String())
	}

	assert.Contains(t, strings.Join(fields, "\n"), "counts")

	_, err = report.Validate(strings.NewReader("{not json"))
	require.ErrorIs(t, err, report.ErrInvalidJSON)
}

func TestSchema_IsCopy(t *testing.T) {
	t.Parallel()

	s := report.Schema()
	require.NotEmpty(t, s)

	s[0] = 'x'
	assert.Equal(t, byte('{'), report.Schema()[0])
}
