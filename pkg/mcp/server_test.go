package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	"github.com/Sumatoshi-tech/depcheck/pkg/mcp"
	"github.com/Sumatoshi-tech/depcheck/pkg/observability"
	"github.com/Sumatoshi-tech/depcheck/pkg/report"
)

func TestMain(m *testing.M) {
	// regexp2 keeps one process-wide clock goroutine once a pattern has a
	// match timeout.
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("github.com/dlclark/regexp2.runClock"))
}

// startSession runs srv on an in-memory transport and returns a connected
// client session. The server is stopped when the test ends.
func startSession(t *testing.T, srv *mcp.Server) (context.Context, *mcpsdk.ClientSession) {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return ctx, session
}

func writeRepo(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	files := map[string]string{
		"requirements.txt": "requests\nflask\n",
		"app/api.py":       "import requests\nimport yaml\n",
		".depcheck.yaml":   "manifests:\n  main: [requirements.txt]\n  dev: []\n  test: []\n  protocol: []\n  docker: []\n",
	}

	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}

	return root
}

func TestNewServer_ListToolNames(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{Logger: observability.DiscardLogger()})

	assert.Equal(t, []string{mcp.ToolNameCheck}, srv.ListToolNames())
}

func TestMCPServer_InMemoryTransport_ToolsList(t *testing.T) {
	t.Parallel()

	ctx, session := startSession(t, mcp.NewServer(mcp.ServerDeps{Logger: observability.DiscardLogger()}))

	toolsResult, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, toolsResult.Tools, 1)

	tool := toolsResult.Tools[0]
	assert.Equal(t, mcp.ToolNameCheck, tool.Name)
	assert.NotNil(t, tool.InputSchema)
}

func TestMCPServer_InMemoryTransport_CallCheck(t *testing.T) {
	t.Parallel()

	root := writeRepo(t)
	ctx, session := startSession(t, mcp.NewServer(mcp.ServerDeps{Logger: observability.DiscardLogger()}))

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameCheck,
		Arguments: map[string]any{"repo_path": root, "only": "main"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	var doc report.Document
	require.NoError(t, json.Unmarshal([]byte(text.Text), &doc))

	assert.False(t, doc.Clean)
	assert.Equal(t, map[string]int{"DEP001": 1, "DEP002": 1}, doc.Counts)
}

func TestMCPServer_InMemoryTransport_CallCheck_Errors(t *testing.T) {
	t.Parallel()

	ctx, session := startSession(t, mcp.NewServer(mcp.ServerDeps{Logger: observability.DiscardLogger()}))

	tests := []struct {
		name string
		args map[string]any
	}{
		{"empty path", map[string]any{"repo_path": ""}},
		{"relative path", map[string]any{"repo_path": "some/repo"}},
		{"missing path", map[string]any{"repo_path": filepath.Join(t.TempDir(), "missing")}},
		{"bad selection", map[string]any{"repo_path": t.TempDir(), "only": "everything"}},
		{"missing manifest", map[string]any{"repo_path": t.TempDir()}},
	}

	for _, tt := range tests {
		result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: mcp.ToolNameCheck, Arguments: tt.args})
		require.NoError(t, err, tt.name)
		assert.True(t, result.IsError, tt.name)
	}
}

func TestMCPServer_InMemoryTransport_CallCheck_ClassifiesSpanErrors(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	srv := mcp.NewServer(mcp.ServerDeps{
		Logger: observability.DiscardLogger(),
		Tracer: tp.Tracer("depcheck-test"),
	})
	ctx, session := startSession(t, srv)

	badConfig := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(badConfig, []byte("scan:\n  cache_size: -1\n"), 0o600))

	tests := []struct {
		name   string
		args   map[string]any
		source string
	}{
		{"relative path", map[string]any{"repo_path": "some/repo"}, observability.ErrSourceClient},
		{"invalid config", map[string]any{"repo_path": t.TempDir(), "config_path": badConfig}, observability.ErrSourceConfig},
	}

	for _, tt := range tests {
		exporter.Reset()

		result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: mcp.ToolNameCheck, Arguments: tt.args})
		require.NoError(t, err, tt.name)
		require.True(t, result.IsError, tt.name)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1, tt.name)

		attrs := spans[0].Attributes
		assert.Contains(t, attrs, attribute.String("error.type", observability.ErrTypeValidation), tt.name)
		assert.Contains(t, attrs, attribute.String("error.source", tt.source), tt.name)
		assert.Contains(t, attrs, attribute.Bool("mcp.is_error", true), tt.name)
	}
}
