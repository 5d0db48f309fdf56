package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/depcheck/internal/checker"
	"github.com/Sumatoshi-tech/depcheck/internal/config"
	"github.com/Sumatoshi-tech/depcheck/pkg/observability"
	"github.com/Sumatoshi-tech/depcheck/pkg/reconcile"
	"github.com/Sumatoshi-tech/depcheck/pkg/report"
	"github.com/Sumatoshi-tech/depcheck/pkg/version"
)

// ToolNameCheck is the name of the dependency check tool.
const ToolNameCheck = "depcheck_check"

// Sentinel errors for tool input validation.
var (
	// ErrEmptyRepoPath indicates the repo_path parameter is empty.
	ErrEmptyRepoPath = errors.New("repo_path parameter is required and must not be empty")
	// ErrRepoPathNotAbsolute indicates the repo_path is not an absolute path.
	ErrRepoPathNotAbsolute = errors.New("repo_path must be an absolute path")
	// ErrRepoNotFound indicates the repository path does not exist.
	ErrRepoNotFound = errors.New("repository path does not exist")
)

// CheckInput is the input schema for the depcheck_check tool.
type CheckInput struct {
	ConfigPath   string   `json:"config_path,omitempty"   jsonschema:"optional path to a .depcheck.yaml file (default: repo_path/.depcheck.yaml)"`
	Only         string   `json:"only,omitempty"          jsonschema:"restrict the run to main or handlers (default: all)"`
	RepoPath     string   `json:"repo_path"               jsonschema:"absolute path to the repository root"`
	SitePackages []string `json:"site_packages,omitempty" jsonschema:"site-packages directories used to detect transitive dependencies"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// handleCheck processes depcheck_check tool calls. Violations are part of
// the report, not a tool error.
func (s *Server) handleCheck(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input CheckInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateCheckInput(input)
	if err != nil {
		return spanErrorResult(ctx, err, observability.ErrTypeValidation, observability.ErrSourceClient)
	}

	only, err := reconcile.ParseSelection(input.Only)
	if err != nil {
		return spanErrorResult(ctx, err, observability.ErrTypeValidation, observability.ErrSourceClient)
	}

	cfg, err := config.LoadConfig(input.ConfigPath, input.RepoPath)
	if err != nil {
		return spanErrorResult(ctx, fmt.Errorf("load config: %w", err),
			observability.ErrTypeValidation, observability.ErrSourceConfig)
	}

	if len(input.SitePackages) > 0 {
		cfg.Environment.SitePackages = input.SitePackages
	}

	res, err := s.checker.Run(ctx, checker.Request{Root: input.RepoPath, Config: cfg, Only: only})
	if err != nil {
		s.logger.WarnContext(ctx, "check failed", "repo", input.RepoPath, "error", err)

		return errorResult(err)
	}

	return jsonResult(ctx, report.NewDocument(res, version.Version))
}

// validateCheckInput checks the repository path.
func validateCheckInput(input CheckInput) error {
	if input.RepoPath == "" {
		return ErrEmptyRepoPath
	}

	if !filepath.IsAbs(input.RepoPath) {
		return fmt.Errorf("%w: %s", ErrRepoPathNotAbsolute, input.RepoPath)
	}

	info, err := os.Stat(input.RepoPath)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrRepoNotFound, input.RepoPath)
	}

	return nil
}

// spanErrorResult records err on the tool call span and builds an error result.
func spanErrorResult(ctx context.Context, err error, errType, source string) (*mcpsdk.CallToolResult, ToolOutput, error) {
	observability.RecordSpanError(trace.SpanFromContext(ctx), err, errType, source)

	return errorResult(err)
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(ctx context.Context, value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return spanErrorResult(ctx, fmt.Errorf("encode result: %w", err), observability.ErrTypeInternal, "")
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
