// Package checker runs a configured reconciliation and records its metrics.
// The CLI and the MCP server share it.
package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/depcheck/internal/config"
	"github.com/Sumatoshi-tech/depcheck/pkg/observability"
	"github.com/Sumatoshi-tech/depcheck/pkg/reconcile"
	"github.com/Sumatoshi-tech/depcheck/pkg/scan"
)

// ErrNoConfig is returned when a Request carries no configuration.
var ErrNoConfig = errors.New("checker: request has no configuration")

const (
	scopeKindMain    = "main"
	scopeKindHandler = "handler"
)

// Deps holds the collaborators of a Checker. Nil fields disable the
// corresponding concern.
type Deps struct {
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.CheckMetrics
}

// Request describes one run.
type Request struct {
	// Root is the repository root. Empty means the working directory.
	Root string
	// Config is the loaded configuration.
	Config *config.Config
	// Only restricts the run to one family of scopes.
	Only reconcile.Selection
}

type scannerKey struct {
	maxFileSize uint64
	cacheSize   int
}

// Checker executes runs. Scanners are kept per scan setting so repeated
// runs reuse parsed files.
type Checker struct {
	deps Deps

	mu       sync.Mutex
	scanners map[scannerKey]*scan.Scanner
}

// New creates a Checker.
func New(deps Deps) *Checker {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Checker{deps: deps, scanners: map[scannerKey]*scan.Scanner{}}
}

// Run reconciles the repository described by req.
func (c *Checker) Run(ctx context.Context, req Request) (*reconcile.Result, error) {
	start := time.Now()

	res, err := c.run(ctx, req)

	if c.deps.Metrics != nil {
		status := observability.StatusOK

		switch {
		case err != nil:
			status = observability.StatusError
		case !res.Clean():
			status = observability.StatusViolations
		}

		c.deps.Metrics.RecordRun(ctx, status, time.Since(start))
	}

	return res, err
}

func (c *Checker) run(ctx context.Context, req Request) (*reconcile.Result, error) {
	cfg := req.Config
	if cfg == nil {
		return nil, ErrNoConfig
	}

	root := req.Root
	if root == "" {
		root = "."
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve repository root: %w", err)
	}

	engineCfg, err := cfg.EngineConfig(absRoot, req.Only)
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	scanner, err := c.scanner(cfg.ScanOptions())
	if err != nil {
		return nil, err
	}

	var env *scan.Environment

	if len(cfg.Environment.SitePackages) > 0 {
		env, err = scan.LoadEnvironment(cfg.Environment.SitePackages...)
		if err != nil {
			return nil, fmt.Errorf("load environment: %w", err)
		}

		c.deps.Logger.Debug("environment loaded", "modules", env.Len())
	}

	engine, err := reconcile.New(engineCfg, reconcile.Options{
		Logger:      c.deps.Logger,
		Tracer:      c.deps.Tracer,
		Names:       cfg.NameMap(),
		Scanner:     scanner,
		Environment: env,
	})
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	res, err := engine.Run(ctx)
	if err != nil {
		return nil, err
	}

	c.recordScopes(ctx, res)

	return res, nil
}

func (c *Checker) scanner(opts scan.Options) (*scan.Scanner, error) {
	key := scannerKey{maxFileSize: opts.MaxFileSize, cacheSize: opts.CacheSize}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.scanners[key]; ok {
		return s, nil
	}

	opts.Logger = c.deps.Logger

	s, err := scan.NewScanner(opts)
	if err != nil {
		return nil, fmt.Errorf("create scanner: %w", err)
	}

	c.scanners[key] = s

	return s, nil
}

func (c *Checker) recordScopes(ctx context.Context, res *reconcile.Result) {
	if c.deps.Metrics == nil {
		return
	}

	for _, s := range res.Scopes {
		kind := scopeKindMain
		if s.Scope.IsHandler() {
			kind = scopeKindHandler
		}

		counts := map[string]int{}
		for _, v := range s.Violations {
			counts[string(v.Rule)]++
		}

		c.deps.Metrics.RecordScope(ctx, observability.ScopeStats{
			Kind:       kind,
			Files:      s.Files,
			Skipped:    s.Skipped,
			Violations: counts,
		})
	}
}
