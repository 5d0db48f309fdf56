package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/depcheck/pkg/exemption"
	"github.com/Sumatoshi-tech/depcheck/pkg/manifest"
	"github.com/Sumatoshi-tech/depcheck/pkg/namemap"
	"github.com/Sumatoshi-tech/depcheck/pkg/observability"
	"github.com/Sumatoshi-tech/depcheck/pkg/rule"
	"github.com/Sumatoshi-tech/depcheck/pkg/scan"
)

const tracerName = "depcheck"

// Engine errors.
var (
	ErrNoScanner        = errors.New("reconcile: import scanner is required")
	ErrUnknownSelection = errors.New("reconcile: unknown scope selection")
)

// ImportScanner returns the top-level modules imported under a directory.
type ImportScanner interface {
	Scan(ctx context.Context, root string, exclude scan.ExcludeFunc) (*scan.Result, error)
}

// Selection restricts a run to some scopes.
type Selection string

// Scope selections.
const (
	SelectAll      Selection = ""
	SelectMain     Selection = "main"
	SelectHandlers Selection = "handlers"
)

// ParseSelection accepts "", "all", "main" and "handlers".
func ParseSelection(s string) (Selection, error) {
	switch s {
	case "", "all":
		return SelectAll, nil
	case string(SelectMain):
		return SelectMain, nil
	case string(SelectHandlers):
		return SelectHandlers, nil
	default:
		return SelectAll, fmt.Errorf("%w: %q", ErrUnknownSelection, s)
	}
}

// Manifests lists the main-scope manifests relative to the repository root.
type Manifests struct {
	Main     []string
	Dev      []string
	Test     []string
	Protocol []string
	Docker   []string
}

// All returns every configured manifest path.
func (m Manifests) All() []string {
	var out []string

	for _, g := range m.groups() {
		out = append(out, g.paths...)
	}

	return out
}

type manifestGroup struct {
	scope   manifest.Scope
	paths   []string
	devOnly bool
}

func (m Manifests) groups() []manifestGroup {
	return []manifestGroup{
		{scope: manifest.ScopeMain, paths: m.Main},
		{scope: manifest.ScopeTest, paths: m.Test},
		{scope: manifest.ScopeProtocol, paths: m.Protocol},
		{scope: manifest.ScopeDev, paths: m.Dev, devOnly: true},
		{scope: manifest.ScopeDocker, paths: m.Docker, devOnly: true},
	}
}

// Config describes one repository run.
type Config struct {
	Root      string
	Manifests Manifests

	// SourceRoots are scanned for the main scope, relative to Root.
	SourceRoots []string
	// ExcludePaths are matched against repository-relative paths in the main scan.
	ExcludePaths    []string
	MainRuleIgnores map[rule.Rule][]string

	HandlerGlob         string
	HandlerSkipDirs     []string
	HandlerExcludePaths []string
	HandlerRuleIgnores  map[rule.Rule][]string
	// OptionalHandlerDeps and BYOMHandlerDeps are exempt from every rule in handler scopes.
	OptionalHandlerDeps []string
	BYOMHandlerDeps     []string

	KnownFirstParty []string

	CheckDuplicates       bool
	CheckRelativeIncludes bool
	RootAnchoredPrefixes  []string

	Only Selection
}

// Options carries the engine's collaborators.
type Options struct {
	Logger      *slog.Logger
	Tracer      trace.Tracer
	Names       *namemap.Map
	Scanner     ImportScanner
	Environment *scan.Environment
}

// Engine reconciles declared and imported dependencies scope by scope.
type Engine struct {
	cfg             Config
	logger          *slog.Logger
	tracer          trace.Tracer
	names           *namemap.Map
	scanner         ImportScanner
	env             *scan.Environment
	parser          *manifest.Parser
	mainExclude     *Patterns
	handlerExclude  *Patterns
	mainExemptions  *exemption.Set
	handlerRuleOnly *exemption.Set
}

// New validates cfg and builds an Engine.
func New(cfg Config, opts Options) (*Engine, error) {
	if opts.Scanner == nil {
		return nil, ErrNoScanner
	}

	switch cfg.Only {
	case SelectAll, SelectMain, SelectHandlers:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSelection, cfg.Only)
	}

	mainExclude, err := CompilePatterns(cfg.ExcludePaths)
	if err != nil {
		return nil, fmt.Errorf("main exclude paths: %w", err)
	}

	handlerExclude, err := CompilePatterns(cfg.HandlerExcludePaths)
	if err != nil {
		return nil, fmt.Errorf("handler exclude paths: %w", err)
	}

	if cfg.Root == "" {
		cfg.Root = "."
	}

	if len(cfg.SourceRoots) == 0 {
		cfg.SourceRoots = []string{"."}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	names := opts.Names
	if names == nil {
		names = namemap.Default()
	}

	logger.Debug("package name map loaded", "packages", names.Len())

	return &Engine{
		cfg:             cfg,
		logger:          logger,
		tracer:          tracer,
		names:           names,
		scanner:         opts.Scanner,
		env:             opts.Environment,
		parser:          manifest.NewParser(logger),
		mainExclude:     mainExclude,
		handlerExclude:  handlerExclude,
		mainExemptions:  exemption.NewBuilder(names).ExemptRules(cfg.MainRuleIgnores).Build(),
		handlerRuleOnly: exemption.NewBuilder(names).ExemptRules(cfg.HandlerRuleIgnores).Build(),
	}, nil
}

// mainDeclarations holds the parsed main-scope manifests.
type mainDeclarations struct {
	declared    []*manifest.File
	devOnly     []*manifest.File
	mainEntries []manifest.Entry
	paths       []string
}

// Run reconciles every selected scope. Missing or unreadable manifests and
// unreadable trees abort the run; violations never do.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "depcheck.run",
		trace.WithAttributes(attribute.String("run.only", string(e.cfg.Only))))
	defer span.End()

	decl, err := e.loadMain()
	if err != nil {
		observability.RecordSpanError(span, err, observability.ErrTypeIO, observability.ErrSourceManifest)

		return nil, err
	}

	firstParty := e.repoFirstParty()
	res := &Result{Root: e.cfg.Root}

	if e.cfg.Only != SelectHandlers {
		scope, mainErr := e.checkMain(ctx, decl, firstParty)
		if mainErr != nil {
			observability.RecordSpanError(span, mainErr, observability.ErrTypeIO, observability.ErrSourceSource)

			return nil, mainErr
		}

		res.Scopes = append(res.Scopes, scope)
	}

	if e.cfg.Only != SelectMain {
		scopes, handlerErr := e.checkHandlers(ctx, decl, firstParty)
		if handlerErr != nil {
			observability.RecordSpanError(span, handlerErr, observability.ErrTypeIO, observability.ErrSourceManifest)

			return nil, handlerErr
		}

		res.Scopes = append(res.Scopes, scopes...)
	}

	span.SetAttributes(
		attribute.Int("run.scopes", len(res.Scopes)),
		attribute.Int("run.violations", len(res.Violations())),
		attribute.Bool("run.clean", res.Clean()),
	)

	return res, nil
}

func (e *Engine) loadMain() (*mainDeclarations, error) {
	decl := &mainDeclarations{}

	for _, group := range e.cfg.Manifests.groups() {
		for _, rel := range group.paths {
			files, err := e.parser.Resolve(e.abs(rel), e.cfg.Root, group.scope)
			if err != nil {
				return nil, fmt.Errorf("%s manifest: %w", group.scope, err)
			}

			decl.paths = append(decl.paths, e.rel(files[0].Path))

			if group.devOnly {
				decl.devOnly = append(decl.devOnly, files...)

				continue
			}

			decl.declared = append(decl.declared, files...)

			if group.scope == manifest.ScopeMain {
				decl.mainEntries = append(decl.mainEntries, manifest.Entries(files)...)
			}
		}
	}

	return decl, nil
}

func (e *Engine) checkMain(ctx context.Context, decl *mainDeclarations, firstParty map[string]struct{}) (*ScopeResult, error) {
	ctx, span := e.tracer.Start(ctx, "depcheck.scope",
		trace.WithAttributes(attribute.String("scope.name", string(manifest.ScopeMain))))
	defer span.End()

	scanned, err := e.scanRoots(ctx, e.cfg.SourceRoots)
	if err != nil {
		observability.RecordSpanError(span, err, observability.ErrTypeIO, observability.ErrSourceSource)

		return nil, err
	}

	sr := &ScopeResult{
		Scope:       manifest.ScopeMain,
		Root:        ".",
		Manifests:   decl.paths,
		Files:       scanned.Files,
		Skipped:     scanned.Skipped,
		Unparseable: unparseable(decl.declared) + unparseable(decl.devOnly),
	}

	e.evaluate(sr, scopeInput{
		declared:   manifest.Entries(decl.declared),
		devOnly:    manifest.Entries(decl.devOnly),
		scanned:    scanned,
		firstParty: union(firstParty, scanned.Local),
		exemptions: e.mainExemptions,
	})

	e.finishScope(ctx, span, sr)

	return sr, nil
}

func (e *Engine) checkHandlers(ctx context.Context, decl *mainDeclarations, firstParty map[string]struct{}) ([]*ScopeResult, error) {
	discovery := Discovery{
		Glob:     e.cfg.HandlerGlob,
		SkipDirs: e.cfg.HandlerSkipDirs,
		Known:    e.cfg.Manifests.All(),
	}

	found, err := discovery.Find(ctx, e.cfg.Root)
	if err != nil {
		return nil, err
	}

	e.logger.DebugContext(ctx, "discovered handler manifests", "count", len(found))

	// Composed once for every handler scope.
	exemptions := exemption.NewBuilder(e.names).
		ExemptAll(e.cfg.OptionalHandlerDeps...).
		ExemptAll(manifest.Names(decl.declared)...).
		ExemptAll(e.cfg.BYOMHandlerDeps...).
		ExemptRules(e.cfg.HandlerRuleIgnores).
		Build()

	mainCanonical := map[string]bool{}
	for _, entry := range decl.mainEntries {
		mainCanonical[namemap.Canonical(entry.Name)] = true
	}

	perDir := map[string]int{}
	for _, rel := range found {
		perDir[path.Dir(rel)]++
	}

	scopes := make([]*ScopeResult, 0, len(found))

	for _, rel := range found {
		scope := manifest.HandlerScope(path.Dir(rel))
		if perDir[path.Dir(rel)] > 1 {
			scope = manifest.HandlerManifestScope(path.Dir(rel), path.Base(rel))
		}

		sr, handlerErr := e.checkHandler(ctx, rel, scope, exemptions, mainCanonical, firstParty)
		if handlerErr != nil {
			return nil, handlerErr
		}

		scopes = append(scopes, sr)
	}

	return scopes, nil
}

func (e *Engine) checkHandler(
	ctx context.Context, rel string, scope manifest.Scope, exemptions *exemption.Set,
	mainCanonical map[string]bool, firstParty map[string]struct{},
) (*ScopeResult, error) {
	dir := scope.HandlerDir()

	ctx, span := e.tracer.Start(ctx, "depcheck.scope",
		trace.WithAttributes(attribute.String("scope.name", scope.String())))
	defer span.End()

	files, err := e.parser.Resolve(e.abs(rel), e.cfg.Root, scope)
	if err != nil {
		observability.RecordSpanError(span, err, observability.ErrTypeIO, observability.ErrSourceManifest)

		return nil, fmt.Errorf("%s manifest: %w", scope, err)
	}

	scanned, err := e.scanner.Scan(ctx, e.abs(dir), e.handlerExclude.ExcludeUnder(dir))
	if err != nil {
		observability.RecordSpanError(span, err, observability.ErrTypeIO, observability.ErrSourceSource)

		return nil, fmt.Errorf("%s: %w", scope, err)
	}

	local := union(scanned.Local, map[string]struct{}{path.Base(dir): {}})

	sr := &ScopeResult{
		Scope:       scope,
		Root:        dir,
		Manifests:   e.relAll(files),
		Files:       scanned.Files,
		Skipped:     scanned.Skipped,
		Unparseable: unparseable(files),
	}

	e.evaluate(sr, scopeInput{
		declared:   manifest.Entries(files),
		scanned:    prefixLocations(dir, scanned),
		firstParty: union(firstParty, local),
		exemptions: exemptions,
	})

	if e.cfg.CheckDuplicates {
		e.checkDuplicates(sr, files[0], mainCanonical)
	}

	if e.cfg.CheckRelativeIncludes {
		e.checkIncludes(sr, files[0])
	}

	e.finishScope(ctx, span, sr)

	return sr, nil
}

func (e *Engine) finishScope(ctx context.Context, span trace.Span, sr *ScopeResult) {
	sr.sortViolations()

	span.SetAttributes(
		attribute.Int("scope.files", sr.Files),
		attribute.Int("scope.violations", len(sr.Violations)),
	)

	e.logger.InfoContext(ctx, "scope checked",
		"scope", sr.Scope.String(),
		"files", sr.Files,
		"declared", sr.Declared,
		"imported", sr.Imported,
		"violations", len(sr.Violations))
}

// scanRoots scans each source root and merges the results. Locations are
// rewritten relative to the repository root.
func (e *Engine) scanRoots(ctx context.Context, roots []string) (*scan.Result, error) {
	merged := &scan.Result{
		Imports: map[string]scan.Location{},
		Local:   map[string]struct{}{},
	}

	for _, root := range roots {
		prefix := path.Clean(filepath.ToSlash(root))

		res, err := e.scanner.Scan(ctx, e.abs(root), e.mainExclude.ExcludeUnder(prefix))
		if err != nil {
			return nil, fmt.Errorf("main scope: %w", err)
		}

		for module, loc := range prefixLocations(prefix, res).Imports {
			if _, seen := merged.Imports[module]; !seen {
				merged.Imports[module] = loc
			}
		}

		for module := range res.Local {
			merged.Local[module] = struct{}{}
		}

		merged.Files += res.Files
		merged.Skipped += res.Skipped
	}

	return merged, nil
}

func (e *Engine) repoFirstParty() map[string]struct{} {
	out := map[string]struct{}{}

	for _, name := range e.cfg.KnownFirstParty {
		out[name] = struct{}{}
	}

	for _, root := range e.cfg.SourceRoots {
		for module := range scan.LocalModules(e.abs(root)) {
			out[module] = struct{}{}
		}
	}

	return out
}

func (e *Engine) abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}

	return filepath.Join(e.cfg.Root, filepath.FromSlash(rel))
}

func (e *Engine) rel(p string) string {
	r, err := filepath.Rel(e.cfg.Root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}

	return filepath.ToSlash(r)
}

func (e *Engine) relAll(files []*manifest.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, e.rel(f.Path))
	}

	return out
}

func (e *Engine) location(p string, line int) string {
	if line == 0 {
		return e.rel(p)
	}

	return e.rel(p) + ":" + strconv.Itoa(line)
}

// prefixLocations returns a copy of res with import files relative to the
// repository root instead of the scanned directory.
func prefixLocations(prefix string, res *scan.Result) *scan.Result {
	out := *res
	out.Imports = make(map[string]scan.Location, len(res.Imports))

	for module, loc := range res.Imports {
		loc.File = path.Join(prefix, loc.File)
		out.Imports[module] = loc
	}

	return &out
}

func unparseable(files []*manifest.File) int {
	n := 0
	for _, f := range files {
		n += len(f.Unparseable)
	}

	return n
}

func union(sets ...map[string]struct{}) map[string]struct{} {
	out := map[string]struct{}{}

	for _, set := range sets {
		for k := range set {
			out[k] = struct{}{}
		}
	}

	return out
}
