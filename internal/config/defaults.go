package config

// Main-scope manifest defaults, relative to the repository root.
const (
	DefaultMainManifest     = "requirements/requirements.txt"
	DefaultDevManifest      = "requirements/requirements-dev.txt"
	DefaultTestManifest     = "requirements/requirements-test.txt"
	DefaultProtocolManifest = "requirements/requirements-grpc.txt"
	DefaultDockerManifest   = "docker/handler_discovery/requirements.txt"
)

// Scan and discovery defaults.
const (
	DefaultHandlerManifestGlob = "**/requirements*.txt"
	DefaultMaxFileSize         = "1MB"
	DefaultCacheSize           = 4096
	DefaultLogLevel            = "info"
)

// DefaultSourceRoots returns the directories scanned for the main scope.
func DefaultSourceRoots() []string { return []string{"."} }

// DefaultMainExcludePaths returns the regular expressions that keep handler
// subtrees and build configuration out of the main-scope scan.
func DefaultMainExcludePaths() []string {
	return []string{`mindsdb/integrations/handlers/.*_handler`, `pryproject.toml`}
}

// DefaultMainRuleIgnores returns the main-scope per-rule exemptions.
func DefaultMainRuleIgnores() map[string][]string {
	return map[string][]string{
		"DEP001": {"torch"},
		"DEP002": {"psycopg2-binary"},
		"DEP003": {"torch"},
	}
}

// DefaultHandlerSkipDirs returns the directories handler discovery never enters.
func DefaultHandlerSkipDirs() []string {
	return []string{"requirements", "node_modules"}
}

// DefaultOptionalHandlerDeps returns packages that are optional dependencies
// of other packages and may be imported by any handler.
func DefaultOptionalHandlerDeps() []string {
	return []string{"pysqlite3", "torch", "openai", "tiktoken", "wikipedia", "anthropic", "pypdf", "openpyxl"}
}

// DefaultBYOMHandlerDeps returns the bring-your-own-model handler dependencies.
func DefaultBYOMHandlerDeps() []string {
	return []string{"pyarrow"}
}

// DefaultHandlerRuleIgnores returns the handler-scope per-rule exemptions.
// "tests" is the repository's own test package.
func DefaultHandlerRuleIgnores() map[string][]string {
	return map[string][]string{
		"DEP001": {"tests"},
	}
}

// DefaultRootAnchoredPrefixes returns the include prefixes that point at the
// repository root instead of the handler directory.
func DefaultRootAnchoredPrefixes() []string {
	return []string{"mindsdb/"}
}
