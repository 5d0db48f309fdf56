package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/depcheck/internal/config"
	"github.com/Sumatoshi-tech/depcheck/pkg/reconcile"
	"github.com/Sumatoshi-tech/depcheck/pkg/rule"
)

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	emptyPath := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(emptyPath, []byte(""), 0o600))

	cfg, err := config.LoadConfig(emptyPath, "")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, []string{config.DefaultMainManifest}, cfg.Manifests.Main)
	assert.Equal(t, []string{config.DefaultDockerManifest}, cfg.Manifests.Docker)
	assert.Equal(t, config.DefaultSourceRoots(), cfg.Main.SourceRoots)
	assert.Equal(t, config.DefaultMainExcludePaths(), cfg.Main.ExcludePaths)
	assert.Equal(t, config.DefaultHandlerManifestGlob, cfg.Handlers.ManifestGlob)
	assert.Equal(t, config.DefaultOptionalHandlerDeps(), cfg.Handlers.OptionalDeps)
	assert.Equal(t, config.DefaultBYOMHandlerDeps(), cfg.Handlers.BYOMDeps)
	ec, err := cfg.EngineConfig(".", reconcile.SelectAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"tests"}, ec.HandlerRuleIgnores[rule.UsedNotDeclared])
	assert.Equal(t, []string{"psycopg2-binary"}, ec.MainRuleIgnores[rule.DeclaredNotUsed])
	assert.Equal(t, config.DefaultMaxFileSize, cfg.Scan.MaxFileSize)
	assert.Equal(t, config.DefaultCacheSize, cfg.Scan.CacheSize)
	assert.True(t, cfg.Checks.Duplicates)
	assert.True(t, cfg.Checks.RelativeIncludes)
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
}

func TestLoadConfig_RepoRootFile_Unmarshals(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	content := `manifests:
  main: [requirements.txt]
  dev: []
  test: []
  protocol: []
  docker: []
main:
  source_roots: [src]
  rule_ignores:
    DEP002: [gunicorn]
handlers:
  manifest_glob: "plugins/**/requirements.txt"
  optional_deps: [openai]
known_first_party: [acme]
package_name_map:
  acme-sdk: [acme_sdk, acme_ext]
scan:
  max_file_size: 512KiB
checks:
  duplicates: false
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ".depcheck.yaml"), []byte(content), 0o600))

	cfg, err := config.LoadConfig("", root)
	require.NoError(t, err)

	assert.Equal(t, []string{"requirements.txt"}, cfg.Manifests.Main)
	assert.Empty(t, cfg.Manifests.Dev)
	assert.Equal(t, []string{"src"}, cfg.Main.SourceRoots)
	ec, err := cfg.EngineConfig(root, reconcile.SelectAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"gunicorn"}, ec.MainRuleIgnores[rule.DeclaredNotUsed])
	assert.Equal(t, "plugins/**/requirements.txt", cfg.Handlers.ManifestGlob)
	assert.Equal(t, []string{"openai"}, cfg.Handlers.OptionalDeps)
	assert.Equal(t, []string{"acme"}, cfg.KnownFirstParty)
	assert.Equal(t, []string{"acme_sdk", "acme_ext"}, cfg.PackageNameMap["acme-sdk"])
	assert.Equal(t, "512KiB", cfg.Scan.MaxFileSize)
	assert.False(t, cfg.Checks.Duplicates)
	assert.Equal(t, "debug", cfg.Logging.Level)

	assert.Equal(t, []string{"acme_sdk", "acme_ext"}, cfg.NameMap().Normalize("Acme_SDK"))
}

func TestLoadConfig_InvalidFile_ReturnsValidationError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan:\n  cache_size: -4\n"), 0o600))

	_, err := config.LoadConfig(path, "")
	require.ErrorIs(t, err, config.ErrInvalidCacheSize)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("main: [unclosed\n"), 0o600))

	_, err := config.LoadConfig(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DEPCHECK_SCAN_MAX_FILE_SIZE", "3MB")
	t.Setenv("DEPCHECK_LOGGING_LEVEL", "error")

	cfg, err := config.LoadConfig("", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "3MB", cfg.Scan.MaxFileSize)
	assert.Equal(t, "error", cfg.Logging.Level)
}
