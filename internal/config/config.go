// Package config loads depcheck settings from .depcheck.yaml, DEPCHECK_
// environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/depcheck/pkg/rule"
	"github.com/Sumatoshi-tech/depcheck/pkg/scan"
)

// Config is the top-level configuration struct for depcheck.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Manifests       ManifestsConfig     `mapstructure:"manifests"`
	Main            MainConfig          `mapstructure:"main"`
	Handlers        HandlersConfig      `mapstructure:"handlers"`
	KnownFirstParty []string            `mapstructure:"known_first_party"`
	PackageNameMap  map[string][]string `mapstructure:"package_name_map"`
	Environment     EnvironmentConfig   `mapstructure:"environment"`
	Scan            ScanConfig          `mapstructure:"scan"`
	Checks          ChecksConfig        `mapstructure:"checks"`
	Logging         LoggingConfig       `mapstructure:"logging"`
}

// ManifestsConfig lists the main-scope manifests relative to the repository root.
type ManifestsConfig struct {
	Main     []string `mapstructure:"main"`
	Dev      []string `mapstructure:"dev"`
	Test     []string `mapstructure:"test"`
	Protocol []string `mapstructure:"protocol"`
	Docker   []string `mapstructure:"docker"`
}

// MainConfig holds main-scope settings.
type MainConfig struct {
	SourceRoots  []string            `mapstructure:"source_roots"`
	ExcludePaths []string            `mapstructure:"exclude_paths"`
	RuleIgnores  map[string][]string `mapstructure:"rule_ignores"`
}

// HandlersConfig holds handler-scope settings.
type HandlersConfig struct {
	ManifestGlob string              `mapstructure:"manifest_glob"`
	SkipDirs     []string            `mapstructure:"skip_dirs"`
	ExcludePaths []string            `mapstructure:"exclude_paths"`
	OptionalDeps []string            `mapstructure:"optional_deps"`
	BYOMDeps     []string            `mapstructure:"byom_deps"`
	RuleIgnores  map[string][]string `mapstructure:"rule_ignores"`
}

// EnvironmentConfig points at installed packages for transitive detection.
type EnvironmentConfig struct {
	SitePackages []string `mapstructure:"site_packages"`
}

// ScanConfig holds import scanner knobs.
type ScanConfig struct {
	MaxFileSize string `mapstructure:"max_file_size"`
	CacheSize   int    `mapstructure:"cache_size"`
}

// ChecksConfig switches the manifest hygiene checks.
type ChecksConfig struct {
	Duplicates           bool     `mapstructure:"duplicates"`
	RelativeIncludes     bool     `mapstructure:"relative_includes"`
	RootAnchoredPrefixes []string `mapstructure:"root_anchored_prefixes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Sentinel errors for configuration validation.
var (
	// ErrNoMainManifest indicates no main manifest is configured.
	ErrNoMainManifest = errors.New("manifests.main must list at least one manifest")
	// ErrInvalidMaxFileSize indicates scan.max_file_size is not a size.
	ErrInvalidMaxFileSize = errors.New("scan.max_file_size must be a size such as 1MB")
	// ErrInvalidCacheSize indicates the cache size is negative.
	ErrInvalidCacheSize = errors.New("scan.cache_size must be non-negative")
	// ErrInvalidRuleIgnore indicates a rule_ignores key is not a known rule.
	ErrInvalidRuleIgnore = errors.New("rule_ignores keys must be rule codes or names")
	// ErrInvalidLogLevel indicates an unknown logging.level.
	ErrInvalidLogLevel = errors.New("logging.level must be debug, info, warn or error")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if len(nonEmpty(c.Manifests.Main)) == 0 {
		return ErrNoMainManifest
	}

	_, err := scan.ParseSize(c.Scan.MaxFileSize)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMaxFileSize, err)
	}

	if c.Scan.CacheSize < 0 {
		return ErrInvalidCacheSize
	}

	_, err = parseRuleIgnores(c.Main.RuleIgnores)
	if err != nil {
		return fmt.Errorf("main.%w", err)
	}

	_, err = parseRuleIgnores(c.Handlers.RuleIgnores)
	if err != nil {
		return fmt.Errorf("handlers.%w", err)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	return nil
}

// parseRuleIgnores converts rule_ignores keys to rules. Viper lowercases
// map keys, so both "DEP002" and "dep002" are accepted.
func parseRuleIgnores(raw map[string][]string) (map[rule.Rule][]string, error) {
	out := make(map[rule.Rule][]string, len(raw))

	for key, names := range raw {
		r, err := rule.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRuleIgnore, err)
		}

		out[r] = append(out[r], names...)
	}

	return out, nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))

	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}

	return out
}
