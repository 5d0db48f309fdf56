package config

import (
	"fmt"

	"github.com/Sumatoshi-tech/depcheck/pkg/namemap"
	"github.com/Sumatoshi-tech/depcheck/pkg/reconcile"
	"github.com/Sumatoshi-tech/depcheck/pkg/scan"
)

// EngineConfig converts the configuration into a reconcile.Config rooted at root.
func (c *Config) EngineConfig(root string, only reconcile.Selection) (reconcile.Config, error) {
	mainIgnores, err := parseRuleIgnores(c.Main.RuleIgnores)
	if err != nil {
		return reconcile.Config{}, fmt.Errorf("main.%w", err)
	}

	handlerIgnores, err := parseRuleIgnores(c.Handlers.RuleIgnores)
	if err != nil {
		return reconcile.Config{}, fmt.Errorf("handlers.%w", err)
	}

	return reconcile.Config{
		Root: root,
		Manifests: reconcile.Manifests{
			Main:     nonEmpty(c.Manifests.Main),
			Dev:      nonEmpty(c.Manifests.Dev),
			Test:     nonEmpty(c.Manifests.Test),
			Protocol: nonEmpty(c.Manifests.Protocol),
			Docker:   nonEmpty(c.Manifests.Docker),
		},
		SourceRoots:           nonEmpty(c.Main.SourceRoots),
		ExcludePaths:          nonEmpty(c.Main.ExcludePaths),
		MainRuleIgnores:       mainIgnores,
		HandlerGlob:           c.Handlers.ManifestGlob,
		HandlerSkipDirs:       nonEmpty(c.Handlers.SkipDirs),
		HandlerExcludePaths:   nonEmpty(c.Handlers.ExcludePaths),
		HandlerRuleIgnores:    handlerIgnores,
		OptionalHandlerDeps:   nonEmpty(c.Handlers.OptionalDeps),
		BYOMHandlerDeps:       nonEmpty(c.Handlers.BYOMDeps),
		KnownFirstParty:       nonEmpty(c.KnownFirstParty),
		CheckDuplicates:       c.Checks.Duplicates,
		CheckRelativeIncludes: c.Checks.RelativeIncludes,
		RootAnchoredPrefixes:  nonEmpty(c.Checks.RootAnchoredPrefixes),
		Only:                  only,
	}, nil
}

// NameMap returns the built-in package name table with package_name_map
// entries replacing or extending it.
func (c *Config) NameMap() *namemap.Map {
	return namemap.Merge(namemap.DefaultTable(), c.PackageNameMap)
}

// ScanOptions returns the scanner settings. Validate has already checked
// the size, so a parse failure here falls back to no limit.
func (c *Config) ScanOptions() scan.Options {
	size, err := scan.ParseSize(c.Scan.MaxFileSize)
	if err != nil {
		size = 0
	}

	return scan.Options{
		MaxFileSize: size,
		CacheSize:   c.Scan.CacheSize,
	}
}
