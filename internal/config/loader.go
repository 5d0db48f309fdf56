package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".depcheck"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for depcheck settings.
const envPrefix = "DEPCHECK"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, .depcheck.yaml is searched in repoRoot and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath, repoRoot string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)

		if repoRoot == "" {
			repoRoot = "."
		}

		viperCfg.AddConfigPath(repoRoot)

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("manifests.main", []string{DefaultMainManifest})
	viperCfg.SetDefault("manifests.dev", []string{DefaultDevManifest})
	viperCfg.SetDefault("manifests.test", []string{DefaultTestManifest})
	viperCfg.SetDefault("manifests.protocol", []string{DefaultProtocolManifest})
	viperCfg.SetDefault("manifests.docker", []string{DefaultDockerManifest})

	viperCfg.SetDefault("main.source_roots", DefaultSourceRoots())
	viperCfg.SetDefault("main.exclude_paths", DefaultMainExcludePaths())
	viperCfg.SetDefault("main.rule_ignores", DefaultMainRuleIgnores())

	viperCfg.SetDefault("handlers.manifest_glob", DefaultHandlerManifestGlob)
	viperCfg.SetDefault("handlers.skip_dirs", DefaultHandlerSkipDirs())
	viperCfg.SetDefault("handlers.exclude_paths", []string{})
	viperCfg.SetDefault("handlers.optional_deps", DefaultOptionalHandlerDeps())
	viperCfg.SetDefault("handlers.byom_deps", DefaultBYOMHandlerDeps())
	viperCfg.SetDefault("handlers.rule_ignores", DefaultHandlerRuleIgnores())

	viperCfg.SetDefault("known_first_party", []string{})
	viperCfg.SetDefault("package_name_map", map[string][]string{})

	viperCfg.SetDefault("environment.site_packages", []string{})

	viperCfg.SetDefault("scan.max_file_size", DefaultMaxFileSize)
	viperCfg.SetDefault("scan.cache_size", DefaultCacheSize)

	viperCfg.SetDefault("checks.duplicates", true)
	viperCfg.SetDefault("checks.relative_includes", true)
	viperCfg.SetDefault("checks.root_anchored_prefixes", DefaultRootAnchoredPrefixes())

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", false)
}
