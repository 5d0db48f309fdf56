package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/depcheck/internal/checker"
	"github.com/Sumatoshi-tech/depcheck/internal/config"
	"github.com/Sumatoshi-tech/depcheck/pkg/observability"
	"github.com/Sumatoshi-tech/depcheck/pkg/reconcile"
	"github.com/Sumatoshi-tech/depcheck/pkg/report"
	"github.com/Sumatoshi-tech/depcheck/pkg/version"
)

// CheckCommand holds configuration for the check command.
type CheckCommand struct {
	global *GlobalOptions

	configPath   string
	format       string
	output       string
	noColor      bool
	suggest      bool
	metricsFile  string
	sitePackages []string
	only         string

	mainManifests     []string
	devManifests      []string
	testManifests     []string
	protocolManifests []string
	dockerManifests   []string
}

// NewCheckCommand creates the check command.
func NewCheckCommand(global *GlobalOptions) *cobra.Command {
	cc := &CheckCommand{global: global}

	cmd := &cobra.Command{
		Use:   "check [repo-root]",
		Short: "Check declared dependencies against imports",
		Long: `Check that every imported third-party module is declared and every
declared package is imported, for the main application and for each handler.

Exit status is 0 when clean, 1 when violations are found and 2 on errors.

Examples:
  depcheck check
  depcheck check --format json --output report.json /path/to/repo
  depcheck check --only handlers --suggest`,
		Args: cobra.MaximumNArgs(1),
		RunE: cc.run,
	}

	cmd.Flags().StringVar(&cc.configPath, "config", "", "Config file (default: <repo-root>/.depcheck.yaml or ~/.depcheck.yaml)")
	cmd.Flags().StringVar(&cc.format, "format", string(report.FormatText), "Output format: text, table, json, yaml")
	cmd.Flags().StringVarP(&cc.output, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&cc.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&cc.suggest, "suggest", false, "Print manifest diffs that would fix package violations")
	cmd.Flags().StringVar(&cc.metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format to this path")
	cmd.Flags().StringSliceVar(&cc.sitePackages, "site-packages", nil, "site-packages directories for transitive detection")
	cmd.Flags().StringVar(&cc.only, "only", "", "Restrict the run to main or handlers")

	cmd.Flags().StringSliceVar(&cc.mainManifests, "main-manifest", nil, "Main manifest paths (overrides manifests.main)")
	cmd.Flags().StringSliceVar(&cc.devManifests, "dev-manifest", nil, "Dev manifest paths (overrides manifests.dev)")
	cmd.Flags().StringSliceVar(&cc.testManifests, "test-manifest", nil, "Test manifest paths (overrides manifests.test)")
	cmd.Flags().StringSliceVar(&cc.protocolManifests, "protocol-manifest", nil, "Protocol manifest paths (overrides manifests.protocol)")
	cmd.Flags().StringSliceVar(&cc.dockerManifests, "docker-manifest", nil, "Docker manifest paths (overrides manifests.docker)")

	return cmd
}

func (cc *CheckCommand) run(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	format, err := report.ParseFormat(cc.format)
	if err != nil {
		return err
	}

	only, err := reconcile.ParseSelection(cc.only)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(cc.configPath, root)
	if err != nil {
		return err
	}

	cc.applyFlags(cmd, cfg)

	if cc.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	obsCfg := cc.global.observabilityConfig(observability.ModeCLI, cfg.Logging.Level, cmd.ErrOrStderr())
	obsCfg.LogJSON = obsCfg.LogJSON || cfg.Logging.JSON
	obsCfg.MetricsFile = cc.metricsFile

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	metrics, err := observability.NewCheckMetrics(providers.Meter)
	if err != nil {
		return err
	}

	chk := checker.New(checker.Deps{Logger: providers.Logger, Tracer: providers.Tracer, Metrics: metrics})

	res, err := chk.Run(cmd.Context(), checker.Request{Root: root, Config: cfg, Only: only})
	if err != nil {
		return err
	}

	err = cc.writeReport(cmd, format, res)
	if err != nil {
		return err
	}

	if cc.suggest {
		err = cc.writeSuggestions(cmd, format, res)
		if err != nil {
			return err
		}
	}

	if !res.Clean() {
		return fmt.Errorf("%w: %d", ErrViolations, len(res.Violations()))
	}

	return nil
}

// applyFlags overrides configuration values whose flags were set.
func (cc *CheckCommand) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	overrides := []struct {
		flag   string
		values []string
		target *[]string
	}{
		{"main-manifest", cc.mainManifests, &cfg.Manifests.Main},
		{"dev-manifest", cc.devManifests, &cfg.Manifests.Dev},
		{"test-manifest", cc.testManifests, &cfg.Manifests.Test},
		{"protocol-manifest", cc.protocolManifests, &cfg.Manifests.Protocol},
		{"docker-manifest", cc.dockerManifests, &cfg.Manifests.Docker},
		{"site-packages", cc.sitePackages, &cfg.Environment.SitePackages},
	}

	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			*o.target = o.values
		}
	}
}

func (cc *CheckCommand) writeReport(cmd *cobra.Command, format report.Format, res *reconcile.Result) error {
	writer := report.Writer{Format: format, Version: version.Version}

	if cc.output == "" {
		return writer.Write(cmd.OutOrStdout(), res)
	}

	f, err := os.Create(cc.output)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	err = writer.Write(f, res)
	closeErr := f.Close()

	if err != nil {
		return err
	}

	if closeErr != nil {
		return fmt.Errorf("close report file: %w", closeErr)
	}

	return nil
}

// writeSuggestions prints manifest diffs. They go to stderr when stdout
// carries a machine-readable report.
func (cc *CheckCommand) writeSuggestions(cmd *cobra.Command, format report.Format, res *reconcile.Result) error {
	suggestions, err := report.Suggest(res.Root, res)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if cc.output == "" && (format == report.FormatJSON || format == report.FormatYAML) {
		out = cmd.ErrOrStderr()
	}

	for _, s := range suggestions {
		fmt.Fprint(out, s.Diff())
	}

	return nil
}
