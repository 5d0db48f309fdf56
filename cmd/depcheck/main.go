// Package main provides the entry point for the depcheck CLI tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/depcheck/cmd/depcheck/commands"
	"github.com/Sumatoshi-tech/depcheck/pkg/version"
)

// Exit statuses.
const (
	exitClean      = 0
	exitViolations = 1
	exitFailure    = 2
)

func main() {
	version.InitBinaryVersion()

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()

	code := exitCode(err)
	if code == exitFailure {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}

	return code
}

func newRootCommand() *cobra.Command {
	global := &commands.GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "depcheck",
		Short: "Dependency consistency checker for Python monorepos",
		Long: `depcheck compares the packages declared in requirements manifests with the
modules imported by the code, for the main application and each handler.

Commands:
  check     Check declared dependencies against imports
  validate  Validate a JSON report
  mcp       Start the MCP server`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&global.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&global.Quiet, "quiet", "q", false, "suppress output")
	rootCmd.PersistentFlags().BoolVar(&global.LogJSON, "log-json", false, "emit logs as JSON")
	rootCmd.PersistentFlags().BoolVar(&global.DebugTrace, "debug-trace", false, "record spans and log them at debug level")

	rootCmd.AddCommand(commands.NewCheckCommand(global))
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewMCPCommand(global))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitClean
	case errors.Is(err, commands.ErrViolations), errors.Is(err, commands.ErrInvalidReport):
		return exitViolations
	default:
		return exitFailure
	}
}
