package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/depcheck/pkg/report"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var nocolor bool

	cmd := &cobra.Command{
		Use:   "validate <report.json|->",
		Short: "Validate a JSON report against the report schema",
		Long: `Validate a JSON report written by "depcheck check --format json".

Examples:
  depcheck validate report.json
  depcheck validate - < report.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if nocolor {
				color.NoColor = true //nolint:reassign // intentional override of library global
			}

			return runValidate(cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&nocolor, "no-color", false, "disable colored output")

	return cmd
}

func runValidate(cmd *cobra.Command, inputPath string) error {
	var (
		input      io.Reader
		inputLabel string
	)

	if inputPath == "-" {
		input, inputLabel = cmd.InOrStdin(), "stdin"
	} else {
		f, err := os.Open(inputPath)
		if err != nil {
			return fmt.Errorf("open report: %w", err)
		}
		defer f.Close()

		input, inputLabel = f, inputPath
	}

	problems, err := report.Validate(input)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if len(problems) == 0 {
		color.New(color.FgGreen).Fprintf(out, "Report is valid (%s)\n", inputLabel)

		return nil
	}

	color.New(color.FgRed).Fprintf(out, "Report validation failed (%s)\n", inputLabel)
	fmt.Fprintf(out, "\nErrors:\n")

	for _, p := range problems {
		color.New(color.FgRed).Fprintf(out, "  - %s\n", p)
	}

	return fmt.Errorf("%w: %d errors", ErrInvalidReport, len(problems))
}
