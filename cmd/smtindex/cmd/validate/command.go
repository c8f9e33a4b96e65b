// Package validate implements the validate command.
package validate

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/smtindex/internal/cmd/constants"
	"github.com/agentstation/smtindex/internal/cmd/output"
	"github.com/agentstation/smtindex/pkg/index"
	"github.com/agentstation/smtindex/pkg/validation"
)

// AppContext defines what the validate command needs from the app.
type AppContext interface {
	LoadIndex(path string) (*index.Index, error)
	Logger() *zerolog.Logger
	OutputFormat() output.Format
	Out() io.Writer
}

// NewCommand creates the validate command.
func NewCommand(app AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "validate [index.json]",
		GroupID: "core",
		Short:   "Validate a built index",
		Long: `Validate runs every structural and data-quality check over an index file
and prints a summary followed by the findings.

The command fails when any error is reported. With --strict, warnings
also fail it. Info findings never do.`,
		Example: `  smtindex validate
  smtindex validate dist/index.json --strict
  smtindex validate -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			strict, _ := cmd.Flags().GetBool(constants.KeyStrict)
			verbose, _ := cmd.Flags().GetBool(constants.KeyVerbose)
			return run(app, path, strict, verbose)
		},
	}

	cmd.Flags().Bool(constants.KeyStrict, false, "fail on warnings too")

	return cmd
}

func run(app AppContext, path string, strict, verbose bool) error {
	idx, err := app.LoadIndex(path)
	if err != nil {
		return err
	}

	report := validation.Validate(idx)
	if err := display(app, &report, verbose); err != nil {
		return err
	}

	app.Logger().Debug().
		Int("errors", report.Summary.Errors).
		Int("warnings", report.Summary.Warnings).
		Int("infos", report.Summary.Infos).
		Bool("strict", strict).
		Msg(report.String())

	return report.Err(strict)
}

// display prints the summary and the findings. Info findings are listed
// only when verbose.
func display(app AppContext, report *validation.Report, verbose bool) error {
	format := app.OutputFormat()
	w := app.Out()

	if !format.IsTable() {
		return output.NewFormatter(format).Format(w, report)
	}

	formatter := output.NewFormatter(format)
	if err := formatter.Format(w, output.ReportSummaryToTableData(report.Summary)); err != nil {
		return err
	}

	findings := report.Findings
	if !verbose {
		findings = append(report.Errors(), report.Warnings()...)
	}
	if len(findings) > 0 {
		fmt.Fprintln(w)
		if err := formatter.Format(w, output.FindingsToTableData(findings)); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "\n%s\n", report.String())
	return nil
}
