// Package build implements the build command.
package build

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/smtindex/internal/build"
	"github.com/agentstation/smtindex/internal/cmd/constants"
	"github.com/agentstation/smtindex/internal/cmd/output"
	pkgconstants "github.com/agentstation/smtindex/pkg/constants"
	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/validation"
)

// AppContext defines what the build command needs from the app.
type AppContext interface {
	Builder() *build.Builder
	BuildOptions() ([]build.Option, error)
	Context(ctx context.Context) context.Context
	Logger() *zerolog.Logger
	OutputFormat() output.Format
	Out() io.Writer
}

// NewCommand creates the build command.
func NewCommand(app AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "build",
		GroupID: "core",
		Short:   "Fetch both sources and build the index",
		Long: `Build fetches the IDTA registry and the submodel-templates repository in
parallel, reconciles them into one index, validates it and writes the
artifacts (index.json, index.csv, optionally index.yaml and provenance.yaml).

Nothing is written when the validator reports errors. With --strict,
warnings also refuse the build. Set SOURCE_DATE_EPOCH for reproducible
timestamps.`,
		Example: `  smtindex build
  smtindex build --output-dir public --formats json,csv,yaml
  smtindex build --snapshot-dir snapshots
  smtindex build --offline --snapshot-dir snapshots --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app)
		},
	}

	flags := cmd.Flags()
	flags.StringSlice(constants.KeyRegistryURLs, []string{pkgconstants.RegistryURL, pkgconstants.RegistryURLEnglish}, "registry pages to try, in order")
	flags.String(constants.KeyArchiveURL, pkgconstants.RepositoryArchiveURL, "repository branch archive to download")
	flags.String(constants.KeyArchiveFile, "", "read the repository archive from a local zip file")
	flags.String(constants.KeyRepositoryURL, pkgconstants.RepositoryURL, "repository base URL for browse links")
	flags.String(constants.KeyBranch, pkgconstants.RepositoryBranch, "repository branch for browse links")
	flags.Duration(constants.KeyFetchTimeout, pkgconstants.FetchTimeout, "bound on fetching both sources")
	flags.String(constants.KeySnapshotDir, "", "save fetched source snapshots here")
	flags.Bool(constants.KeyOffline, false, "build from the snapshots in --snapshot-dir instead of fetching")
	flags.String(constants.KeyOutputDir, "dist", "artifact directory")
	flags.StringSlice(constants.KeyFormats, []string{"json", "csv"}, "index formats to write: json, csv, yaml")
	flags.Bool(constants.KeyProvenance, true, "write provenance.yaml")
	flags.String(constants.KeyGitCommit, "", "revision recorded in the index provenance")
	flags.String(constants.KeySourceDateEpoch, "", "freeze build timestamps at this Unix time")
	flags.Bool(constants.KeyDryRun, false, "fetch, merge and validate without writing")
	flags.Bool(constants.KeyStrict, false, "refuse to write on validator warnings")

	return cmd
}

func run(cmd *cobra.Command, app AppContext) error {
	dryRun, _ := cmd.Flags().GetBool(constants.KeyDryRun)
	strict, _ := cmd.Flags().GetBool(constants.KeyStrict)

	opts, err := app.BuildOptions()
	if err != nil {
		return err
	}
	opts = append(opts, build.WithDryRun(dryRun), build.WithStrict(strict))

	ctx := app.Context(cmd.Context())
	result, err := app.Builder().Build(ctx, opts...)
	if result != nil {
		if printErr := report(app, result); printErr != nil {
			return printErr
		}
	}
	if err != nil {
		if errors.IsValidationError(err) {
			return fmt.Errorf("index not written: %w", err)
		}
		return err
	}

	app.Logger().Info().
		Dur("duration", result.Duration.Round(time.Millisecond)).
		Strs("files", result.Files).
		Msg(result.Summary())
	return nil
}

// report prints the build: its summary and any findings above info.
func report(app AppContext, result *build.Result) error {
	format := app.OutputFormat()
	w := app.Out()

	if !format.IsTable() {
		return output.NewFormatter(format).Format(w, struct {
			Summary    string            `json:"summary" yaml:"summary"`
			Files      []string          `json:"files" yaml:"files"`
			DryRun     bool              `json:"dry_run" yaml:"dry_run"`
			Validation validation.Report `json:"validation" yaml:"validation"`
		}{result.Summary(), result.Files, result.DryRun, result.Validation})
	}

	fmt.Fprintln(w, result.Summary())
	findings := append(result.Validation.Errors(), result.Validation.Warnings()...)
	if len(findings) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	return output.NewFormatter(format).Format(w, output.FindingsToTableData(findings))
}
