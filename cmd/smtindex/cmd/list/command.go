// Package list implements the list and show commands.
package list

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentstation/smtindex/internal/cmd/output"
	"github.com/agentstation/smtindex/pkg/constants"
	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/index"
	"github.com/agentstation/smtindex/pkg/provenance"
	"github.com/agentstation/smtindex/pkg/status"
)

// AppContext defines what the list commands need from the app.
type AppContext interface {
	IndexPath() string
	LoadIndex(path string) (*index.Index, error)
	OutputFormat() output.Format
	Out() io.Writer
}

// NewCommand creates the list command.
func NewCommand(app AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		GroupID: "query",
		Short:   "List templates in the index",
		Long: `List prints one row per template with its status, version count and
latest version. Filter by normalized status and by a case-insensitive
search over name, description, id and IDTA number.`,
		Example: `  smtindex list
  smtindex list --status published
  smtindex list --search nameplate -o wide
  smtindex list --status "in review" -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statusFlag, _ := cmd.Flags().GetString("status")
			search, _ := cmd.Flags().GetString("search")
			return runList(app, index.Filter{Status: statusFlag, Query: search})
		},
	}

	cmd.Flags().String("status", "", "only templates with this status: "+statusNames())
	cmd.Flags().StringP("search", "s", "", "case-insensitive search over name, description, id and number")

	return cmd
}

func runList(app AppContext, filter index.Filter) error {
	if filter.Status != "" {
		if _, ok := status.Parse(filter.Status); !ok {
			return errors.NewValidationError("status", filter.Status, "must be one of "+statusNames())
		}
	}

	idx, err := app.LoadIndex("")
	if err != nil {
		return err
	}

	summaries := idx.Select(filter)
	format := app.OutputFormat()
	if format.IsTable() && len(summaries) == 0 {
		fmt.Fprintln(app.Out(), "No templates found")
		return nil
	}
	return output.Write(app.Out(), format, summaries, output.TemplatesToTableData(summaries, format == output.FormatWide))
}

// NewShowCommand creates the show command.
func NewShowCommand(app AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "show <template-id>",
		GroupID: "query",
		Short:   "Show one template with all of its versions",
		Long: `Show prints one template and its versions. With --provenance it also
prints where each field came from, read from the provenance.yaml written
next to the index by build.`,
		Example: `  smtindex show idta-02006-digital-nameplate
  smtindex show gh-carbon-footprint -o yaml
  smtindex show idta-02006-digital-nameplate --provenance`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			withProvenance, _ := cmd.Flags().GetBool("provenance")
			return runShow(app, args[0], withProvenance)
		},
	}
	cmd.Flags().Bool("provenance", false, "include field provenance from provenance.yaml")
	return cmd
}

// shown is the structured output of show --provenance.
type shown struct {
	Template   *index.Template                `json:"template" yaml:"template"`
	Provenance *provenance.ResourceProvenance `json:"provenance" yaml:"provenance"`
}

func runShow(app AppContext, id string, withProvenance bool) error {
	idx, err := app.LoadIndex("")
	if err != nil {
		return err
	}
	tmpl, ok := idx.Find(id)
	if !ok {
		return errors.NewNotFoundError("template", id)
	}

	var fields *provenance.ResourceProvenance
	if withProvenance {
		if fields, err = loadProvenance(app.IndexPath(), id); err != nil {
			return err
		}
	}

	format := app.OutputFormat()
	w := app.Out()
	if !format.IsTable() {
		if withProvenance {
			return output.NewFormatter(format).Format(w, shown{Template: tmpl, Provenance: fields})
		}
		return output.NewFormatter(format).Format(w, tmpl)
	}

	formatter := output.NewFormatter(format)
	if err := formatter.Format(w, output.TemplateToTableData(tmpl)); err != nil {
		return err
	}
	if len(tmpl.Versions) > 0 {
		fmt.Fprintln(w)
		if err := formatter.Format(w, output.VersionsToTableData(tmpl.Versions, format == output.FormatWide)); err != nil {
			return err
		}
	}
	if fields == nil {
		return nil
	}
	fmt.Fprintln(w)
	return formatter.Format(w, output.ProvenanceToTableData(*fields))
}

// loadProvenance reads the field provenance of one template from the
// provenance file beside the index.
func loadProvenance(indexPath, id string) (*provenance.ResourceProvenance, error) {
	path := filepath.Join(filepath.Dir(indexPath), constants.ProvenanceFile)
	report, err := provenance.Load(path)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, errors.NewNotFoundError("provenance file", path)
	}
	res, ok := report.Resource(provenance.ResourceTypeTemplate, id)
	if !ok {
		return nil, errors.NewNotFoundError("provenance for template", id)
	}
	return &res, nil
}

func statusNames() string {
	names := ""
	for i, s := range status.All() {
		if i > 0 {
			names += ", "
		}
		names += fmt.Sprintf("%q", s)
	}
	return names
}
