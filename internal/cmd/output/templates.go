package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/agentstation/smtindex/pkg/index"
	"github.com/agentstation/smtindex/pkg/provenance"
	"github.com/agentstation/smtindex/pkg/validation"
)

const maxDescription = 80

// Write renders data with the formatter for format. Table formats render
// table instead of data.
func Write(w io.Writer, format Format, data any, table Data) error {
	if format.IsTable() {
		return NewFormatter(format).Format(w, table)
	}
	return NewFormatter(format).Format(w, data)
}

// TemplatesToTableData converts template summaries to table format.
func TemplatesToTableData(summaries []index.Summary, wide bool) Data {
	headers := []string{"ID", "Name", "Status", "Versions", "Latest"}
	align := []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft}
	if wide {
		headers = append(headers, "IDTA Number")
		align = append(align, AlignLeft)
	}

	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		row := []string{
			s.ID,
			s.Name,
			string(s.Status),
			strconv.Itoa(s.VersionCount),
			dash(s.LatestVersion),
		}
		if wide {
			row = append(row, dash(s.RegistryNumber))
		}
		rows = append(rows, row)
	}

	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// TemplateToTableData converts one template to a key-value table.
func TemplateToTableData(t *index.Template) Data {
	rows := [][]string{
		{"ID", t.ID},
		{"Name", t.Name},
		{"IDTA Number", dash(t.RegistryNumber)},
		{"Status", string(t.Status)},
	}
	if t.RawStatus != "" {
		rows = append(rows, []string{"Registry Status", t.RawStatus})
	}
	if t.Description != "" {
		rows = append(rows, []string{"Description", truncate(t.Description, maxDescription)})
	}
	rows = append(rows, []string{"Versions", strconv.Itoa(len(t.Versions))})
	return Data{Headers: []string{"Property", "Value"}, Rows: rows}
}

// VersionsToTableData converts the versions of a template to table format.
// The wide form lists every repository folder.
func VersionsToTableData(versions []index.Version, wide bool) Data {
	headers := []string{"Version", "Latest", "PDF", "GitHub"}
	if wide {
		headers = append(headers, "Folders")
	}

	rows := make([][]string, 0, len(versions))
	for _, v := range versions {
		latest := ""
		if v.IsLatest {
			latest = "yes"
		}
		row := []string{v.Version, latest, dash(v.Links.PDF), dash(v.Links.GitHub)}
		if wide {
			folders := make([]string, 0, len(v.Repository))
			for _, e := range v.Repository {
				folders = append(folders, e.RepoPath)
			}
			row = append(row, dash(strings.Join(folders, "\n")))
		}
		rows = append(rows, row)
	}

	return Data{Headers: headers, Rows: rows}
}

// ReportSummaryToTableData converts a validation summary to a key-value table.
func ReportSummaryToTableData(s validation.Summary) Data {
	generated := "-"
	if !s.GeneratedAt.IsZero() {
		generated = s.GeneratedAt.Time.Format("2006-01-02T15:04:05Z07:00")
	}
	return Data{
		Headers: []string{"Property", "Value"},
		Rows: [][]string{
			{"Schema Version", dash(s.SchemaVersion)},
			{"Generated At", generated},
			{"Templates", strconv.Itoa(s.Templates)},
			{"Versions", strconv.Itoa(s.Versions)},
			{"Errors", strconv.Itoa(s.Errors)},
			{"Warnings", strconv.Itoa(s.Warnings)},
			{"Infos", strconv.Itoa(s.Infos)},
		},
	}
}

// FindingsToTableData converts validation findings to table format.
func FindingsToTableData(findings []validation.Finding) Data {
	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, []string{
			strings.ToUpper(string(f.Severity)),
			f.Code,
			dash(f.TemplateID),
			dash(f.Field),
			f.Message,
		})
	}
	return Data{
		Headers: []string{"Severity", "Code", "Template", "Field", "Message"},
		Rows:    rows,
	}
}

// ProvenanceToTableData lists where each field of one template came from.
func ProvenanceToTableData(res provenance.ResourceProvenance) Data {
	rows := make([][]string, 0, len(res.Fields))
	for _, f := range res.Fields {
		rows = append(rows, []string{
			f.Name,
			truncate(fmt.Sprint(f.Current.Value), maxDescription),
			string(f.Current.Source),
			dash(f.Current.Reason),
			strconv.Itoa(len(f.Conflicts)),
		})
	}
	return Data{
		Headers:         []string{"Field", "Value", "Source", "Reason", "Conflicts"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
