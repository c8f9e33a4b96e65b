// Package export writes an index in its published encodings: structured
// JSON and YAML, and a flat CSV with one row per template version.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/agentstation/smtindex/internal/fsutil"
	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/index"
)

// Header is the column order of the flat export.
var Header = []string{
	"id",
	"name",
	"idta_number",
	"status",
	"version",
	"is_latest",
	"description",
	"pdf_url",
	"github_url",
}

// Row is one line of the flat export.
type Row struct {
	ID             string
	Name           string
	RegistryNumber string
	Status         string
	Version        string
	IsLatest       string // "true", "false", or empty for a template without versions
	Description    string
	PDFURL         string
	GitHubURL      string
}

// Record returns the row's fields in Header order.
func (r Row) Record() []string {
	return []string{r.ID, r.Name, r.RegistryNumber, r.Status, r.Version, r.IsLatest, r.Description, r.PDFURL, r.GitHubURL}
}

// Rows flattens idx: one row per template version, and a single row with
// empty version columns for a template without versions.
func Rows(idx *index.Index) []Row {
	rows := make([]Row, 0, len(idx.Templates))
	for _, t := range idx.Templates {
		base := Row{
			ID:             t.ID,
			Name:           t.Name,
			RegistryNumber: t.RegistryNumber,
			Status:         t.Status.String(),
			Description:    t.Description,
		}
		if len(t.Versions) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, v := range t.Versions {
			row := base
			row.Version = v.Version
			row.IsLatest = strconv.FormatBool(v.IsLatest)
			row.PDFURL = v.Links.PDF
			row.GitHubURL = v.Links.GitHub
			rows = append(rows, row)
		}
	}
	return rows
}

// WriteCSV writes the flat export with a header row.
func WriteCSV(w io.Writer, idx *index.Index) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return errors.WrapIO("write", "csv", err)
	}
	for _, row := range Rows(idx) {
		if err := cw.Write(row.Record()); err != nil {
			return errors.WrapIO("write", "csv", err)
		}
	}
	cw.Flush()
	return errors.WrapIO("write", "csv", cw.Error())
}

// Encode writes idx to w in format f.
func Encode(w io.Writer, idx *index.Index, f Format) error {
	switch f {
	case FormatJSON:
		return index.Encode(w, idx)
	case FormatYAML:
		data, err := index.MarshalYAML(idx)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return errors.WrapIO("write", "yaml", err)
	case FormatCSV:
		return WriteCSV(w, idx)
	}
	return errors.NewValidationError("format", f.String(), "unsupported format")
}

// Write exports idx according to opts: to the configured writer, or
// atomically to the configured path.
func Write(idx *index.Index, opts ...Option) error {
	if idx == nil {
		return errors.NewValidationError("index", nil, "cannot be nil")
	}
	o := Defaults().Apply(opts...)
	if !o.Format().IsValid() {
		return errors.NewValidationError("format", o.Format().String(), "unsupported format")
	}
	switch {
	case o.Writer() != nil:
		return Encode(o.Writer(), idx, o.Format())
	case o.Path() != "":
		return fsutil.WriteFileAtomic(o.Path(), func(w io.Writer) error {
			return Encode(w, idx, o.Format())
		})
	}
	return errors.NewValidationError("destination", nil, "either a path or a writer is required")
}
