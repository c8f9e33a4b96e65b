// Package validation checks a built index against the structural rules its
// consumers rely on.
//
// Validate never stops at the first problem; every check runs and each
// finding carries a severity. Deciding what a finding means (refusing to
// publish, failing CI) is left to the caller.
package validation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/agentstation/utc"

	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/index"
	"github.com/agentstation/smtindex/pkg/semver"
)

// Severity ranks a finding.
type Severity string

// Severities, most severe first.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// String returns the string representation of a Severity.
func (s Severity) String() string {
	return string(s)
}

// Finding codes.
const (
	CodeNilIndex            = "nil_index"
	CodeSchemaVersion       = "schema_version_missing"
	CodeIDMissing           = "id_missing"
	CodeNameMissing         = "name_missing"
	CodeDuplicateID         = "duplicate_id"
	CodeInvalidStatus       = "invalid_status"
	CodeLatestCount         = "latest_count"
	CodeLatestNotMaximum    = "latest_not_maximum"
	CodeInvalidURL          = "invalid_url"
	CodeIrregularVersion    = "irregular_version"
	CodeDuplicateVersion    = "duplicate_version"
	CodeTemplatesUnordered  = "templates_unordered"
	CodeVersionsUnordered   = "versions_unordered"
	CodeVersionWithoutLinks = "version_without_links"
	CodeNoVersions          = "template_without_versions"
	CodeNonGitHubURL        = "non_github_url"
	CodeBuildTimes          = "build_times"
)

// Finding is one validation result.
type Finding struct {
	Severity   Severity `json:"severity" yaml:"severity"`
	Code       string   `json:"code" yaml:"code"`
	TemplateID string   `json:"template_id,omitempty" yaml:"template_id,omitempty"`
	Field      string   `json:"field,omitempty" yaml:"field,omitempty"`
	Message    string   `json:"message" yaml:"message"`
}

// Summary describes the validated index.
type Summary struct {
	SchemaVersion string   `json:"schema_version" yaml:"schema_version"`
	GeneratedAt   utc.Time `json:"generated_at" yaml:"generated_at"`
	Templates     int      `json:"templates" yaml:"templates"`
	Versions      int      `json:"versions" yaml:"versions"`
	Errors        int      `json:"errors" yaml:"errors"`
	Warnings      int      `json:"warnings" yaml:"warnings"`
	Infos         int      `json:"infos" yaml:"infos"`
}

// Report contains every finding of one validation run.
type Report struct {
	Summary  Summary   `json:"summary" yaml:"summary"`
	Findings []Finding `json:"findings" yaml:"findings"`
}

// HasErrors returns true if any finding is an error.
func (r *Report) HasErrors() bool {
	return r.Summary.Errors > 0
}

// HasWarnings returns true if any finding is a warning.
func (r *Report) HasWarnings() bool {
	return r.Summary.Warnings > 0
}

// IsValid returns true if the report has no errors.
func (r *Report) IsValid() bool {
	return !r.HasErrors()
}

// BySeverity returns the findings with severity s, in check order.
func (r *Report) BySeverity(s Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

// Errors returns the error findings.
func (r *Report) Errors() []Finding { return r.BySeverity(SeverityError) }

// Warnings returns the warning findings.
func (r *Report) Warnings() []Finding { return r.BySeverity(SeverityWarning) }

// Err returns a ValidationError summarizing the error findings, or nil.
// With strict set, warnings also produce an error.
func (r *Report) Err(strict bool) error {
	switch {
	case r.HasErrors():
		first := r.Errors()[0]
		return &errors.ValidationError{
			Field:   first.Field,
			Value:   first.TemplateID,
			Message: fmt.Sprintf("%d errors, first: %s", r.Summary.Errors, first.Message),
		}
	case strict && r.HasWarnings():
		first := r.Warnings()[0]
		return &errors.ValidationError{
			Field:   first.Field,
			Value:   first.TemplateID,
			Message: fmt.Sprintf("%d warnings in strict mode, first: %s", r.Summary.Warnings, first.Message),
		}
	}
	return nil
}

// String returns a one-line description of the report.
func (r *Report) String() string {
	if r.IsValid() {
		if r.HasWarnings() {
			return fmt.Sprintf("Validation passed with %d warnings", r.Summary.Warnings)
		}
		return "Validation passed"
	}
	return fmt.Sprintf("Validation failed with %d errors", r.Summary.Errors)
}

// Validate checks idx and returns every finding.
func Validate(idx *index.Index) Report {
	v := &validator{}
	if idx == nil {
		v.add(SeverityError, CodeNilIndex, "", "", "index is nil")
		return v.report(Summary{})
	}

	if strings.TrimSpace(idx.SchemaVersion) == "" {
		v.add(SeverityError, CodeSchemaVersion, "", "schema_version", "schema_version is missing")
	}
	v.checkURL("", "sources.idta_registered_templates", idx.Sources.Registry, false)
	v.checkURL("", "sources.github_submodel_templates", idx.Sources.Repository, true)
	if idx.Provenance != nil {
		v.checkProvenance(idx.Provenance)
	}

	seen := make(map[string]int, len(idx.Templates))
	for i := range idx.Templates {
		t := &idx.Templates[i]
		v.checkTemplate(t)
		if t.ID == "" {
			continue
		}
		if first, dup := seen[t.ID]; dup {
			v.add(SeverityError, CodeDuplicateID, t.ID, "id", fmt.Sprintf("id is used by templates %d and %d", first, i))
		} else {
			seen[t.ID] = i
		}
		if i > 0 && idx.Templates[i-1].ID > t.ID {
			v.add(SeverityWarning, CodeTemplatesUnordered, t.ID, "id", fmt.Sprintf("template follows %s; templates are not ordered by id", idx.Templates[i-1].ID))
		}
	}

	return v.report(Summary{
		SchemaVersion: idx.SchemaVersion,
		GeneratedAt:   idx.GeneratedAt,
		Templates:     len(idx.Templates),
		Versions:      idx.VersionCount(),
	})
}

type validator struct {
	findings []Finding
}

func (v *validator) add(s Severity, code, templateID, field, message string) {
	v.findings = append(v.findings, Finding{
		Severity:   s,
		Code:       code,
		TemplateID: templateID,
		Field:      field,
		Message:    message,
	})
}

func (v *validator) report(summary Summary) Report {
	for _, f := range v.findings {
		switch f.Severity {
		case SeverityError:
			summary.Errors++
		case SeverityWarning:
			summary.Warnings++
		default:
			summary.Infos++
		}
	}
	findings := v.findings
	if findings == nil {
		findings = []Finding{}
	}
	return Report{Summary: summary, Findings: findings}
}

func (v *validator) checkTemplate(t *index.Template) {
	if strings.TrimSpace(t.ID) == "" {
		v.add(SeverityError, CodeIDMissing, "", "id", fmt.Sprintf("template %q has no id", t.Name))
	}
	if strings.TrimSpace(t.Name) == "" {
		v.add(SeverityError, CodeNameMissing, t.ID, "name", "template has no name")
	}
	if !t.Status.IsValid() {
		v.add(SeverityError, CodeInvalidStatus, t.ID, "status", fmt.Sprintf("status %q is not a known status", t.Status))
	}
	if len(t.Versions) == 0 {
		v.add(SeverityInfo, CodeNoVersions, t.ID, "versions", "template has no versions")
		return
	}
	v.checkVersions(t)
}

func (v *validator) checkVersions(t *index.Template) {
	keys := make([]semver.Key, len(t.Versions))
	maximum := 0
	latest := -1
	latestCount := 0
	for i, ver := range t.Versions {
		field := fmt.Sprintf("versions[%d]", i)
		keys[i] = semver.Parse(ver.Version)
		if semver.Compare(keys[i], keys[maximum]) > 0 {
			maximum = i
		}
		if ver.IsLatest {
			latestCount++
			latest = i
		}

		if keys[i].Kind != semver.Strict {
			v.add(SeverityWarning, CodeIrregularVersion, t.ID, field+".version", fmt.Sprintf("version %q is not a semantic version", ver.Version))
		}
		if i > 0 {
			switch c := semver.Compare(keys[i-1], keys[i]); {
			case c == 0:
				v.add(SeverityWarning, CodeDuplicateVersion, t.ID, field+".version", fmt.Sprintf("version %q is listed twice", ver.Version))
			case c < 0:
				v.add(SeverityWarning, CodeVersionsUnordered, t.ID, field+".version", fmt.Sprintf("version %q follows older %q", ver.Version, t.Versions[i-1].Version))
			}
		}

		if !ver.Links.HasAny() {
			v.add(SeverityInfo, CodeVersionWithoutLinks, t.ID, field+".links", fmt.Sprintf("version %q has no links", ver.Version))
		}
		v.checkURL(t.ID, field+".links.pdf", ver.Links.PDF, false)
		v.checkURL(t.ID, field+".links.github", ver.Links.GitHub, true)
		for j, entry := range ver.Repository {
			v.checkURL(t.ID, fmt.Sprintf("%s.github[%d].github_url", field, j), entry.GitHubURL, true)
		}
	}

	switch {
	case latestCount != 1:
		v.add(SeverityError, CodeLatestCount, t.ID, "versions", fmt.Sprintf("%d versions are flagged latest, want exactly 1", latestCount))
	case semver.Compare(keys[latest], keys[maximum]) != 0:
		v.add(SeverityError, CodeLatestNotMaximum, t.ID, fmt.Sprintf("versions[%d]", latest),
			fmt.Sprintf("latest version %q is not the highest (%q)", t.Versions[latest].Version, t.Versions[maximum].Version))
	}
}

func (v *validator) checkProvenance(p *index.Provenance) {
	if !p.BuildStartedAt.IsZero() && !p.BuildCompletedAt.IsZero() && p.BuildCompletedAt.Before(p.BuildStartedAt) {
		v.add(SeverityWarning, CodeBuildTimes, "", "provenance.build_completed_at", "build completed before it started")
	}
	for i, src := range p.Sources {
		v.checkURL("", fmt.Sprintf("provenance.sources[%d].url", i), src.URL, false)
	}
}

// checkURL validates an optional URL field. GitHub fields are additionally
// expected to point at github.com.
func (v *validator) checkURL(templateID, field, raw string, github bool) {
	if raw == "" {
		return
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.add(SeverityWarning, CodeInvalidURL, templateID, field, fmt.Sprintf("%q is not an absolute http(s) URL", raw))
		return
	}
	if github && !strings.EqualFold(strings.TrimPrefix(u.Hostname(), "www."), "github.com") {
		v.add(SeverityInfo, CodeNonGitHubURL, templateID, field, fmt.Sprintf("%q is not a GitHub URL", raw))
	}
}
