package reconciler

import (
	"github.com/agentstation/smtindex/pkg/index"
	"github.com/agentstation/smtindex/pkg/provenance"
)

// Result represents the outcome of a merge.
type Result struct {
	// Index is the built index.
	Index *index.Index

	// Warnings are data-quality findings. They never block a build.
	Warnings []Warning

	// Provenance records which source each template field came from.
	Provenance provenance.Map

	// Statistics about the merge
	Statistics Statistics
}

// WarningCode classifies a merge warning.
type WarningCode string

// Warning codes.
const (
	WarningEmptySource      WarningCode = "empty_source"
	WarningCountMismatch    WarningCode = "record_count_mismatch"
	WarningSkippedRecord    WarningCode = "skipped_record"
	WarningFolderClaimed    WarningCode = "folder_already_joined"
	WarningNameMismatch     WarningCode = "name_mismatch"
	WarningIrregularVersion WarningCode = "irregular_version"
	WarningDisambiguated    WarningCode = "disambiguated_id"
)

// Warning is a non-fatal data-quality finding.
type Warning struct {
	Code       WarningCode `json:"code" yaml:"code"`
	TemplateID string      `json:"template_id,omitempty" yaml:"template_id,omitempty"`
	Message    string      `json:"message" yaml:"message"`
}

// Statistics contains merge counts.
type Statistics struct {
	RegistryRecords   int                 `json:"registry_records" yaml:"registry_records"`
	RepositoryRecords int                 `json:"repository_records" yaml:"repository_records"`
	RegistryGroups    int                 `json:"registry_groups" yaml:"registry_groups"`
	RepositoryGroups  int                 `json:"repository_groups" yaml:"repository_groups"`
	Joined            int                 `json:"joined" yaml:"joined"`
	JoinedBy          map[MatchMethod]int `json:"joined_by" yaml:"joined_by"`
	RegistryOnly      int                 `json:"registry_only" yaml:"registry_only"`
	RepositoryOnly    int                 `json:"repository_only" yaml:"repository_only"`
	Templates         int                 `json:"templates" yaml:"templates"`
	Versions          int                 `json:"versions" yaml:"versions"`
	Disambiguated     int                 `json:"disambiguated" yaml:"disambiguated"`
}

// HasWarnings returns true if the merge produced warnings.
func (r *Result) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// WarningsByCode returns the warnings with the given code.
func (r *Result) WarningsByCode(code WarningCode) []Warning {
	var out []Warning
	for _, w := range r.Warnings {
		if w.Code == code {
			out = append(out, w)
		}
	}
	return out
}
