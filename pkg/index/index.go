// Package index defines the built Submodel Template index: the artifact the
// merge engine produces and every downstream consumer reads.
//
// An Index owns its Templates and a Template owns its Versions. Indexes are
// built once per run and replaced wholesale; nothing mutates a loaded index.
package index

import (
	"github.com/agentstation/utc"

	"github.com/agentstation/smtindex/pkg/status"
)

// Index is the structured form of a build.
type Index struct {
	SchemaVersion string      `json:"schema_version" yaml:"schema_version"`
	GeneratedAt   utc.Time    `json:"generated_at" yaml:"generated_at"`
	Sources       Sources     `json:"sources" yaml:"sources"`
	Provenance    *Provenance `json:"provenance,omitempty" yaml:"provenance,omitempty"`
	Templates     []Template  `json:"templates" yaml:"templates"`
}

// Sources records where the two inputs were read from.
type Sources struct {
	Registry   string `json:"idta_registered_templates" yaml:"idta_registered_templates"`
	Repository string `json:"github_submodel_templates" yaml:"github_submodel_templates"`
}

// Provenance describes the build as a whole.
type Provenance struct {
	BuildStartedAt       utc.Time           `json:"build_started_at" yaml:"build_started_at"`
	BuildCompletedAt     utc.Time           `json:"build_completed_at" yaml:"build_completed_at"`
	BuildDurationSeconds float64            `json:"build_duration_seconds" yaml:"build_duration_seconds"`
	Sources              []SourceProvenance `json:"sources" yaml:"sources"`
	GitCommit            string             `json:"git_commit,omitempty" yaml:"git_commit,omitempty"`
	ToolVersion          string             `json:"tool_version" yaml:"tool_version"`
}

// SourceProvenance records one fetch.
type SourceProvenance struct {
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	URL         string   `json:"url" yaml:"url"`
	FetchedAt   utc.Time `json:"fetched_at" yaml:"fetched_at"`
	RecordCount int      `json:"record_count" yaml:"record_count"`
}

// Template is the canonical unit of the index.
type Template struct {
	ID             string        `json:"id" yaml:"id"`
	Name           string        `json:"name" yaml:"name"`
	RegistryNumber string        `json:"idta_number,omitempty" yaml:"idta_number,omitempty"`
	Status         status.Status `json:"status" yaml:"status"`
	RawStatus      string        `json:"raw_status,omitempty" yaml:"raw_status,omitempty"`
	Description    string        `json:"description,omitempty" yaml:"description,omitempty"`
	Versions       []Version     `json:"versions" yaml:"versions"` // newest first
}

// Version is one release of a template.
type Version struct {
	Version    string            `json:"version" yaml:"version"`
	IsLatest   bool              `json:"is_latest" yaml:"is_latest"`
	Links      Links             `json:"links" yaml:"links"`
	Repository []RepositoryEntry `json:"github" yaml:"github"` // every contributing folder, published first
}

// Links are the browsable artifacts of a version. Either may be empty.
type Links struct {
	PDF    string `json:"pdf,omitempty" yaml:"pdf,omitempty"`
	GitHub string `json:"github,omitempty" yaml:"github,omitempty"`
}

// HasAny reports whether at least one link is present.
func (l Links) HasAny() bool {
	return l.PDF != "" || l.GitHub != ""
}

// Repository areas.
const (
	AreaPublished  = "published"
	AreaDeprecated = "deprecated"
)

// RepositoryEntry is one repository folder contributing to a version.
type RepositoryEntry struct {
	Area      string `json:"area" yaml:"area"`
	RepoPath  string `json:"repo_path" yaml:"repo_path"`
	GitHubURL string `json:"github_url" yaml:"github_url"`
}

// Latest returns the version flagged latest.
func (t *Template) Latest() (Version, bool) {
	for _, v := range t.Versions {
		if v.IsLatest {
			return v, true
		}
	}
	return Version{}, false
}

// Find returns the template with the given id.
func (idx *Index) Find(id string) (*Template, bool) {
	for i := range idx.Templates {
		if idx.Templates[i].ID == id {
			return &idx.Templates[i], true
		}
	}
	return nil, false
}

// VersionCount returns the number of versions across all templates.
func (idx *Index) VersionCount() int {
	n := 0
	for _, t := range idx.Templates {
		n += len(t.Versions)
	}
	return n
}

// normalize replaces nil collections with empty ones so that encoded
// output is stable regardless of how the index was constructed.
func (idx *Index) normalize() {
	if idx.Templates == nil {
		idx.Templates = []Template{}
	}
	for i := range idx.Templates {
		t := &idx.Templates[i]
		if t.Versions == nil {
			t.Versions = []Version{}
		}
		for j := range t.Versions {
			if t.Versions[j].Repository == nil {
				t.Versions[j].Repository = []RepositoryEntry{}
			}
		}
	}
	if idx.Provenance != nil && idx.Provenance.Sources == nil {
		idx.Provenance.Sources = []SourceProvenance{}
	}
}
